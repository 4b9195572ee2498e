package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Greetings(t *testing.T) {
	tests := []struct {
		query    string
		greeting bool
	}{
		{"hello", true},
		{"  Hello  ", true},
		{"HEY", true},
		{"good morning", true},
		{"hello there, how are you", false}, // exact match only, not substring
		{"what is the refund policy", false},
	}

	for _, tt := range tests {
		c := Classify(tt.query)
		assert.Equal(t, tt.greeting, c.IsGreeting, "query %q", tt.query)
	}
}

func TestClassify_VisualIntent(t *testing.T) {
	tests := []struct {
		query  string
		visual bool
	}{
		{"show me the diagram on page 5", true},
		{"what does figure 8-6 illustrate", true},
		{"is there a table of contents", true},
		{"what is the refund policy", false},
		{"summarize the introduction", false},
	}

	for _, tt := range tests {
		c := Classify(tt.query)
		assert.Equal(t, tt.visual, c.IsVisual, "query %q", tt.query)
	}
}

func TestClassify_FlagsAreIndependent(t *testing.T) {
	c := Classify("hello")
	assert.True(t, c.IsGreeting)
	assert.False(t, c.IsVisual)

	// A query can carry both flags at once.
	c = Classify("show me")
	assert.True(t, c.IsVisual)
}

func TestExtractReferences_ChapterQuery(t *testing.T) {
	refs := ExtractReferences("what is in chapter 3?", 0)

	assert.Contains(t, refs, "chapter 3")
	assert.Contains(t, refs, "3")
	assert.Contains(t, refs, "section 3")
	assert.Contains(t, refs, "page 3")
}

func TestExtractReferences_Deduplicated(t *testing.T) {
	refs := ExtractReferences("compare chapter 3 with section 3", 0)

	seen := make(map[string]int)
	for _, r := range refs {
		seen[r]++
	}
	for r, n := range seen {
		assert.Equal(t, 1, n, "reference %q duplicated", r)
	}
}

func TestExtractReferences_Bounded(t *testing.T) {
	refs := ExtractReferences("pages 1 2 3 4 5 6 7 8 9 10 11 12", 16)
	assert.LessOrEqual(t, len(refs), 16)
}

func TestExtractReferences_NoNumbers(t *testing.T) {
	assert.Nil(t, ExtractReferences("what is this about", 0))
}

func TestExtractReferences_Deterministic(t *testing.T) {
	first := ExtractReferences("chapter 3 and page 12", 0)
	second := ExtractReferences("chapter 3 and page 12", 0)
	assert.Equal(t, first, second)
}

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("What is the refund policy for enterprise customers?")

	assert.Equal(t, []string{"refund", "policy", "enterprise", "customers"}, keywords)
}

func TestExtractKeywords_StripsPunctuationAndShortTokens(t *testing.T) {
	keywords := ExtractKeywords("Go vs. C++: performance, cost!")

	assert.NotContains(t, keywords, "vs")
	assert.Contains(t, keywords, "performance")
	assert.Contains(t, keywords, "cost")
}

func TestExtractKeywords_Empty(t *testing.T) {
	assert.Empty(t, ExtractKeywords("what is the a an"))
}
