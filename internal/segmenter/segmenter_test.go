package segmenter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag-mcp/pkg/types"
)

func section(words int, word string) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestSegment_SizeBound(t *testing.T) {
	s := New(10, 0)

	var sections []string
	for i := 0; i < 6; i++ {
		sections = append(sections, section(4, fmt.Sprintf("w%d", i)))
	}
	text := strings.Join(sections, "\n\n")

	chunks, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)

	for _, c := range chunks {
		assert.LessOrEqual(t, c.WordCount, 10, "chunk %d exceeds budget", c.ChunkID)
	}
}

func TestSegment_OversizedSectionKeptIntact(t *testing.T) {
	s := New(10, 0)

	big := section(25, "big")
	text := section(4, "a") + "\n\n" + big + "\n\n" + section(4, "b")

	chunks, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 25, chunks[1].WordCount)
	assert.Equal(t, big, chunks[1].Text)
}

func TestSegment_Coverage(t *testing.T) {
	s := New(8, 0)

	sections := []string{
		"alpha beta gamma",
		"delta epsilon zeta eta",
		"theta iota",
		"kappa lambda mu nu xi omicron pi rho sigma",
		"tau upsilon",
	}
	text := strings.Join(sections, "\n\n")

	chunks, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)

	var rebuilt []string
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkID)
		rebuilt = append(rebuilt, c.Text)
	}
	assert.Equal(t, text, strings.Join(rebuilt, "\n\n"))
}

func TestSegment_Deterministic(t *testing.T) {
	s := New(12, 0)
	text := section(5, "x") + "\n\n" + section(9, "y") + "\n\n" + section(3, "z")

	first, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)
	second, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSegment_EmptyDocument(t *testing.T) {
	s := New(10, 0)

	for _, input := range []string{"", "   ", "\n\n\n"} {
		_, err := s.Segment(input, "empty.pdf")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrEmptyDocument)
	}
}

func TestSegment_StructuralFlags(t *testing.T) {
	s := New(100, 0)

	text := "func main() {\n\tprintln(1)\n}\n\n" +
		"• first item\n• second item\n\n" +
		"| col a | col b |\n| 1 | 2 |"

	chunks, err := s.Segment(text, "doc.pdf")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.True(t, c.HasCode)
	assert.True(t, c.HasList)
	assert.True(t, c.HasTable)
}

func TestClean_NormalizesWhitespaceAndBullets(t *testing.T) {
	in := "Title   \n\n\n\n- item one\n* item two\n\nbody text\t\n"
	out := Clean(in)

	assert.NotContains(t, out, "\n\n\n")
	assert.Contains(t, out, "• item one")
	assert.Contains(t, out, "• item two")
	assert.NotContains(t, out, "Title   \n")
}

func TestClean_PreservesCodeIndentation(t *testing.T) {
	in := "intro\n\n```\n    indented := true\n```"
	out := Clean(in)

	assert.Contains(t, out, "    indented := true")
}
