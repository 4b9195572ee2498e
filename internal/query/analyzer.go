package query

import (
	"regexp"
	"sort"
	"strings"
)

// Vocabularies are data, not code: fixed immutable sets the pure functions
// below consult. Extending a vocabulary never touches control flow.
var (
	// structuralUnits are the vocabulary words combined with every number
	// found in a query to over-generate candidate references. This trades
	// precision for recall when a document's structural vocabulary is
	// unknown in advance.
	structuralUnits = []string{
		"chapter", "section", "part", "page", "lesson", "unit", "module", "exercise",
	}

	stopWords = map[string]struct{}{
		"what": {}, "is": {}, "this": {}, "document": {}, "about": {},
		"who": {}, "how": {}, "when": {}, "where": {}, "why": {},
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
		"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
	}

	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {}, "good morning": {},
		"good afternoon": {}, "good evening": {}, "thanks": {}, "thank you": {},
	}

	visualTerms = []string{
		"figure", "fig", "diagram", "chart", "graph", "image", "picture",
		"illustration", "screenshot", "photo", "table", "show me",
		"display", "visual", "drawing", "plot", "map",
	}

	numberToken = regexp.MustCompile(`\b(\d+)\b`)
)

// Classification holds the independent, non-exclusive query flags.
type Classification struct {
	IsGreeting bool
	IsVisual   bool
}

// Classify labels a query as greeting and/or visual-intent using lexical
// lookups. Greeting detection is an exact match against the trimmed,
// lower-cased query; visual detection is a substring scan.
func Classify(query string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(query))

	var c Classification
	_, c.IsGreeting = greetings[normalized]

	for _, term := range visualTerms {
		if strings.Contains(normalized, term) {
			c.IsVisual = true
			break
		}
	}

	return c
}

// ExtractReferences generates candidate structural references for every
// standalone integer in the query: one per structural-unit vocabulary word
// plus the bare number. The result is deduplicated and sorted for
// deterministic fan-out, and bounded by maxRefs to keep the downstream search
// count under control for queries containing many numbers.
func ExtractReferences(query string, maxRefs int) []string {
	matches := numberToken.FindAllString(strings.ToLower(query), -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var refs []string
	add := func(ref string) {
		if _, ok := seen[ref]; !ok {
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}

	for _, num := range matches {
		for _, unit := range structuralUnits {
			add(unit + " " + num)
		}
		add(num)
	}

	sort.Strings(refs)

	if maxRefs > 0 && len(refs) > maxRefs {
		refs = refs[:maxRefs]
	}
	return refs
}

// ExtractKeywords lower-cases the query, splits on whitespace, strips
// surrounding punctuation, and drops stop words and tokens shorter than three
// characters. Order follows the query; no stemming or synonym expansion.
func ExtractKeywords(query string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, token := range strings.Fields(strings.ToLower(query)) {
		word := strings.Trim(token, `.,!?;:"'()`)
		if len(word) < 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	return keywords
}
