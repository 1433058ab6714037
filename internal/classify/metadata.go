package classify

import "strings"

// MetadataClassifier is the text-only fast path: it inspects a candidate's
// metadata strings for a prohibited-subject signal without touching the
// network. Pure and total over any input.
type MetadataClassifier struct {
	keywords []string
	tokens   map[string]bool
}

// NewMetadata builds a classifier over the ruleset's keyword and
// misspelling-token sets.
func NewMetadata(rs *Ruleset) *MetadataClassifier {
	m := &MetadataClassifier{
		keywords: make([]string, 0, len(rs.Keywords)),
		tokens:   make(map[string]bool, len(rs.MisspellingTokens)),
	}
	for _, kw := range rs.Keywords {
		m.keywords = append(m.keywords, strings.ToLower(kw))
	}
	for _, tok := range rs.MisspellingTokens {
		m.tokens[strings.ToLower(tok)] = true
	}
	return m
}

// Classify reports whether the metadata strings signal the prohibited
// subject. Keywords match as plain substrings of the lower-cased blob, so a
// longer word containing a keyword also fires; misspelling tokens match only
// on exact token boundaries.
func (m *MetadataClassifier) Classify(texts []string) bool {
	var parts []string
	for _, t := range texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	blob := strings.ToLower(strings.Join(parts, " "))
	if blob == "" {
		return false
	}

	for _, kw := range m.keywords {
		if strings.Contains(blob, kw) {
			return true
		}
	}

	if len(m.tokens) == 0 {
		return false
	}
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, blob)
	for _, tok := range strings.Fields(normalized) {
		if m.tokens[tok] {
			return true
		}
	}
	return false
}
