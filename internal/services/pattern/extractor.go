// Package pattern pulls a counterparty name or email out of free-text
// transaction descriptions.
package pattern

import "strings"

const quoteChars = "\"'`“”‘’"

// Match is a successful extraction.
type Match struct {
	Value string
	Rule  string
}

// Extractor applies an ordered rule table. It holds no mutable state and is
// safe for concurrent use.
type Extractor struct {
	rules []Rule
}

func NewExtractor() *Extractor {
	return &Extractor{rules: defaultRules}
}

// NewExtractorWithRules uses rules instead of the default table.
func NewExtractorWithRules(rules []Rule) *Extractor {
	return &Extractor{rules: rules}
}

// Extract returns the first non-empty counterparty produced by the rule table.
func (e *Extractor) Extract(description string) (Match, bool) {
	if strings.TrimSpace(description) == "" {
		return Match{}, false
	}
	for _, r := range e.rules {
		m := r.Pattern.FindStringSubmatch(description)
		if len(m) < 2 {
			continue
		}
		if v := normalize(m[1]); v != "" {
			return Match{Value: v, Rule: r.Name}, true
		}
	}
	return Match{}, false
}

var defaultExtractor = NewExtractor()

// ExtractCounterparty runs the default rule table over description.
func ExtractCounterparty(description string) (string, bool) {
	m, ok := defaultExtractor.Extract(description)
	return m.Value, ok
}

func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		trimmed := strings.TrimSpace(strings.Trim(s, quoteChars))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
