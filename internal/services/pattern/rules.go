package pattern

import "regexp"

// Rule extracts a counterparty from the first capture group of Pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

const emailExpr = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

// defaultRules are tried in order; the first match wins.
var defaultRules = []Rule{
	{
		Name:    "transfer_to",
		Pattern: regexp.MustCompile(`(?i)\btransfer(?:red)?\s+to\s+([^:(\n]+)`),
	},
	{
		Name:    "received_from",
		Pattern: regexp.MustCompile(`(?i)\breceived\s+from\s+([^:(\n]+)`),
	},
	{
		Name:    "payment_to",
		Pattern: regexp.MustCompile(`(?i)\b(?:payment|sent)\s+to\s+([^:(\n]+)`),
	},
	{
		Name:    "arrow",
		Pattern: regexp.MustCompile(`^\s*(.+?)\s*(?:->|→)`),
	},
	{
		Name:    "named_email",
		Pattern: regexp.MustCompile(`^\s*([^()]+?)\s*\(\s*` + emailExpr + `\s*\)`),
	},
	{
		Name:    "email",
		Pattern: regexp.MustCompile(`(` + emailExpr + `)`),
	},
}

// Rules returns a copy of the default rule table.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}
