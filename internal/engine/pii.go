package engine

import "regexp"

// piiPatterns is a stateless regex table, kept as plain data rather than
// embedded control flow: each entry names what it flags so the resulting
// warning is self-explanatory.
var piiPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"phone number", regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)},
	{"credit card", regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)},
	{"API key / token", regexp.MustCompile(`\b(?:sk|pk|api|key|token|secret)[-_][A-Za-z0-9]{16,}\b`)},
}

// detectPII runs the stateless PII pass over content, returning a
// user-visible warning naming every category it matched, or "" if none.
func detectPII(content string) string {
	var hits []string
	seen := make(map[string]bool)
	for _, p := range piiPatterns {
		if p.re.MatchString(content) && !seen[p.label] {
			seen[p.label] = true
			hits = append(hits, p.label)
		}
	}
	if len(hits) == 0 {
		return ""
	}
	msg := "possible " + hits[0]
	for _, h := range hits[1:] {
		msg += ", " + h
	}
	return msg
}
