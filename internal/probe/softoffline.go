package probe

import (
	"bytes"
	"strings"
)

// SoftOffline flags reachable servers that serve a placeholder instead
// of the site, such as a suspended hosting account or a parked domain.
// Matching is a case-insensitive substring test.
type SoftOffline struct {
	URLPatterns  []string
	BodyPatterns []string
	Reason       string
}

// DefaultSoftOffline recognizes the common cPanel suspension page.
func DefaultSoftOffline() *SoftOffline {
	return &SoftOffline{
		URLPatterns:  []string{"suspendedpage.cgi"},
		BodyPatterns: []string{"account suspended", "this account has been suspended"},
		Reason:       "hosting account suspended",
	}
}

// Detect reports whether the final URL or the body matches a pattern.
// A nil detector never matches.
func (s *SoftOffline) Detect(finalURL string, body []byte) (string, bool) {
	if s == nil {
		return "", false
	}
	u := strings.ToLower(finalURL)
	for _, p := range s.URLPatterns {
		if p != "" && strings.Contains(u, strings.ToLower(p)) {
			return s.reason(), true
		}
	}
	if len(s.BodyPatterns) == 0 || len(body) == 0 {
		return "", false
	}
	b := bytes.ToLower(body)
	for _, p := range s.BodyPatterns {
		if p != "" && bytes.Contains(b, []byte(strings.ToLower(p))) {
			return s.reason(), true
		}
	}
	return "", false
}

func (s *SoftOffline) reason() string {
	if s.Reason == "" {
		return "soft offline"
	}
	return s.Reason
}
