package earnings

import (
	"strings"

	"inflated-puts/models"
)

// NormalizeSession maps a free-text release time ("bmo", "Before Market Open",
// "time-after-hours", ...) onto a Session
func NormalizeSession(text string) models.Session {
	s := strings.ToLower(strings.TrimSpace(text))
	switch {
	case s == "":
		return models.SessionUnknown
	case strings.Contains(s, "before"), strings.Contains(s, "pre-market"),
		strings.Contains(s, "premarket"), strings.Contains(s, "bmo"):
		return models.SessionBeforeOpen
	case strings.Contains(s, "after"), strings.Contains(s, "post-market"),
		strings.Contains(s, "postmarket"), strings.Contains(s, "amc"):
		return models.SessionAfterClose
	}
	return models.SessionUnknown
}
