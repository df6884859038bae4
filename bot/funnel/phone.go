package funnel

import (
	"regexp"
	"strings"
)

var phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)

// NormalizePhone strips spaces, hyphens and parentheses from raw phone input.
// Contact cards and manually typed numbers both pass through here.
func NormalizePhone(raw string) string {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return r.Replace(raw)
}

// ValidPhone reports whether a normalized phone number is acceptable:
// an optional leading plus followed by 10 to 15 digits.
func ValidPhone(normalized string) bool {
	return phoneRe.MatchString(normalized)
}
