// Package phone normalizes raw phone input into a canonical form.
package phone

import "strings"

// Normalize converts raw user input into the canonical +7XXXXXXXXXX form
// when it looks like a Russian number. Normalization never fails: input
// that cannot be canonicalized is returned trimmed as-is.
func Normalize(raw string) string {
	digits := NormalizeDigits(raw)
	if len(digits) == 11 && strings.HasPrefix(digits, "7") {
		return "+" + digits
	}
	return strings.TrimSpace(raw)
}

// NormalizeDigits strips everything but digits and rewrites domestic
// prefixes: a leading "8" in an 11-digit number becomes "7", and a
// 10-digit mobile number starting with "9" gets "7" prepended.
func NormalizeDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && strings.HasPrefix(digits, "8") {
		digits = "7" + digits[1:]
	}
	if len(digits) == 10 && strings.HasPrefix(digits, "9") {
		digits = "7" + digits
	}
	return digits
}
