package utils

import (
	"fmt"
	"strings"
)

// maskVisibleChars is how many trailing characters stay readable on a masked ID.
const maskVisibleChars = 4

// MaskIdentifier redacts an ID number for display, keeping only the last four
// characters. Values of four characters or fewer are masked entirely.
func MaskIdentifier(idNumber string) string {
	if idNumber == "" {
		return ""
	}
	if len(idNumber) <= maskVisibleChars {
		return strings.Repeat("*", len(idNumber))
	}
	return strings.Repeat("*", len(idNumber)-maskVisibleChars) + idNumber[len(idNumber)-maskVisibleChars:]
}

// NormalizeIDNumber trims whitespace and upper-cases an ID number so that
// claimant-provided values compare case-insensitively against the stored one.
func NormalizeIDNumber(idNumber string) string {
	return strings.ToUpper(strings.TrimSpace(idNumber))
}

// FormatReportNumber builds a report number from the ID type prefix and a
// monotonically increasing sequence, e.g. STU000042.
func FormatReportNumber(prefix string, sequence int64) string {
	return fmt.Sprintf("%s%06d", prefix, sequence)
}

// FormatPhoneNumber normalizes Kenyan phone numbers to international format.
// Numbers already in international format are returned unchanged.
func FormatPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 9 && strings.HasPrefix(d, "7"):
		return "+254" + d
	case len(d) == 10 && strings.HasPrefix(d, "07"):
		return "+254" + d[1:]
	case len(d) > 10 && strings.HasPrefix(d, "254"):
		return "+" + d
	}
	return phone
}
