package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	isinPattern   = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,12}([._-][A-Z0-9]{1,6})?$`)
)

// ValidateISIN checks format and the ISO 6166 check digit.
func ValidateISIN(isin string) error {
	if !isinPattern.MatchString(isin) {
		return &ValidationError{Field: "isin", Value: isin, Reason: "expected 2 letters, 9 alphanumerics and a check digit"}
	}
	if !isinChecksumValid(isin) {
		return &ValidationError{Field: "isin", Value: isin, Reason: "check digit mismatch"}
	}
	return nil
}

// IsValidISIN reports whether isin passes ValidateISIN.
func IsValidISIN(isin string) bool {
	return ValidateISIN(isin) == nil
}

// isinChecksumValid expands letters to two digits (A=10 ... Z=35) and runs
// the Luhn algorithm over the result, check digit included.
func isinChecksumValid(isin string) bool {
	var digits strings.Builder
	for _, r := range isin {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(strconv.Itoa(int(r-'A') + 10))
		} else {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol checks a normalized ticker symbol such as "O", "BT.A" or "BRK-B".
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return &ValidationError{Field: "symbol", Value: symbol, Reason: "expected 1-12 alphanumerics with an optional class suffix"}
	}
	return nil
}

// ValidateInstrumentID checks that id is a canonical UUID string.
func ValidateInstrumentID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return &ValidationError{Field: "id", Value: id, Reason: "expected a lower-case UUID"}
	}
	return nil
}
