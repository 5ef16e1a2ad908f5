// Package card holds the display helpers for CiensPay card numbers.
package card

import (
	"math/rand/v2"
	"strings"

	"github.com/cienspay/cienspay-web/internal/errors"
)

// BIN is the issuer prefix of every CiensPay card
const BIN = "428563"

// Length of a CiensPay card number
const Length = 16

func digitsOnly(s string) (string, bool) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}

// LuhnCheckDigit returns the digit that makes payload+digit pass the Luhn check
func LuhnCheckDigit(payload string) (int, error) {
	digits, ok := digitsOnly(payload)
	if !ok {
		return 0, errors.Wrapf(errors.ErrInvalidCardNumber, "[card LuhnCheckDigit] %q", payload)
	}
	sum := 0
	// The check digit will sit to the right, so the rightmost payload digit is doubled.
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10, nil
}

// ValidLuhn reports whether number (spaces allowed) passes the Luhn check
func ValidLuhn(number string) bool {
	digits, ok := digitsOnly(number)
	if !ok || len(digits) < 2 {
		return false
	}
	check, err := LuhnCheckDigit(digits[:len(digits)-1])
	if err != nil {
		return false
	}
	return int(digits[len(digits)-1]-'0') == check
}

// PreviewNumber returns a random Luhn-valid card number with the CiensPay BIN.
// A nil rng uses the package-level source.
func PreviewNumber(rng *rand.Rand) string {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	var sb strings.Builder
	sb.WriteString(BIN)
	for sb.Len() < Length-1 {
		sb.WriteByte(byte('0' + intN(10)))
	}
	payload := sb.String()
	check, _ := LuhnCheckDigit(payload)
	return payload + string(rune('0'+check))
}

// Format groups the digits in fours: "4285 6312 3456 7890"
func Format(number string) string {
	digits := strings.ReplaceAll(number, " ", "")
	var groups []string
	for len(digits) > 4 {
		groups = append(groups, digits[:4])
		digits = digits[4:]
	}
	if digits != "" {
		groups = append(groups, digits)
	}
	return strings.Join(groups, " ")
}

// Mask hides all but the last four digits: "•••• •••• •••• 7890"
func Mask(number string) string {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	masked := strings.Repeat("•", len(digits)-4) + digits[len(digits)-4:]
	return formatRunes(masked)
}

func formatRunes(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if i > 0 && i%4 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
