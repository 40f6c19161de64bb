package domain

import "strings"

// NormalizeTaxID strips every non-digit character from a national tax-id,
// so "123.456.789-09" and "12345678909" address the same user.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidTaxID reports whether the normalized tax-id is a valid 11-digit
// identifier with correct check digits (mod-11 over the first nine and
// ten digits respectively). Sequences of a single repeated digit are
// rejected even though their checksum holds.
func ValidTaxID(normalized string) bool {
	if len(normalized) != 11 {
		return false
	}
	allSame := true
	digits := make([]int, 11)
	for i, r := range normalized {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
		if digits[i] != digits[0] {
			allSame = false
		}
	}
	if allSame {
		return false
	}
	return checkDigit(digits, 9) == digits[9] && checkDigit(digits, 10) == digits[10]
}

// checkDigit computes the mod-11 check digit over the first n digits,
// weighted n+1 down to 2.
func checkDigit(digits []int, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += digits[i] * (n + 1 - i)
	}
	d := (sum * 10) % 11
	if d == 10 {
		d = 0
	}
	return d
}
