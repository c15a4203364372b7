// Package format renders values for user-facing pt-BR message text.
package format

import (
	"strconv"
	"strings"
)

// BRL renders a currency amount with the Brazilian locale conventions:
// "R$ " prefix, two decimals, '.' grouping and ',' decimal separator.
// 1234.5 becomes "R$ 1.234,50".
func BRL(amount float64) string {
	fixed := strconv.FormatFloat(amount, 'f', 2, 64)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString("R$ ")
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(intPart))
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}

// GroupInt renders an integer with '.' thousands grouping (1500 -> "1.500").
func GroupInt(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(s[1:])
	}
	return groupThousands(s)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
