package currency

import (
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"IDR": "Rp",
	"INR": "₹",
	"CNY": "¥",
	"KRW": "₩",
	"SGD": "S$",
	"MYR": "RM",
	"THB": "฿",
	"PHP": "₱",
	"VND": "₫",
}

// Format renders an amount in major units with the currency's symbol (or
// the code itself when no symbol is known), thousands grouping, and
// minor-unit-aware decimals: zero-decimal currencies never show a decimal
// point, everything else shows the currency's exponent with trailing zeros
// trimmed down to no fewer than two places.
func Format(amount float64, code string) string {
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code
	}

	exp := MinorUnitExponent(code)
	s := strconv.FormatFloat(amount, 'f', exp, 64)

	if exp > 2 {
		if idx := strings.IndexByte(s, '.'); idx >= 0 {
			frac := s[idx+1:]
			for len(frac) > 2 && frac[len(frac)-1] == '0' {
				frac = frac[:len(frac)-1]
			}
			s = s[:idx+1] + frac
		}
	}

	return symbol + " " + groupThousands(s)
}

func groupThousands(s string) string {
	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx:]
	}

	if len(intPart) <= 3 {
		return intPart + fracPart
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + fracPart
}
