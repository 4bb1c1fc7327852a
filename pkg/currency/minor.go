package currency

import "github.com/shopspring/decimal"

// Currencies whose smallest unit is the whole unit (no minor subdivision).
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "IDR": {}, "ISK": {},
	"JPY": {}, "KMF": {}, "KRW": {}, "PYG": {}, "RWF": {}, "UGX": {},
	"VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// Currencies subdivided into thousandths.
var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {}, "IQD": {}, "JOD": {}, "KWD": {}, "LYD": {}, "OMR": {}, "TND": {},
}

// MinorUnitExponent returns the number of decimal places between a
// currency's major and minor unit: 0 for zero-decimal currencies, 3 for
// three-decimal ones, 2 otherwise.
func MinorUnitExponent(code string) int {
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return 3
	}
	return 2
}

// minorUnitFactor is 10^exponent as a decimal, the divisor between minor
// and major units.
func minorUnitFactor(code string) decimal.Decimal {
	return decimal.New(1, int32(MinorUnitExponent(code)))
}
