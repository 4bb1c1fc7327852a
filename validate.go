package havn

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// maxAmountCents caps transaction amounts at $10,000,000.
	maxAmountCents = 1_000_000_000

	minReferralCodeLen = 3
	maxReferralCodeLen = 50

	maxCustomFieldEntries = 3
)

// Simplified RFC 5322: ASCII local part, dotted domain, alpha TLD of two
// or more characters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Currencies the transaction API accepts. The converter deliberately does
// not use this list; it can convert anything with a fetchable rate.
var supportedCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "CNY", "AUD", "CAD", "CHF", "HKD", "SGD",
	"SEK", "NOK", "DKK", "INR", "IDR", "MYR", "PHP", "THB", "VND", "KRW",
	"TWD", "BRL", "MXN", "ZAR", "TRY", "RUB",
}

var supportedCurrencySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(supportedCurrencies))
	for _, code := range supportedCurrencies {
		set[code] = struct{}{}
	}
	return set
}()

func validateAmount(amount int64) error {
	if amount <= 0 {
		return newValidationError("amount must be greater than 0")
	}
	if amount > maxAmountCents {
		return newValidationError("amount exceeds maximum allowed ($10,000,000)")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return newValidationError("invalid email format: %s", email)
	}
	return nil
}

func validateCurrency(currency string) error {
	if len(currency) != 3 {
		return newValidationError("currency code must be 3 characters (ISO 4217)")
	}
	if currency != strings.ToUpper(currency) {
		return newValidationError("currency code must be uppercase")
	}
	if _, ok := supportedCurrencySet[currency]; !ok {
		return newValidationError(
			"unsupported currency code: %s (supported: %s)",
			currency, strings.Join(supportedCurrencies, ", "),
		)
	}
	return nil
}

func validateCustomFields(customFields map[string]any) error {
	if customFields == nil {
		return nil
	}

	if len(customFields) > maxCustomFieldEntries {
		return newValidationError(
			"custom_fields cannot exceed %d entries (got %d)",
			maxCustomFieldEntries, len(customFields),
		)
	}

	for key, value := range customFields {
		if !isScalar(value) {
			return newValidationError(
				"custom_fields values must be string, number, or boolean (got %T for key %q)",
				value, key,
			)
		}
	}

	return nil
}

// isScalar accepts the JSON-scalar value kinds the platform stores;
// nested maps, slices, and nulls are rejected.
func isScalar(value any) bool {
	switch value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number:
		return true
	default:
		return false
	}
}

// validateReferralCode checks an optional code. Requiredness is enforced
// by the payload that owns the field, not here.
func validateReferralCode(referralCode string) error {
	if referralCode == "" {
		return nil
	}
	if strings.TrimSpace(referralCode) == "" {
		return newValidationError("referral code cannot be blank")
	}
	if len(referralCode) < minReferralCodeLen || len(referralCode) > maxReferralCodeLen {
		return newValidationError("referral code must be between %d and %d characters",
			minReferralCodeLen, maxReferralCodeLen)
	}
	return nil
}
