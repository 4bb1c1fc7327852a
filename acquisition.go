package havn

import "strings"

// VoucherPrefix marks codes issued by the platform. Format:
// HAVN-{ASSOCIATE}-{SAAS}-{RANDOM}. The check is case-insensitive.
const VoucherPrefix = "HAVN-"

// Acquisition methods the platform attributes transactions with.
const (
	AcquisitionReferral        = "REFERRAL"
	AcquisitionReferralVoucher = "REFERRAL_VOUCHER"
)

// IsPlatformVoucher reports whether a voucher code was issued by the
// platform. Codes without the prefix are "local" vouchers, owned entirely
// by the caller's own system and never transmitted.
func IsPlatformVoucher(code string) bool {
	if code == "" {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(code), VoucherPrefix)
}

// inferAcquisitionMethod classifies a transaction's attribution from the
// codes present. promoCode must already be filtered to platform vouchers
// only. An empty result means neither code is usable; payload validation
// rejects that case before anything is sent.
func inferAcquisitionMethod(promoCode, referralCode string) string {
	if referralCode == "" {
		return ""
	}
	if promoCode != "" && IsPlatformVoucher(promoCode) {
		return AcquisitionReferralVoucher
	}
	return AcquisitionReferral
}
