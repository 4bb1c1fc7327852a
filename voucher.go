package havn

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const maxVoucherCodeLen = 100

// VoucherService validates and lists platform vouchers.
type VoucherService struct {
	client *Client
}

// Validate checks a voucher code against the platform. Amount (minor
// units) and currencyCode are optional; pass 0 and "" to skip the
// minimum-purchase check. A zero amount with a currency set is rejected.
//
// The endpoint answers with status codes only: any 2xx means valid.
// The three rejection statuses are rewrapped with messages that tell the
// caller which rule failed; everything else passes through unchanged.
func (s *VoucherService) Validate(ctx context.Context, voucherCode string, amount int64, currencyCode string) (bool, error) {
	code := strings.TrimSpace(voucherCode)
	if code == "" {
		return false, newValidationError("voucher code cannot be empty")
	}
	if len(code) > maxVoucherCodeLen {
		return false, newValidationError("voucher code cannot exceed %d characters", maxVoucherCodeLen)
	}

	payload := map[string]any{
		"voucher_code": code,
	}
	if amount != 0 || currencyCode != "" {
		if err := validateAmount(amount); err != nil {
			return false, err
		}
		payload["amount"] = amount
	}
	if currencyCode != "" {
		if err := validateCurrency(currencyCode); err != nil {
			return false, err
		}
		payload["currency"] = currencyCode
	}

	_, err := s.client.call(ctx, http.MethodPost, _endpointVoucherValidate, payload, nil)
	if err != nil {
		return false, rewrapVoucherError(err)
	}

	return true, nil
}

// rewrapVoucherError replaces the generic messages of the three statuses
// the validate endpoint uses for business rejections.
func rewrapVoucherError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return &APIError{
			StatusCode: http.StatusNotFound,
			ErrorType:  apiErr.ErrorType,
			Message:    "Voucher not found",
			Response:   apiErr.Response,
		}
	case http.StatusBadRequest:
		return &APIError{
			StatusCode: http.StatusBadRequest,
			ErrorType:  apiErr.ErrorType,
			Message:    "Voucher invalid (expired, used up, or inactive)",
			Response:   apiErr.Response,
		}
	case http.StatusUnprocessableEntity:
		return &APIError{
			StatusCode: http.StatusUnprocessableEntity,
			ErrorType:  apiErr.ErrorType,
			Message:    "Amount does not meet voucher requirements",
			Response:   apiErr.Response,
		}
	default:
		return err
	}
}
