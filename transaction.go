package havn

import (
	"context"
	"net/http"
	"strings"
)

const (
	CustomerTypeNew       = "NEW_CUSTOMER"
	CustomerTypeRecurring = "RECURRING"

	maxGatewayTransactionIDLen = 200
	maxPaymentGatewayLen       = 100
	maxInvoiceIDLen            = 100
)

// TransactionRequest carries one transaction to report. Amount and
// SubtotalTransaction are minor units of Currency (USD cents unless the
// caller converted or set ServerSideConversion).
type TransactionRequest struct {
	Amount                      int64
	PaymentGatewayTransactionID string
	PaymentGateway              string
	CustomerEmail               string
	ReferralCode                string
	PromoCode                   string
	Currency                    string // defaults to USD
	CustomerType                string // optional override; backend auto-determines
	SubtotalTransaction         *int64 // original amount before discount
	AcquisitionMethod           string // optional; inferred when empty
	CustomFields                map[string]any
	InvoiceID                   string
	TransactionType             string
	Description                 string
	ServerSideConversion        bool
}

// validate normalizes the request in place and reports the first
// violation. Normalization: referral code and gateway uppercase, invoice
// trimmed (blank becomes absent), customer type uppercased.
func (r *TransactionRequest) validate() error {
	if err := validateAmount(r.Amount); err != nil {
		return err
	}

	if r.Currency == "" {
		r.Currency = "USD"
	}
	if err := validateCurrency(r.Currency); err != nil {
		return err
	}

	if err := validateCustomFields(r.CustomFields); err != nil {
		return err
	}

	referral := strings.TrimSpace(r.ReferralCode)
	if referral == "" {
		return newValidationError("referral_code is required and cannot be empty")
	}
	r.ReferralCode = strings.ToUpper(referral)
	if err := validateReferralCode(r.ReferralCode); err != nil {
		return err
	}

	if r.CustomerType != "" {
		normalized := strings.ToUpper(strings.TrimSpace(r.CustomerType))
		if normalized != CustomerTypeNew && normalized != CustomerTypeRecurring {
			return newValidationError(
				"invalid customer_type: %s (must be %s or %s)",
				r.CustomerType, CustomerTypeNew, CustomerTypeRecurring,
			)
		}
		r.CustomerType = normalized
	}

	if r.SubtotalTransaction != nil {
		if err := validateAmount(*r.SubtotalTransaction); err != nil {
			return err
		}
		if *r.SubtotalTransaction < r.Amount {
			return newValidationError(
				"subtotal_transaction must be greater than or equal to amount")
		}
	}

	if strings.TrimSpace(r.PaymentGatewayTransactionID) == "" {
		return newValidationError("payment_gateway_transaction_id is required and cannot be empty")
	}
	if len(r.PaymentGatewayTransactionID) > maxGatewayTransactionIDLen {
		return newValidationError(
			"payment_gateway_transaction_id cannot exceed %d characters", maxGatewayTransactionIDLen)
	}

	gateway := strings.ToUpper(strings.TrimSpace(r.PaymentGateway))
	if gateway == "" {
		return newValidationError("payment_gateway is required and cannot be empty")
	}
	if len(gateway) > maxPaymentGatewayLen {
		return newValidationError("payment_gateway cannot exceed %d characters", maxPaymentGatewayLen)
	}
	r.PaymentGateway = gateway

	if strings.TrimSpace(r.CustomerEmail) == "" {
		return newValidationError("customer_email is required and cannot be empty")
	}
	if err := validateEmail(r.CustomerEmail); err != nil {
		return newValidationError("invalid customer_email format: %s", r.CustomerEmail)
	}

	if r.InvoiceID != "" {
		invoice := strings.TrimSpace(r.InvoiceID)
		if len(invoice) > maxInvoiceIDLen {
			return newValidationError("invoice_id cannot exceed %d characters", maxInvoiceIDLen)
		}
		r.InvoiceID = invoice
	}

	if r.AcquisitionMethod != "" {
		method := strings.ToUpper(r.AcquisitionMethod)
		if method != AcquisitionReferral && method != AcquisitionReferralVoucher {
			return newValidationError(
				"invalid acquisition_method: %s (must be %s or %s)",
				r.AcquisitionMethod, AcquisitionReferral, AcquisitionReferralVoucher,
			)
		}
		r.AcquisitionMethod = method
	}

	return nil
}

// payloadMap builds the wire payload, dropping absent optional fields.
func (r *TransactionRequest) payloadMap() map[string]any {
	payload := map[string]any{
		"amount":                         r.Amount,
		"payment_gateway_transaction_id": r.PaymentGatewayTransactionID,
		"payment_gateway":                r.PaymentGateway,
		"customer_email":                 r.CustomerEmail,
		"referral_code":                  r.ReferralCode,
		"currency":                       r.Currency,
	}

	if r.PromoCode != "" {
		payload["promo_code"] = r.PromoCode
	}
	if r.CustomerType != "" {
		payload["customer_type"] = r.CustomerType
	}
	if r.SubtotalTransaction != nil {
		payload["subtotal_transaction"] = *r.SubtotalTransaction
	}
	if r.AcquisitionMethod != "" {
		payload["acquisition_method"] = r.AcquisitionMethod
	}
	if len(r.CustomFields) > 0 {
		payload["custom_fields"] = r.CustomFields
	}
	if r.InvoiceID != "" {
		payload["invoice_id"] = r.InvoiceID
	}
	if r.TransactionType != "" {
		payload["transaction_type"] = r.TransactionType
	}
	if r.Description != "" {
		payload["description"] = r.Description
	}
	if r.ServerSideConversion {
		payload["server_side_conversion"] = true
	}

	return payload
}

// CommissionData is one commission level computed by the platform.
type CommissionData struct {
	CommissionID string
	AssociateID  string
	Level        int64
	Amount       int64
	Percentage   float64
	Type         string
	Direction    string
	Status       string
}

func commissionFromMap(m map[string]any) CommissionData {
	return CommissionData{
		CommissionID: getString(m, "commission_id"),
		AssociateID:  getString(m, "associate_id"),
		Level:        getInt64(m, "level"),
		Amount:       getInt64(m, "amount"),
		Percentage:   getFloat64(m, "percentage"),
		Type:         getString(m, "type"),
		Direction:    getString(m, "direction"),
		Status:       getString(m, "status"),
	}
}

type TransactionData struct {
	TransactionID       string
	Amount              int64
	Currency            string
	Status              string
	CustomerType        string
	AcquisitionMethod   string
	SubtotalTransaction int64
	SubtotalDiscount    int64
	CreatedAt           string
}

func transactionDataFromMap(m map[string]any) TransactionData {
	currency := getString(m, "currency")
	if currency == "" {
		currency = "USD"
	}

	return TransactionData{
		TransactionID:       getString(m, "transaction_id"),
		Amount:              getInt64(m, "amount"),
		Currency:            currency,
		Status:              getString(m, "status"),
		CustomerType:        getString(m, "customer_type"),
		AcquisitionMethod:   getString(m, "acquisition_method"),
		SubtotalTransaction: getInt64(m, "subtotal_transaction"),
		SubtotalDiscount:    getInt64(m, "subtotal_discount"),
		CreatedAt:           getString(m, "created_at"),
	}
}

type TransactionResponse struct {
	Success     bool
	Message     string
	Transaction TransactionData
	Commissions []CommissionData
	Raw         map[string]any
}

func transactionResponseFromMap(m map[string]any) *TransactionResponse {
	resp := &TransactionResponse{
		Success:     getBool(m, "success"),
		Message:     getString(m, "message"),
		Transaction: transactionDataFromMap(getMap(m, "transaction")),
		Raw:         m,
	}

	for _, item := range getSlice(m, "commissions") {
		if cm, ok := item.(map[string]any); ok {
			resp.Commissions = append(resp.Commissions, commissionFromMap(cm))
		}
	}

	return resp
}

// TransactionService reports transactions to the platform and returns the
// commissions it computed.
type TransactionService struct {
	client *Client
}

// Send validates, normalizes, signs, and transmits one transaction.
//
// A promo code that is not a platform voucher (no HAVN- prefix) is a local
// voucher: it is dropped from the outgoing payload with a log line and
// handled entirely by the caller's own system. The acquisition method is
// inferred from the surviving codes unless the caller set one explicitly.
func (s *TransactionService) Send(ctx context.Context, req TransactionRequest) (*TransactionResponse, error) {
	if req.PromoCode != "" && !IsPlatformVoucher(req.PromoCode) {
		s.client.log.Infow("dropping local voucher code from transaction payload",
			"promo_code", req.PromoCode,
		)
		req.PromoCode = ""
	}

	if req.AcquisitionMethod == "" {
		req.AcquisitionMethod = inferAcquisitionMethod(req.PromoCode, strings.TrimSpace(req.ReferralCode))
	}

	if err := req.validate(); err != nil {
		return nil, err
	}

	data, err := s.client.call(ctx, http.MethodPost, _endpointTransaction, req.payloadMap(), nil)
	if err != nil {
		return nil, err
	}

	return transactionResponseFromMap(data), nil
}
