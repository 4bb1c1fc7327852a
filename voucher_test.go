package havn_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	havn "github.com/HAVN-Associates/havn-sdk"
)

func TestVoucherValidate_Valid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/webhook/voucher/validate", r.URL.Path)

		payload := decodeBody(t, r)
		requireValidSignature(t, r, payload, "whsec_test")
		require.Equal(t, "HAVN-AQNEO-S08-ABC123", payload["voucher_code"])
		require.Equal(t, float64(10000), payload["amount"])
		require.Equal(t, "USD", payload["currency"])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	valid, err := client.Vouchers.Validate(context.Background(), "HAVN-AQNEO-S08-ABC123", 10000, "USD")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestVoucherValidate_WithoutAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		_, hasAmount := payload["amount"]
		require.False(t, hasAmount)
		_, hasCurrency := payload["currency"]
		require.False(t, hasCurrency)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	valid, err := client.Vouchers.Validate(context.Background(), "HAVN-MJ-001", 0, "")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestVoucherValidate_RejectionMessages(t *testing.T) {
	testCases := []struct {
		desc        string
		status      int
		wantMessage string
	}{
		{desc: "not found", status: http.StatusNotFound, wantMessage: "Voucher not found"},
		{desc: "inactive", status: http.StatusBadRequest, wantMessage: "Voucher invalid (expired, used up, or inactive)"},
		{desc: "below minimum", status: http.StatusUnprocessableEntity, wantMessage: "Amount does not meet voucher requirements"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			valid, err := client.Vouchers.Validate(context.Background(), "HAVN-MJ-001", 0, "")
			require.False(t, valid)

			var apiErr *havn.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.status, apiErr.StatusCode)
			require.Equal(t, tc.wantMessage, apiErr.Message)
		})
	}
}

func TestVoucherValidate_OtherErrorsPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Vouchers.Validate(context.Background(), "HAVN-MJ-001", 0, "")

	var apiErr *havn.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "boom", apiErr.Message)
}

func TestVoucherValidate_LocalValidation(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")

	testCases := []struct {
		desc     string
		code     string
		amount   int64
		currency string
		wantErr  string
	}{
		{desc: "empty code", code: "", wantErr: "voucher code cannot be empty"},
		{desc: "blank code", code: "   ", wantErr: "voucher code cannot be empty"},
		{desc: "overlong code", code: strings.Repeat("A", 101), wantErr: "cannot exceed 100 characters"},
		{desc: "negative amount", code: "HAVN-MJ-001", amount: -5, wantErr: "amount must be greater than 0"},
		{desc: "currency without amount", code: "HAVN-MJ-001", currency: "USD", wantErr: "amount must be greater than 0"},
		{desc: "bad currency", code: "HAVN-MJ-001", amount: 100, currency: "usd", wantErr: "must be uppercase"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := client.Vouchers.Validate(context.Background(), tc.code, tc.amount, tc.currency)
			require.Error(t, err)

			var validationErr *havn.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

func platformVoucherPage(vouchers []map[string]any, page, perPage, total int) map[string]any {
	totalPages := (total + perPage - 1) / perPage
	return map[string]any{
		"success": true,
		"message": "ok",
		"data": map[string]any{
			"data": vouchers,
			"pagination": map[string]any{
				"page":        page,
				"limit":       perPage,
				"total":       total,
				"total_pages": totalPages,
				"has_prev":    page > 1,
				"has_next":    page < totalPages,
			},
		},
	}
}

func TestVoucherGetAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/webhook/vouchers", r.URL.Path)

		query := r.URL.Query()
		require.Equal(t, "2", query.Get("page"))
		require.Equal(t, "25", query.Get("per_page"))
		require.Equal(t, "true", query.Get("active"))
		require.Equal(t, "DISCOUNT_PERCENTAGE", query.Get("type"))
		require.Equal(t, "value", query.Get("sort_by"))
		require.Equal(t, "desc", query.Get("sort_order"))

		// GET requests sign the empty object.
		emptySig, err := havn.Sign(nil, "whsec_test")
		require.NoError(t, err)
		require.Equal(t, emptySig, r.Header.Get("X-Signature"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(platformVoucherPage([]map[string]any{
			{
				"serial":        "v1",
				"code":          "HAVN-MJ-001-X1",
				"type":          "DISCOUNT_PERCENTAGE",
				"value":         1000,
				"usage_limit":   100,
				"current_usage": 40,
				"active":        true,
				"is_valid":      true,
			},
			{
				"serial": "v2",
				"code":   "PARTNER-SPECIAL",
				"type":   "DISCOUNT_FIXED",
				"value":  500,
				"active": true,
			},
		}, 2, 25, 27))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Vouchers.GetAll(context.Background(), havn.VoucherListFilters{
		Page:      intPtr(2),
		PerPage:   intPtr(25),
		Active:    boolPtr(true),
		Type:      "discount_percentage",
		SortBy:    "VALUE",
		SortOrder: "DESC",
	})
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.Len(t, resp.Vouchers, 2)
	require.True(t, resp.Vouchers[0].IsPlatformVoucher)
	require.False(t, resp.Vouchers[1].IsPlatformVoucher)
	require.Equal(t, int64(1000), resp.Vouchers[0].Value)

	require.NotNil(t, resp.Pagination)
	require.Equal(t, 2, resp.Pagination.Page)
	require.Equal(t, 27, resp.Pagination.Total)
	require.True(t, resp.Pagination.HasPrev)
}

func TestVoucherListFilters_Validation(t *testing.T) {
	testCases := []struct {
		desc    string
		filters havn.VoucherListFilters
		wantErr string
	}{
		{desc: "empty filters pass"},
		{
			desc:    "page below one",
			filters: havn.VoucherListFilters{Page: intPtr(0)},
			wantErr: "page must be >= 1",
		},
		{
			desc:    "per_page above cap",
			filters: havn.VoucherListFilters{PerPage: intPtr(101)},
			wantErr: "per_page must be <= 100",
		},
		{
			desc:    "unknown type",
			filters: havn.VoucherListFilters{Type: "BOGOF"},
			wantErr: "type must be one of",
		},
		{
			desc:    "unknown client type",
			filters: havn.VoucherListFilters{ClientType: "WHOLESALE"},
			wantErr: "client_type must be one of",
		},
		{
			desc:    "unknown sort field",
			filters: havn.VoucherListFilters{SortBy: "popularity"},
			wantErr: "sort_by must be one of",
		},
		{
			desc:    "unknown sort order",
			filters: havn.VoucherListFilters{SortOrder: "sideways"},
			wantErr: "sort_order must be one of",
		},
		{
			desc:    "bad date",
			filters: havn.VoucherListFilters{StartDateFrom: "01-02-2026"},
			wantErr: "start_date_from must be in YYYY-MM-DD format",
		},
		{
			desc:    "bad created datetime",
			filters: havn.VoucherListFilters{CreatedFrom: "2026-08-28 10:00:00"},
			wantErr: "created_from must be in YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS format",
		},
		{
			desc:    "created datetime accepted",
			filters: havn.VoucherListFilters{CreatedFrom: "2026-08-28T10:00:00"},
		},
		{
			desc:    "created plain date accepted",
			filters: havn.VoucherListFilters{CreatedTo: "2026-08-28"},
		},
		{
			desc: "inverted numeric range",
			filters: havn.VoucherListFilters{
				MinValue: int64Ptr(500),
				MaxValue: int64Ptr(100),
			},
			wantErr: "min_value must be <= max_value",
		},
		{
			desc: "negative range bound",
			filters: havn.VoucherListFilters{
				UsageLimitFrom: int64Ptr(-1),
				UsageLimitTo:   int64Ptr(10),
			},
			wantErr: "usage_limit_from must be >= 0",
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(platformVoucherPage(nil, 1, 10, 0))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := client.Vouchers.GetAll(context.Background(), tc.filters)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var validationErr *havn.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestVoucherGetCombined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(platformVoucherPage([]map[string]any{
			{
				"serial":        "v1",
				"code":          "HAVN-MJ-001-X1",
				"type":          "DISCOUNT_PERCENTAGE",
				"value":         1000,
				"usage_limit":   100,
				"current_usage": 40,
				"active":        true,
				"is_valid":      true,
				"end_date":      "2099-12-31",
			},
		}, 1, 100, 1))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	localFn := func(ctx context.Context) ([]map[string]any, error) {
		return []map[string]any{
			{
				"voucher_code":   "SUMMER2026",
				"discount_type":  "discount_fixed",
				"discount_value": 500,
				"max_uses":       50,
				"used_count":     10,
				"valid_until":    "2099-06-30",
				"is_active":      true,
			},
			{
				"code":        "EXPIRED-ONE",
				"type":        "DISCOUNT_FIXED",
				"value":       200,
				"expires_at":  "2020-01-01",
				"usage_limit": 10,
			},
		}, nil
	}

	resp, err := client.Vouchers.GetCombined(context.Background(), localFn, havn.VoucherListFilters{
		SortBy:    "value",
		SortOrder: "desc",
	})
	require.NoError(t, err)

	require.Equal(t, 3, resp.Pagination.Total)
	require.Len(t, resp.Vouchers, 3)

	// Sorted by value descending: 1000, 500, 200.
	require.Equal(t, "HAVN-MJ-001-X1", resp.Vouchers[0].Code)
	require.Equal(t, "SUMMER2026", resp.Vouchers[1].Code)
	require.Equal(t, "EXPIRED-ONE", resp.Vouchers[2].Code)

	// Local voucher got its computed fields from the alias-normalized input.
	local := resp.Vouchers[1]
	require.False(t, local.IsPlatformVoucher)
	require.Equal(t, "DISCOUNT_FIXED", local.Type)
	require.Equal(t, int64(40), local.RemainingUsage)
	require.Equal(t, 20.0, local.UsagePercentage)
	require.True(t, local.IsValid)
	require.False(t, local.IsExpired)

	expired := resp.Vouchers[2]
	require.True(t, expired.IsExpired)
	require.False(t, expired.IsValid)
}

func TestVoucherGetCombined_IsValidFilterAndPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(platformVoucherPage(nil, 1, 100, 0))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	localFn := func(ctx context.Context) ([]map[string]any, error) {
		vouchers := make([]map[string]any, 0, 5)
		for _, code := range []string{"L1", "L2", "L3", "L4", "L5"} {
			vouchers = append(vouchers, map[string]any{
				"code":      code,
				"type":      "DISCOUNT_FIXED",
				"value":     100,
				"is_active": true,
			})
		}
		vouchers = append(vouchers, map[string]any{
			"code":       "DEAD",
			"type":       "DISCOUNT_FIXED",
			"value":      100,
			"expires_at": "2020-01-01",
		})
		return vouchers, nil
	}

	resp, err := client.Vouchers.GetCombined(context.Background(), localFn, havn.VoucherListFilters{
		IsValid:   boolPtr(true),
		Page:      intPtr(2),
		PerPage:   intPtr(2),
		SortBy:    "code",
		SortOrder: "asc",
	})
	require.NoError(t, err)

	// Six locals, one expired and filtered out; five valid across three pages.
	require.Equal(t, 5, resp.Pagination.Total)
	require.Equal(t, 3, resp.Pagination.TotalPages)
	require.True(t, resp.Pagination.HasPrev)
	require.True(t, resp.Pagination.HasNext)

	require.Len(t, resp.Vouchers, 2)
	require.Equal(t, "L3", resp.Vouchers[0].Code)
	require.Equal(t, "L4", resp.Vouchers[1].Code)
}

func TestVoucherGetCombined_LocalCallbackFailureTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(platformVoucherPage([]map[string]any{
			{"serial": "v1", "code": "HAVN-MJ-001-X1", "type": "DISCOUNT_FIXED", "value": 100},
		}, 1, 100, 1))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	localFn := func(ctx context.Context) ([]map[string]any, error) {
		return nil, context.DeadlineExceeded
	}

	resp, err := client.Vouchers.GetCombined(context.Background(), localFn, havn.VoucherListFilters{})
	require.NoError(t, err)
	require.Len(t, resp.Vouchers, 1)
	require.Equal(t, "HAVN-MJ-001-X1", resp.Vouchers[0].Code)
}
