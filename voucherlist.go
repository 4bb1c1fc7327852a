package havn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Voucher types and list bounds.
const (
	VoucherTypePercentage = "DISCOUNT_PERCENTAGE"
	VoucherTypeFixed      = "DISCOUNT_FIXED"

	maxVouchersPerPage = 100
)

var voucherSortFields = []string{
	"code", "type", "value", "start_date", "end_date",
	"created_date", "current_usage", "usage_limit", "min_purchase",
}

// VoucherListFilters narrows a voucher list query. Every field is
// optional; zero pointers and empty strings are simply not sent.
type VoucherListFilters struct {
	Page            *int
	PerPage         *int
	Active          *bool
	Type            string
	ClientType      string
	Currency        string
	Search          string
	StartDateFrom   string // YYYY-MM-DD
	StartDateTo     string
	EndDateFrom     string
	EndDateTo       string
	CreatedFrom     string // YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS
	CreatedTo       string
	MinValue        *int64
	MaxValue        *int64
	MinPurchaseFrom *int64
	MinPurchaseTo   *int64
	UsageLimitFrom  *int64
	UsageLimitTo    *int64
	IsValid         *bool
	IsExpired       *bool
	SortBy          string
	SortOrder       string // asc or desc
	DisplayCurrency string // handled by the backend, passed through
}

func (f *VoucherListFilters) validate() error {
	if f.Page != nil && *f.Page < 1 {
		return newValidationError("page must be >= 1")
	}
	if f.PerPage != nil {
		if *f.PerPage < 1 {
			return newValidationError("per_page must be >= 1")
		}
		if *f.PerPage > maxVouchersPerPage {
			return newValidationError("per_page must be <= %d", maxVouchersPerPage)
		}
	}

	if f.Type != "" {
		upper := strings.ToUpper(f.Type)
		if upper != VoucherTypePercentage && upper != VoucherTypeFixed {
			return newValidationError("type must be one of: %s, %s",
				VoucherTypePercentage, VoucherTypeFixed)
		}
		f.Type = upper
	}

	if f.ClientType != "" {
		upper := strings.ToUpper(f.ClientType)
		if upper != CustomerTypeNew && upper != CustomerTypeRecurring {
			return newValidationError("client_type must be one of: %s, %s",
				CustomerTypeNew, CustomerTypeRecurring)
		}
		f.ClientType = upper
	}

	if f.SortBy != "" {
		lower := strings.ToLower(f.SortBy)
		valid := false
		for _, field := range voucherSortFields {
			if lower == field {
				valid = true
				break
			}
		}
		if !valid {
			return newValidationError("sort_by must be one of: %s",
				strings.Join(voucherSortFields, ", "))
		}
		f.SortBy = lower
	}

	if f.SortOrder != "" {
		lower := strings.ToLower(f.SortOrder)
		if lower != "asc" && lower != "desc" {
			return newValidationError("sort_order must be one of: asc, desc")
		}
		f.SortOrder = lower
	}

	dateFields := map[string]string{
		"start_date_from": f.StartDateFrom,
		"start_date_to":   f.StartDateTo,
		"end_date_from":   f.EndDateFrom,
		"end_date_to":     f.EndDateTo,
	}
	for name, value := range dateFields {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return newValidationError("%s must be in YYYY-MM-DD format, got: %s", name, value)
		}
	}

	datetimeFields := map[string]string{
		"created_from": f.CreatedFrom,
		"created_to":   f.CreatedTo,
	}
	for name, value := range datetimeFields {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02T15:04:05", value); err != nil {
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return newValidationError(
					"%s must be in YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS format, got: %s", name, value)
			}
		}
	}

	numericRanges := []struct {
		minName, maxName string
		min, max         *int64
	}{
		{"min_value", "max_value", f.MinValue, f.MaxValue},
		{"min_purchase_from", "min_purchase_to", f.MinPurchaseFrom, f.MinPurchaseTo},
		{"usage_limit_from", "usage_limit_to", f.UsageLimitFrom, f.UsageLimitTo},
	}
	for _, r := range numericRanges {
		if r.min == nil || r.max == nil {
			continue
		}
		if *r.min < 0 {
			return newValidationError("%s must be >= 0", r.minName)
		}
		if *r.max < 0 {
			return newValidationError("%s must be >= 0", r.maxName)
		}
		if *r.min > *r.max {
			return newValidationError("%s must be <= %s", r.minName, r.maxName)
		}
	}

	return nil
}

// queryValues renders the set filters as URL query parameters.
func (f *VoucherListFilters) queryValues() url.Values {
	values := url.Values{}

	setInt := func(key string, v *int) {
		if v != nil {
			values.Set(key, strconv.Itoa(*v))
		}
	}
	setInt64 := func(key string, v *int64) {
		if v != nil {
			values.Set(key, strconv.FormatInt(*v, 10))
		}
	}
	setBool := func(key string, v *bool) {
		if v != nil {
			values.Set(key, strconv.FormatBool(*v))
		}
	}
	setString := func(key, v string) {
		if v != "" {
			values.Set(key, v)
		}
	}

	setInt("page", f.Page)
	setInt("per_page", f.PerPage)
	setBool("active", f.Active)
	setString("type", f.Type)
	setString("client_type", f.ClientType)
	setString("currency", f.Currency)
	setString("search", f.Search)
	setString("start_date_from", f.StartDateFrom)
	setString("start_date_to", f.StartDateTo)
	setString("end_date_from", f.EndDateFrom)
	setString("end_date_to", f.EndDateTo)
	setString("created_from", f.CreatedFrom)
	setString("created_to", f.CreatedTo)
	setInt64("min_value", f.MinValue)
	setInt64("max_value", f.MaxValue)
	setInt64("min_purchase_from", f.MinPurchaseFrom)
	setInt64("min_purchase_to", f.MinPurchaseTo)
	setInt64("usage_limit_from", f.UsageLimitFrom)
	setInt64("usage_limit_to", f.UsageLimitTo)
	setBool("is_valid", f.IsValid)
	setBool("is_expired", f.IsExpired)
	setString("sort_by", f.SortBy)
	setString("sort_order", f.SortOrder)
	setString("display_currency", f.DisplayCurrency)

	return values
}

// Voucher is one voucher record. Monetary fields are minor units of
// Currency; Value is basis points for percentage vouchers.
type Voucher struct {
	Serial            string
	SaaSCompanyID     int64
	AssociateID       string
	Code              string
	Type              string
	Value             int64
	UsageLimit        int64
	CurrentUsage      int64
	MinPurchase       int64
	MaxPurchase       int64
	StartDate         string
	EndDate           string
	Active            bool
	ClientType        string
	Description       string
	CreationCost      int64
	CreatedBy         string
	CreatedDate       string
	UpdatedAt         string
	Currency          string
	AffiliatesURL     string
	AffiliatesQRImage string
	IsExpired         bool
	IsValid           bool
	RemainingUsage    int64
	UsagePercentage   float64
	Associate         map[string]any
	IsPlatformVoucher bool
}

func voucherFromMap(m map[string]any) Voucher {
	code := getString(m, "code")
	currencyCode := getString(m, "currency")
	if currencyCode == "" {
		currencyCode = "USD"
	}

	return Voucher{
		Serial:            getString(m, "serial"),
		SaaSCompanyID:     getInt64(m, "saas_company_id"),
		AssociateID:       getString(m, "associate_id"),
		Code:              code,
		Type:              getString(m, "type"),
		Value:             getInt64(m, "value"),
		UsageLimit:        getInt64(m, "usage_limit"),
		CurrentUsage:      getInt64(m, "current_usage"),
		MinPurchase:       getInt64(m, "min_purchase"),
		MaxPurchase:       getInt64(m, "max_purchase"),
		StartDate:         getString(m, "start_date"),
		EndDate:           getString(m, "end_date"),
		Active:            getBool(m, "active"),
		ClientType:        getString(m, "client_type"),
		Description:       getString(m, "description"),
		CreationCost:      getInt64(m, "creation_cost"),
		CreatedBy:         getString(m, "created_by"),
		CreatedDate:       getString(m, "created_date"),
		UpdatedAt:         getString(m, "updated_at"),
		Currency:          currencyCode,
		AffiliatesURL:     getString(m, "affiliates_url"),
		AffiliatesQRImage: getString(m, "affiliates_qr_image"),
		IsExpired:         getBool(m, "is_expired"),
		IsValid:           getBool(m, "is_valid"),
		RemainingUsage:    getInt64(m, "remaining_usage"),
		UsagePercentage:   getFloat64(m, "usage_percentage"),
		Associate:         getMap(m, "associate"),
		IsPlatformVoucher: IsPlatformVoucher(code),
	}
}

// Pagination describes one page of a voucher list.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

func paginationFromMap(m map[string]any) *Pagination {
	if m == nil {
		return nil
	}
	return &Pagination{
		Page:       int(getInt64(m, "page")),
		Limit:      int(getInt64(m, "limit")),
		Total:      int(getInt64(m, "total")),
		TotalPages: int(getInt64(m, "total_pages")),
		HasPrev:    getBool(m, "has_prev"),
		HasNext:    getBool(m, "has_next"),
	}
}

// VoucherListResponse is one page of vouchers, platform-only for GetAll
// or merged for GetCombined.
type VoucherListResponse struct {
	Success    bool
	Message    string
	Vouchers   []Voucher
	Pagination *Pagination
	Raw        map[string]any
}

func voucherListResponseFromMap(m map[string]any) *VoucherListResponse {
	inner := getMap(m, "data")

	resp := &VoucherListResponse{
		Success:    getBool(m, "success"),
		Message:    getString(m, "message"),
		Pagination: paginationFromMap(getMap(inner, "pagination")),
		Raw:        m,
	}

	for _, item := range getSlice(inner, "data") {
		if vm, ok := item.(map[string]any); ok {
			resp.Vouchers = append(resp.Vouchers, voucherFromMap(vm))
		}
	}

	return resp
}

// GetAll fetches one page of platform vouchers. The request is a signed
// GET: filters travel as query parameters and the signature covers the
// empty object, matching the remote verifier's convention.
func (s *VoucherService) GetAll(ctx context.Context, filters VoucherListFilters) (*VoucherListResponse, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}

	data, err := s.client.call(ctx, http.MethodGet, _endpointVoucherList, nil, filters.queryValues())
	if err != nil {
		return nil, err
	}

	return voucherListResponseFromMap(data), nil
}

// LocalVoucherFunc supplies vouchers from the caller's own system for
// GetCombined. Each voucher is a loose map; recognized alternate field
// names are normalized by the alias table below.
type LocalVoucherFunc func(ctx context.Context) ([]map[string]any, error)

// localFieldAliases maps each logical voucher field to the key names
// accepted from local-voucher maps, tried in order.
var localFieldAliases = map[string][]string{
	"code":          {"code", "voucher_code", "coupon_code"},
	"type":          {"type", "voucher_type", "discount_type"},
	"value":         {"value", "amount", "discount_value"},
	"usage_limit":   {"usage_limit", "max_usage", "max_uses"},
	"current_usage": {"current_usage", "usage_count", "used_count", "times_used"},
	"min_purchase":  {"min_purchase", "minimum_purchase", "min_amount"},
	"start_date":    {"start_date", "valid_from", "starts_at"},
	"end_date":      {"end_date", "valid_until", "expires_at", "expiry_date"},
	"active":        {"active", "is_active", "enabled"},
	"currency":      {"currency", "currency_code"},
	"description":   {"description", "desc"},
	"client_type":   {"client_type", "customer_type"},
	"created_date":  {"created_date", "created_at"},
}

func aliasedString(m map[string]any, field string) string {
	for _, key := range localFieldAliases[field] {
		if v := getString(m, key); v != "" {
			return v
		}
	}
	return ""
}

func aliasedInt64(m map[string]any, field string) int64 {
	for _, key := range localFieldAliases[field] {
		if _, ok := m[key]; ok {
			return getInt64(m, key)
		}
	}
	return 0
}

func aliasedBool(m map[string]any, field string, fallback bool) bool {
	for _, key := range localFieldAliases[field] {
		if v, ok := m[key].(bool); ok {
			return v
		}
	}
	return fallback
}

// parseVoucherDate accepts the date shapes local systems store: plain
// date, local datetime, or RFC 3339.
func parseVoucherDate(value string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeLocalVoucher adapts a caller-supplied voucher map into the
// common record shape. Local vouchers arrive without the computed
// fields, so expiry, validity, and usage figures are derived here.
func normalizeLocalVoucher(m map[string]any, now time.Time) Voucher {
	v := Voucher{
		Code:              aliasedString(m, "code"),
		Type:              strings.ToUpper(aliasedString(m, "type")),
		Value:             aliasedInt64(m, "value"),
		UsageLimit:        aliasedInt64(m, "usage_limit"),
		CurrentUsage:      aliasedInt64(m, "current_usage"),
		MinPurchase:       aliasedInt64(m, "min_purchase"),
		StartDate:         aliasedString(m, "start_date"),
		EndDate:           aliasedString(m, "end_date"),
		Active:            aliasedBool(m, "active", true),
		ClientType:        strings.ToUpper(aliasedString(m, "client_type")),
		Description:       aliasedString(m, "description"),
		CreatedDate:       aliasedString(m, "created_date"),
		Currency:          strings.ToUpper(aliasedString(m, "currency")),
		IsPlatformVoucher: false,
	}
	if v.Currency == "" {
		v.Currency = "USD"
	}

	if end, ok := parseVoucherDate(v.EndDate); ok {
		v.IsExpired = end.Before(now)
	}

	started := true
	if start, ok := parseVoucherDate(v.StartDate); ok {
		started = !start.After(now)
	}

	exhausted := false
	if v.UsageLimit > 0 {
		v.RemainingUsage = v.UsageLimit - v.CurrentUsage
		if v.RemainingUsage < 0 {
			v.RemainingUsage = 0
		}
		v.UsagePercentage = float64(v.CurrentUsage) / float64(v.UsageLimit) * 100
		exhausted = v.CurrentUsage >= v.UsageLimit
	}

	v.IsValid = v.Active && started && !v.IsExpired && !exhausted

	return v
}

// GetCombined merges platform vouchers with the caller's local vouchers
// into one filtered, sorted, paginated list.
//
// The platform side is fetched page by page through GetAll. A failing
// localFn is logged and tolerated; the result then carries platform
// vouchers only. Filters that need computed fields (is_valid,
// is_expired) are applied after normalization, then the combined list is
// sorted and paginated in memory.
func (s *VoucherService) GetCombined(ctx context.Context, localFn LocalVoucherFunc, filters VoucherListFilters) (*VoucherListResponse, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}

	page := 1
	if filters.Page != nil {
		page = *filters.Page
	}
	perPage := 10
	if filters.PerPage != nil {
		perPage = *filters.PerPage
	}

	vouchers, err := s.fetchAllPlatformVouchers(ctx, filters)
	if err != nil {
		return nil, err
	}

	if localFn != nil {
		locals, lerr := localFn(ctx)
		if lerr != nil {
			s.client.log.Warnw("local voucher callback failed, continuing with platform vouchers only",
				"error", lerr.Error(),
			)
		} else {
			now := time.Now()
			for _, m := range locals {
				vouchers = append(vouchers, normalizeLocalVoucher(m, now))
			}
		}
	}

	vouchers = applyComputedFilters(vouchers, filters)
	sortVouchers(vouchers, filters.SortBy, filters.SortOrder)

	total := len(vouchers)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &VoucherListResponse{
		Success:  true,
		Message:  fmt.Sprintf("Combined %d vouchers", total),
		Vouchers: vouchers[start:end],
		Pagination: &Pagination{
			Page:       page,
			Limit:      perPage,
			Total:      total,
			TotalPages: totalPages,
			HasPrev:    page > 1,
			HasNext:    page < totalPages,
		},
	}, nil
}

// fetchAllPlatformVouchers walks every page of the platform list so the
// combined result can be re-sorted and re-paginated locally. Pagination,
// sorting, and computed-field filters are stripped from the remote query
// since they are re-applied to the merged list.
func (s *VoucherService) fetchAllPlatformVouchers(ctx context.Context, filters VoucherListFilters) ([]Voucher, error) {
	remote := filters
	remote.Page = nil
	remote.IsValid = nil
	remote.IsExpired = nil
	remote.SortBy = ""
	remote.SortOrder = ""
	perPage := maxVouchersPerPage
	remote.PerPage = &perPage

	var all []Voucher
	for page := 1; ; page++ {
		p := page
		remote.Page = &p

		resp, err := s.GetAll(ctx, remote)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Vouchers...)

		if resp.Pagination == nil || !resp.Pagination.HasNext || len(resp.Vouchers) == 0 {
			return all, nil
		}
	}
}

func applyComputedFilters(vouchers []Voucher, filters VoucherListFilters) []Voucher {
	if filters.IsValid == nil && filters.IsExpired == nil {
		return vouchers
	}

	filtered := vouchers[:0]
	for _, v := range vouchers {
		if filters.IsValid != nil && v.IsValid != *filters.IsValid {
			continue
		}
		if filters.IsExpired != nil && v.IsExpired != *filters.IsExpired {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered
}

func sortVouchers(vouchers []Voucher, sortBy, sortOrder string) {
	if sortBy == "" {
		return
	}
	less := func(a, b Voucher) bool {
		switch sortBy {
		case "code":
			return a.Code < b.Code
		case "type":
			return a.Type < b.Type
		case "value":
			return a.Value < b.Value
		case "start_date":
			return a.StartDate < b.StartDate
		case "end_date":
			return a.EndDate < b.EndDate
		case "created_date":
			return a.CreatedDate < b.CreatedDate
		case "current_usage":
			return a.CurrentUsage < b.CurrentUsage
		case "usage_limit":
			return a.UsageLimit < b.UsageLimit
		case "min_purchase":
			return a.MinPurchase < b.MinPurchase
		}
		return false
	}

	sort.SliceStable(vouchers, func(i, j int) bool {
		if sortOrder == "desc" {
			return less(vouchers[j], vouchers[i])
		}
		return less(vouchers[i], vouchers[j])
	})
}
