package havn

import (
	"context"
	"net/http"
	"strings"
)

const (
	maxUserNameLen    = 200
	maxBulkUsers      = 50
	countryCodeLength = 2
)

// UserSyncRequest mirrors one user account into the platform, typically
// after a Google OAuth login. CreateAssociate nil means true.
type UserSyncRequest struct {
	Email           string
	Name            string
	GoogleID        string
	Picture         string
	Avatar          string
	UplineCode      string
	ReferralCode    string
	CountryCode     string // ISO 3166-1 alpha-2, uppercase
	CreateAssociate *bool
	IsOwner         bool
}

func (r *UserSyncRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}

	if strings.TrimSpace(r.Name) == "" {
		return newValidationError("name cannot be empty")
	}
	if len(r.Name) > maxUserNameLen {
		return newValidationError("name cannot exceed %d characters", maxUserNameLen)
	}

	if err := validateReferralCode(r.UplineCode); err != nil {
		return err
	}
	if err := validateReferralCode(r.ReferralCode); err != nil {
		return err
	}

	if r.CountryCode != "" {
		if len(r.CountryCode) != countryCodeLength {
			return newValidationError("country code must be 2 characters (ISO 3166-1 alpha-2)")
		}
		if r.CountryCode != strings.ToUpper(r.CountryCode) {
			return newValidationError("country code must be uppercase")
		}
	}

	return nil
}

func (r *UserSyncRequest) payloadMap() map[string]any {
	payload := map[string]any{
		"email": r.Email,
		"name":  r.Name,
	}

	if r.GoogleID != "" {
		payload["google_id"] = r.GoogleID
	}
	if r.Picture != "" {
		payload["picture"] = r.Picture
	}
	if r.Avatar != "" {
		payload["avatar"] = r.Avatar
	}
	if r.UplineCode != "" {
		payload["upline_code"] = r.UplineCode
	}
	if r.ReferralCode != "" {
		payload["referral_code"] = r.ReferralCode
	}
	if r.CountryCode != "" {
		payload["country_code"] = r.CountryCode
	}

	createAssociate := true
	if r.CreateAssociate != nil {
		createAssociate = *r.CreateAssociate
	}
	payload["create_associate"] = createAssociate

	if r.IsOwner {
		payload["is_owner"] = true
	}

	return payload
}

// UserData is the platform's record of a synced user.
type UserData struct {
	ID       string
	Email    string
	Name     string
	IsActive bool
	GoogleID string
	Avatar   string
}

func userDataFromMap(m map[string]any) UserData {
	return UserData{
		ID:       getString(m, "id"),
		Email:    getString(m, "email"),
		Name:     getString(m, "name"),
		IsActive: getBool(m, "is_active"),
		GoogleID: getString(m, "google_id"),
		Avatar:   getString(m, "avatar"),
	}
}

// AssociateData describes the associate created or linked for a user.
type AssociateData struct {
	AssociateID   string
	AssociateName string
	ReferralCode  string
	Type          string
	IsActive      bool
	UplineID      string
}

func associateDataFromMap(m map[string]any) *AssociateData {
	if m == nil {
		return nil
	}
	return &AssociateData{
		AssociateID:   getString(m, "associate_id"),
		AssociateName: getString(m, "associate_name"),
		ReferralCode:  getString(m, "referral_code"),
		Type:          getString(m, "type"),
		IsActive:      getBool(m, "is_active"),
		UplineID:      getString(m, "upline_id"),
	}
}

type UserSyncResponse struct {
	Success          bool
	Message          string
	UserCreated      bool
	AssociateCreated bool
	User             UserData
	Associate        *AssociateData
	Raw              map[string]any
}

func userSyncResponseFromMap(m map[string]any) *UserSyncResponse {
	return &UserSyncResponse{
		Success:          getBool(m, "success"),
		Message:          getString(m, "message"),
		UserCreated:      getBool(m, "user_created"),
		AssociateCreated: getBool(m, "associate_created"),
		User:             userDataFromMap(getMap(m, "user")),
		Associate:        associateDataFromMap(getMap(m, "associate")),
		Raw:              m,
	}
}

// BulkUserSyncRequest syncs up to 50 users in one call. The shared
// fields apply to every user unless the user sets its own.
type BulkUserSyncRequest struct {
	Users           []UserSyncRequest
	UplineCode      string
	ReferralCode    string
	CreateAssociate *bool
	IsOwner         *bool
}

func (r *BulkUserSyncRequest) validate() error {
	if len(r.Users) == 0 {
		return newValidationError("users list cannot be empty")
	}
	if len(r.Users) > maxBulkUsers {
		return newValidationError("users list cannot exceed %d entries (got %d)",
			maxBulkUsers, len(r.Users))
	}

	if err := validateReferralCode(r.UplineCode); err != nil {
		return err
	}
	if err := validateReferralCode(r.ReferralCode); err != nil {
		return err
	}

	for i := range r.Users {
		if err := r.Users[i].validate(); err != nil {
			return newValidationError("users[%d]: %s", i, err.Error())
		}
	}

	return nil
}

func (r *BulkUserSyncRequest) payloadMap() map[string]any {
	users := make([]any, 0, len(r.Users))
	for i := range r.Users {
		users = append(users, r.Users[i].payloadMap())
	}

	payload := map[string]any{
		"users": users,
	}
	if r.UplineCode != "" {
		payload["upline_code"] = r.UplineCode
	}
	if r.ReferralCode != "" {
		payload["referral_code"] = r.ReferralCode
	}
	if r.CreateAssociate != nil {
		payload["create_associate"] = *r.CreateAssociate
	}
	if r.IsOwner != nil {
		payload["is_owner"] = *r.IsOwner
	}

	return payload
}

// BulkSyncResult is the outcome for one user in a bulk sync.
type BulkSyncResult struct {
	Email            string
	Success          bool
	UserCreated      bool
	AssociateCreated bool
	Error            string
}

// BulkSyncSummary counts outcomes across a bulk sync.
type BulkSyncSummary struct {
	Total   int
	Success int
	Failed  int
}

type BulkUserSyncResponse struct {
	Success      bool
	Message      string
	Summary      BulkSyncSummary
	ReferralCode string
	Results      []BulkSyncResult
	Raw          map[string]any
}

func bulkUserSyncResponseFromMap(m map[string]any) *BulkUserSyncResponse {
	summary := getMap(m, "summary")

	resp := &BulkUserSyncResponse{
		Success: getBool(m, "success"),
		Message: getString(m, "message"),
		Summary: BulkSyncSummary{
			Total:   int(getInt64(summary, "total")),
			Success: int(getInt64(summary, "success")),
			Failed:  int(getInt64(summary, "failed")),
		},
		ReferralCode: getString(m, "referral_code"),
		Raw:          m,
	}

	for _, item := range getSlice(m, "results") {
		rm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, BulkSyncResult{
			Email:            getString(rm, "email"),
			Success:          getBool(rm, "success"),
			UserCreated:      getBool(rm, "user_created"),
			AssociateCreated: getBool(rm, "associate_created"),
			Error:            getString(rm, "error"),
		})
	}

	return resp
}

// UserSyncService mirrors user accounts into the platform so referral
// attribution can link transactions to associates.
type UserSyncService struct {
	client *Client
}

// Sync creates or updates one user on the platform.
func (s *UserSyncService) Sync(ctx context.Context, req UserSyncRequest) (*UserSyncResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	data, err := s.client.call(ctx, http.MethodPost, _endpointUserSync, req.payloadMap(), nil)
	if err != nil {
		return nil, err
	}

	return userSyncResponseFromMap(data), nil
}

// SyncBulk creates or updates up to 50 users in one request and reports
// per-user outcomes alongside a summary.
func (s *UserSyncService) SyncBulk(ctx context.Context, req BulkUserSyncRequest) (*BulkUserSyncResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	data, err := s.client.call(ctx, http.MethodPost, _endpointUserSync, req.payloadMap(), nil)
	if err != nil {
		return nil, err
	}

	return bulkUserSyncResponseFromMap(data), nil
}
