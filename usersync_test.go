package havn_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	havn "github.com/HAVN-Associates/havn-sdk"
)

func TestUserSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/webhook/user-sync", r.URL.Path)

		payload := decodeBody(t, r)
		requireValidSignature(t, r, payload, "whsec_test")
		require.Equal(t, "user@example.com", payload["email"])
		require.Equal(t, "John Doe", payload["name"])
		require.Equal(t, "google123", payload["google_id"])
		require.Equal(t, "HAVN-MJ-001", payload["upline_code"])
		require.Equal(t, true, payload["create_associate"])
		require.Equal(t, true, payload["is_owner"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":           true,
			"message":           "User synced",
			"user_created":      true,
			"associate_created": true,
			"user": map[string]any{
				"id":        "usr_1",
				"email":     "user@example.com",
				"name":      "John Doe",
				"is_active": true,
			},
			"associate": map[string]any{
				"associate_id":   "assoc_1",
				"associate_name": "John Doe",
				"referral_code":  "HAVN-JD-001",
				"type":           "owner",
				"is_active":      true,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Users.Sync(context.Background(), havn.UserSyncRequest{
		Email:      "user@example.com",
		Name:       "John Doe",
		GoogleID:   "google123",
		UplineCode: "HAVN-MJ-001",
		IsOwner:    true,
	})
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.True(t, resp.UserCreated)
	require.True(t, resp.AssociateCreated)
	require.Equal(t, "usr_1", resp.User.ID)
	require.NotNil(t, resp.Associate)
	require.Equal(t, "HAVN-JD-001", resp.Associate.ReferralCode)
}

func TestUserSync_CreateAssociateDefaultsTrue(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = decodeBody(t, r)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Users.Sync(context.Background(), havn.UserSyncRequest{
		Email: gofakeit.Email(),
		Name:  gofakeit.Name(),
	})
	require.NoError(t, err)
	require.Equal(t, true, received["create_associate"])

	_, err = client.Users.Sync(context.Background(), havn.UserSyncRequest{
		Email:           gofakeit.Email(),
		Name:            gofakeit.Name(),
		CreateAssociate: boolPtr(false),
	})
	require.NoError(t, err)
	require.Equal(t, false, received["create_associate"])
}

func TestUserSync_Validation(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")

	testCases := []struct {
		desc    string
		req     havn.UserSyncRequest
		wantErr string
	}{
		{
			desc:    "bad email",
			req:     havn.UserSyncRequest{Email: "nope", Name: "John"},
			wantErr: "invalid email format",
		},
		{
			desc:    "empty name",
			req:     havn.UserSyncRequest{Email: "user@example.com", Name: "  "},
			wantErr: "name cannot be empty",
		},
		{
			desc: "short upline code",
			req: havn.UserSyncRequest{
				Email:      "user@example.com",
				Name:       "John",
				UplineCode: "AB",
			},
			wantErr: "referral code must be between 3 and 50 characters",
		},
		{
			desc: "bad country code length",
			req: havn.UserSyncRequest{
				Email:       "user@example.com",
				Name:        "John",
				CountryCode: "IDN",
			},
			wantErr: "country code must be 2 characters",
		},
		{
			desc: "lowercase country code",
			req: havn.UserSyncRequest{
				Email:       "user@example.com",
				Name:        "John",
				CountryCode: "id",
			},
			wantErr: "country code must be uppercase",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := client.Users.Sync(context.Background(), tc.req)
			require.Error(t, err)

			var validationErr *havn.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestUserSyncBulk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		requireValidSignature(t, r, payload, "whsec_test")

		users, ok := payload["users"].([]any)
		require.True(t, ok)
		require.Len(t, users, 2)
		require.Equal(t, "HAVN-MJ-001", payload["upline_code"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"message":       "Bulk sync completed",
			"summary":       map[string]any{"total": 2, "success": 2, "failed": 0},
			"referral_code": "HAVN-BULK-123",
			"results": []map[string]any{
				{"email": "user1@example.com", "success": true, "user_created": true, "associate_created": true},
				{"email": "user2@example.com", "success": true, "user_created": true, "associate_created": true},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Users.SyncBulk(context.Background(), havn.BulkUserSyncRequest{
		Users: []havn.UserSyncRequest{
			{Email: "user1@example.com", Name: "User One"},
			{Email: "user2@example.com", Name: "User Two", IsOwner: true},
		},
		UplineCode: "HAVN-MJ-001",
	})
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.Equal(t, 2, resp.Summary.Total)
	require.Equal(t, 2, resp.Summary.Success)
	require.Equal(t, 0, resp.Summary.Failed)
	require.Equal(t, "HAVN-BULK-123", resp.ReferralCode)
	require.Len(t, resp.Results, 2)
	require.Equal(t, "user1@example.com", resp.Results[0].Email)
}

func TestUserSyncBulk_Validation(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")

	t.Run("empty users", func(t *testing.T) {
		_, err := client.Users.SyncBulk(context.Background(), havn.BulkUserSyncRequest{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "users list cannot be empty")
	})

	t.Run("too many users", func(t *testing.T) {
		users := make([]havn.UserSyncRequest, 51)
		for i := range users {
			users[i] = havn.UserSyncRequest{Email: gofakeit.Email(), Name: gofakeit.Name()}
		}

		_, err := client.Users.SyncBulk(context.Background(), havn.BulkUserSyncRequest{Users: users})
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot exceed 50 entries")
	})

	t.Run("invalid user reported with index", func(t *testing.T) {
		_, err := client.Users.SyncBulk(context.Background(), havn.BulkUserSyncRequest{
			Users: []havn.UserSyncRequest{
				{Email: "user1@example.com", Name: "User One"},
				{Email: "broken", Name: "User Two"},
			},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "users[1]")
		require.Contains(t, err.Error(), "invalid email format")
	})
}
