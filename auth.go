package havn

import (
	"context"
	"net/http"
	"strings"
)

// AuthService initiates cross-service login: the platform validates the
// user, mints a single-use token, and answers with a frontend URL to
// redirect the user's browser to.
type AuthService struct {
	client *Client
}

// Login starts the login flow for a user known to the platform and
// returns the redirect URL. The email gets only a cheap shape check
// here; existence and active status are the platform's to verify.
func (s *AuthService) Login(ctx context.Context, email string) (string, error) {
	if !strings.Contains(email, "@") {
		return "", newValidationError("valid email address is required")
	}

	payload := map[string]any{
		"email": strings.ToLower(strings.TrimSpace(email)),
	}

	data, err := s.client.call(ctx, http.MethodPost, _endpointLogin, payload, nil)
	if err != nil {
		return "", err
	}

	redirectURL := getString(getMap(data, "data"), "redirect_url")
	if redirectURL == "" {
		return "", newValidationError("backend did not return a redirect URL")
	}

	return redirectURL, nil
}
