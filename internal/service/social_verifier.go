package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleVerifier resolves a Google OAuth access token into a verified identity
// via the userinfo endpoint.
type GoogleVerifier struct {
	client *http.Client
	url    string
}

// NewGoogleVerifier builds a verifier with a bounded-timeout HTTP client.
func NewGoogleVerifier() *GoogleVerifier {
	return &GoogleVerifier{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    googleUserInfoURL,
	}
}

// Verify implements SocialVerifier.
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return "", "", fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo request returned %d", resp.StatusCode)
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode userinfo response: %w", err)
	}
	if payload.Email == "" || !payload.EmailVerified {
		return "", "", fmt.Errorf("provider returned no verified email")
	}

	return payload.Email, payload.Name, nil
}
