package drive

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/fimi-watch/archive-worker/api/types"
)

// ServiceConfig holds the OAuth application credentials used to act on behalf
// of a user's Drive.
type ServiceConfig struct {
	ClientID     string
	ClientSecret string
}

// NewService builds a Drive client from a persisted user token. An expired
// access token is refreshed up front when a refresh token is present, so the
// job fails fast on dead credentials instead of midway through an upload. All
// failure paths share the "Google Drive service initialization failed" prefix
// that status consumers match on.
func NewService(ctx context.Context, cfg ServiceConfig, token types.GoogleToken) (*Drive, error) {
	if token.AccessToken == "" {
		return nil, fmt.Errorf("Google Drive service initialization failed: token has no access_token")
	}

	oaConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       token.Scopes,
	}
	oaToken := &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
	}

	if token.Expired() {
		if !token.Refreshable() {
			return nil, fmt.Errorf("Google Drive service initialization failed: access token expired and no refresh token available")
		}
		refreshed, err := oaConfig.TokenSource(ctx, oaToken).Token()
		if err != nil {
			return nil, fmt.Errorf("Google Drive service initialization failed: token refresh: %w", err)
		}
		logrus.Debug("refreshed expired Google access token")
		oaToken = refreshed
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(oaConfig.Client(ctx, oaToken)))
	if err != nil {
		return nil, fmt.Errorf("Google Drive service initialization failed: %w", err)
	}
	return &Drive{svc: svc}, nil
}
