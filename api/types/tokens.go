package types

import "time"

// TwitterToken is the persisted OAuth credential bundle for the search API.
// Only the user-delegated OAuth 1.0a shape (token + secret pair) is supported
// for user-context clients; the worker receives it by value and never
// persists it.
type TwitterToken struct {
	OAuthToken       string `json:"oauth_token"`
	OAuthTokenSecret string `json:"oauth_token_secret"`
}

// UserDelegated reports whether the token has the paired token/secret shape.
func (t TwitterToken) UserDelegated() bool {
	return t.OAuthToken != "" && t.OAuthTokenSecret != ""
}

// GoogleToken is the persisted OAuth 2.0 credential bundle for the Drive API.
type GoogleToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       []string  `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the access token is past its expiry. Tokens without
// an expiry are treated as still valid.
func (t GoogleToken) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// Refreshable reports whether an expired access token can be renewed.
func (t GoogleToken) Refreshable() bool {
	return t.RefreshToken != ""
}
