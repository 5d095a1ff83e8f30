package twitter

import (
	"fmt"

	"github.com/dghubble/oauth1"
	"github.com/sirupsen/logrus"

	"github.com/fimi-watch/archive-worker/api/types"
	"github.com/fimi-watch/archive-worker/pkg/client"
)

// ClientConfig holds the app-level credentials and capabilities needed to
// reconstruct live clients from persisted token records.
type ClientConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	FullArchive    bool
	BaseURL        string // override for tests
}

// NewUserClient builds a user-context search client from a persisted token
// record. Only the user-delegated shape (paired token + secret, signed with
// OAuth 1.0a) is supported; anything else is a ClientInitError. The client
// waits out rate limits internally, as background work must not fail on 429.
func NewUserClient(token types.TwitterToken, cfg ClientConfig) (*client.TwitterXClient, error) {
	if !token.UserDelegated() {
		return nil, &ClientInitError{Err: fmt.Errorf("token shape not recognized: need oauth_token and oauth_token_secret")}
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, &ClientInitError{Err: fmt.Errorf("twitter consumer key/secret not configured")}
	}

	oaConfig := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	httpClient := oaConfig.Client(oauth1.NoContext, oauth1.NewToken(token.OAuthToken, token.OAuthTokenSecret))

	opts := []client.Option{client.WaitOnRateLimit()}
	if cfg.FullArchive {
		opts = append(opts, client.FullArchive())
	}
	if cfg.BaseURL != "" {
		opts = append(opts, client.BaseURL(cfg.BaseURL))
	}
	c, err := client.NewUserTwitterXClient(httpClient, opts...)
	if err != nil {
		return nil, &ClientInitError{Err: err}
	}
	logrus.Debug("user-context twitter client initialized")
	return c, nil
}

// NewAppClients builds one app-only client per bearer token. Empty tokens are
// skipped; a failed client is logged and skipped rather than sinking the
// whole pool.
func NewAppClients(bearerTokens []string, cfg ClientConfig) []*client.TwitterXClient {
	clients := make([]*client.TwitterXClient, 0, len(bearerTokens))
	for _, token := range bearerTokens {
		if token == "" {
			logrus.Warn("empty app-only bearer token in configuration")
			continue
		}
		opts := []client.Option{}
		if cfg.FullArchive {
			opts = append(opts, client.FullArchive())
		}
		if cfg.BaseURL != "" {
			opts = append(opts, client.BaseURL(cfg.BaseURL))
		}
		c, err := client.NewTwitterXClient(token, opts...)
		if err != nil {
			logrus.Errorf("failed to initialize app-only twitter client: %v", err)
			continue
		}
		clients = append(clients, c)
	}
	return clients
}
