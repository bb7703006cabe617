package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// authenticator is the per-session authentication context. Every request
// asks it for the bearer token instead of reading a shared header map, so
// concurrent cursors on one session cannot race on header state.
//
// Authentication failure is deliberately never fatal: when the credentials
// grant fails, requests proceed unauthenticated and the server decides.
type authenticator struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	group singleflight.Group

	mu       sync.RWMutex
	token    string
	resolved bool
}

func newAuthenticator(cfg *Config, httpClient *http.Client) *authenticator {
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}

	a := &authenticator{
		tokenURL:     fmt.Sprintf("%s://%s/token", scheme, subdomainHost(cfg.Host, "auth")),
		clientID:     cfg.Username,
		clientSecret: cfg.Secret,
		httpClient:   httpClient,
	}

	if cfg.Token != "" {
		a.token = cfg.Token
		a.resolved = true
	}

	return a
}

// apply attaches the bearer token to the request, resolving credentials on
// first use. Requests without a token go out bare.
func (a *authenticator) apply(ctx context.Context, req *http.Request) {
	if token := a.resolve(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (a *authenticator) resolve(ctx context.Context) string {
	a.mu.RLock()
	if a.resolved {
		token := a.token
		a.mu.RUnlock()
		return token
	}
	a.mu.RUnlock()

	// serialize concurrent resolution from multiple cursors
	token, _, _ := a.group.Do("token", func() (any, error) {
		a.mu.RLock()
		if a.resolved {
			token := a.token
			a.mu.RUnlock()
			return token, nil
		}
		a.mu.RUnlock()

		token := a.fetchToken(ctx)

		a.mu.Lock()
		a.token = token
		a.resolved = true
		a.mu.Unlock()

		return token, nil
	})

	return token.(string)
}

// fetchToken performs the client-credentials grant. Any failure is swallowed
// and logged; the empty token means "unauthenticated".
func (a *authenticator) fetchToken(ctx context.Context) string {
	if a.clientID == "" || a.clientSecret == "" {
		return ""
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Warn().Err(err).Msg("building token request failed, continuing unauthenticated")
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("url", a.tokenURL).Msg("token request failed, continuing unauthenticated")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Warn().Int("status", resp.StatusCode).Msg("token request rejected, continuing unauthenticated")
		return ""
	}

	var body struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
		JWT         string `json:"jwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Warn().Err(err).Msg("malformed token response, continuing unauthenticated")
		return ""
	}

	for _, token := range []string{body.AccessToken, body.Token, body.JWT} {
		if token != "" {
			return token
		}
	}

	logger.Warn().Msg("token response carried no token field, continuing unauthenticated")
	return ""
}
