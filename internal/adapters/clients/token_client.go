package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type TokenClientConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	HTTPClient   *http.Client
}

// TokenClient fetches machine-to-machine tokens with the client-credentials
// grant and caches the result until shortly before expiry.
type TokenClient struct {
	cfg    TokenClientConfig
	client *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenClient(cfg TokenClientConfig) *TokenClient {
	return &TokenClient{
		cfg:    cfg,
		client: defaultHTTPClient(cfg.HTTPClient),
	}
}

func (c *TokenClient) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: token endpoint status %d", domain.ErrDependencyUnavailable, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned empty token", domain.ErrDependencyUnavailable)
	}
	c.token = payload.AccessToken
	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	// Renew a little early so in-flight requests never carry a stale token.
	c.expiresAt = time.Now().Add(ttl - 30*time.Second)
	return c.token, nil
}

var _ ports.TokenSource = (*TokenClient)(nil)
