package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"presence-sync-service/internal/config"
)

// TokenProvider performs the client-credentials exchange against the
// Microsoft identity platform. Tokens are not cached; each poll cycle
// acquires a fresh one.
type TokenProvider struct {
	authorityURL string
	tenantID     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewTokenProvider creates a new TokenProvider from the Graph configuration
func NewTokenProvider(cfg *config.GraphConfig, logger *zap.Logger) *TokenProvider {
	return &TokenProvider{
		authorityURL: cfg.AuthorityURL,
		tenantID:     cfg.TenantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// GetToken exchanges the configured client credentials for a bearer token
func (p *TokenProvider) GetToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", p.authorityURL, p.tenantID)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("scope", p.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	startTime := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Error("Token exchange returned non-success status",
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", time.Since(startTime)),
		)
		return "", &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &AuthError{Status: resp.StatusCode, Body: "malformed token response"}
	}
	if token.AccessToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Body: "token response missing access_token"}
	}

	p.logger.Debug("Token acquired",
		zap.Duration("duration", time.Since(startTime)),
	)

	return token.AccessToken, nil
}
