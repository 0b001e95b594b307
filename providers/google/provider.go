// Package google implements the downstream calendar capability against the
// Google OAuth2 and Calendar v3 endpoints: authorization URL construction,
// code and refresh-token exchange, userinfo identity lookup, and event CRUD.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/closepilot/integrations/core"
)

const (
	AuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL    = "https://oauth2.googleapis.com/token"
	UserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	CalendarURL = "https://www.googleapis.com/calendar/v3"

	defaultCalendarID     = "primary"
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Scopes         []string
	AuthURL        string
	TokenURL       string
	UserinfoURL    string
	CalendarURL    string
	CalendarID     string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
}

func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		UserinfoURL: UserinfoURL,
		CalendarURL: CalendarURL,
		CalendarID:  defaultCalendarID,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}
}

// Provider is safe for concurrent use; it holds no per-request state.
type Provider struct {
	cfg        Config
	httpClient HTTPDoer
}

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = defaults.AuthURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	if strings.TrimSpace(cfg.UserinfoURL) == "" {
		cfg.UserinfoURL = defaults.UserinfoURL
	}
	if strings.TrimSpace(cfg.CalendarURL) == "" {
		cfg.CalendarURL = defaults.CalendarURL
	}
	if strings.TrimSpace(cfg.CalendarID) == "" {
		cfg.CalendarID = defaults.CalendarID
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), defaults.Scopes...)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("google: client id is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Provider{cfg: cfg, httpClient: httpClient}, nil
}

// AuthCodeURL builds the authorization URL that starts the consent flow.
// access_type=offline plus prompt=consent force Google to issue a refresh
// token on every approval, not only the first.
func (p *Provider) AuthCodeURL(state string) string {
	if p == nil {
		return ""
	}
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", p.cfg.ClientID)
	values.Set("redirect_uri", p.cfg.RedirectURI)
	values.Set("scope", strings.Join(p.cfg.Scopes, " "))
	values.Set("access_type", "offline")
	values.Set("prompt", "consent")
	values.Set("state", state)
	return p.cfg.AuthURL + "?" + values.Encode()
}

// ExchangeCode redeems a one-shot authorization code at the token endpoint.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (core.TokenExchange, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", strings.TrimSpace(code))
	form.Set("redirect_uri", p.cfg.RedirectURI)
	return p.fetchToken(ctx, form)
}

// RefreshAccessToken exchanges a long-lived refresh token for a new access
// token.
func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (core.TokenExchange, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenExchange{}, fmt.Errorf("google: refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return p.fetchToken(ctx, form)
}

type tokenEndpointPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *Provider) fetchToken(ctx context.Context, form url.Values) (core.TokenExchange, error) {
	if p == nil || p.httpClient == nil {
		return core.TokenExchange{}, fmt.Errorf("google: provider is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		p.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.TokenExchange{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return core.TokenExchange{}, fmt.Errorf("google: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return core.TokenExchange{}, fmt.Errorf("google: read token response: %w", readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return core.TokenExchange{}, fmt.Errorf("google: token response exceeds %d bytes", maxResponseBodyBytes)
	}

	var payload tokenEndpointPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.TokenExchange{}, fmt.Errorf("google: decode token response: %w", err)
	}
	// Google reports exchange failures through an error field; the status
	// code alone is not authoritative.
	if payload.ErrorCode != "" {
		return core.TokenExchange{}, fmt.Errorf("google: token endpoint error: %s", describeTokenError(payload))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.TokenExchange{}, fmt.Errorf("google: token endpoint error (%d): %s", response.StatusCode, describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenExchange{}, fmt.Errorf("google: token endpoint response missing access token")
	}

	return core.TokenExchange{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

// ResolveEmail fetches the provider-reported identity for a freshly issued
// access token.
func (p *Provider) ResolveEmail(ctx context.Context, accessToken string) (string, error) {
	document, err := p.doJSON(ctx, http.MethodGet, p.cfg.UserinfoURL, accessToken, nil)
	if err != nil {
		return "", err
	}
	email, _ := document["email"].(string)
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("google: userinfo response missing email")
	}
	return strings.TrimSpace(email), nil
}

func (p *Provider) eventsURL(eventID string) string {
	base := strings.TrimRight(p.cfg.CalendarURL, "/") +
		"/calendars/" + url.PathEscape(p.cfg.CalendarID) + "/events"
	if eventID == "" {
		return base
	}
	return base + "/" + url.PathEscape(eventID)
}

func (p *Provider) ListEvents(ctx context.Context, accessToken string, query core.ListEventsQuery) ([]map[string]any, error) {
	values := url.Values{}
	values.Set("timeMin", query.TimeMin)
	values.Set("maxResults", strconv.Itoa(query.MaxResults))
	values.Set("singleEvents", "true")
	values.Set("orderBy", "startTime")

	document, err := p.doJSON(ctx, http.MethodGet, p.eventsURL("")+"?"+values.Encode(), accessToken, nil)
	if err != nil {
		return nil, err
	}
	rawItems, _ := document["items"].([]any)
	items := make([]map[string]any, 0, len(rawItems))
	for _, raw := range rawItems {
		if item, ok := raw.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (p *Provider) GetEvent(ctx context.Context, accessToken string, eventID string) (map[string]any, error) {
	return p.doJSON(ctx, http.MethodGet, p.eventsURL(eventID), accessToken, nil)
}

func (p *Provider) InsertEvent(ctx context.Context, accessToken string, body map[string]any, notifyAttendees bool) (map[string]any, error) {
	sendUpdates := "none"
	if notifyAttendees {
		sendUpdates = "all"
	}
	target := p.eventsURL("") + "?" + url.Values{"sendUpdates": {sendUpdates}}.Encode()
	return p.doJSON(ctx, http.MethodPost, target, accessToken, body)
}

func (p *Provider) UpdateEvent(ctx context.Context, accessToken string, eventID string, body map[string]any) (map[string]any, error) {
	return p.doJSON(ctx, http.MethodPut, p.eventsURL(eventID), accessToken, body)
}

func (p *Provider) DeleteEvent(ctx context.Context, accessToken string, eventID string) error {
	_, err := p.doJSON(ctx, http.MethodDelete, p.eventsURL(eventID), accessToken, nil)
	return err
}

// doJSON performs one authenticated round trip and decodes a JSON object
// response. Empty bodies (event deletes) decode to an empty document.
func (p *Provider) doJSON(ctx context.Context, method string, target string, accessToken string, body map[string]any) (map[string]any, error) {
	if p == nil || p.httpClient == nil {
		return nil, fmt.Errorf("google: provider is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("google: access token is required")
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("google: encode request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google: request failed: %w", err)
	}
	defer response.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("google: read response: %w", readErr)
	}
	if int64(len(raw)) > maxResponseBodyBytes {
		return nil, fmt.Errorf("google: response exceeds %d bytes", maxResponseBodyBytes)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("google: api error (%d): %s", response.StatusCode, describeAPIError(raw))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("google: decode response: %w", err)
	}
	return document, nil
}

func describeAPIError(raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if message := strings.TrimSpace(envelope.Error.Message); message != "" {
			return message
		}
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "empty response body"
	}
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	return trimmed
}

var (
	_ core.TokenExchanger   = (*Provider)(nil)
	_ core.IdentityResolver = (*Provider)(nil)
	_ core.AuthURLBuilder   = (*Provider)(nil)
	_ core.CalendarAPI      = (*Provider)(nil)
)
