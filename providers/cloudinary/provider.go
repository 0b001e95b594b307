// Package cloudinary implements the downstream media-storage capability:
// authenticated asset destruction through Cloudinary's upload API. Upload
// grants themselves are signed locally by the core signer and never pass
// through this client.
package cloudinary

import (
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
	BaseURL = "https://api.cloudinary.com/v1_1"

	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 1 << 20 // 1 MiB

	// Assets uploaded through signed grants are stored as raw resources;
	// deletes always address the same type.
	destroyResourceType = "raw"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	CloudName      string
	APIKey         string
	APISecret      string
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Now            func() time.Time
}

type Provider struct {
	cfg        Config
	httpClient HTTPDoer
}

func New(cfg Config) (*Provider, error) {
	cfg.CloudName = strings.TrimSpace(cfg.CloudName)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	if cfg.CloudName == "" {
		return nil, fmt.Errorf("cloudinary: cloud name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cloudinary: api key is required")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary: api secret is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Provider{cfg: cfg, httpClient: httpClient}, nil
}

// DestroyAsset deletes (and cache-invalidates) a stored asset. Cloudinary
// reports a missing asset as {"result": "not found"} with a 200 status; that
// document is passed through, not converted into an error.
func (p *Provider) DestroyAsset(ctx context.Context, publicID string) (map[string]any, error) {
	if p == nil || p.httpClient == nil {
		return nil, fmt.Errorf("cloudinary: provider is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, fmt.Errorf("cloudinary: asset public id is required")
	}

	timestamp := p.cfg.Now().Unix()
	signed := map[string]string{
		"public_id":  publicID,
		"timestamp":  strconv.FormatInt(timestamp, 10),
		"invalidate": "true",
	}

	form := url.Values{}
	for key, value := range signed {
		form.Set(key, value)
	}
	form.Set("api_key", p.cfg.APIKey)
	form.Set("signature", core.SignParams(signed, p.cfg.APISecret))

	target := strings.TrimRight(p.cfg.BaseURL, "/") +
		"/" + url.PathEscape(p.cfg.CloudName) +
		"/" + destroyResourceType + "/destroy"

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		target,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: destroy request failed: %w", err)
	}
	defer response.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("cloudinary: read destroy response: %w", readErr)
	}
	if int64(len(raw)) > maxResponseBodyBytes {
		return nil, fmt.Errorf("cloudinary: destroy response exceeds %d bytes", maxResponseBodyBytes)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("cloudinary: destroy error (%d): %s", response.StatusCode, describeError(raw))
	}

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("cloudinary: decode destroy response: %w", err)
	}
	return document, nil
}

func describeError(raw []byte) string {
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

var _ core.StorageAPI = (*Provider)(nil)
