package core

import (
	"strings"
	"time"
)

// DefaultTokenLifetime is applied when the provider omits expires_in.
const DefaultTokenLifetime = time.Hour

// CredentialRecord is the cached bearer-token state for one user against the
// downstream identity provider. Records are created by the OAuth handshake,
// mutated only by the lifecycle refresh step, and removed on disconnect.
type CredentialRecord struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Email        string
	ExpiresAt    time.Time
}

// TokenState classifies a stored credential for the resolve step.
type TokenState string

const (
	TokenStateFresh                TokenState = "fresh"
	TokenStateExpiredRefreshable   TokenState = "expired_refreshable"
	TokenStateExpiredUnrefreshable TokenState = "expired_unrefreshable"
)

// ResolveTokenState evaluates a record against the current time. A token is
// fresh only while expires_at is strictly in the future.
func ResolveTokenState(now time.Time, record CredentialRecord) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if record.ExpiresAt.UTC().After(now) {
		return TokenStateFresh
	}
	if strings.TrimSpace(record.RefreshToken) != "" {
		return TokenStateExpiredRefreshable
	}
	return TokenStateExpiredUnrefreshable
}

// ValidCredential is the outcome of a successful resolve: a token usable for
// downstream calls without further checks within the current request.
type ValidCredential struct {
	UserID      string
	AccessToken string
	Email       string
	ExpiresAt   time.Time
	Refreshed   bool
}

// ConnectionStatus reports whether a user currently has a stored credential.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
}

// HandshakeResult identifies the record written by a completed OAuth code
// exchange.
type HandshakeResult struct {
	UserID string
	Email  string
}

// TokenExchange carries the fields of a provider token-endpoint response the
// lifecycle cares about. ExpiresIn is seconds; zero means the provider
// omitted it.
type TokenExchange struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// EventAttendee is the optional single attendee of a calendar event.
type EventAttendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CalendarEvent is the provider-agnostic event representation accepted on
// create. Start and End are ISO 8601, timezone qualified.
type CalendarEvent struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Attendee    *EventAttendee `json:"attendee,omitempty"`
}

// UpdateEvent is a partial event patch: a present field overwrites the
// downstream value, an absent field leaves it untouched.
type UpdateEvent struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
}

// ListEventsQuery bounds a calendar listing. Zero values fall back to the
// defaults: TimeMin to now, MaxResults to 50.
type ListEventsQuery struct {
	TimeMin    string
	MaxResults int
}

// SignedUploadGrant is a time-boxed, folder-scoped authorization allowing a
// client to upload directly to the storage provider. The signature covers
// only timestamp and folder; the signing secret is never included.
type SignedUploadGrant struct {
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
	CloudName    string `json:"cloud_name"`
	APIKey       string `json:"api_key"`
	Folder       string `json:"folder"`
	ResourceType string `json:"resource_type"`
}

const (
	ResourceTypeImage = "image"
	ResourceTypeVideo = "video"
	ResourceTypeRaw   = "raw"
)

func normalizeResourceType(resourceType string) (string, bool) {
	resourceType = strings.TrimSpace(strings.ToLower(resourceType))
	switch resourceType {
	case "":
		return ResourceTypeRaw, true
	case ResourceTypeImage, ResourceTypeVideo, ResourceTypeRaw:
		return resourceType, true
	}
	return "", false
}
