package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore is the process-wide mapping from user identifier to
// credential record. Implementations must be safe for concurrent use across
// users; same-user write races are tolerated (last write wins) and need not
// be prevented.
type CredentialStore interface {
	Get(ctx context.Context, userID string) (CredentialRecord, bool, error)
	Put(ctx context.Context, userID string, record CredentialRecord) error
	Delete(ctx context.Context, userID string) error
}

// TokenExchanger is the provider token-endpoint capability: one-shot code
// exchange plus refresh-token exchange.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (TokenExchange, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (TokenExchange, error)
}

// IdentityResolver fetches the provider-reported identity for a freshly
// issued access token.
type IdentityResolver interface {
	ResolveEmail(ctx context.Context, accessToken string) (string, error)
}

// AuthURLBuilder produces the provider authorization URL that starts the
// handshake for a given state value.
type AuthURLBuilder interface {
	AuthCodeURL(state string) string
}

// CalendarAPI is the downstream calendar capability. Event documents are
// carried in the provider's own shape so that partial updates can overlay
// fields without re-deriving the full schema.
type CalendarAPI interface {
	ListEvents(ctx context.Context, accessToken string, query ListEventsQuery) ([]map[string]any, error)
	GetEvent(ctx context.Context, accessToken string, eventID string) (map[string]any, error)
	InsertEvent(ctx context.Context, accessToken string, body map[string]any, notifyAttendees bool) (map[string]any, error)
	UpdateEvent(ctx context.Context, accessToken string, eventID string, body map[string]any) (map[string]any, error)
	DeleteEvent(ctx context.Context, accessToken string, eventID string) error
}

// StorageAPI is the downstream media-storage capability used outside the
// signing path. Destroy succeeds even when the asset does not exist; the
// provider's result document is passed through.
type StorageAPI interface {
	DestroyAsset(ctx context.Context, publicID string) (map[string]any, error)
}

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
