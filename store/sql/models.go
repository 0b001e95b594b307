package sqlstore

import (
	"strings"
	"time"

	"github.com/closepilot/integrations/core"
	"github.com/uptrace/bun"
)

type credentialRow struct {
	bun.BaseModel `bun:"table:user_credentials,alias:uc"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull,unique"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token"`
	Email        string    `bun:"email"`
	ExpiresAt    time.Time `bun:"expires_at,nullzero"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newCredentialRow(record core.CredentialRecord, now time.Time) *credentialRow {
	return &credentialRow{
		UserID:       strings.TrimSpace(record.UserID),
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		Email:        strings.TrimSpace(record.Email),
		ExpiresAt:    record.ExpiresAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *credentialRow) toDomain() core.CredentialRecord {
	if r == nil {
		return core.CredentialRecord{}
	}
	return core.CredentialRecord{
		UserID:       r.UserID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Email:        r.Email,
		ExpiresAt:    r.ExpiresAt,
	}
}
