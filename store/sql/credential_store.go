// Package sqlstore provides the durable credential store backed by bun. It
// keeps one row per user in user_credentials; Put replaces the user's row
// in place so the table never accumulates stale token versions.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/closepilot/integrations/core"
)

type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialRow]
}

func (s *CredentialStore) Get(ctx context.Context, userID string) (core.CredentialRecord, bool, error) {
	if s == nil || s.repo == nil {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: credential store is not configured")
	}
	trimmedUserID := strings.TrimSpace(userID)
	if trimmedUserID == "" {
		return core.CredentialRecord{}, false, fmt.Errorf("sqlstore: user id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", trimmedUserID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialRecord{}, false, err
	}
	if len(records) == 0 {
		return core.CredentialRecord{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *CredentialStore) Put(ctx context.Context, userID string, record core.CredentialRecord) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	trimmedUserID := strings.TrimSpace(userID)
	if trimmedUserID == "" {
		return fmt.Errorf("sqlstore: user id is required")
	}
	if strings.TrimSpace(record.AccessToken) == "" {
		return fmt.Errorf("sqlstore: access token is required")
	}
	record.UserID = trimmedUserID
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, updateErr := tx.NewUpdate().
			Model((*credentialRow)(nil)).
			Set("access_token = ?", record.AccessToken).
			Set("refresh_token = ?", record.RefreshToken).
			Set("email = ?", strings.TrimSpace(record.Email)).
			Set("expires_at = ?", record.ExpiresAt.UTC()).
			Set("updated_at = ?", now).
			Where("user_id = ?", trimmedUserID).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected > 0 {
			return nil
		}

		_, createErr := s.repo.CreateTx(ctx, tx, newCredentialRow(record, now))
		return createErr
	})
}

func (s *CredentialStore) Delete(ctx context.Context, userID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	trimmedUserID := strings.TrimSpace(userID)
	if trimmedUserID == "" {
		return fmt.Errorf("sqlstore: user id is required")
	}

	_, err := s.db.NewDelete().
		Model((*credentialRow)(nil)).
		Where("user_id = ?", trimmedUserID).
		Exec(ctx)
	return err
}

var _ core.CredentialStore = (*CredentialStore)(nil)
