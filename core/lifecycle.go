package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Resolve returns a currently valid credential for the user, transparently
// refreshing an expired token through the provider token endpoint.
//
// The record is classified into one of three states:
//   - fresh: expires_at is strictly in the future, the stored token is
//     returned with no network call;
//   - expired_refreshable: exactly one refresh exchange is attempted, a
//     failure is not retried;
//   - expired_unrefreshable: fails immediately with reauth required.
//
// Two concurrent calls for the same expired user may both refresh; the
// provider endpoint is idempotent in effect and the last store write wins,
// so the race is tolerated rather than excluded.
func (s *Service) Resolve(ctx context.Context, userID string) (ValidCredential, error) {
	if s == nil {
		return ValidCredential{}, fmt.Errorf("core: service is nil")
	}
	if err := s.requireCredentialStore(); err != nil {
		return ValidCredential{}, s.mapError(err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ValidCredential{}, s.mapError(errBadInput("core: user id is required"))
	}

	record, ok, err := s.credentialStore.Get(ctx, userID)
	if err != nil {
		return ValidCredential{}, s.mapError(err)
	}
	if !ok {
		return ValidCredential{}, ErrUnauthenticated(userID)
	}

	now := s.now()
	switch ResolveTokenState(now, record) {
	case TokenStateFresh:
		return ValidCredential{
			UserID:      userID,
			AccessToken: record.AccessToken,
			Email:       record.Email,
			ExpiresAt:   record.ExpiresAt,
		}, nil
	case TokenStateExpiredRefreshable:
		return s.refreshCredential(ctx, now, userID, record)
	default:
		return ValidCredential{}, ErrReauthenticationRequired(userID, nil)
	}
}

// refreshCredential performs the single refresh attempt allowed per resolve.
func (s *Service) refreshCredential(
	ctx context.Context,
	now time.Time,
	userID string,
	record CredentialRecord,
) (ValidCredential, error) {
	startedAt := now
	if s.tokenExchanger == nil {
		return ValidCredential{}, s.mapError(fmt.Errorf("core: token exchanger is not configured"))
	}

	exchange, err := s.tokenExchanger.RefreshAccessToken(ctx, record.RefreshToken)
	fields := map[string]any{"user_id": userID}
	if err != nil {
		reauthErr := ErrReauthenticationRequired(userID, err)
		s.observeOperation(ctx, startedAt, "credential_refresh", reauthErr, fields)
		return ValidCredential{}, reauthErr
	}
	if strings.TrimSpace(exchange.AccessToken) == "" {
		reauthErr := ErrReauthenticationRequired(userID, fmt.Errorf("core: refresh response missing access token"))
		s.observeOperation(ctx, startedAt, "credential_refresh", reauthErr, fields)
		return ValidCredential{}, reauthErr
	}

	record.AccessToken = strings.TrimSpace(exchange.AccessToken)
	// Providers may rotate the refresh token; an absent one keeps the old.
	if next := strings.TrimSpace(exchange.RefreshToken); next != "" {
		record.RefreshToken = next
	}
	record.ExpiresAt = nextExpiry(now, record.ExpiresAt, exchange.ExpiresIn)

	if err := s.credentialStore.Put(ctx, userID, record); err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "credential_refresh", mapped, fields)
		return ValidCredential{}, mapped
	}

	s.observeOperation(ctx, startedAt, "credential_refresh", nil, fields)
	return ValidCredential{
		UserID:      userID,
		AccessToken: record.AccessToken,
		Email:       record.Email,
		ExpiresAt:   record.ExpiresAt,
		Refreshed:   true,
	}, nil
}

// nextExpiry computes now + provider-declared lifetime, falling back to the
// default lifetime, and never moves an existing expiry backward.
func nextExpiry(now time.Time, previous time.Time, expiresIn int64) time.Time {
	lifetime := DefaultTokenLifetime
	if expiresIn > 0 {
		lifetime = time.Duration(expiresIn) * time.Second
	}
	next := now.Add(lifetime)
	if next.Before(previous) {
		return previous
	}
	return next
}

// Status reports whether the user has a stored credential. It never touches
// the provider and does not distinguish expired from fresh records.
func (s *Service) Status(ctx context.Context, userID string) (ConnectionStatus, error) {
	if s == nil {
		return ConnectionStatus{}, fmt.Errorf("core: service is nil")
	}
	if err := s.requireCredentialStore(); err != nil {
		return ConnectionStatus{}, s.mapError(err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ConnectionStatus{}, s.mapError(errBadInput("core: user id is required"))
	}

	record, ok, err := s.credentialStore.Get(ctx, userID)
	if err != nil {
		return ConnectionStatus{}, s.mapError(err)
	}
	if !ok {
		return ConnectionStatus{Connected: false}, nil
	}
	return ConnectionStatus{Connected: true, Email: record.Email}, nil
}

// Disconnect destroys the user's credential record. Idempotent: disconnecting
// an unknown user is not an error.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if err := s.requireCredentialStore(); err != nil {
		return s.mapError(err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return s.mapError(errBadInput("core: user id is required"))
	}

	if err := s.credentialStore.Delete(ctx, userID); err != nil {
		return s.mapError(err)
	}
	s.logInfo(ctx, "credential disconnected", map[string]any{"user_id": userID})
	return nil
}
