package core

import (
	"context"
	"fmt"
	"strings"
)

// BeginHandshake returns the provider authorization URL that starts the OAuth
// flow for the user. The user id travels as the state parameter and comes
// back on the callback.
func (s *Service) BeginHandshake(_ context.Context, userID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", s.mapError(errBadInput("core: user id is required"))
	}
	if s.authURLBuilder == nil {
		return "", s.mapError(fmt.Errorf("core: auth url builder is not configured"))
	}
	return s.authURLBuilder.AuthCodeURL(userID), nil
}

// CompleteHandshake exchanges the authorization code for tokens, fetches the
// provider identity, and writes exactly one credential record. Any failure
// leaves the store untouched.
func (s *Service) CompleteHandshake(ctx context.Context, code string, state string) (HandshakeResult, error) {
	if s == nil {
		return HandshakeResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	result, err := s.completeHandshake(ctx, code, state)
	s.observeOperation(ctx, startedAt, "oauth_handshake", err, map[string]any{
		"user_id": result.UserID,
	})
	return result, err
}

func (s *Service) completeHandshake(ctx context.Context, code string, state string) (HandshakeResult, error) {
	if err := s.requireCredentialStore(); err != nil {
		return HandshakeResult{}, s.mapError(err)
	}
	if s.tokenExchanger == nil {
		return HandshakeResult{}, s.mapError(fmt.Errorf("core: token exchanger is not configured"))
	}
	if s.identity == nil {
		return HandshakeResult{}, s.mapError(fmt.Errorf("core: identity resolver is not configured"))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return HandshakeResult{}, s.mapError(errBadInput("core: authorization code is required"))
	}

	exchange, err := s.tokenExchanger.ExchangeCode(ctx, code)
	if err != nil {
		return HandshakeResult{}, ErrDownstreamFailure("google", err)
	}
	if strings.TrimSpace(exchange.AccessToken) == "" {
		return HandshakeResult{}, ErrDownstreamFailure("google", fmt.Errorf("core: exchange response missing access token"))
	}

	email, err := s.identity.ResolveEmail(ctx, exchange.AccessToken)
	if err != nil {
		return HandshakeResult{}, ErrDownstreamFailure("google", err)
	}

	userID := strings.TrimSpace(state)
	if userID == "" {
		// Email-keyed fallback weakens the caller-supplied identity
		// binding; kept for compatibility but worth flagging.
		userID = strings.TrimSpace(email)
		s.logWarn(ctx, "handshake state missing, keying credential by provider email", map[string]any{
			"email": email,
		})
	}
	if userID == "" {
		return HandshakeResult{}, s.mapError(errBadInput("core: neither state nor provider email identify the user"))
	}

	now := s.now()
	record := CredentialRecord{
		UserID:       userID,
		AccessToken:  strings.TrimSpace(exchange.AccessToken),
		RefreshToken: strings.TrimSpace(exchange.RefreshToken),
		Email:        strings.TrimSpace(email),
		ExpiresAt:    nextExpiry(now, now, exchange.ExpiresIn),
	}
	if err := s.credentialStore.Put(ctx, userID, record); err != nil {
		return HandshakeResult{}, s.mapError(err)
	}

	return HandshakeResult{UserID: userID, Email: record.Email}, nil
}
