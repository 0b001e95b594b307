package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorUnauthenticated   = "INTEGRATIONS_UNAUTHENTICATED"
	ServiceErrorReauthRequired    = "INTEGRATIONS_REAUTH_REQUIRED"
	ServiceErrorInvalidFolder     = "INTEGRATIONS_INVALID_FOLDER"
	ServiceErrorDownstreamFailure = "INTEGRATIONS_DOWNSTREAM_FAILURE"
	ServiceErrorBadInput          = "INTEGRATIONS_BAD_INPUT"
	ServiceErrorInternal          = "INTEGRATIONS_INTERNAL_ERROR"
)

// ErrUnauthenticated signals that no credential record exists for the user.
// The caller must run the OAuth handshake before retrying.
func ErrUnauthenticated(userID string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New("core: no credential record for user", goerrors.CategoryAuth).
			WithTextCode(ServiceErrorUnauthenticated).
			WithMetadata(map[string]any{"user_id": userID}),
	)
}

// ErrReauthenticationRequired signals that the stored credential is expired
// and cannot self-heal: either no refresh token exists or the provider
// rejected the refresh. Distinct from ErrUnauthenticated so callers can
// prompt the user to reconnect rather than treat it as a transient failure.
func ErrReauthenticationRequired(userID string, cause error) *goerrors.Error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryAuth, "core: token refresh impossible, reconnect required")
	} else {
		err = goerrors.New("core: token refresh impossible, reconnect required", goerrors.CategoryAuth)
	}
	return ensureServiceErrorEnvelope(
		err.WithTextCode(ServiceErrorReauthRequired).
			WithMetadata(map[string]any{"user_id": userID}),
	)
}

// ErrInvalidFolder rejects a signing request whose folder falls outside the
// allow-list.
func ErrInvalidFolder(folder string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New("core: folder is not allow-listed for signed uploads", goerrors.CategoryBadInput).
			WithTextCode(ServiceErrorInvalidFolder).
			WithMetadata(map[string]any{"folder": folder}),
	)
}

// ErrDownstreamFailure wraps a provider call failure, preserving the
// provider's message. Never retried by this layer.
func ErrDownstreamFailure(provider string, cause error) *goerrors.Error {
	message := "core: downstream provider call failed"
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	return ensureServiceErrorEnvelope(
		err.WithTextCode(ServiceErrorDownstreamFailure).
			WithMetadata(map[string]any{"provider": provider}),
	)
}

func errBadInput(message string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(ServiceErrorBadInput),
	)
}

// IsUnauthenticated reports whether err is the no-record failure.
func IsUnauthenticated(err error) bool {
	return hasTextCode(err, ServiceErrorUnauthenticated)
}

// IsReauthenticationRequired reports whether err signals that the full OAuth
// handshake must be redone.
func IsReauthenticationRequired(err error) bool {
	return hasTextCode(err, ServiceErrorReauthRequired)
}

// IsInvalidFolder reports whether err is the signing allow-list rejection.
func IsInvalidFolder(err error) bool {
	return hasTextCode(err, ServiceErrorInvalidFolder)
}

func hasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthenticated
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return ServiceErrorDownstreamFailure
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
