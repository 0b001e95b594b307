package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestServiceErrors_CarryEnvelope(t *testing.T) {
	cases := []struct {
		name     string
		err      *goerrors.Error
		code     int
		textCode string
	}{
		{
			name:     "unauthenticated",
			err:      ErrUnauthenticated("usr_1"),
			code:     http.StatusUnauthorized,
			textCode: ServiceErrorUnauthenticated,
		},
		{
			name:     "reauth_required",
			err:      ErrReauthenticationRequired("usr_1", fmt.Errorf("invalid_grant")),
			code:     http.StatusUnauthorized,
			textCode: ServiceErrorReauthRequired,
		},
		{
			name:     "invalid_folder",
			err:      ErrInvalidFolder("../etc"),
			code:     http.StatusBadRequest,
			textCode: ServiceErrorInvalidFolder,
		},
		{
			name:     "downstream",
			err:      ErrDownstreamFailure("google", fmt.Errorf("boom")),
			code:     http.StatusBadGateway,
			textCode: ServiceErrorDownstreamFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, tc.err.Code)
			}
			if tc.err.TextCode != tc.textCode {
				t.Fatalf("expected text code %q, got %q", tc.textCode, tc.err.TextCode)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsUnauthenticated(ErrUnauthenticated("usr_1")) {
		t.Fatalf("expected unauthenticated predicate match")
	}
	if IsUnauthenticated(ErrReauthenticationRequired("usr_1", nil)) {
		t.Fatalf("expected predicates to distinguish reauth from unauthenticated")
	}
	if !IsReauthenticationRequired(ErrReauthenticationRequired("usr_1", nil)) {
		t.Fatalf("expected reauth predicate match")
	}
	if !IsInvalidFolder(ErrInvalidFolder("x")) {
		t.Fatalf("expected invalid folder predicate match")
	}
	if IsInvalidFolder(fmt.Errorf("plain error")) {
		t.Fatalf("expected plain errors not to match")
	}
}

func TestServiceErrorMapper_WrapsPlainErrors(t *testing.T) {
	mapped := serviceErrorMapper(fmt.Errorf("something odd"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.Code == 0 {
		t.Fatalf("expected http status on envelope")
	}
	if mapped.TextCode == "" {
		t.Fatalf("expected text code on envelope")
	}

	if serviceErrorMapper(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
