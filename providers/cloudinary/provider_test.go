package cloudinary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/closepilot/integrations/core"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := New(Config{
		CloudName: "demo",
		APIKey:    "key_123",
		APISecret: "shhh",
		BaseURL:   server.URL,
		Now: func() time.Time {
			return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("expected provider, got error: %v", err)
	}
	return provider, server
}

func TestNewRequiresCredentials(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "missing cloud name", cfg: Config{APIKey: "k", APISecret: "s"}},
		{name: "missing api key", cfg: Config{CloudName: "demo", APISecret: "s"}},
		{name: "missing api secret", cfg: Config{CloudName: "demo", APIKey: "k"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatalf("expected configuration error, got nil")
			}
		})
	}
}

func TestDestroyAssetSignsRequest(t *testing.T) {
	var gotPath string
	var gotForm url.Values

	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	})

	result, err := provider.DestroyAsset(context.Background(), "knowledge_base/report.pdf")
	if err != nil {
		t.Fatalf("expected destroy to succeed, got %v", err)
	}
	if result["result"] != "ok" {
		t.Fatalf("expected provider result passthrough, got %v", result)
	}

	if gotPath != "/demo/raw/destroy" {
		t.Fatalf("expected raw destroy path for cloud, got %q", gotPath)
	}
	if got := gotForm.Get("public_id"); got != "knowledge_base/report.pdf" {
		t.Fatalf("expected public_id in form, got %q", got)
	}
	if got := gotForm.Get("invalidate"); got != "true" {
		t.Fatalf("expected invalidate=true, got %q", got)
	}
	if got := gotForm.Get("api_key"); got != "key_123" {
		t.Fatalf("expected api key in form, got %q", got)
	}

	timestamp := gotForm.Get("timestamp")
	if timestamp == "" {
		t.Fatal("expected timestamp in form")
	}
	wantSignature := core.SignParams(map[string]string{
		"public_id":  "knowledge_base/report.pdf",
		"timestamp":  timestamp,
		"invalidate": "true",
	}, "shhh")
	if got := gotForm.Get("signature"); got != wantSignature {
		t.Fatalf("expected signature %q, got %q", wantSignature, got)
	}
}

func TestDestroyAssetMissingAssetIsNotAnError(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"not found"}`))
	})

	result, err := provider.DestroyAsset(context.Background(), "uploads/ghost.bin")
	if err != nil {
		t.Fatalf("expected missing asset to pass through, got %v", err)
	}
	if result["result"] != "not found" {
		t.Fatalf("expected not-found result document, got %v", result)
	}
}

func TestDestroyAssetSurfacesAPIError(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	})

	_, err := provider.DestroyAsset(context.Background(), "uploads/file.bin")
	if err == nil {
		t.Fatal("expected destroy error, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid Signature") {
		t.Fatalf("expected API message in error, got %v", err)
	}
}

func TestDestroyAssetRejectsEmptyPublicID(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty public id")
	})

	if _, err := provider.DestroyAsset(context.Background(), "   "); err == nil {
		t.Fatal("expected empty public id rejection, got nil")
	}
}

func TestDestroyAssetRejectsMalformedBody(t *testing.T) {
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	})

	if _, err := provider.DestroyAsset(context.Background(), "uploads/file.bin"); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestDestroyAssetTimestampUsesInjectedClock(t *testing.T) {
	var gotTimestamp string
	provider, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotTimestamp = r.PostForm.Get("timestamp")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	})

	if _, err := provider.DestroyAsset(context.Background(), "uploads/file.bin"); err != nil {
		t.Fatalf("expected destroy to succeed, got %v", err)
	}

	want := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC).Unix()
	var got int64
	if err := json.Unmarshal([]byte(gotTimestamp), &got); err != nil {
		t.Fatalf("expected numeric timestamp, got %q", gotTimestamp)
	}
	if got != want {
		t.Fatalf("expected timestamp %d, got %d", want, got)
	}
}
