package core

import (
	"context"
	"testing"
	"time"
)

func TestSignUpload_AllowList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		folder  string
		allowed bool
	}{
		{name: "exact_uploads", folder: "uploads", allowed: true},
		{name: "nested_uploads", folder: "uploads/x", allowed: true},
		{name: "knowledge_base", folder: "knowledge_base/docs", allowed: true},
		{name: "avatars", folder: "avatars/usr_1", allowed: true},
		{name: "traversal", folder: "../etc", allowed: false},
		{name: "unknown_root", folder: "private", allowed: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUpload(ctx, tc.folder, "raw")
			if tc.allowed && err != nil {
				t.Fatalf("expected folder %q allowed, got %v", tc.folder, err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("expected folder %q rejected", tc.folder)
				}
				if !IsInvalidFolder(err) {
					t.Fatalf("expected invalid folder text code, got %v", err)
				}
			}
		})
	}
}

func TestSignUpload_Defaults(t *testing.T) {
	svc := newTestService(t)

	grant, err := svc.SignUpload(context.Background(), "", "")
	if err != nil {
		t.Fatalf("sign upload: %v", err)
	}
	if grant.Folder != "knowledge_base" {
		t.Fatalf("expected default folder, got %q", grant.Folder)
	}
	if grant.ResourceType != ResourceTypeRaw {
		t.Fatalf("expected raw resource type, got %q", grant.ResourceType)
	}
	if grant.CloudName != "demo" || grant.APIKey != "key_123" {
		t.Fatalf("expected echoed account identity, got %+v", grant)
	}
	if grant.Signature == "" {
		t.Fatalf("expected signature")
	}
}

func TestSignUpload_RejectsUnknownResourceType(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.SignUpload(context.Background(), "uploads", "archive"); err == nil {
		t.Fatalf("expected unsupported resource type rejection")
	}
}

func TestSignUpload_DeterministicWithinSameSecond(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(fixedClock(at)))
	ctx := context.Background()

	first, err := svc.SignUpload(ctx, "uploads/x", "raw")
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}
	second, err := svc.SignUpload(ctx, "uploads/x", "raw")
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if first.Signature != second.Signature {
		t.Fatalf("expected identical signatures within the same second, got %q and %q", first.Signature, second.Signature)
	}
	if first.Timestamp != at.Unix() {
		t.Fatalf("expected timestamp %d, got %d", at.Unix(), first.Timestamp)
	}
}

func TestSignParams(t *testing.T) {
	params := map[string]string{
		"timestamp": "1750000000",
		"folder":    "uploads/x",
	}

	signed := SignParams(params, "secret_a")
	if signed != SignParams(params, "secret_a") {
		t.Fatalf("expected deterministic signature")
	}
	if signed == SignParams(params, "secret_b") {
		t.Fatalf("expected secret to change the signature")
	}

	// Serialization is sorted by key, so insertion order must not matter.
	reordered := map[string]string{
		"folder":    "uploads/x",
		"timestamp": "1750000000",
	}
	if signed != SignParams(reordered, "secret_a") {
		t.Fatalf("expected key order independence")
	}
}

func TestDestroyAsset(t *testing.T) {
	storage := &fakeStorageAPI{result: map[string]any{"result": "not found"}}
	svc := newTestService(t, WithStorageAPI(storage))

	result, err := svc.DestroyAsset(context.Background(), "knowledge_base/file.pdf")
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if storage.calls != 1 || storage.lastID != "knowledge_base/file.pdf" {
		t.Fatalf("expected one destroy call for the asset, got %d for %q", storage.calls, storage.lastID)
	}
	// Missing assets are downstream success; the result passes through.
	if result["result"] != "not found" {
		t.Fatalf("expected provider result passthrough, got %v", result)
	}

	if _, err := svc.DestroyAsset(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty public id rejection")
	}
}
