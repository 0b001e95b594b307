package core

import (
	"context"
	"fmt"
	"time"
)

func newTestService(t interface{ Fatalf(string, ...any) }, opts ...Option) *Service {
	cfg := DefaultConfig()
	cfg.Uploads.CloudName = "demo"
	cfg.Uploads.APIKey = "key_123"
	cfg.Uploads.APISecret = "shhh"

	svc, err := NewService(cfg, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type fakeTokenExchanger struct {
	exchangeCalls int
	refreshCalls  int

	exchangeResult TokenExchange
	exchangeErr    error
	refreshResult  TokenExchange
	refreshErr     error
}

func (f *fakeTokenExchanger) ExchangeCode(context.Context, string) (TokenExchange, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return TokenExchange{}, f.exchangeErr
	}
	return f.exchangeResult, nil
}

func (f *fakeTokenExchanger) RefreshAccessToken(context.Context, string) (TokenExchange, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return TokenExchange{}, f.refreshErr
	}
	return f.refreshResult, nil
}

type fakeIdentityResolver struct {
	calls int
	email string
	err   error
}

func (f *fakeIdentityResolver) ResolveEmail(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.email, nil
}

type fakeCalendarAPI struct {
	listCalls   int
	getCalls    int
	insertCalls int
	updateCalls int
	deleteCalls int

	lastToken  string
	lastQuery  ListEventsQuery
	lastBody   map[string]any
	lastNotify bool

	existing  map[string]any
	items     []map[string]any
	failWith  error
	responses map[string]map[string]any
}

func (f *fakeCalendarAPI) ListEvents(_ context.Context, token string, query ListEventsQuery) ([]map[string]any, error) {
	f.listCalls++
	f.lastToken = token
	f.lastQuery = query
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.items, nil
}

func (f *fakeCalendarAPI) GetEvent(_ context.Context, token string, eventID string) (map[string]any, error) {
	f.getCalls++
	f.lastToken = token
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.existing == nil {
		return nil, fmt.Errorf("event %q not found", eventID)
	}
	return f.existing, nil
}

func (f *fakeCalendarAPI) InsertEvent(_ context.Context, token string, body map[string]any, notify bool) (map[string]any, error) {
	f.insertCalls++
	f.lastToken = token
	f.lastBody = body
	f.lastNotify = notify
	if f.failWith != nil {
		return nil, f.failWith
	}
	return body, nil
}

func (f *fakeCalendarAPI) UpdateEvent(_ context.Context, token string, _ string, body map[string]any) (map[string]any, error) {
	f.updateCalls++
	f.lastToken = token
	f.lastBody = body
	if f.failWith != nil {
		return nil, f.failWith
	}
	return body, nil
}

func (f *fakeCalendarAPI) DeleteEvent(_ context.Context, token string, _ string) error {
	f.deleteCalls++
	f.lastToken = token
	return f.failWith
}

type fakeStorageAPI struct {
	calls  int
	lastID string
	result map[string]any
	err    error
}

func (f *fakeStorageAPI) DestroyAsset(_ context.Context, publicID string) (map[string]any, error) {
	f.calls++
	f.lastID = publicID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
