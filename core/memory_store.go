package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryCredentialStore keeps credential records in process memory. Records
// survive until explicit disconnect; a restart loses them all, forcing
// re-authentication. Safe for concurrent use across users; same-user write
// races resolve last-write-wins.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]CredentialRecord
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		records: map[string]CredentialRecord{},
	}
}

func (s *MemoryCredentialStore) Get(_ context.Context, userID string) (CredentialRecord, bool, error) {
	if s == nil {
		return CredentialRecord{}, false, fmt.Errorf("core: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CredentialRecord{}, false, fmt.Errorf("core: user id is required")
	}

	s.mu.RLock()
	record, ok := s.records[userID]
	s.mu.RUnlock()

	return record, ok, nil
}

func (s *MemoryCredentialStore) Put(_ context.Context, userID string, record CredentialRecord) error {
	if s == nil {
		return fmt.Errorf("core: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("core: user id is required")
	}
	if strings.TrimSpace(record.AccessToken) == "" {
		return fmt.Errorf("core: access token must not be empty for user %q", userID)
	}
	record.UserID = userID

	s.mu.Lock()
	s.records[userID] = record
	s.mu.Unlock()

	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, userID string) error {
	if s == nil {
		return fmt.Errorf("core: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("core: user id is required")
	}

	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()

	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
