package secretstores

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/pkg/secretstore"
)

// MemoryStore is the in-memory reference adapter, used by tests and dry
// deployments. It keeps per-key last-writer-wins entries behind a mutex so
// concurrent invocations over different keys are safe.
type MemoryStore struct {
	name  string
	clock clock.Clock

	mu      sync.RWMutex
	entries map[string]*memoryEntry
	writes  int
}

type memoryEntry struct {
	value   string
	info    secretstore.SecretInfo
	version int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(name string, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryStore{
		name:    name,
		clock:   clk,
		entries: make(map[string]*memoryEntry),
	}
}

// Name returns the configured store instance name.
func (s *MemoryStore) Name() string { return s.name }

// GetSecret returns a copy of the stored metadata, or (nil, nil) when the
// secret does not exist.
func (s *MemoryStore) GetSecret(_ context.Context, name string) (*secretstore.SecretInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return nil, nil
	}
	info := entry.info
	return &info, nil
}

// GetSecretValue returns the raw stored value.
func (s *MemoryStore) GetSecretValue(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

// UpdateSecret creates or overwrites the entry and returns the new
// metadata. CreatedOn is preserved across overwrites.
func (s *MemoryStore) UpdateSecret(_ context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	created := now
	version := 1
	if prev, ok := s.entries[name]; ok {
		created = prev.info.CreatedOn
		version = prev.version + 1
	}

	entry := &memoryEntry{
		value:   value,
		version: version,
		info: secretstore.SecretInfo{
			ID:          fmt.Sprintf("memory://%s/%s", s.name, name),
			Name:        name,
			ContentType: contentType,
			Enabled:     true,
			CreatedOn:   created,
			UpdatedOn:   now,
			ExpiresOn:   copyTime(expiresOn),
			StoreID:     s.name,
			Version:     fmt.Sprintf("%d", version),
		},
	}
	s.entries[name] = entry
	s.writes++

	info := entry.info
	return &info, nil
}

// Writes reports how many updates the store has accepted. For tests.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

var _ secretstore.Store = (*MemoryStore)(nil)
