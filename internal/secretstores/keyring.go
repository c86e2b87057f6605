package secretstores

import (
	"context"
	"errors"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/systmms/rotor/internal/clock"
	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

const defaultKeyringService = "rotor"

// KeyringStore adapts the OS keyring (macOS Keychain, Windows Credential
// Manager, Secret Service on Linux) to the Store interface. Intended for
// workstation use; entries are wrapped in the JSON envelope because the
// keyring stores only an opaque string per key.
type KeyringStore struct {
	name    string
	service string
	logger  *logging.Logger
	clock   clock.Clock
}

// KeyringOption is a functional option for configuring the store.
type KeyringOption func(*KeyringStore)

// WithKeyringClock overrides the clock used for envelope timestamps.
func WithKeyringClock(clk clock.Clock) KeyringOption {
	return func(s *KeyringStore) {
		s.clock = clk
	}
}

// NewKeyringStore creates an OS keyring-backed store. The optional
// "service" config key sets the keyring service name.
func NewKeyringStore(name string, configMap map[string]interface{}, logger *logging.Logger, opts ...KeyringOption) (*KeyringStore, error) {
	service := defaultKeyringService
	if svc, ok := configMap["service"].(string); ok && svc != "" {
		service = svc
	}

	s := &KeyringStore{
		name:    name,
		service: service,
		logger:  logger,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the configured store instance name.
func (s *KeyringStore) Name() string { return s.name }

// GetSecret returns envelope metadata for the entry, or (nil, nil) when
// the entry does not exist.
func (s *KeyringStore) GetSecret(_ context.Context, name string) (*secretstore.SecretInfo, error) {
	env, found, err := s.fetch(name, "get entry")
	if err != nil || !found {
		return nil, err
	}
	return s.secretInfo(name, env), nil
}

// GetSecretValue returns the unwrapped entry value.
func (s *KeyringStore) GetSecretValue(_ context.Context, name string) (string, bool, error) {
	env, found, err := s.fetch(name, "get entry value")
	if err != nil || !found {
		return "", false, err
	}
	return env.Value, true, nil
}

// UpdateSecret overwrites the keyring entry. The envelope preserves
// CreatedOn across overwrites.
func (s *KeyringStore) UpdateSecret(_ context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	now := s.clock.Now()

	env := &envelope{
		Value:       value,
		ContentType: contentType,
		CreatedOn:   now,
		UpdatedOn:   now,
		ExpiresOn:   expiresOn,
	}
	if prev, found, err := s.fetch(name, "update entry"); err != nil {
		return nil, err
	} else if found && !prev.CreatedOn.IsZero() {
		env.CreatedOn = prev.CreatedOn
	}

	payload, err := env.encode()
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "encode entry", Err: err}
	}
	if err := keyring.Set(s.service, name, payload); err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "set entry", Err: err}
	}

	s.logger.Debug("Wrote keyring entry '%s' (service %s)", name, s.service)
	return s.secretInfo(name, env), nil
}

func (s *KeyringStore) fetch(name, operation string) (*envelope, bool, error) {
	raw, err := keyring.Get(s.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, &rterrors.StoreError{Store: s.name, Operation: operation, Err: err}
	}
	return decodeEnvelope(raw), true, nil
}

func (s *KeyringStore) secretInfo(name string, env *envelope) *secretstore.SecretInfo {
	return &secretstore.SecretInfo{
		ID:          s.service + "/" + name,
		Name:        name,
		ContentType: env.ContentType,
		Enabled:     true,
		CreatedOn:   env.CreatedOn,
		UpdatedOn:   env.UpdatedOn,
		ExpiresOn:   env.ExpiresOn,
		StoreID:     s.name,
	}
}

var _ secretstore.Store = (*KeyringStore)(nil)
