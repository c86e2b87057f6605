package rotation

import (
	"context"
	"time"

	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/internal/secretstores"
	"github.com/systmms/rotor/pkg/secretstore"
)

// fakeStore lets tests script individual store operations. Unset functions
// behave like an empty store.
type fakeStore struct {
	name string

	GetSecretFunc      func(ctx context.Context, name string) (*secretstore.SecretInfo, error)
	GetSecretValueFunc func(ctx context.Context, name string) (string, bool, error)
	UpdateSecretFunc   func(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error)

	updateCalls []updateCall
}

type updateCall struct {
	name        string
	value       string
	expiresOn   *time.Time
	contentType string
}

func (f *fakeStore) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeStore) GetSecret(ctx context.Context, name string) (*secretstore.SecretInfo, error) {
	if f.GetSecretFunc != nil {
		return f.GetSecretFunc(ctx, name)
	}
	return nil, nil
}

func (f *fakeStore) GetSecretValue(ctx context.Context, name string) (string, bool, error) {
	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, name)
	}
	return "", false, nil
}

func (f *fakeStore) UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	f.updateCalls = append(f.updateCalls, updateCall{name: name, value: value, expiresOn: expiresOn, contentType: contentType})
	if f.UpdateSecretFunc != nil {
		return f.UpdateSecretFunc(ctx, name, value, expiresOn, contentType)
	}
	return &secretstore.SecretInfo{Name: name, ExpiresOn: expiresOn, ContentType: contentType}, nil
}

// fakeCloud scripts the control-plane client.
type fakeCloud struct {
	GetDatabaseServerFunc           func(ctx context.Context, resourceID string) (*DatabaseServer, error)
	UpdateDatabaseAdminPasswordFunc func(ctx context.Context, resourceID, password string) error
	ListStorageAccountKeysFunc      func(ctx context.Context, resourceID string) ([]StorageAccountKey, error)
	RegenerateStorageAccountKeyFunc func(ctx context.Context, resourceID, keyName string) (*StorageAccountKey, error)

	updatedPasswords []string
	regenerated      []string
}

func (f *fakeCloud) GetDatabaseServer(ctx context.Context, resourceID string) (*DatabaseServer, error) {
	if f.GetDatabaseServerFunc != nil {
		return f.GetDatabaseServerFunc(ctx, resourceID)
	}
	return nil, nil
}

func (f *fakeCloud) UpdateDatabaseAdminPassword(ctx context.Context, resourceID, password string) error {
	f.updatedPasswords = append(f.updatedPasswords, password)
	if f.UpdateDatabaseAdminPasswordFunc != nil {
		return f.UpdateDatabaseAdminPasswordFunc(ctx, resourceID, password)
	}
	return nil
}

func (f *fakeCloud) ListStorageAccountKeys(ctx context.Context, resourceID string) ([]StorageAccountKey, error) {
	if f.ListStorageAccountKeysFunc != nil {
		return f.ListStorageAccountKeysFunc(ctx, resourceID)
	}
	return []StorageAccountKey{{Name: StorageKey1}, {Name: StorageKey2}}, nil
}

func (f *fakeCloud) RegenerateStorageAccountKey(ctx context.Context, resourceID, keyName string) (*StorageAccountKey, error) {
	f.regenerated = append(f.regenerated, keyName)
	if f.RegenerateStorageAccountKeyFunc != nil {
		return f.RegenerateStorageAccountKeyFunc(ctx, resourceID, keyName)
	}
	return &StorageAccountKey{Name: keyName, Value: "regenerated-" + keyName}, nil
}

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

// newTestContext wires a single store under the given name with a fixed
// clock.
func newTestContext(storeName string, store secretstore.Store, now time.Time, flags Flags) *Context {
	return &Context{
		Stores: map[string]secretstore.Store{storeName: store},
		Clock:  clock.Fixed{Time: now},
		Flags:  flags,
	}
}

func newMemoryStore(name string, now time.Time) *secretstores.MemoryStore {
	return secretstores.NewMemoryStore(name, clock.Fixed{Time: now})
}
