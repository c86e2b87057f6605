package rotation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/pkg/secretstore"
)

const storageResourceID = "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/acct1"

func storedKey(t *testing.T, store secretstore.Store, secretName string) *StorageKeyCredential {
	t.Helper()
	value, found, err := store.GetSecretValue(context.Background(), secretName)
	require.NoError(t, err)
	require.True(t, found)
	cred, err := parseStorageKeyCredential(value)
	require.NoError(t, err)
	return cred
}

func TestStorageKeyRotator(t *testing.T) {
	ctx := context.Background()
	now := date(2025, 3, 1)

	res := &Resource{
		Name:             "storage-key",
		StrategyType:     StrategyStorageAccountKey,
		StoreName:        "main",
		ExpirationDays:   90,
		TargetResourceID: storageResourceID,
		// Rotate as soon as rotation is requested inside the window.
		ExpirationOverlapDays: 90,
	}

	t.Run("SlotsAlternateAcrossRotations", func(t *testing.T) {
		cloud := &fakeCloud{}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.True(t, result.Rotated)
		assert.Equal(t, StorageKey1, storedKey(t, store, "storage-key").Name)

		result, err = rotator.Rotate(ctx, res, op)
		require.NoError(t, err)
		assert.True(t, result.Rotated)
		assert.Equal(t, StorageKey2, storedKey(t, store, "storage-key").Name)

		result, err = rotator.Rotate(ctx, res, op)
		require.NoError(t, err)
		assert.True(t, result.Rotated)
		assert.Equal(t, StorageKey1, storedKey(t, store, "storage-key").Name)

		assert.Equal(t, []string{StorageKey1, StorageKey2, StorageKey1}, cloud.regenerated)
	})

	t.Run("StoredValueCarriesFreshKey", func(t *testing.T) {
		cloud := &fakeCloud{
			RegenerateStorageAccountKeyFunc: func(_ context.Context, _ string, keyName string) (*StorageAccountKey, error) {
				return &StorageAccountKey{Name: keyName, Value: "fresh-" + keyName}, nil
			},
		}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{})

		_, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.Equal(t, "fresh-key1", storedKey(t, store, "storage-key").Value)

		_, err = rotator.Rotate(ctx, res, op)
		require.NoError(t, err)
		assert.Equal(t, "fresh-key2", storedKey(t, store, "storage-key").Value)
	})

	t.Run("MalformedStoredValueSkips", func(t *testing.T) {
		cloud := &fakeCloud{}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		expires := date(2025, 3, 2)
		_, err := store.UpdateSecret(ctx, "storage-key", "not json", &expires, secretstore.ContentTypeText)
		require.NoError(t, err)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Rotate(ctx, res, op)
		require.NoError(t, err)
		assert.False(t, result.Rotated)
		assert.Contains(t, result.Notes, "cannot determine which key to rotate")
		assert.Empty(t, cloud.regenerated)
	})

	t.Run("UnknownStoredSlotSkips", func(t *testing.T) {
		cloud := &fakeCloud{}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		payload, err := encodeJSON(StorageKeyCredential{Name: "key3", Value: "x"})
		require.NoError(t, err)
		expires := date(2025, 3, 2)
		_, err = store.UpdateSecret(ctx, "storage-key", payload, &expires, secretstore.ContentTypeJSON)
		require.NoError(t, err)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Rotate(ctx, res, op)
		require.NoError(t, err)
		assert.False(t, result.Rotated)
		assert.Contains(t, result.Notes, "unknown key 'key3'")
	})

	t.Run("IncompleteKeyListSkips", func(t *testing.T) {
		cloud := &fakeCloud{
			ListStorageAccountKeysFunc: func(context.Context, string) ([]StorageAccountKey, error) {
				return []StorageAccountKey{{Name: StorageKey1}}, nil
			},
		}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.False(t, result.Rotated)
		assert.Contains(t, result.Notes, "did not report both")
		assert.Empty(t, cloud.regenerated)
	})

	t.Run("RegenerationWithoutKeySkips", func(t *testing.T) {
		cloud := &fakeCloud{
			RegenerateStorageAccountKeyFunc: func(context.Context, string, string) (*StorageAccountKey, error) {
				return nil, nil
			},
		}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.False(t, result.Rotated)
		assert.Contains(t, result.Notes, "the secret store was not modified")
		assert.Zero(t, store.Writes())
	})

	t.Run("RegenerationFailureSkips", func(t *testing.T) {
		cloud := &fakeCloud{
			RegenerateStorageAccountKeyFunc: func(context.Context, string, string) (*StorageAccountKey, error) {
				return nil, errors.New("conflict")
			},
		}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{})

		result, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.False(t, result.Rotated)
		assert.Contains(t, result.Notes, "failed to regenerate key 'key1'")
	})

	t.Run("WhatIfStopsBeforeRegeneration", func(t *testing.T) {
		cloud := &fakeCloud{}
		rotator := NewStorageKeyRotator(testLogger(), cloud)
		store := newMemoryStore("main", now)
		op := newTestContext("main", store, now, Flags{WhatIf: true})

		result, err := rotator.Initialize(ctx, res, op)
		require.NoError(t, err)
		assert.True(t, result.Rotated)
		assert.Empty(t, cloud.regenerated)
		assert.Zero(t, store.Writes())
	})
}
