package rotation

import (
	"context"

	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// StorageKeyRotator rotates a storage account's access keys using the
// provider's two-slot pattern: the account always has exactly "key1" and
// "key2", the stored secret records which slot consumers are using, and
// each rotation regenerates the OTHER slot and makes it the stored one.
// The hot key therefore alternates between slots and the previous key stays
// valid for a full rotation period.
//
// Initialization always rotates "key1"; only rotation consults the stored
// payload to pick a slot.
type StorageKeyRotator struct {
	logger *logging.Logger
	cloud  CloudClient
}

// NewStorageKeyRotator creates the storage account key strategy.
func NewStorageKeyRotator(logger *logging.Logger, cloud CloudClient) *StorageKeyRotator {
	return &StorageKeyRotator{logger: logger, cloud: cloud}
}

// StrategyType returns the strategy tag.
func (r *StorageKeyRotator) StrategyType() string {
	return StrategyStorageAccountKey
}

// Initialize regenerates key1 for a secret that does not yet exist.
func (r *StorageKeyRotator) Initialize(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runInitialize(ctx, res, op, func(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error) {
		return r.perform(ctx, res, op, store, StorageKey1)
	})
}

// Rotate regenerates the slot opposite to the stored one.
func (r *StorageKeyRotator) Rotate(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runRotate(ctx, res, op, func(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error) {
		value, found, err := store.GetSecretValue(ctx, res.Name)
		if err != nil {
			return skipped(res, "failed to read stored key for secret '%s': %v", res.Name, err), nil
		}
		if !found {
			return skipped(res, "secret '%s' was not found; initialize it first", res.Name), nil
		}

		stored, err := parseStorageKeyCredential(value)
		if err != nil {
			// Guessing a slot here could regenerate the key consumers
			// are actively using.
			return skipped(res, "stored value for secret '%s' is not valid JSON; cannot determine which key to rotate", res.Name), nil
		}

		var target string
		switch stored.Name {
		case StorageKey1:
			target = StorageKey2
		case StorageKey2:
			target = StorageKey1
		default:
			return skipped(res, "stored value for secret '%s' names unknown key '%s'", res.Name, stored.Name), nil
		}

		return r.perform(ctx, res, op, store, target)
	})
}

// perform regenerates keyName and persists {name, value} JSON.
func (r *StorageKeyRotator) perform(ctx context.Context, res *Resource, op *Context, store secretstore.Store, keyName string) (*Result, error) {
	if res.TargetResourceID == "" {
		return skipped(res, "resource '%s' has no targetResourceId configured", res.Name), nil
	}

	keys, err := r.cloud.ListStorageAccountKeys(ctx, res.TargetResourceID)
	if err != nil {
		return skipped(res, "failed to list storage account keys: %v", err), nil
	}
	if !hasBothKeys(keys) {
		return skipped(res, "storage account '%s' did not report both '%s' and '%s'", res.TargetResourceID, StorageKey1, StorageKey2), nil
	}

	if op.Flags.WhatIf {
		return whatIf(res), nil
	}

	fresh, err := r.cloud.RegenerateStorageAccountKey(ctx, res.TargetResourceID, keyName)
	if err != nil {
		return skipped(res, "failed to regenerate key '%s': %v", keyName, err), nil
	}
	if fresh == nil || fresh.Name != keyName {
		return skipped(res, "regeneration did not return key '%s'; the secret store was not modified", keyName), nil
	}
	r.logger.Info("Regenerated storage key '%s' on '%s'", keyName, res.TargetResourceID)

	payload, err := encodeJSON(StorageKeyCredential{Name: fresh.Name, Value: fresh.Value})
	if err != nil {
		return nil, err
	}

	now := op.Now()
	expires := res.expiration(now)

	// The account key is already regenerated; write the store even if the
	// caller cancelled in the meantime.
	writeCtx := context.WithoutCancel(ctx)
	info, err := store.UpdateSecret(writeCtx, res.Name, payload, &expires, secretstore.ContentTypeJSON)
	if err != nil {
		return storeWriteFailed(res, err), nil
	}
	if info == nil {
		return storeWriteFailed(res, errNilStoreResult), nil
	}

	return rotated(res, "rotated storage account key '%s'", keyName), nil
}

// hasBothKeys reports whether the control plane returned both named slots.
func hasBothKeys(keys []StorageAccountKey) bool {
	var key1, key2 bool
	for _, k := range keys {
		switch k.Name {
		case StorageKey1:
			key1 = true
		case StorageKey2:
			key2 = true
		}
	}
	return key1 && key2
}

var _ Rotator = (*StorageKeyRotator)(nil)
