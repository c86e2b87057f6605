// Package secretstore defines the storage abstraction the rotation engine
// writes credentials through.
//
// A Store is a durable, confidential key-value repository with per-entry
// metadata, most importantly an expiration timestamp. The engine never caches
// secret values and never deletes entries; it only reads metadata, reads
// values, and overwrites values with a fresh expiration.
//
// Adapters live in internal/secretstores: Azure Key Vault, AWS Secrets
// Manager, AWS SSM Parameter Store, Google Secret Manager, the OS keyring,
// and an in-memory store for tests. Stores whose backend has no native
// per-entry expiration persist a small JSON metadata envelope around the
// value; that envelope never leaks out of the adapter.
package secretstore

import (
	"context"
	"time"
)

// SecretInfo is the metadata a store reports for one secret. The value is
// never carried in this record.
type SecretInfo struct {
	ID          string
	Name        string
	ContentType string
	Enabled     bool
	CreatedOn   time.Time
	UpdatedOn   time.Time
	ExpiresOn   *time.Time
	StoreID     string
	Version     string
}

// Store is the uniform interface over a persistent secret repository.
//
// Implementations must be safe for concurrent use. A GetSecret that
// happens-after a successful UpdateSecret on the same name must observe the
// new UpdatedOn, ExpiresOn, and Version.
type Store interface {
	// Name returns the configured store instance name.
	Name() string

	// GetSecret returns the secret's metadata, or (nil, nil) when the
	// secret does not exist. Absence is not an error.
	GetSecret(ctx context.Context, name string) (*SecretInfo, error)

	// GetSecretValue returns the raw secret value. The second return is
	// false when the secret does not exist.
	GetSecretValue(ctx context.Context, name string) (string, bool, error)

	// UpdateSecret creates or overwrites the secret and returns the
	// newly written metadata. expiresOn may be nil for secrets without
	// an expiration.
	UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*SecretInfo, error)
}

// Common content types persisted alongside secret values.
const (
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"
)
