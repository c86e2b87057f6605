package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/pkg/secretstore"
)

// Strategy tags for the built-in rotators.
const (
	StrategyManual            = "manual/generic"
	StrategyPostgresAdmin     = "azure/postgresql/flexible-server/administrator"
	StrategyPostgresUser      = "database/postgresql/user"
	StrategyMySQLUser         = "database/mysql/user"
	StrategyStorageAccountKey = "azure/storage/account/key"
)

// DefaultExpirationDays is applied when a resource does not configure a
// lifetime of its own.
const DefaultExpirationDays = 90.0

// DefaultUsernamePrefix is the identifier prefix for generated database
// user names.
const DefaultUsernamePrefix = "u"

// Resource is the declarative description of one managed credential.
type Resource struct {
	// Name identifies the secret within its store.
	Name string

	// StrategyType selects the rotator, e.g. "manual/generic".
	StrategyType string

	// StoreName identifies the target secret store in the context's
	// store map.
	StoreName string

	// ExpirationDays is the lifetime applied to a newly written secret,
	// in 24-hour units. Zero means DefaultExpirationDays.
	ExpirationDays float64

	// ExpirationOverlapDays is how many days before true expiration the
	// secret becomes eligible for early rotation.
	ExpirationOverlapDays float64

	// ContentType is stored alongside the value (e.g. "text/plain").
	ContentType string

	// TargetResourceID identifies the backing cloud resource for
	// strategies that patch a control plane.
	TargetResourceID string

	// DatabaseUser configures the database-user strategies.
	DatabaseUser *DatabaseUserSpec
}

// DatabaseUserSpec configures the database-user strategies.
type DatabaseUserSpec struct {
	// NamePrefix is the identifier prefix for generated user names.
	// Empty means DefaultUsernamePrefix.
	NamePrefix string

	// Roles the new user is made a member of, in order. May be empty.
	Roles []string

	// ServerSecretName names the secret, in the same store, holding the
	// administrator credential as JSON.
	ServerSecretName string

	// Hostname is the DNS name of the database endpoint.
	Hostname string
}

// expiration returns now + the resource's configured lifetime.
func (r *Resource) expiration(now time.Time) time.Time {
	days := r.ExpirationDays
	if days <= 0 {
		days = DefaultExpirationDays
	}
	return now.Add(time.Duration(days * 24 * float64(time.Hour)))
}

// contentType returns the configured content type, defaulting to text/plain.
func (r *Resource) contentType() string {
	if r.ContentType == "" {
		return secretstore.ContentTypeText
	}
	return r.ContentType
}

// Result is the verdict returned for one resource. Rotated is true for a
// completed rotation and for a successful what-if simulation.
type Result struct {
	Name    string
	Rotated bool
	Notes   string
}

// Flags are the per-run mutable switches, passed by value inside Context.
type Flags struct {
	// Force bypasses the expiration and already-initialized checks.
	Force bool

	// WhatIf suppresses every mutation; strategies report what they
	// would have done.
	WhatIf bool

	// SecretValue is the operator-supplied value for the manual strategy.
	SecretValue string
}

// Context carries the per-invocation ambient state. The maps are read-only
// after construction; Flags is set once by the driver before dispatch.
type Context struct {
	Stores      map[string]secretstore.Store
	Rotators    map[string]Rotator
	Credentials map[string]interface{}
	Clock       clock.Clock
	Flags       Flags
}

// Now reads the injected time source, falling back to the system clock.
func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return clock.System{}.Now()
	}
	return c.Clock.Now()
}

// Store resolves a store by name from the context's store map.
func (c *Context) Store(name string) (secretstore.Store, bool) {
	store, ok := c.Stores[name]
	return store, ok
}

// Rotator is one rotation strategy. Implementations must be safe for
// concurrent use across resources; the driver must not concurrently rotate
// the same (store, name) pair.
type Rotator interface {
	// StrategyType returns the stable tag this rotator registers under.
	StrategyType() string

	// Initialize performs the first rotation for a secret that does not
	// yet exist in the store.
	Initialize(ctx context.Context, res *Resource, op *Context) (*Result, error)

	// Rotate replaces an existing credential once it is due.
	Rotate(ctx context.Context, res *Resource, op *Context) (*Result, error)
}

// DatabaseServer is the control-plane view of a managed database server.
type DatabaseServer struct {
	Hostname           string
	AdministratorLogin string
}

// StorageAccountKey is one of a storage account's two named access keys.
type StorageAccountKey struct {
	Name  string
	Value string
}

// Storage account key slot names. The control plane exposes exactly these
// two, and rotation alternates between them.
const (
	StorageKey1 = "key1"
	StorageKey2 = "key2"
)

// CloudClient abstracts the cloud control plane. Implementations map onto a
// provider's resource-manager API; transient failures surface as errors and
// are treated as non-retryable at this layer.
type CloudClient interface {
	// GetDatabaseServer reads server metadata. Returns (nil, nil) when
	// the server does not exist or access is denied.
	GetDatabaseServer(ctx context.Context, resourceID string) (*DatabaseServer, error)

	// UpdateDatabaseAdminPassword patches the server's administrator
	// password and waits for completion. Replays with the same password
	// must be safe.
	UpdateDatabaseAdminPassword(ctx context.Context, resourceID, password string) error

	// ListStorageAccountKeys returns the account's named keys. The list
	// may be incomplete when the control plane is missing a slot.
	ListStorageAccountKeys(ctx context.Context, resourceID string) ([]StorageAccountKey, error)

	// RegenerateStorageAccountKey triggers server-side regeneration of
	// one slot and returns the fresh key.
	RegenerateStorageAccountKey(ctx context.Context, resourceID, keyName string) (*StorageAccountKey, error)
}

// skipped builds a non-rotated verdict.
func skipped(res *Resource, format string, args ...interface{}) *Result {
	return &Result{
		Name:    res.Name,
		Rotated: false,
		Notes:   fmt.Sprintf(format, args...),
	}
}

// rotated builds a success verdict.
func rotated(res *Resource, format string, args ...interface{}) *Result {
	return &Result{
		Name:    res.Name,
		Rotated: true,
		Notes:   fmt.Sprintf(format, args...),
	}
}
