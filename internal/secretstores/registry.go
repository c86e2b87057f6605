package secretstores

import (
	"fmt"
	"sort"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// Store type identifiers accepted in configuration.
const (
	TypeMemory            = "memory"
	TypeAzureKeyVault     = "azure-keyvault"
	TypeAWSSecretsManager = "aws-secretsmanager"
	TypeAWSSSM            = "aws-ssm"
	TypeGCPSecretManager  = "gcp-secretmanager"
	TypeKeyring           = "keyring"
)

// Constructor builds a store instance from its configuration map.
type Constructor func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error)

// Registry maps store type identifiers to constructors.
type Registry struct {
	constructors map[string]Constructor
	logger       *logging.Logger
}

// NewRegistry creates a registry holding the built-in store types.
func NewRegistry(logger *logging.Logger) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		logger:       logger,
	}

	r.constructors[TypeMemory] = func(name string, _ map[string]interface{}, _ *logging.Logger) (secretstore.Store, error) {
		return NewMemoryStore(name, clock.System{}), nil
	}
	r.constructors[TypeAzureKeyVault] = func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error) {
		return NewAzureKeyVaultStore(name, configMap, logger)
	}
	r.constructors[TypeAWSSecretsManager] = func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error) {
		return NewAWSSecretsManagerStore(name, configMap, logger)
	}
	r.constructors[TypeAWSSSM] = func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error) {
		return NewAWSSSMStore(name, configMap, logger)
	}
	r.constructors[TypeGCPSecretManager] = func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error) {
		return NewGCPSecretManagerStore(name, configMap, logger)
	}
	r.constructors[TypeKeyring] = func(name string, configMap map[string]interface{}, logger *logging.Logger) (secretstore.Store, error) {
		return NewKeyringStore(name, configMap, logger)
	}

	return r
}

// Create builds a store of the given type.
func (r *Registry) Create(name, storeType string, configMap map[string]interface{}) (secretstore.Store, error) {
	constructor, ok := r.constructors[storeType]
	if !ok {
		return nil, rterrors.ConfigError{
			Field:      "type",
			Value:      storeType,
			Message:    fmt.Sprintf("unknown secret store type '%s'", storeType),
			Suggestion: fmt.Sprintf("Supported types: %v", r.Types()),
		}
	}

	store, err := constructor(name, configMap, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Configured secret store '%s' (type %s)", name, storeType)
	return store, nil
}

// Supports reports whether the type identifier is known.
func (r *Registry) Supports(storeType string) bool {
	_, ok := r.constructors[storeType]
	return ok
}

// Types returns all supported type identifiers, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
