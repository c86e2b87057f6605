package secretstores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/internal/logging"
)

func TestStoreRegistry(t *testing.T) {
	registry := NewRegistry(logging.New(false, true))

	t.Run("Types", func(t *testing.T) {
		types := registry.Types()
		assert.Contains(t, types, TypeMemory)
		assert.Contains(t, types, TypeAzureKeyVault)
		assert.Contains(t, types, TypeAWSSecretsManager)
		assert.Contains(t, types, TypeAWSSSM)
		assert.Contains(t, types, TypeGCPSecretManager)
		assert.Contains(t, types, TypeKeyring)
	})

	t.Run("Supports", func(t *testing.T) {
		assert.True(t, registry.Supports(TypeMemory))
		assert.False(t, registry.Supports("vault"))
	})

	t.Run("CreateMemory", func(t *testing.T) {
		store, err := registry.Create("scratch", TypeMemory, nil)
		require.NoError(t, err)
		assert.Equal(t, "scratch", store.Name())
	})

	t.Run("CreateUnknownType", func(t *testing.T) {
		_, err := registry.Create("x", "unknown", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown secret store type 'unknown'")
	})

	t.Run("ConstructorErrorPropagates", func(t *testing.T) {
		_, err := registry.Create("kv", TypeAzureKeyVault, map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault_url")
	})
}
