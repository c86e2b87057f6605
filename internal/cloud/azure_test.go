package cloud

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/postgresql/armpostgresqlflexibleservers/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/internal/logging"
)

const (
	pgResourceID      = "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.DBforPostgreSQL/flexibleServers/pg1"
	storageResourceID = "/subscriptions/sub1/resourceGroups/rg1/providers/Microsoft.Storage/storageAccounts/acct1"
)

type mockPostgresAPI struct {
	getResp armpostgresqlflexibleservers.ServersClientGetResponse
	getErr  error

	gotResourceGroup string
	gotServer        string
}

func (m *mockPostgresAPI) Get(_ context.Context, resourceGroupName, serverName string, _ *armpostgresqlflexibleservers.ServersClientGetOptions) (armpostgresqlflexibleservers.ServersClientGetResponse, error) {
	m.gotResourceGroup = resourceGroupName
	m.gotServer = serverName
	return m.getResp, m.getErr
}

type mockStorageAPI struct {
	keys    []*armstorage.AccountKey
	listErr error

	regenerated []string
}

func (m *mockStorageAPI) ListKeys(_ context.Context, _, _ string, _ *armstorage.AccountsClientListKeysOptions) (armstorage.AccountsClientListKeysResponse, error) {
	if m.listErr != nil {
		return armstorage.AccountsClientListKeysResponse{}, m.listErr
	}
	return armstorage.AccountsClientListKeysResponse{
		AccountListKeysResult: armstorage.AccountListKeysResult{Keys: m.keys},
	}, nil
}

func (m *mockStorageAPI) RegenerateKey(_ context.Context, _, _ string, params armstorage.AccountRegenerateKeyParameters, _ *armstorage.AccountsClientRegenerateKeyOptions) (armstorage.AccountsClientRegenerateKeyResponse, error) {
	m.regenerated = append(m.regenerated, *params.KeyName)
	return armstorage.AccountsClientRegenerateKeyResponse{
		AccountListKeysResult: armstorage.AccountListKeysResult{Keys: m.keys},
	}, nil
}

func newTestClient(t *testing.T, pg *mockPostgresAPI, storage *mockStorageAPI) *AzureClient {
	t.Helper()
	client, err := NewAzureClient(logging.New(false, true),
		WithPostgresClients(func(string) (PostgresServersAPI, error) { return pg, nil }),
		WithStorageClients(func(string) (StorageAccountsAPI, error) { return storage, nil }),
		WithUpdateAdminPassword(func(context.Context, *arm.ResourceID, string) error { return nil }),
	)
	require.NoError(t, err)
	return client
}

func TestAzureClientDatabaseServer(t *testing.T) {
	ctx := context.Background()

	t.Run("GetReturnsServerDetails", func(t *testing.T) {
		pg := &mockPostgresAPI{
			getResp: armpostgresqlflexibleservers.ServersClientGetResponse{
				Server: armpostgresqlflexibleservers.Server{
					Properties: &armpostgresqlflexibleservers.ServerProperties{
						FullyQualifiedDomainName: to.Ptr("pg1.postgres.database.azure.com"),
						AdministratorLogin:       to.Ptr("rotoradmin"),
					},
				},
			},
		}
		client := newTestClient(t, pg, &mockStorageAPI{})

		server, err := client.GetDatabaseServer(ctx, pgResourceID)
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.Equal(t, "pg1.postgres.database.azure.com", server.Hostname)
		assert.Equal(t, "rotoradmin", server.AdministratorLogin)
		assert.Equal(t, "rg1", pg.gotResourceGroup)
		assert.Equal(t, "pg1", pg.gotServer)
	})

	t.Run("NotFoundReturnsNil", func(t *testing.T) {
		pg := &mockPostgresAPI{getErr: &azcore.ResponseError{StatusCode: 404}}
		client := newTestClient(t, pg, &mockStorageAPI{})

		server, err := client.GetDatabaseServer(ctx, pgResourceID)
		require.NoError(t, err)
		assert.Nil(t, server)
	})

	t.Run("RejectsMalformedResourceID", func(t *testing.T) {
		client := newTestClient(t, &mockPostgresAPI{}, &mockStorageAPI{})

		_, err := client.GetDatabaseServer(ctx, "not-a-resource-id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid Azure resource ID")
	})

	t.Run("RejectsWrongResourceType", func(t *testing.T) {
		client := newTestClient(t, &mockPostgresAPI{}, &mockStorageAPI{})

		_, err := client.GetDatabaseServer(ctx, storageResourceID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected")
	})
}

func TestAzureClientStorageKeys(t *testing.T) {
	ctx := context.Background()

	keys := []*armstorage.AccountKey{
		{KeyName: to.Ptr("key1"), Value: to.Ptr("aaa")},
		{KeyName: to.Ptr("key2"), Value: to.Ptr("bbb")},
	}

	t.Run("ListConvertsKeys", func(t *testing.T) {
		client := newTestClient(t, &mockPostgresAPI{}, &mockStorageAPI{keys: keys})

		got, err := client.ListStorageAccountKeys(ctx, storageResourceID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "key1", got[0].Name)
		assert.Equal(t, "aaa", got[0].Value)
		assert.Equal(t, "key2", got[1].Name)
	})

	t.Run("RegenerateReturnsRequestedSlot", func(t *testing.T) {
		storage := &mockStorageAPI{keys: keys}
		client := newTestClient(t, &mockPostgresAPI{}, storage)

		key, err := client.RegenerateStorageAccountKey(ctx, storageResourceID, "key2")
		require.NoError(t, err)
		require.NotNil(t, key)
		assert.Equal(t, "key2", key.Name)
		assert.Equal(t, "bbb", key.Value)
		assert.Equal(t, []string{"key2"}, storage.regenerated)
	})

	t.Run("RegenerateMissingSlotReturnsNil", func(t *testing.T) {
		storage := &mockStorageAPI{keys: keys[:1]}
		client := newTestClient(t, &mockPostgresAPI{}, storage)

		key, err := client.RegenerateStorageAccountKey(ctx, storageResourceID, "key2")
		require.NoError(t, err)
		assert.Nil(t, key)
	})

	t.Run("RejectsWrongResourceType", func(t *testing.T) {
		client := newTestClient(t, &mockPostgresAPI{}, &mockStorageAPI{})

		_, err := client.ListStorageAccountKeys(ctx, pgResourceID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected")
	})
}
