// Package cloud implements the control-plane client used by the
// cloud-backed rotation strategies. Only Azure is supported today.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/postgresql/armpostgresqlflexibleservers/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/rotation"
)

// Resource types the client knows how to operate on.
const (
	resourceTypePostgresFlexible = "microsoft.dbforpostgresql/flexibleservers"
	resourceTypeStorageAccount   = "microsoft.storage/storageaccounts"
)

// PostgresServersAPI defines the flexible-server operations the client
// needs. This allows for mocking in tests.
// Note: BeginUpdate is excluded from the interface because its poller
// return type is difficult to mock; tests override updateAdminPassword
// via WithUpdateAdminPassword instead.
type PostgresServersAPI interface {
	Get(ctx context.Context, resourceGroupName string, serverName string, options *armpostgresqlflexibleservers.ServersClientGetOptions) (armpostgresqlflexibleservers.ServersClientGetResponse, error)
}

// StorageAccountsAPI defines the storage account key operations the
// client needs. This allows for mocking in tests.
type StorageAccountsAPI interface {
	ListKeys(ctx context.Context, resourceGroupName string, accountName string, options *armstorage.AccountsClientListKeysOptions) (armstorage.AccountsClientListKeysResponse, error)
	RegenerateKey(ctx context.Context, resourceGroupName string, accountName string, regenerateKey armstorage.AccountRegenerateKeyParameters, options *armstorage.AccountsClientRegenerateKeyOptions) (armstorage.AccountsClientRegenerateKeyResponse, error)
}

// AzureClient talks to Azure Resource Manager. Clients are created per
// subscription on first use, so one AzureClient can serve resources
// spread across subscriptions.
type AzureClient struct {
	credential azcore.TokenCredential
	logger     *logging.Logger

	postgresClients func(subscriptionID string) (PostgresServersAPI, error)
	storageClients  func(subscriptionID string) (StorageAccountsAPI, error)

	updateAdminPassword func(ctx context.Context, id *arm.ResourceID, password string) error
}

// AzureOption is a functional option for configuring the client.
type AzureOption func(*AzureClient)

// WithPostgresClients sets a custom flexible-server client factory (for testing).
func WithPostgresClients(factory func(subscriptionID string) (PostgresServersAPI, error)) AzureOption {
	return func(c *AzureClient) {
		c.postgresClients = factory
	}
}

// WithStorageClients sets a custom storage accounts client factory (for testing).
func WithStorageClients(factory func(subscriptionID string) (StorageAccountsAPI, error)) AzureOption {
	return func(c *AzureClient) {
		c.storageClients = factory
	}
}

// WithUpdateAdminPassword overrides the administrator password update
// operation (for testing).
func WithUpdateAdminPassword(fn func(ctx context.Context, id *arm.ResourceID, password string) error) AzureOption {
	return func(c *AzureClient) {
		c.updateAdminPassword = fn
	}
}

// NewAzureClient creates a control-plane client authenticating with the
// default Azure credential chain.
func NewAzureClient(logger *logging.Logger, opts ...AzureOption) (*AzureClient, error) {
	c := &AzureClient{logger: logger}

	for _, opt := range opts {
		opt(c)
	}

	needsCredential := c.postgresClients == nil || c.storageClients == nil || c.updateAdminPassword == nil
	if needsCredential {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		c.credential = cred
	}

	if c.postgresClients == nil {
		c.postgresClients = func(subscriptionID string) (PostgresServersAPI, error) {
			return armpostgresqlflexibleservers.NewServersClient(subscriptionID, c.credential, nil)
		}
	}
	if c.storageClients == nil {
		c.storageClients = func(subscriptionID string) (StorageAccountsAPI, error) {
			return armstorage.NewAccountsClient(subscriptionID, c.credential, nil)
		}
	}
	if c.updateAdminPassword == nil {
		c.updateAdminPassword = c.beginUpdateAdminPassword
	}

	return c, nil
}

// GetDatabaseServer resolves a flexible-server resource ID. Returns
// (nil, nil) when the server does not exist.
func (c *AzureClient) GetDatabaseServer(ctx context.Context, resourceID string) (*rotation.DatabaseServer, error) {
	id, err := parseResourceID(resourceID, resourceTypePostgresFlexible)
	if err != nil {
		return nil, err
	}

	client, err := c.postgresClients(id.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create flexible-server client: %w", err)
	}

	resp, err := client.Get(ctx, id.ResourceGroupName, id.Name, nil)
	if err != nil {
		if isARMNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get database server '%s': %w", id.Name, err)
	}

	server := &rotation.DatabaseServer{}
	if props := resp.Server.Properties; props != nil {
		if props.FullyQualifiedDomainName != nil {
			server.Hostname = *props.FullyQualifiedDomainName
		}
		if props.AdministratorLogin != nil {
			server.AdministratorLogin = *props.AdministratorLogin
		}
	}
	return server, nil
}

// UpdateDatabaseAdminPassword sets a new administrator password on the
// flexible server and waits for the operation to complete.
func (c *AzureClient) UpdateDatabaseAdminPassword(ctx context.Context, resourceID, password string) error {
	id, err := parseResourceID(resourceID, resourceTypePostgresFlexible)
	if err != nil {
		return err
	}
	return c.updateAdminPassword(ctx, id, password)
}

func (c *AzureClient) beginUpdateAdminPassword(ctx context.Context, id *arm.ResourceID, password string) error {
	client, err := armpostgresqlflexibleservers.NewServersClient(id.SubscriptionID, c.credential, nil)
	if err != nil {
		return fmt.Errorf("failed to create flexible-server client: %w", err)
	}

	poller, err := client.BeginUpdate(ctx, id.ResourceGroupName, id.Name, armpostgresqlflexibleservers.ServerForUpdate{
		Properties: &armpostgresqlflexibleservers.ServerPropertiesForUpdate{
			AdministratorLoginPassword: to.Ptr(password),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to start administrator password update on '%s': %w", id.Name, err)
	}

	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("administrator password update on '%s' did not complete: %w", id.Name, err)
	}

	c.logger.Debug("Updated administrator password on server '%s'", id.Name)
	return nil
}

// ListStorageAccountKeys returns the account's access keys.
func (c *AzureClient) ListStorageAccountKeys(ctx context.Context, resourceID string) ([]rotation.StorageAccountKey, error) {
	id, err := parseResourceID(resourceID, resourceTypeStorageAccount)
	if err != nil {
		return nil, err
	}

	client, err := c.storageClients(id.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage accounts client: %w", err)
	}

	resp, err := client.ListKeys(ctx, id.ResourceGroupName, id.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys for storage account '%s': %w", id.Name, err)
	}
	return convertStorageKeys(resp.Keys), nil
}

// RegenerateStorageAccountKey regenerates one key slot and returns the
// new key, or nil when the response does not include the slot.
func (c *AzureClient) RegenerateStorageAccountKey(ctx context.Context, resourceID, keyName string) (*rotation.StorageAccountKey, error) {
	id, err := parseResourceID(resourceID, resourceTypeStorageAccount)
	if err != nil {
		return nil, err
	}

	client, err := c.storageClients(id.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage accounts client: %w", err)
	}

	resp, err := client.RegenerateKey(ctx, id.ResourceGroupName, id.Name, armstorage.AccountRegenerateKeyParameters{
		KeyName: to.Ptr(keyName),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate key '%s' on storage account '%s': %w", keyName, id.Name, err)
	}

	for _, key := range convertStorageKeys(resp.Keys) {
		if key.Name == keyName {
			k := key
			return &k, nil
		}
	}
	return nil, nil
}

func convertStorageKeys(keys []*armstorage.AccountKey) []rotation.StorageAccountKey {
	out := make([]rotation.StorageAccountKey, 0, len(keys))
	for _, key := range keys {
		if key == nil {
			continue
		}
		k := rotation.StorageAccountKey{}
		if key.KeyName != nil {
			k.Name = *key.KeyName
		}
		if key.Value != nil {
			k.Value = *key.Value
		}
		out = append(out, k)
	}
	return out
}

func parseResourceID(resourceID, wantType string) (*arm.ResourceID, error) {
	id, err := arm.ParseResourceID(resourceID)
	if err != nil {
		return nil, rterrors.ConfigError{
			Field:      "target_resource_id",
			Value:      resourceID,
			Message:    "not a valid Azure resource ID",
			Suggestion: "Use the full ID: /subscriptions/<sub>/resourceGroups/<rg>/providers/<provider>/<type>/<name>",
		}
	}
	if !strings.EqualFold(id.ResourceType.String(), wantType) {
		return nil, rterrors.ConfigError{
			Field:      "target_resource_id",
			Value:      resourceID,
			Message:    fmt.Sprintf("resource is of type '%s', expected '%s'", id.ResourceType, wantType),
			Suggestion: "Check that the resource ID matches the strategy",
		}
	}
	return id, nil
}

func isARMNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

var _ rotation.CloudClient = (*AzureClient)(nil)
