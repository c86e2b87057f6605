package secretstores

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// AzureKeyVaultClientAPI defines the Key Vault operations the adapter needs.
// This allows for mocking in tests.
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

// AzureKeyVaultStore adapts Azure Key Vault to the Store interface. Key
// Vault has native per-version attributes, so expiration and content type
// are stored as first-class secret metadata rather than in an envelope.
type AzureKeyVaultStore struct {
	name     string
	client   AzureKeyVaultClientAPI
	logger   *logging.Logger
	vaultURL string
}

// AzureKeyVaultConfig holds Key Vault-specific configuration.
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// AzureKeyVaultOption is a functional option for configuring the store.
type AzureKeyVaultOption func(*AzureKeyVaultStore)

// WithAzureKeyVaultClient sets a custom Key Vault client (for testing).
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureKeyVaultOption {
	return func(s *AzureKeyVaultStore) {
		s.client = client
	}
}

// NewAzureKeyVaultStore creates a Key Vault-backed store.
func NewAzureKeyVaultStore(name string, configMap map[string]interface{}, logger *logging.Logger, opts ...AzureKeyVaultOption) (*AzureKeyVaultStore, error) {
	config := AzureKeyVaultConfig{
		UseManagedIdentity: true,
	}

	if vaultURL, ok := configMap["vault_url"].(string); ok {
		config.VaultURL = vaultURL
	}
	if tenantID, ok := configMap["tenant_id"].(string); ok {
		config.TenantID = tenantID
	}
	if clientID, ok := configMap["client_id"].(string); ok {
		config.ClientID = clientID
	}
	if clientSecret, ok := configMap["client_secret"].(string); ok {
		config.ClientSecret = clientSecret
	}
	if useMI, ok := configMap["use_managed_identity"].(bool); ok {
		config.UseManagedIdentity = useMI
	}
	if userAssignedID, ok := configMap["user_assigned_identity_id"].(string); ok {
		config.UserAssignedID = userAssignedID
	}

	if config.VaultURL == "" {
		return nil, rterrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if _, err := url.Parse(config.VaultURL); err != nil {
		return nil, rterrors.ConfigError{
			Field:      "vault_url",
			Message:    "Invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	s := &AzureKeyVaultStore{
		name:     name,
		logger:   logger,
		vaultURL: config.VaultURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := createAzureKeyVaultClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

func createAzureKeyVaultClient(config AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	if config.ClientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret, nil)
	} else if config.UseManagedIdentity && config.UserAssignedID != "" {
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(config.UserAssignedID),
		})
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return azsecrets.NewClient(config.VaultURL, cred, nil)
}

// Name returns the configured store instance name.
func (s *AzureKeyVaultStore) Name() string { return s.name }

// GetSecret fetches the latest version's metadata, or (nil, nil) when the
// secret does not exist in the vault.
func (s *AzureKeyVaultStore) GetSecret(ctx context.Context, name string) (*secretstore.SecretInfo, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, nil
		}
		return nil, &rterrors.StoreError{Store: s.name, Operation: "get secret", Err: err}
	}
	return s.secretInfo(name, resp.Secret), nil
}

// GetSecretValue fetches the latest version's value.
func (s *AzureKeyVaultStore) GetSecretValue(ctx context.Context, name string) (string, bool, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if isAzureNotFound(err) {
			return "", false, nil
		}
		return "", false, &rterrors.StoreError{Store: s.name, Operation: "get secret value", Err: err}
	}
	if resp.Value == nil {
		return "", true, nil
	}
	return *resp.Value, true, nil
}

// UpdateSecret writes a new secret version with the given attributes.
func (s *AzureKeyVaultStore) UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	params := azsecrets.SetSecretParameters{
		Value: to.Ptr(value),
		SecretAttributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Expires: expiresOn,
		},
	}
	if contentType != "" {
		params.ContentType = to.Ptr(contentType)
	}

	resp, err := s.client.SetSecret(ctx, name, params, nil)
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "set secret", Err: err}
	}

	s.logger.Debug("Wrote secret '%s' to vault %s", name, s.vaultURL)
	return s.secretInfo(name, resp.Secret), nil
}

func (s *AzureKeyVaultStore) secretInfo(name string, secret azsecrets.Secret) *secretstore.SecretInfo {
	info := &secretstore.SecretInfo{
		Name:    name,
		StoreID: s.name,
		Enabled: true,
	}
	if secret.ID != nil {
		info.ID = string(*secret.ID)
		info.Name = secret.ID.Name()
		info.Version = secret.ID.Version()
	}
	if secret.ContentType != nil {
		info.ContentType = *secret.ContentType
	}
	if attrs := secret.Attributes; attrs != nil {
		if attrs.Enabled != nil {
			info.Enabled = *attrs.Enabled
		}
		if attrs.Created != nil {
			info.CreatedOn = *attrs.Created
		}
		if attrs.Updated != nil {
			info.UpdatedOn = *attrs.Updated
		}
		info.ExpiresOn = attrs.Expires
	}
	return info
}

func isAzureNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

var _ secretstore.Store = (*AzureKeyVaultStore)(nil)
