package secretstores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// Annotation keys used to carry metadata Secret Manager has no native
// fields for. They live on the secret resource, not on versions.
const (
	gcpAnnotationContentType = "rotor-content-type"
	gcpAnnotationExpiresOn   = "rotor-expires-on"
)

// GCPSecretManagerClientAPI defines the Secret Manager operations the
// adapter needs. This allows for mocking in tests.
type GCPSecretManagerClientAPI interface {
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	UpdateSecret(ctx context.Context, req *secretmanagerpb.UpdateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
}

// GCPSecretManagerStore adapts Google Cloud Secret Manager to the Store
// interface. Expiration and content type live in secret annotations; the
// value itself is a plain secret version payload.
type GCPSecretManagerStore struct {
	name      string
	client    GCPSecretManagerClientAPI
	logger    *logging.Logger
	projectID string
}

// GCPSecretManagerConfig holds Secret Manager-specific configuration.
type GCPSecretManagerConfig struct {
	ProjectID             string
	ServiceAccountKeyPath string
}

// GCPSecretManagerOption is a functional option for configuring the store.
type GCPSecretManagerOption func(*GCPSecretManagerStore)

// WithGCPSecretManagerClient sets a custom Secret Manager client (for testing).
func WithGCPSecretManagerClient(client GCPSecretManagerClientAPI) GCPSecretManagerOption {
	return func(s *GCPSecretManagerStore) {
		s.client = client
	}
}

// NewGCPSecretManagerStore creates a Secret Manager-backed store.
func NewGCPSecretManagerStore(name string, configMap map[string]interface{}, logger *logging.Logger, opts ...GCPSecretManagerOption) (*GCPSecretManagerStore, error) {
	var config GCPSecretManagerConfig

	if projectID, ok := configMap["project_id"].(string); ok {
		config.ProjectID = projectID
	}
	if keyPath, ok := configMap["service_account_key_path"].(string); ok {
		config.ServiceAccountKeyPath = keyPath
	}

	if config.ProjectID == "" {
		if projectID := os.Getenv("GOOGLE_CLOUD_PROJECT"); projectID != "" {
			config.ProjectID = projectID
		} else {
			return nil, rterrors.ConfigError{
				Field:      "project_id",
				Message:    "project_id is required for GCP Secret Manager",
				Suggestion: "Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable",
			}
		}
	}

	s := &GCPSecretManagerStore{
		name:      name,
		logger:    logger,
		projectID: config.ProjectID,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := createGCPSecretManagerClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

func createGCPSecretManagerClient(config GCPSecretManagerConfig) (*secretmanager.Client, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption
	if config.ServiceAccountKeyPath != "" {
		keyPath := config.ServiceAccountKeyPath
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

// Name returns the configured store instance name.
func (s *GCPSecretManagerStore) Name() string { return s.name }

// GetSecret returns metadata from the secret resource and its annotations,
// or (nil, nil) when the secret does not exist.
func (s *GCPSecretManagerStore) GetSecret(ctx context.Context, name string) (*secretstore.SecretInfo, error) {
	secret, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: s.secretResource(name),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, &rterrors.StoreError{Store: s.name, Operation: "get secret", Err: err}
	}
	return s.secretInfo(name, secret), nil
}

// GetSecretValue returns the latest version's payload.
func (s *GCPSecretManagerStore) GetSecretValue(ctx context.Context, name string) (string, bool, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretResource(name) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, &rterrors.StoreError{Store: s.name, Operation: "access secret version", Err: err}
	}
	return string(resp.GetPayload().GetData()), true, nil
}

// UpdateSecret adds a new version, creating the secret resource on first
// use, and syncs expiration and content type into the annotations.
func (s *GCPSecretManagerStore) UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	annotations := map[string]string{}
	if contentType != "" {
		annotations[gcpAnnotationContentType] = contentType
	}
	if expiresOn != nil {
		annotations[gcpAnnotationExpiresOn] = expiresOn.UTC().Format(time.RFC3339)
	}

	secret, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: s.secretResource(name),
	})
	switch {
	case err == nil:
		secret.Annotations = annotations
		secret, err = s.client.UpdateSecret(ctx, &secretmanagerpb.UpdateSecretRequest{
			Secret:     secret,
			UpdateMask: &fieldmaskpb.FieldMask{Paths: []string{"annotations"}},
		})
		if err != nil {
			return nil, &rterrors.StoreError{Store: s.name, Operation: "update secret annotations", Err: err}
		}
	case status.Code(err) == codes.NotFound:
		secret, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   "projects/" + s.projectID,
			SecretId: name,
			Secret: &secretmanagerpb.Secret{
				Annotations: annotations,
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			return nil, &rterrors.StoreError{Store: s.name, Operation: "create secret", Err: err}
		}
		s.logger.Debug("Created secret '%s' in project %s", name, s.projectID)
	default:
		return nil, &rterrors.StoreError{Store: s.name, Operation: "get secret", Err: err}
	}

	version, err := s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretResource(name),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	})
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "add secret version", Err: err}
	}

	info := s.secretInfo(name, secret)
	info.Version = versionNumber(version.GetName())
	if version.GetCreateTime() != nil {
		info.UpdatedOn = version.GetCreateTime().AsTime()
	}
	return info, nil
}

func (s *GCPSecretManagerStore) secretResource(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.projectID, name)
}

func (s *GCPSecretManagerStore) secretInfo(name string, secret *secretmanagerpb.Secret) *secretstore.SecretInfo {
	info := &secretstore.SecretInfo{
		ID:      secret.GetName(),
		Name:    name,
		Enabled: true,
		StoreID: s.name,
	}
	if secret.GetCreateTime() != nil {
		info.CreatedOn = secret.GetCreateTime().AsTime()
		info.UpdatedOn = info.CreatedOn
	}
	if ct, ok := secret.GetAnnotations()[gcpAnnotationContentType]; ok {
		info.ContentType = ct
	}
	if raw, ok := secret.GetAnnotations()[gcpAnnotationExpiresOn]; ok {
		if expires, err := time.Parse(time.RFC3339, raw); err == nil {
			info.ExpiresOn = &expires
		}
	}
	return info
}

// versionNumber extracts the trailing version from a resource name like
// projects/p/secrets/s/versions/7.
func versionNumber(resource string) string {
	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}
	return resource
}

var _ secretstore.Store = (*GCPSecretManagerStore)(nil)
