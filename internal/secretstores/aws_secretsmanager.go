package secretstores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// SecretsManagerClientAPI defines the Secrets Manager operations the
// adapter needs. This allows for mocking in tests.
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
}

// AWSSecretsManagerStore adapts AWS Secrets Manager to the Store interface.
// Secrets Manager has no per-secret expiration attribute, so entries are
// wrapped in a JSON envelope carrying expiration and content-type metadata.
type AWSSecretsManagerStore struct {
	name     string
	client   SecretsManagerClientAPI
	logger   *logging.Logger
	clock    clock.Clock
	region   string
	endpoint string
}

// SecretsManagerOption is a functional option for configuring the store.
type SecretsManagerOption func(*AWSSecretsManagerStore)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerClientAPI) SecretsManagerOption {
	return func(s *AWSSecretsManagerStore) {
		s.client = client
	}
}

// WithSecretsManagerClock overrides the clock used for envelope timestamps.
func WithSecretsManagerClock(clk clock.Clock) SecretsManagerOption {
	return func(s *AWSSecretsManagerStore) {
		s.clock = clk
	}
}

// NewAWSSecretsManagerStore creates a Secrets Manager-backed store.
func NewAWSSecretsManagerStore(name string, configMap map[string]interface{}, logger *logging.Logger, opts ...SecretsManagerOption) (*AWSSecretsManagerStore, error) {
	region := "us-east-1"
	if r, ok := configMap["region"].(string); ok && r != "" {
		region = r
	}

	var endpoint string
	if e, ok := configMap["endpoint"].(string); ok && e != "" {
		endpoint = e
	}

	var accessKeyID, secretAccessKey string
	if ak, ok := configMap["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := configMap["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	s := &AWSSecretsManagerStore{
		name:     name,
		logger:   logger,
		clock:    clock.System{},
		region:   region,
		endpoint: endpoint,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig(region, accessKeyID, secretAccessKey)
		if err != nil {
			return nil, err
		}

		var clientOpts []func(*secretsmanager.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		s.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return s, nil
}

func loadAWSConfig(region, accessKeyID, secretAccessKey string) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(region))

	if accessKeyID != "" && secretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// Name returns the configured store instance name.
func (s *AWSSecretsManagerStore) Name() string { return s.name }

// GetSecret returns envelope metadata for the secret, or (nil, nil) when
// the secret does not exist.
func (s *AWSSecretsManagerStore) GetSecret(ctx context.Context, name string) (*secretstore.SecretInfo, error) {
	env, arn, version, found, err := s.fetch(ctx, name, "get secret")
	if err != nil || !found {
		return nil, err
	}
	return s.secretInfo(name, arn, version, env), nil
}

// GetSecretValue returns the unwrapped secret value.
func (s *AWSSecretsManagerStore) GetSecretValue(ctx context.Context, name string) (string, bool, error) {
	env, _, _, found, err := s.fetch(ctx, name, "get secret value")
	if err != nil || !found {
		return "", false, err
	}
	return env.Value, true, nil
}

// UpdateSecret writes a new secret version, creating the secret on first
// use. The envelope preserves CreatedOn across overwrites.
func (s *AWSSecretsManagerStore) UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	now := s.clock.Now()

	env := &envelope{
		Value:       value,
		ContentType: contentType,
		CreatedOn:   now,
		UpdatedOn:   now,
		ExpiresOn:   expiresOn,
	}
	if prev, _, _, found, err := s.fetch(ctx, name, "update secret"); err != nil {
		return nil, err
	} else if found && !prev.CreatedOn.IsZero() {
		env.CreatedOn = prev.CreatedOn
	}

	payload, err := env.encode()
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "encode secret", Err: err}
	}

	update, err := s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(payload),
	})
	if err == nil {
		return s.secretInfo(name, aws.ToString(update.ARN), aws.ToString(update.VersionId), env), nil
	}
	if !isSecretsManagerNotFound(err) {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "update secret", Err: err}
	}

	create, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(payload),
	})
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "create secret", Err: err}
	}

	s.logger.Debug("Created secret '%s' in Secrets Manager (%s)", name, s.region)
	return s.secretInfo(name, aws.ToString(create.ARN), aws.ToString(create.VersionId), env), nil
}

func (s *AWSSecretsManagerStore) fetch(ctx context.Context, name, operation string) (*envelope, string, string, bool, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		if isSecretsManagerNotFound(err) {
			return nil, "", "", false, nil
		}
		return nil, "", "", false, &rterrors.StoreError{Store: s.name, Operation: operation, Err: err}
	}
	return decodeEnvelope(aws.ToString(result.SecretString)), aws.ToString(result.ARN), aws.ToString(result.VersionId), true, nil
}

func (s *AWSSecretsManagerStore) secretInfo(name, arn, version string, env *envelope) *secretstore.SecretInfo {
	return &secretstore.SecretInfo{
		ID:          arn,
		Name:        name,
		ContentType: env.ContentType,
		Enabled:     true,
		CreatedOn:   env.CreatedOn,
		UpdatedOn:   env.UpdatedOn,
		ExpiresOn:   env.ExpiresOn,
		StoreID:     s.name,
		Version:     version,
	}
}

func isSecretsManagerNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}

var _ secretstore.Store = (*AWSSecretsManagerStore)(nil)
