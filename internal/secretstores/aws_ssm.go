package secretstores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/rotor/internal/clock"
	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// SSMClientAPI defines the Parameter Store operations the adapter needs.
// This allows for mocking in tests.
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// AWSSSMStore adapts SSM Parameter Store to the Store interface. Values are
// written as SecureString parameters wrapped in the JSON envelope, since
// Parameter Store has no expiration or content-type metadata of its own.
type AWSSSMStore struct {
	name   string
	client SSMClientAPI
	logger *logging.Logger
	clock  clock.Clock
	region string
	prefix string
}

// SSMOption is a functional option for configuring the store.
type SSMOption func(*AWSSSMStore)

// WithSSMClient sets a custom SSM client (for testing).
func WithSSMClient(client SSMClientAPI) SSMOption {
	return func(s *AWSSSMStore) {
		s.client = client
	}
}

// WithSSMClock overrides the clock used for envelope timestamps.
func WithSSMClock(clk clock.Clock) SSMOption {
	return func(s *AWSSSMStore) {
		s.clock = clk
	}
}

// NewAWSSSMStore creates a Parameter Store-backed store. An optional
// "prefix" config key namespaces all parameters (e.g. "/rotor/prod").
func NewAWSSSMStore(name string, configMap map[string]interface{}, logger *logging.Logger, opts ...SSMOption) (*AWSSSMStore, error) {
	region := "us-east-1"
	if r, ok := configMap["region"].(string); ok && r != "" {
		region = r
	}

	var prefix string
	if p, ok := configMap["prefix"].(string); ok {
		prefix = strings.TrimSuffix(p, "/")
	}

	var accessKeyID, secretAccessKey string
	if ak, ok := configMap["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := configMap["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	s := &AWSSSMStore{
		name:   name,
		logger: logger,
		clock:  clock.System{},
		region: region,
		prefix: prefix,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig(region, accessKeyID, secretAccessKey)
		if err != nil {
			return nil, err
		}
		s.client = ssm.NewFromConfig(cfg)
	}

	return s, nil
}

// Name returns the configured store instance name.
func (s *AWSSSMStore) Name() string { return s.name }

// GetSecret returns envelope metadata for the parameter, or (nil, nil)
// when the parameter does not exist.
func (s *AWSSSMStore) GetSecret(ctx context.Context, name string) (*secretstore.SecretInfo, error) {
	env, version, found, err := s.fetch(ctx, name, "get parameter")
	if err != nil || !found {
		return nil, err
	}
	return s.secretInfo(name, version, env), nil
}

// GetSecretValue returns the unwrapped parameter value.
func (s *AWSSSMStore) GetSecretValue(ctx context.Context, name string) (string, bool, error) {
	env, _, found, err := s.fetch(ctx, name, "get parameter value")
	if err != nil || !found {
		return "", false, err
	}
	return env.Value, true, nil
}

// UpdateSecret overwrites the parameter as a SecureString. The envelope
// preserves CreatedOn across overwrites.
func (s *AWSSSMStore) UpdateSecret(ctx context.Context, name, value string, expiresOn *time.Time, contentType string) (*secretstore.SecretInfo, error) {
	now := s.clock.Now()

	env := &envelope{
		Value:       value,
		ContentType: contentType,
		CreatedOn:   now,
		UpdatedOn:   now,
		ExpiresOn:   expiresOn,
	}
	if prev, _, found, err := s.fetch(ctx, name, "update parameter"); err != nil {
		return nil, err
	} else if found && !prev.CreatedOn.IsZero() {
		env.CreatedOn = prev.CreatedOn
	}

	payload, err := env.encode()
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "encode parameter", Err: err}
	}

	result, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName(name)),
		Value:     aws.String(payload),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return nil, &rterrors.StoreError{Store: s.name, Operation: "put parameter", Err: err}
	}

	s.logger.Debug("Wrote parameter '%s' to Parameter Store (%s)", s.parameterName(name), s.region)
	return s.secretInfo(name, fmt.Sprintf("%d", result.Version), env), nil
}

func (s *AWSSSMStore) fetch(ctx context.Context, name, operation string) (*envelope, string, bool, error) {
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.parameterName(name)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, "", false, nil
		}
		return nil, "", false, &rterrors.StoreError{Store: s.name, Operation: operation, Err: err}
	}

	version := ""
	if result.Parameter.Version != 0 {
		version = fmt.Sprintf("%d", result.Parameter.Version)
	}
	return decodeEnvelope(aws.ToString(result.Parameter.Value)), version, true, nil
}

func (s *AWSSSMStore) parameterName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + strings.TrimPrefix(name, "/")
}

func (s *AWSSSMStore) secretInfo(name, version string, env *envelope) *secretstore.SecretInfo {
	return &secretstore.SecretInfo{
		ID:          s.parameterName(name),
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

var _ secretstore.Store = (*AWSSSMStore)(nil)
