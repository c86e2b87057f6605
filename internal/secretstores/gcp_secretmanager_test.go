package secretstores

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/rotor/internal/logging"
)

// mockGCPClient keeps secrets and their latest payload in memory.
type mockGCPClient struct {
	secrets  map[string]*secretmanagerpb.Secret
	payloads map[string][]byte
	versions map[string]int
}

func (m *mockGCPClient) GetSecret(_ context.Context, req *secretmanagerpb.GetSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	secret, ok := m.secrets[req.Name]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return secret, nil
}

func (m *mockGCPClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	resource := req.Name[:len(req.Name)-len("/versions/latest")]
	payload, ok := m.payloads[resource]
	if !ok {
		return nil, status.Error(codes.NotFound, "version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	}, nil
}

func (m *mockGCPClient) CreateSecret(_ context.Context, req *secretmanagerpb.CreateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if m.secrets == nil {
		m.secrets = make(map[string]*secretmanagerpb.Secret)
		m.payloads = make(map[string][]byte)
		m.versions = make(map[string]int)
	}
	name := req.Parent + "/secrets/" + req.SecretId
	secret := &secretmanagerpb.Secret{
		Name:        name,
		Annotations: req.Secret.GetAnnotations(),
		CreateTime:  timestamppb.New(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	m.secrets[name] = secret
	return secret, nil
}

func (m *mockGCPClient) UpdateSecret(_ context.Context, req *secretmanagerpb.UpdateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	m.secrets[req.Secret.Name] = req.Secret
	return req.Secret, nil
}

func (m *mockGCPClient) AddSecretVersion(_ context.Context, req *secretmanagerpb.AddSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	m.payloads[req.Parent] = req.Payload.GetData()
	m.versions[req.Parent]++
	return &secretmanagerpb.SecretVersion{
		Name:       fmt.Sprintf("%s/versions/%d", req.Parent, m.versions[req.Parent]),
		CreateTime: timestamppb.New(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)),
	}, nil
}

func newGCPStore(t *testing.T, client GCPSecretManagerClientAPI) *GCPSecretManagerStore {
	t.Helper()
	store, err := NewGCPSecretManagerStore("gcp", map[string]interface{}{"project_id": "unit"},
		logging.New(false, true), WithGCPSecretManagerClient(client))
	require.NoError(t, err)
	return store
}

func TestGCPSecretManagerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresProjectID", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		_, err := NewGCPSecretManagerStore("gcp", map[string]interface{}{}, logging.New(false, true))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project_id")
	})

	t.Run("MissingSecretReturnsNil", func(t *testing.T) {
		store := newGCPStore(t, &mockGCPClient{})

		info, err := store.GetSecret(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, info)

		_, found, err := store.GetSecretValue(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("UpdateCreatesSecretWithAnnotations", func(t *testing.T) {
		client := &mockGCPClient{}
		store := newGCPStore(t, client)
		expires := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)

		info, err := store.UpdateSecret(ctx, "api-key", "v1", &expires, "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "projects/unit/secrets/api-key", info.ID)
		assert.Equal(t, "1", info.Version)

		value, found, err := store.GetSecretValue(ctx, "api-key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "v1", value)

		fetched, err := store.GetSecret(ctx, "api-key")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, "text/plain", fetched.ContentType)
		require.NotNil(t, fetched.ExpiresOn)
		assert.True(t, fetched.ExpiresOn.Equal(expires))
	})

	t.Run("SuccessiveUpdatesAddVersions", func(t *testing.T) {
		client := &mockGCPClient{}
		store := newGCPStore(t, client)

		_, err := store.UpdateSecret(ctx, "s", "v1", nil, "")
		require.NoError(t, err)
		info, err := store.UpdateSecret(ctx, "s", "v2", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "2", info.Version)

		value, _, err := store.GetSecretValue(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, "v2", value)
	})
}
