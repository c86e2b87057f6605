package rotation

import (
	"context"

	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// adminPasswordLength is the length of generated administrator passwords.
const adminPasswordLength = 16

// AdminRotator rotates a cloud database server's administrator password:
// it reads the server's metadata from the control plane, patches the
// password, and persists {hostname, username, password} as JSON. The stored
// username is always the administrator login the control plane reports, not
// a configured constant.
//
// This strategy provides no overlap: the previous administrator password is
// invalid as soon as the patch completes.
type AdminRotator struct {
	logger *logging.Logger
	cloud  CloudClient
}

// NewAdminRotator creates the cloud database administrator strategy.
func NewAdminRotator(logger *logging.Logger, cloud CloudClient) *AdminRotator {
	return &AdminRotator{logger: logger, cloud: cloud}
}

// StrategyType returns the strategy tag.
func (r *AdminRotator) StrategyType() string {
	return StrategyPostgresAdmin
}

// Initialize rotates with no prior expiration check.
func (r *AdminRotator) Initialize(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runInitialize(ctx, res, op, r.perform)
}

// Rotate replaces the administrator password once the secret is due.
func (r *AdminRotator) Rotate(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runRotate(ctx, res, op, r.perform)
}

func (r *AdminRotator) perform(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error) {
	if res.TargetResourceID == "" {
		return skipped(res, "resource '%s' has no targetResourceId configured", res.Name), nil
	}

	server, err := r.cloud.GetDatabaseServer(ctx, res.TargetResourceID)
	if err != nil {
		return skipped(res, "failed to read database server details: %v", err), nil
	}
	if server == nil {
		return skipped(res, "database server '%s' was not found", res.TargetResourceID), nil
	}

	password, err := Generate(adminPasswordLength)
	if err != nil {
		return nil, err
	}

	if op.Flags.WhatIf {
		return whatIf(res), nil
	}

	if err := r.cloud.UpdateDatabaseAdminPassword(ctx, res.TargetResourceID, password); err != nil {
		// The control plane rejected the patch, so nothing changed on
		// either side.
		return skipped(res, "failed to update administrator password: %v", err), nil
	}
	r.logger.Info("Patched administrator password on '%s'", server.Hostname)

	payload, err := encodeJSON(DatabaseCredential{
		Hostname: server.Hostname,
		Username: server.AdministratorLogin,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	now := op.Now()
	expires := res.expiration(now)

	// The server already has the new password; write the store even if the
	// caller cancelled in the meantime.
	writeCtx := context.WithoutCancel(ctx)
	info, err := store.UpdateSecret(writeCtx, res.Name, payload, &expires, secretstore.ContentTypeJSON)
	if err != nil {
		return storeWriteFailed(res, err), nil
	}
	if info == nil {
		return storeWriteFailed(res, errNilStoreResult), nil
	}

	return rotated(res, "rotated administrator credential for '%s'", server.Hostname), nil
}

var _ Rotator = (*AdminRotator)(nil)
