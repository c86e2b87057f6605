package rotation

import (
	"context"

	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// ManualRotator writes an operator-supplied value to the store. It performs
// no external I/O; the value comes from Flags.SecretValue. An empty value is
// accepted and stored as-is.
type ManualRotator struct {
	logger *logging.Logger
}

// NewManualRotator creates the manual/generic strategy.
func NewManualRotator(logger *logging.Logger) *ManualRotator {
	return &ManualRotator{logger: logger}
}

// StrategyType returns the strategy tag.
func (r *ManualRotator) StrategyType() string {
	return StrategyManual
}

// Initialize writes the supplied value for a secret that does not yet exist.
func (r *ManualRotator) Initialize(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runInitialize(ctx, res, op, r.perform)
}

// Rotate overwrites the secret with the supplied value once it is due.
func (r *ManualRotator) Rotate(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runRotate(ctx, res, op, r.perform)
}

func (r *ManualRotator) perform(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error) {
	if op.Flags.WhatIf {
		return whatIf(res), nil
	}

	now := op.Now()
	expires := res.expiration(now)
	info, err := store.UpdateSecret(ctx, res.Name, op.Flags.SecretValue, &expires, res.contentType())
	if err != nil {
		return skipped(res, "secret store update failed: %v", err), nil
	}
	if info == nil {
		return skipped(res, "secret store update failed for secret '%s'", res.Name), nil
	}

	r.logger.Info("Stored manual value for secret '%s', expires %s", res.Name, expires.Format("2006-01-02"))
	return rotated(res, "rotated secret '%s'", res.Name), nil
}

var _ Rotator = (*ManualRotator)(nil)
