package rotation

import (
	"context"
	"time"

	"github.com/systmms/rotor/pkg/secretstore"
)

// evaluateInitialization decides whether an initialization should proceed.
// A non-nil verdict means skip; nil means proceed.
func evaluateInitialization(ctx context.Context, res *Resource, store secretstore.Store, op *Context) (*Result, error) {
	info, err := store.GetSecret(ctx, res.Name)
	if err != nil {
		return skipped(res, "secret store read failed: %v", err), nil
	}
	if info != nil && !op.Flags.Force {
		return skipped(res, "secret '%s' is already initialized", res.Name), nil
	}
	return nil, nil
}

// evaluateRotation decides whether a rotation should proceed. A non-nil
// verdict means skip; nil means proceed.
func evaluateRotation(ctx context.Context, res *Resource, store secretstore.Store, op *Context) (*Result, error) {
	info, err := store.GetSecret(ctx, res.Name)
	if err != nil {
		return skipped(res, "secret store read failed: %v", err), nil
	}
	if info == nil {
		return skipped(res, "secret '%s' was not found; initialize it first", res.Name), nil
	}
	if !op.Flags.Force && !shouldRotate(info, op.Now(), res.ExpirationOverlapDays) {
		return skipped(res, "secret '%s' is not due for rotation", res.Name), nil
	}
	return nil, nil
}

// shouldRotate reports whether the secret is inside its rotation window.
// Secrets without an expiration never rotate on schedule. A tie at exactly
// the overlap boundary rotates.
func shouldRotate(info *secretstore.SecretInfo, now time.Time, overlapDays float64) bool {
	if info.ExpiresOn == nil {
		return false
	}
	daysToExpire := info.ExpiresOn.Sub(now).Hours() / 24
	return daysToExpire <= overlapDays
}
