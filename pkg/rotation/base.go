package rotation

import (
	"context"
	"errors"

	"github.com/systmms/rotor/pkg/secretstore"
)

// errNilStoreResult is used when an adapter reports a write failure by
// returning no metadata rather than an error.
var errNilStoreResult = errors.New("store returned no metadata for the written secret")

// performFunc is a strategy's per-kind routine, invoked once eligibility
// has decided the operation should proceed.
type performFunc func(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error)

// runInitialize is the shared initialization template: resolve the store,
// consult the eligibility policy, then delegate to the strategy routine.
func runInitialize(ctx context.Context, res *Resource, op *Context, perform performFunc) (*Result, error) {
	store, ok := op.Store(res.StoreName)
	if !ok {
		return skipped(res, "store '%s' is not configured", res.StoreName), nil
	}
	verdict, err := evaluateInitialization(ctx, res, store, op)
	if err != nil {
		return nil, err
	}
	if verdict != nil {
		return verdict, nil
	}
	return perform(ctx, res, op, store)
}

// runRotate is the shared rotation template, mirroring runInitialize with
// the rotation eligibility policy.
func runRotate(ctx context.Context, res *Resource, op *Context, perform performFunc) (*Result, error) {
	store, ok := op.Store(res.StoreName)
	if !ok {
		return skipped(res, "store '%s' is not configured", res.StoreName), nil
	}
	verdict, err := evaluateRotation(ctx, res, store, op)
	if err != nil {
		return nil, err
	}
	if verdict != nil {
		return verdict, nil
	}
	return perform(ctx, res, op, store)
}

// whatIf is the verdict returned just before the first mutating call when
// simulation is requested. Rotated is true for a successful simulation.
func whatIf(res *Resource) *Result {
	return rotated(res, "Would have rotated secret '%s'", res.Name)
}

// storeWriteFailed is the dangerous verdict: the external mutation already
// happened, so losing the new credential strands the resource. The note
// tells the operator recovery requires re-initialization.
func storeWriteFailed(res *Resource, cause error) *Result {
	return skipped(res,
		"the credential was changed but updating the secret store failed (%v); re-initialization will be required to recover secret '%s'",
		cause, res.Name)
}
