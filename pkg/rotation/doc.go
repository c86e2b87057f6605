// Package rotation implements the credential rotation engine.
//
// A Rotator is one rotation strategy, identified by a string tag and
// implementing two verbs:
//
//	Initialize — the first rotation for a secret that does not yet exist
//	Rotate     — replace an existing credential with a freshly generated one
//
// Both verbs run through a shared template: the current secret metadata is
// read from the store, the eligibility policy decides whether to proceed
// (skipping with "not found", "not due", or "already initialized" verdicts),
// the what-if flag short-circuits just before the first mutating call, and
// the strategy-specific routine talks to the cloud control plane or database
// before writing the new value into the secret store with an updated
// expiration.
//
// Built-in strategies:
//
//	manual/generic                                  operator-supplied value
//	azure/postgresql/flexible-server/administrator  server admin password
//	database/postgresql/user                        per-application DB login
//	database/mysql/user                             MySQL flavor of the above
//	azure/storage/account/key                       two-slot account key toggle
//
// Expected conditions — skips, configuration defects, control-plane failures —
// are reported as Result verdicts, never as errors. Errors are reserved for
// programmer mistakes and failure of the secure random source.
//
// The single operator-visible contract that matters most: when the external
// mutation succeeded but the secret store write failed, the Result note says
// re-initialization will be required. That verdict is the only case needing
// operator action outside the normal loop.
package rotation
