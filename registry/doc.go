// Package registry implements the certificate registry state machine: the
// authoritative rules for issuer registration and authorization, certificate
// issuance, verification requests and decisions, revocation, and late-bound
// encrypted amendments.
//
// The package splits into two layers. StateMachine holds the authoritative
// state and applies finalized transitions exactly once, in ledger order; it
// is the only writer of issuer, certificate and verification-request
// records, and it allocates the dense zero-based certificate and request
// counters strictly inside the apply step. Registry is the caller-facing
// facade: it validates a requested operation against the latest finalized
// state, encodes it as a transition, submits it to the ledger, and reports
// the outcome observed at finality.
//
// Pre-validation in the facade exists to fail fast; the apply-time checks in
// StateMachine are authoritative, so replayed or out-of-order submissions
// are rejected there without advancing any counter.
package registry
