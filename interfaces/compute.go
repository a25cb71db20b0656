package interfaces

import "context"

// EncryptedInput is the result of encrypting a batch of values for a
// (scope, owner) pair: one handle per value plus a proof that the batch was
// honestly constructed for that pair.
type EncryptedInput struct {
	Handles []CiphertextHandle
	Proof   []byte
}

// EncryptedInputBuilder accumulates plaintext values for batch encryption.
// Values are encrypted together so a single proof covers the whole batch.
type EncryptedInputBuilder interface {
	// Add32 appends a 32-bit value to the batch.
	Add32(value uint32) EncryptedInputBuilder

	// Encrypt performs the encryption round trip and returns handles and
	// the input proof.
	Encrypt(ctx context.Context) (EncryptedInput, error)
}

// AccessGrantSpec describes a time-boxed decryption grant before it is
// signed: which handles may be decrypted, by whom, within which window.
// Built by the access-control evaluator, signed by the requester, consumed
// by the confidential compute service. A grant confers no write capability
// and is not transferable.
type AccessGrantSpec struct {
	Requester    AccountAddress
	Scope        AccountAddress
	Handles      []CiphertextHandle
	StartTime    int64 // Unix seconds
	DurationDays uint32
}

// SignableGrant is an access grant spec together with the digest the
// requester must sign to activate it.
type SignableGrant struct {
	Spec   AccessGrantSpec
	Digest [32]byte
}

// ConfidentialCompute wraps the encrypt, proof-verification and
// grant-decrypt primitives. The registry treats every operation here as an
// opaque external call; the cryptographic backend is swappable.
type ConfidentialCompute interface {
	// NewEncryptedInput starts a batch encryption for the given scope and
	// owner. Handles produced by the batch are bound to that pair.
	NewEncryptedInput(scope AccountAddress, owner AccountAddress) EncryptedInputBuilder

	// VerifyInputProof checks that the handles were honestly constructed
	// for the (scope, owner) pair. Pass/fail only.
	VerifyInputProof(handles []CiphertextHandle, proof []byte, owner AccountAddress) bool

	// CreateAccessGrant turns an authorized spec into a grant the requester
	// can sign.
	CreateAccessGrant(spec AccessGrantSpec) (SignableGrant, error)

	// Decrypt verifies the requester's signature over the grant digest and
	// the validity window, then returns plaintexts keyed by handle.
	Decrypt(ctx context.Context, grant SignableGrant, signature []byte) (map[CiphertextHandle]uint32, error)
}

// ProofVerifier is the narrow slice of ConfidentialCompute the registry
// state machine needs at issuance time.
type ProofVerifier interface {
	VerifyInputProof(handles []CiphertextHandle, proof []byte, owner AccountAddress) bool
}
