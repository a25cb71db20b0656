package interfaces

import "errors"

// Error taxonomy of the registry. Callers match with errors.Is; the HTTP
// layer maps each kind to a status code.
//
// Authorization and not-found errors are terminal and surfaced verbatim.
// State-conflict errors mean the operation is a no-op against current state;
// callers may treat them as idempotent success where appropriate.
// DecryptionTimedOut is the only retryable crypto error: request a fresh
// grant and try again.
var (
	// Authorization errors. Never retried automatically.
	ErrNotAuthorizedIssuer   = errors.New("caller is not an authorized issuer")
	ErrNotAuthorizedVerifier = errors.New("caller is not the designated verifier")
	ErrNotHolder             = errors.New("caller is not the certificate holder")
	ErrNotOwner              = errors.New("caller is not the registry owner")

	// Not-found errors. Terminal.
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrRequestNotFound     = errors.New("verification request not found")
	ErrIssuerNotFound      = errors.New("issuer not found")

	// State-conflict errors. The operation is a no-op against current state.
	ErrAlreadyProcessed  = errors.New("verification request already processed")
	ErrAlreadyRevoked    = errors.New("certificate already revoked")
	ErrAlreadyRegistered = errors.New("issuer already registered")

	// CertificateRevoked rejects operations on a revoked certificate other
	// than revocation itself (which surfaces AlreadyRevoked).
	ErrCertificateRevoked = errors.New("certificate is revoked")

	// Proof and crypto errors.
	ErrInvalidProof       = errors.New("input proof verification failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrDecryptionTimedOut = errors.New("decryption timed out")
	ErrGrantExpired       = errors.New("access grant outside validity window")
	ErrInvalidSignature   = errors.New("signature does not match requester")

	// Infrastructure errors.
	ErrSubmissionFailed = errors.New("ledger submission failed")
	ErrFinalityTimeout  = errors.New("timed out waiting for ledger finality")
)
