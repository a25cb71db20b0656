package interfaces

import "context"

// IssueParams carries everything an issuer submits to mint a certificate.
// The four handles must come from one encrypted-input batch whose proof was
// constructed for (registry scope, issuer).
type IssueParams struct {
	Holder       AccountAddress
	CertType     string
	Title        string
	Institution  string
	Description  string
	MetadataHash ContentID

	EncIssueDate  CiphertextHandle
	EncExpiryDate CiphertextHandle
	EncScore      CiphertextHandle
	EncGrade      CiphertextHandle
	Proof         []byte
}

// CertificateRegistry is the write surface of the registry state machine.
// Every operation is a validated state transition, atomically accepted or
// rejected; effects become visible to readers only at ledger finality.
//
// Retry discipline: operations that allocate an id (IssueCertificate,
// RequestVerification) are not safe to retry blind — a retried submission
// after an unobserved commit would allocate a second id. The remaining
// operations are naturally idempotent in the sense that a replay surfaces a
// state-conflict error (AlreadyRegistered, AlreadyProcessed, AlreadyRevoked)
// rather than corrupting state.
type CertificateRegistry interface {
	// RegisterIssuer self-registers the caller as an issuer. Authorization
	// follows deployment policy: auto-authorized, or pending an
	// AuthorizeIssuer call by the registry owner.
	RegisterIssuer(ctx context.Context, caller AccountAddress, name, description string) error

	// AuthorizeIssuer flips an issuer's authorization bit. Owner only.
	AuthorizeIssuer(ctx context.Context, caller AccountAddress, issuer AccountAddress, authorized bool) error

	// IssueCertificate mints a certificate for params.Holder and returns the
	// allocated id. The caller must be an authorized issuer and the input
	// proof must validate.
	IssueCertificate(ctx context.Context, caller AccountAddress, params IssueParams) (CertID, error)

	// RequestVerification opens a verification request against an existing,
	// non-revoked certificate and returns the allocated request id.
	RequestVerification(ctx context.Context, caller AccountAddress, certID CertID, verificationHash ContentID) (RequestID, error)

	// ProcessVerification resolves a pending request. Registry verifier
	// only. Approval marks the certificate verified.
	ProcessVerification(ctx context.Context, caller AccountAddress, requestID RequestID, approve bool) error

	// RevokeCertificate terminally revokes a certificate. Certificate
	// issuer or registry owner only.
	RevokeCertificate(ctx context.Context, caller AccountAddress, certID CertID) error

	// EncryptCertificateData attaches late-bound encrypted score and grade
	// amendments. Same authorization discipline as RevokeCertificate.
	EncryptCertificateData(ctx context.Context, caller AccountAddress, certID CertID, encScore, encGrade CiphertextHandle, dataHash ContentID) error

	// UpdateCertificateWithEncryptedData updates certificate status together
	// with an encrypted attachment. Same authorization discipline as
	// RevokeCertificate.
	UpdateCertificateWithEncryptedData(ctx context.Context, caller AccountAddress, certID CertID, newStatus CertificateStatus, encData CiphertextHandle) error
}

// RegistrySnapshot is the read surface over the latest finalized state.
// Reads are all-or-nothing: no partially applied transition is ever visible.
type RegistrySnapshot interface {
	// IssuerByAddress returns the issuer record, or ErrIssuerNotFound.
	IssuerByAddress(addr AccountAddress) (Issuer, error)

	// CertificateByID returns the certificate record, or
	// ErrCertificateNotFound.
	CertificateByID(id CertID) (Certificate, error)

	// RequestByID returns the verification request record, or
	// ErrRequestNotFound.
	RequestByID(id RequestID) (VerificationRequest, error)

	// CertCounter returns the certificate allocation high-water mark.
	CertCounter() uint64

	// RequestCounter returns the request allocation high-water mark.
	RequestCounter() uint64
}
