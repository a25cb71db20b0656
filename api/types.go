package api

import (
	"github.com/certvault/certificate-registry-backend/interfaces"
)

// SignatureHeader carries the caller's secp256k1 signature over the request
// digest (keccak256 of path and body, EIP-191 prefixed). The server recovers
// the caller address from it; requests without a valid signature are
// rejected on authenticated routes.
const SignatureHeader = "X-Certvault-Signature"

// RegisterIssuerRequest registers the caller as an issuing institution.
type RegisterIssuerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AuthorizeIssuerRequest authorizes a registered issuer. Owner only.
type AuthorizeIssuerRequest struct {
	Issuer interfaces.AccountAddress `json:"issuer"`
}

// IssueCertificateRequest issues a certificate to a holder. The confidential
// fields are plaintext here; the server encrypts them under the registry
// scope with the caller as input owner and submits handles plus input proof.
type IssueCertificateRequest struct {
	Holder       interfaces.AccountAddress `json:"holder"`
	CertType     string                    `json:"cert_type"`
	Title        string                    `json:"title"`
	Institution  string                    `json:"institution"`
	Description  string                    `json:"description"`
	MetadataHash interfaces.ContentID      `json:"metadata_hash"`

	IssueDate  uint32 `json:"issue_date"`
	ExpiryDate uint32 `json:"expiry_date"`
	Score      uint32 `json:"score"`
	Grade      uint32 `json:"grade"`
}

// IssueCertificateResponse returns the allocated certificate id.
type IssueCertificateResponse struct {
	CertID interfaces.CertID `json:"cert_id"`
}

// RequestVerificationRequest opens a verification request for a certificate.
type RequestVerificationRequest struct {
	VerificationHash interfaces.ContentID `json:"verification_hash"`
}

// RequestVerificationResponse returns the allocated request id.
type RequestVerificationResponse struct {
	RequestID interfaces.RequestID `json:"request_id"`
}

// ProcessVerificationRequest decides a pending verification request.
// Verifier only.
type ProcessVerificationRequest struct {
	Approve bool `json:"approve"`
}

// EncryptDataRequest attaches freshly encrypted score and grade values to an
// existing certificate. Issuer only.
type EncryptDataRequest struct {
	Score    uint32               `json:"score"`
	Grade    uint32               `json:"grade"`
	DataHash interfaces.ContentID `json:"data_hash"`
}

// UpdateEncryptedRequest amends a certificate's status together with a
// re-encrypted data value. Issuer only; Revoked is not a valid target
// status (use the revoke endpoint).
type UpdateEncryptedRequest struct {
	NewStatus interfaces.CertificateStatus `json:"new_status"`
	Data      uint32                       `json:"data"`
}

// DecryptionGrantRequest asks for a time-boxed decryption grant on a
// certificate's encrypted fields. Holder only. Empty fields means all.
type DecryptionGrantRequest struct {
	CertID interfaces.CertID          `json:"cert_id"`
	Fields []interfaces.EncryptedField `json:"fields,omitempty"`
}

// DecryptionGrantResponse carries the grant spec the requester must sign
// and the exact digest to sign.
type DecryptionGrantResponse struct {
	Grant  GrantSpec `json:"grant"`
	Digest string    `json:"digest"` // 0x-prefixed, 32 bytes
}

// GrantSpec is the wire form of an access grant.
type GrantSpec struct {
	Requester    interfaces.AccountAddress    `json:"requester"`
	Scope        interfaces.AccountAddress    `json:"scope"`
	Handles      []interfaces.CiphertextHandle `json:"handles"`
	StartTime    uint64                       `json:"start_time"`
	DurationDays uint32                       `json:"duration_days"`
}

// DecryptRequest redeems a signed grant for plaintext values. CertID names
// the certificate the grant was issued for; the server re-checks that the
// grant's requester is still the certificate holder and that every handle
// in the grant belongs to that certificate.
type DecryptRequest struct {
	CertID    interfaces.CertID `json:"cert_id"`
	Grant     GrantSpec         `json:"grant"`
	Signature string            `json:"signature"` // 0x-prefixed, 65 bytes
}

// DecryptResponse maps each granted handle to its plaintext value.
type DecryptResponse struct {
	Values map[string]uint32 `json:"values"` // handle hex -> value
}

// IssuerResponse is the public issuer record. Registered is false and the
// remaining fields are zero when the address never registered.
type IssuerResponse struct {
	Address      interfaces.AccountAddress `json:"address"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description"`
	IsAuthorized bool                      `json:"is_authorized"`
	Registered   bool                      `json:"registered"`
}

// CertificateResponse is the public certificate record. Confidential fields
// appear only as ciphertext handles via the encrypted-data endpoint.
type CertificateResponse struct {
	CertID       interfaces.CertID            `json:"cert_id"`
	Holder       interfaces.AccountAddress    `json:"holder"`
	Issuer       interfaces.AccountAddress    `json:"issuer"`
	CertType     string                       `json:"cert_type"`
	Title        string                       `json:"title"`
	Institution  string                       `json:"institution"`
	Description  string                       `json:"description"`
	MetadataHash interfaces.ContentID         `json:"metadata_hash"`
	Status       interfaces.CertificateStatus `json:"status"`
	IsVerified   bool                         `json:"is_verified"`
	Verifier     interfaces.AccountAddress    `json:"verifier"`
}

// EncryptedDataResponse returns the four ciphertext handles of a
// certificate. Handles are opaque; holding one conveys no plaintext.
type EncryptedDataResponse struct {
	CertID        interfaces.CertID           `json:"cert_id"`
	EncIssueDate  interfaces.CiphertextHandle `json:"enc_issue_date"`
	EncExpiryDate interfaces.CiphertextHandle `json:"enc_expiry_date"`
	EncScore      interfaces.CiphertextHandle `json:"enc_score"`
	EncGrade      interfaces.CiphertextHandle `json:"enc_grade"`
}

// VerificationRequestResponse is the public verification request record.
type VerificationRequestResponse struct {
	RequestID        interfaces.RequestID     `json:"request_id"`
	CertID           interfaces.CertID        `json:"cert_id"`
	Requester        interfaces.AccountAddress `json:"requester"`
	VerificationHash interfaces.ContentID     `json:"verification_hash"`
	Status           interfaces.RequestStatus `json:"status"`
}

// VerifyCertificateResponse reports whether a certificate exists.
type VerifyCertificateResponse struct {
	CertID interfaces.CertID `json:"cert_id"`
	Exists bool              `json:"exists"`
}

// CertCounterResponse returns the certificate allocation high-water mark.
type CertCounterResponse struct {
	CertCounter uint64 `json:"cert_counter"`
}

// HolderCertificatesResponse lists a holder's certificates in ascending
// cert id order.
type HolderCertificatesResponse struct {
	Holder       interfaces.AccountAddress `json:"holder"`
	Certificates []CertificateResponse     `json:"certificates"`
}

// PutDocumentResponse returns the content id of an uploaded artifact and
// the location URI of the store that accepted it.
type PutDocumentResponse struct {
	ContentID interfaces.ContentID `json:"content_id"`
	Location  string               `json:"location"`
}
