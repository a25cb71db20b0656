// Package interfaces defines the core types and capability interfaces of the
// certificate registry system. It provides the contract between components
// without implementation details.
package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AccountAddress identifies an issuer, holder, verifier or the registry owner.
type AccountAddress [20]byte

// NewAccountAddressFromBytes creates an account address from a 20-byte slice.
func NewAccountAddressFromBytes(addr []byte) (AccountAddress, error) {
	if len(addr) != 20 {
		return AccountAddress{}, errors.New("invalid address length: must be 20 bytes")
	}

	var res AccountAddress
	copy(res[:], addr)
	return res, nil
}

// NewAccountAddressFromHex creates an account address from a hex string,
// with or without the 0x prefix.
func NewAccountAddressFromHex(addr string) (AccountAddress, error) {
	clean := strings.TrimPrefix(addr, "0x")
	if len(clean) != 40 {
		return AccountAddress{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return AccountAddress{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewAccountAddressFromBytes(addrBytes)
}

// String returns the 0x-prefixed hex representation of the address.
func (addr AccountAddress) String() string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Bytes returns the raw 20-byte address.
func (addr AccountAddress) Bytes() []byte {
	return addr[:]
}

// Equal compares two account addresses for equality.
func (addr AccountAddress) Equal(other AccountAddress) bool {
	return addr == other
}

// IsZero reports whether the address is the zero address.
func (addr AccountAddress) IsZero() bool {
	return addr == AccountAddress{}
}

// ContentID is a 32-byte SHA-256 hash uniquely identifying content in the
// artifact store. A certificate's metadataHash is a ContentID.
type ContentID [32]byte

// NewContentIDFromBytes creates a content ID from a 32-byte slice.
func NewContentIDFromBytes(source []byte) (ContentID, error) {
	if len(source) != 32 {
		return ContentID{}, errors.New("invalid ContentID conversion from bytes: incorrect length")
	}

	var hash [32]byte
	copy(hash[:], source)
	return ContentID(hash), nil
}

// NewContentIDFromHex creates a content ID from a hex string, with or
// without the 0x prefix.
func NewContentIDFromHex(source string) (ContentID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentID{}, errors.New("invalid content ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash [32]byte
	copy(hash[:], hashBytes)
	return ContentID(hash), nil
}

// ComputeContentID calculates the content ID of data.
func ComputeContentID(data []byte) ContentID {
	hash := sha256.Sum256(data)
	return ContentID(hash)
}

// String returns the hex representation.
func (id ContentID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte hash.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Equal compares two content IDs.
func (id ContentID) Equal(other ContentID) bool {
	return bytes.Equal(id[:], other[:])
}

// CiphertextHandle is an opaque 32-byte reference to an encrypted value held
// by the confidential compute service. Handles are safe to store and
// transmit; they reveal nothing about the plaintext.
type CiphertextHandle [32]byte

// NewCiphertextHandleFromHex creates a handle from a hex string, with or
// without the 0x prefix.
func NewCiphertextHandleFromHex(source string) (CiphertextHandle, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return CiphertextHandle{}, errors.New("invalid handle length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return CiphertextHandle{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var h CiphertextHandle
	copy(h[:], raw)
	return h, nil
}

// String returns the 0x-prefixed hex representation of the handle.
func (h CiphertextHandle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns the raw 32-byte handle.
func (h CiphertextHandle) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the handle is unset.
func (h CiphertextHandle) IsZero() bool {
	return h == CiphertextHandle{}
}

// CertID identifies a certificate. Ids are dense and zero-based: the first
// certificate issued by a registry is certificate 0, and the registry's
// certificate counter equals the next id to be allocated.
type CertID uint64

// RequestID identifies a verification request. Allocated from an independent
// zero-based counter.
type RequestID uint64

// CertificateStatus is the lifecycle state of a certificate.
type CertificateStatus uint8

const (
	// CertificateActive is the initial state of every issued certificate.
	CertificateActive CertificateStatus = iota
	// CertificateExpired marks a certificate past its encrypted expiry date.
	CertificateExpired
	// CertificateRevoked is terminal; no transition leaves it.
	CertificateRevoked
)

// String returns the status name.
func (s CertificateStatus) String() string {
	switch s {
	case CertificateActive:
		return "active"
	case CertificateExpired:
		return "expired"
	case CertificateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// RequestStatus is the lifecycle state of a verification request.
type RequestStatus uint8

const (
	// RequestPending is the initial state of a verification request.
	RequestPending RequestStatus = iota
	// RequestApproved is terminal; it also marks the certificate verified.
	RequestApproved
	// RequestRejected is terminal.
	RequestRejected
)

// String returns the status name.
func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestApproved:
		return "approved"
	case RequestRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Issuer is an issuing entity registered with the registry.
type Issuer struct {
	Address      AccountAddress
	Name         string
	Description  string
	IsAuthorized bool
}

// Certificate is the full registry record of an issued certificate. The four
// encrypted fields are ciphertext handles, never plaintext.
type Certificate struct {
	ID           CertID
	Issuer       AccountAddress
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

	IsVerified bool
	Status     CertificateStatus
	Verifier   AccountAddress
}

// VerificationRequest is a pending or resolved request to verify a
// certificate claim.
type VerificationRequest struct {
	ID               RequestID
	CertID           CertID
	Requester        AccountAddress
	VerificationHash ContentID
	Status           RequestStatus
}

// EncryptedField names one of a certificate's encrypted fields.
type EncryptedField string

const (
	FieldScore      EncryptedField = "score"
	FieldGrade      EncryptedField = "grade"
	FieldIssueDate  EncryptedField = "issueDate"
	FieldExpiryDate EncryptedField = "expiryDate"
)

// Valid reports whether the field name is one of the four encrypted fields.
func (f EncryptedField) Valid() bool {
	switch f {
	case FieldScore, FieldGrade, FieldIssueDate, FieldExpiryDate:
		return true
	default:
		return false
	}
}

// Handle resolves the field to its ciphertext handle on a certificate.
func (f EncryptedField) Handle(cert *Certificate) CiphertextHandle {
	switch f {
	case FieldScore:
		return cert.EncScore
	case FieldGrade:
		return cert.EncGrade
	case FieldIssueDate:
		return cert.EncIssueDate
	case FieldExpiryDate:
		return cert.EncExpiryDate
	default:
		return CiphertextHandle{}
	}
}
