// Package query answers point and range queries over finalized registry
// state. Every read observes a consistent snapshot: no partially applied
// transition is ever visible, and reads never block writers.
package query

import (
	"errors"
	"log/slog"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// IssuerInfo is the query record for an issuer. Querying an unregistered
// address yields the zero record with Registered=false, not an error.
type IssuerInfo struct {
	Address      interfaces.AccountAddress `json:"address"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description"`
	IsAuthorized bool                      `json:"is_authorized"`
	Registered   bool                      `json:"registered"`
}

// CertificateInfo is the query record for a certificate: the full record
// minus plaintext. Encrypted fields appear as handles only.
type CertificateInfo struct {
	CertID       interfaces.CertID            `json:"cert_id"`
	Issuer       interfaces.AccountAddress    `json:"issuer"`
	Holder       interfaces.AccountAddress    `json:"holder"`
	CertType     string                       `json:"cert_type"`
	Title        string                       `json:"title"`
	Institution  string                       `json:"institution"`
	Description  string                       `json:"description"`
	MetadataHash interfaces.ContentID         `json:"metadata_hash"`
	IsVerified   bool                         `json:"is_verified"`
	Status       interfaces.CertificateStatus `json:"status"`
	Verifier     interfaces.AccountAddress    `json:"verifier"`
}

// EncryptedData is the handle bundle of a certificate's encrypted fields.
type EncryptedData struct {
	CertID        interfaces.CertID           `json:"cert_id"`
	EncScore      interfaces.CiphertextHandle `json:"enc_score"`
	EncGrade      interfaces.CiphertextHandle `json:"enc_grade"`
	EncIssueDate  interfaces.CiphertextHandle `json:"enc_issue_date"`
	EncExpiryDate interfaces.CiphertextHandle `json:"enc_expiry_date"`
}

// Service serves the registry's read path.
type Service struct {
	snapshot interfaces.RegistrySnapshot
	log      *slog.Logger
}

// NewService creates a query service over the given snapshot.
func NewService(snapshot interfaces.RegistrySnapshot, log *slog.Logger) *Service {
	return &Service{snapshot: snapshot, log: log}
}

// GetIssuerInfo returns the issuer record for an address. An absent issuer
// returns the zero record, not an error.
func (s *Service) GetIssuerInfo(addr interfaces.AccountAddress) IssuerInfo {
	issuer, err := s.snapshot.IssuerByAddress(addr)
	if err != nil {
		return IssuerInfo{Address: addr}
	}

	return IssuerInfo{
		Address:      issuer.Address,
		Name:         issuer.Name,
		Description:  issuer.Description,
		IsAuthorized: issuer.IsAuthorized,
		Registered:   true,
	}
}

// GetCertificateInfo returns the certificate record, handles excluded.
func (s *Service) GetCertificateInfo(id interfaces.CertID) (CertificateInfo, error) {
	cert, err := s.snapshot.CertificateByID(id)
	if err != nil {
		return CertificateInfo{}, err
	}
	return certInfo(cert), nil
}

// GetCertificateEncryptedData returns the four ciphertext handles of a
// certificate. Handles only; plaintext requires a decryption grant.
func (s *Service) GetCertificateEncryptedData(id interfaces.CertID) (EncryptedData, error) {
	cert, err := s.snapshot.CertificateByID(id)
	if err != nil {
		return EncryptedData{}, err
	}

	return EncryptedData{
		CertID:        cert.ID,
		EncScore:      cert.EncScore,
		EncGrade:      cert.EncGrade,
		EncIssueDate:  cert.EncIssueDate,
		EncExpiryDate: cert.EncExpiryDate,
	}, nil
}

// VerifyCertificate reports whether a certificate exists. Mirrors the
// original existence check: a certificate exists iff its issuer is set.
func (s *Service) VerifyCertificate(id interfaces.CertID) bool {
	cert, err := s.snapshot.CertificateByID(id)
	if err != nil {
		return false
	}
	return !cert.Issuer.IsZero()
}

// GetRequestInfo returns a verification request record.
func (s *Service) GetRequestInfo(id interfaces.RequestID) (interfaces.VerificationRequest, error) {
	return s.snapshot.RequestByID(id)
}

// GetCertCounter returns the certificate allocation high-water mark.
func (s *Service) GetCertCounter() uint64 {
	return s.snapshot.CertCounter()
}

// ListCertificatesForHolder returns every certificate held by the address,
// in ascending certificate id order. The scan is bounded by the counter;
// a failed per-item lookup is logged and skipped, so results may be partial
// under concurrent pruning. Availability over completeness.
func (s *Service) ListCertificatesForHolder(holder interfaces.AccountAddress) []CertificateInfo {
	total := s.snapshot.CertCounter()
	results := make([]CertificateInfo, 0)

	for i := uint64(0); i < total; i++ {
		cert, err := s.snapshot.CertificateByID(interfaces.CertID(i))
		if err != nil {
			if !errors.Is(err, interfaces.ErrCertificateNotFound) {
				s.log.Warn("Certificate lookup failed during holder scan",
					slog.Uint64("certId", i),
					"err", err)
			}
			continue
		}
		if cert.Holder == holder {
			results = append(results, certInfo(cert))
		}
	}

	return results
}

func certInfo(cert interfaces.Certificate) CertificateInfo {
	return CertificateInfo{
		CertID:       cert.ID,
		Issuer:       cert.Issuer,
		Holder:       cert.Holder,
		CertType:     cert.CertType,
		Title:        cert.Title,
		Institution:  cert.Institution,
		Description:  cert.Description,
		MetadataHash: cert.MetadataHash,
		IsVerified:   cert.IsVerified,
		Status:       cert.Status,
		Verifier:     cert.Verifier,
	}
}
