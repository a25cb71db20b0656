package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// Transition kinds understood by the state machine.
const (
	KindRegisterIssuer      = "register_issuer"
	KindAuthorizeIssuer     = "authorize_issuer"
	KindIssueCertificate    = "issue_certificate"
	KindRequestVerification = "request_verification"
	KindProcessVerification = "process_verification"
	KindRevokeCertificate   = "revoke_certificate"
	KindEncryptData         = "encrypt_certificate_data"
	KindUpdateEncrypted     = "update_certificate_encrypted"
)

type registerIssuerPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type authorizeIssuerPayload struct {
	Issuer     interfaces.AccountAddress `json:"issuer"`
	Authorized bool                      `json:"authorized"`
}

type issueCertificatePayload struct {
	Holder       interfaces.AccountAddress   `json:"holder"`
	CertType     string                      `json:"cert_type"`
	Title        string                      `json:"title"`
	Institution  string                      `json:"institution"`
	Description  string                      `json:"description"`
	MetadataHash interfaces.ContentID        `json:"metadata_hash"`
	EncIssueDate interfaces.CiphertextHandle `json:"enc_issue_date"`
	EncExpiry    interfaces.CiphertextHandle `json:"enc_expiry_date"`
	EncScore     interfaces.CiphertextHandle `json:"enc_score"`
	EncGrade     interfaces.CiphertextHandle `json:"enc_grade"`
	Proof        []byte                      `json:"proof"`
}

type requestVerificationPayload struct {
	CertID           interfaces.CertID    `json:"cert_id"`
	VerificationHash interfaces.ContentID `json:"verification_hash"`
}

type processVerificationPayload struct {
	RequestID interfaces.RequestID `json:"request_id"`
	Approve   bool                 `json:"approve"`
}

type revokeCertificatePayload struct {
	CertID interfaces.CertID `json:"cert_id"`
}

type encryptDataPayload struct {
	CertID   interfaces.CertID           `json:"cert_id"`
	EncScore interfaces.CiphertextHandle `json:"enc_score"`
	EncGrade interfaces.CiphertextHandle `json:"enc_grade"`
	DataHash interfaces.ContentID        `json:"data_hash"`
}

type updateEncryptedPayload struct {
	CertID    interfaces.CertID            `json:"cert_id"`
	NewStatus interfaces.CertificateStatus `json:"new_status"`
	EncData   interfaces.CiphertextHandle  `json:"enc_data"`
}

// encodeTransition builds a ledger transition from a payload struct.
func encodeTransition(kind string, sender interfaces.AccountAddress, payload any, idempotencyKey string) (interfaces.Transition, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return interfaces.Transition{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}

	return interfaces.Transition{
		Kind:           kind,
		Sender:         sender,
		Payload:        raw,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// encodeIDResult and decodeIDResult carry an allocated id through a receipt.
func encodeIDResult(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func decodeIDResult(result []byte) (uint64, error) {
	if len(result) != 8 {
		return 0, fmt.Errorf("malformed id result: %d bytes", len(result))
	}
	return binary.BigEndian.Uint64(result), nil
}
