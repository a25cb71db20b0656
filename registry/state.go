package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// Config fixes the deployment policy of a registry instance.
type Config struct {
	// Owner may authorize issuers and revoke any certificate.
	Owner interfaces.AccountAddress

	// Verifier adjudicates every verification request. The registry uses a
	// single registry-wide verifier; the per-certificate Verifier field in
	// query results echoes it.
	Verifier interfaces.AccountAddress

	// AutoAuthorizeIssuers authorizes issuers at registration time. When
	// false, issuers stay pending until the owner authorizes them.
	AutoAuthorizeIssuers bool
}

// StateMachine holds the authoritative registry state and applies finalized
// transitions. It is the exclusive owner of issuer, certificate and
// verification-request records: every mutation passes through
// ApplyTransition, one transition at a time, in ledger order. Reads take the
// read lock and observe only fully applied transitions.
type StateMachine struct {
	mu  sync.RWMutex
	cfg Config

	issuers  map[interfaces.AccountAddress]interfaces.Issuer
	certs    []interfaces.Certificate
	requests []interfaces.VerificationRequest

	// Counters are the allocation high-water marks. The arena invariant is
	// nextCertID == len(certs) and nextRequestID == len(requests); both
	// advance only inside a successfully applied transition.
	nextCertID    uint64
	nextRequestID uint64

	proofVerifier interfaces.ProofVerifier
	log           *slog.Logger
}

// NewStateMachine creates an empty state machine with the given policy.
func NewStateMachine(cfg Config, proofVerifier interfaces.ProofVerifier, log *slog.Logger) *StateMachine {
	return &StateMachine{
		cfg:           cfg,
		issuers:       make(map[interfaces.AccountAddress]interfaces.Issuer),
		proofVerifier: proofVerifier,
		log:           log,
	}
}

// ApplyTransition validates and applies one finalized transition. Rejection
// leaves the state, including both counters, untouched.
func (m *StateMachine) ApplyTransition(seq uint64, tx interfaces.Transition) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch tx.Kind {
	case KindRegisterIssuer:
		var p registerIssuerPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyRegisterIssuer(tx.Sender, p)

	case KindAuthorizeIssuer:
		var p authorizeIssuerPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyAuthorizeIssuer(tx.Sender, p)

	case KindIssueCertificate:
		var p issueCertificatePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		id, err := m.applyIssueCertificate(tx.Sender, p)
		if err != nil {
			return nil, err
		}
		return encodeIDResult(uint64(id)), nil

	case KindRequestVerification:
		var p requestVerificationPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		id, err := m.applyRequestVerification(tx.Sender, p)
		if err != nil {
			return nil, err
		}
		return encodeIDResult(uint64(id)), nil

	case KindProcessVerification:
		var p processVerificationPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyProcessVerification(tx.Sender, p)

	case KindRevokeCertificate:
		var p revokeCertificatePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyRevokeCertificate(tx.Sender, p)

	case KindEncryptData:
		var p encryptDataPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyEncryptData(tx.Sender, p)

	case KindUpdateEncrypted:
		var p updateEncryptedPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", tx.Kind, err)
		}
		return nil, m.applyUpdateEncrypted(tx.Sender, p)

	default:
		return nil, fmt.Errorf("unknown transition kind %q", tx.Kind)
	}
}

func (m *StateMachine) applyRegisterIssuer(sender interfaces.AccountAddress, p registerIssuerPayload) error {
	if _, exists := m.issuers[sender]; exists {
		return interfaces.ErrAlreadyRegistered
	}

	m.issuers[sender] = interfaces.Issuer{
		Address:      sender,
		Name:         p.Name,
		Description:  p.Description,
		IsAuthorized: m.cfg.AutoAuthorizeIssuers,
	}

	m.log.Info("Issuer registered",
		slog.String("issuer", sender.String()),
		slog.String("name", p.Name),
		slog.Bool("authorized", m.cfg.AutoAuthorizeIssuers))
	return nil
}

func (m *StateMachine) applyAuthorizeIssuer(sender interfaces.AccountAddress, p authorizeIssuerPayload) error {
	if sender != m.cfg.Owner {
		return interfaces.ErrNotOwner
	}

	issuer, exists := m.issuers[p.Issuer]
	if !exists {
		return interfaces.ErrIssuerNotFound
	}

	issuer.IsAuthorized = p.Authorized
	m.issuers[p.Issuer] = issuer

	m.log.Info("Issuer authorization updated",
		slog.String("issuer", p.Issuer.String()),
		slog.Bool("authorized", p.Authorized))
	return nil
}

func (m *StateMachine) applyIssueCertificate(sender interfaces.AccountAddress, p issueCertificatePayload) (interfaces.CertID, error) {
	issuer, exists := m.issuers[sender]
	if !exists || !issuer.IsAuthorized {
		return 0, interfaces.ErrNotAuthorizedIssuer
	}

	handles := []interfaces.CiphertextHandle{p.EncIssueDate, p.EncExpiry, p.EncScore, p.EncGrade}
	if !m.proofVerifier.VerifyInputProof(handles, p.Proof, sender) {
		return 0, interfaces.ErrInvalidProof
	}

	id := interfaces.CertID(m.nextCertID)
	m.certs = append(m.certs, interfaces.Certificate{
		ID:            id,
		Issuer:        sender,
		Holder:        p.Holder,
		CertType:      p.CertType,
		Title:         p.Title,
		Institution:   p.Institution,
		Description:   p.Description,
		MetadataHash:  p.MetadataHash,
		EncIssueDate:  p.EncIssueDate,
		EncExpiryDate: p.EncExpiry,
		EncScore:      p.EncScore,
		EncGrade:      p.EncGrade,
		IsVerified:    false,
		Status:        interfaces.CertificateActive,
		Verifier:      m.cfg.Verifier,
	})
	m.nextCertID++

	m.log.Info("Certificate issued",
		slog.Uint64("certId", uint64(id)),
		slog.String("issuer", sender.String()),
		slog.String("holder", p.Holder.String()),
		slog.String("certType", p.CertType))
	return id, nil
}

func (m *StateMachine) applyRequestVerification(sender interfaces.AccountAddress, p requestVerificationPayload) (interfaces.RequestID, error) {
	cert, err := m.certLocked(p.CertID)
	if err != nil {
		return 0, err
	}
	if cert.Status == interfaces.CertificateRevoked {
		return 0, interfaces.ErrCertificateRevoked
	}

	id := interfaces.RequestID(m.nextRequestID)
	m.requests = append(m.requests, interfaces.VerificationRequest{
		ID:               id,
		CertID:           p.CertID,
		Requester:        sender,
		VerificationHash: p.VerificationHash,
		Status:           interfaces.RequestPending,
	})
	m.nextRequestID++

	m.log.Info("Verification requested",
		slog.Uint64("requestId", uint64(id)),
		slog.Uint64("certId", uint64(p.CertID)),
		slog.String("requester", sender.String()))
	return id, nil
}

func (m *StateMachine) applyProcessVerification(sender interfaces.AccountAddress, p processVerificationPayload) error {
	if uint64(p.RequestID) >= m.nextRequestID {
		return interfaces.ErrRequestNotFound
	}
	request := &m.requests[p.RequestID]

	cert, err := m.certLocked(request.CertID)
	if err != nil {
		return err
	}
	if cert.Status == interfaces.CertificateRevoked {
		return interfaces.ErrCertificateRevoked
	}
	if sender != cert.Verifier {
		return interfaces.ErrNotAuthorizedVerifier
	}
	if request.Status != interfaces.RequestPending {
		return interfaces.ErrAlreadyProcessed
	}

	if p.Approve {
		request.Status = interfaces.RequestApproved
		m.certs[request.CertID].IsVerified = true
	} else {
		request.Status = interfaces.RequestRejected
	}

	m.log.Info("Verification processed",
		slog.Uint64("requestId", uint64(p.RequestID)),
		slog.Uint64("certId", uint64(request.CertID)),
		slog.Bool("approved", p.Approve))
	return nil
}

func (m *StateMachine) applyRevokeCertificate(sender interfaces.AccountAddress, p revokeCertificatePayload) error {
	cert, err := m.certLocked(p.CertID)
	if err != nil {
		return err
	}
	if sender != cert.Issuer && sender != m.cfg.Owner {
		return interfaces.ErrNotAuthorizedIssuer
	}
	if cert.Status == interfaces.CertificateRevoked {
		return interfaces.ErrAlreadyRevoked
	}

	m.certs[p.CertID].Status = interfaces.CertificateRevoked

	m.log.Info("Certificate revoked",
		slog.Uint64("certId", uint64(p.CertID)),
		slog.String("by", sender.String()))
	return nil
}

func (m *StateMachine) applyEncryptData(sender interfaces.AccountAddress, p encryptDataPayload) error {
	cert, err := m.certLocked(p.CertID)
	if err != nil {
		return err
	}
	if sender != cert.Issuer && sender != m.cfg.Owner {
		return interfaces.ErrNotAuthorizedIssuer
	}
	if cert.Status == interfaces.CertificateRevoked {
		return interfaces.ErrAlreadyRevoked
	}

	m.certs[p.CertID].EncScore = p.EncScore
	m.certs[p.CertID].EncGrade = p.EncGrade
	m.certs[p.CertID].MetadataHash = p.DataHash

	m.log.Info("Certificate encrypted data attached",
		slog.Uint64("certId", uint64(p.CertID)))
	return nil
}

func (m *StateMachine) applyUpdateEncrypted(sender interfaces.AccountAddress, p updateEncryptedPayload) error {
	cert, err := m.certLocked(p.CertID)
	if err != nil {
		return err
	}
	if sender != cert.Issuer && sender != m.cfg.Owner {
		return interfaces.ErrNotAuthorizedIssuer
	}
	if cert.Status == interfaces.CertificateRevoked {
		return interfaces.ErrAlreadyRevoked
	}
	// Revocation only happens through its own transition, which is what
	// makes AlreadyRevoked observable there.
	if p.NewStatus == interfaces.CertificateRevoked {
		return fmt.Errorf("status update cannot revoke; use %s", KindRevokeCertificate)
	}

	m.certs[p.CertID].Status = p.NewStatus
	m.certs[p.CertID].EncScore = p.EncData

	m.log.Info("Certificate updated with encrypted data",
		slog.Uint64("certId", uint64(p.CertID)),
		slog.String("status", p.NewStatus.String()))
	return nil
}

// certLocked fetches a certificate by id. Caller holds at least the read
// lock.
func (m *StateMachine) certLocked(id interfaces.CertID) (interfaces.Certificate, error) {
	if uint64(id) >= m.nextCertID {
		return interfaces.Certificate{}, interfaces.ErrCertificateNotFound
	}
	return m.certs[id], nil
}

// IssuerByAddress returns the issuer record, or ErrIssuerNotFound.
func (m *StateMachine) IssuerByAddress(addr interfaces.AccountAddress) (interfaces.Issuer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issuer, exists := m.issuers[addr]
	if !exists {
		return interfaces.Issuer{}, interfaces.ErrIssuerNotFound
	}
	return issuer, nil
}

// CertificateByID returns a copy of the certificate record, or
// ErrCertificateNotFound.
func (m *StateMachine) CertificateByID(id interfaces.CertID) (interfaces.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.certLocked(id)
}

// RequestByID returns a copy of the verification request record, or
// ErrRequestNotFound.
func (m *StateMachine) RequestByID(id interfaces.RequestID) (interfaces.VerificationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if uint64(id) >= m.nextRequestID {
		return interfaces.VerificationRequest{}, interfaces.ErrRequestNotFound
	}
	return m.requests[id], nil
}

// CertCounter returns the certificate allocation high-water mark. With
// zero-based dense ids this equals both the next id and the number of
// certificates issued.
func (m *StateMachine) CertCounter() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextCertID
}

// RequestCounter returns the request allocation high-water mark.
func (m *StateMachine) RequestCounter() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextRequestID
}

// Owner returns the registry owner address.
func (m *StateMachine) Owner() interfaces.AccountAddress {
	return m.cfg.Owner
}

// Verifier returns the registry-wide verifier address.
func (m *StateMachine) Verifier() interfaces.AccountAddress {
	return m.cfg.Verifier
}
