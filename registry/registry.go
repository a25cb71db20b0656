package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/certvault/certificate-registry-backend/interfaces"
	"github.com/certvault/certificate-registry-backend/metrics"
)

// DefaultFinalityTimeout bounds waiting for ledger finality when the caller
// supplies no deadline.
const DefaultFinalityTimeout = 60 * time.Second

// Registry is the caller-facing write surface of the state machine. It
// validates operations against the latest finalized state, submits them as
// ledger transitions, and reports the outcome observed at finality.
//
// Each logical call carries a fresh idempotency key, so a retried submission
// of the same call cannot commit twice; a retried *call* of an id-allocating
// operation is a new allocation by design.
type Registry struct {
	machine         *StateMachine
	ledger          interfaces.Ledger
	log             *slog.Logger
	finalityTimeout time.Duration
}

// New creates a registry facade over the given state machine and ledger.
func New(machine *StateMachine, ledger interfaces.Ledger, log *slog.Logger) *Registry {
	return &Registry{
		machine:         machine,
		ledger:          ledger,
		log:             log,
		finalityTimeout: DefaultFinalityTimeout,
	}
}

// WithFinalityTimeout overrides the default finality wait bound.
func (r *Registry) WithFinalityTimeout(d time.Duration) *Registry {
	r.finalityTimeout = d
	return r
}

// Snapshot exposes the read surface over the latest finalized state.
func (r *Registry) Snapshot() interfaces.RegistrySnapshot {
	return r.machine
}

// RegisterIssuer self-registers the caller as an issuer.
func (r *Registry) RegisterIssuer(ctx context.Context, caller interfaces.AccountAddress, name, description string) error {
	if _, err := r.machine.IssuerByAddress(caller); err == nil {
		return interfaces.ErrAlreadyRegistered
	}

	_, err := r.commit(ctx, KindRegisterIssuer, caller, registerIssuerPayload{
		Name:        name,
		Description: description,
	})
	return err
}

// AuthorizeIssuer flips an issuer's authorization bit. Owner only.
func (r *Registry) AuthorizeIssuer(ctx context.Context, caller interfaces.AccountAddress, issuer interfaces.AccountAddress, authorized bool) error {
	if caller != r.machine.Owner() {
		return interfaces.ErrNotOwner
	}

	_, err := r.commit(ctx, KindAuthorizeIssuer, caller, authorizeIssuerPayload{
		Issuer:     issuer,
		Authorized: authorized,
	})
	return err
}

// IssueCertificate mints a certificate and returns the allocated id.
func (r *Registry) IssueCertificate(ctx context.Context, caller interfaces.AccountAddress, params interfaces.IssueParams) (interfaces.CertID, error) {
	issuer, err := r.machine.IssuerByAddress(caller)
	if err != nil || !issuer.IsAuthorized {
		return 0, interfaces.ErrNotAuthorizedIssuer
	}

	receipt, err := r.commit(ctx, KindIssueCertificate, caller, issueCertificatePayload{
		Holder:       params.Holder,
		CertType:     params.CertType,
		Title:        params.Title,
		Institution:  params.Institution,
		Description:  params.Description,
		MetadataHash: params.MetadataHash,
		EncIssueDate: params.EncIssueDate,
		EncExpiry:    params.EncExpiryDate,
		EncScore:     params.EncScore,
		EncGrade:     params.EncGrade,
		Proof:        params.Proof,
	})
	if err != nil {
		return 0, err
	}

	id, err := decodeIDResult(receipt.Result)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrSubmissionFailed, err)
	}
	return interfaces.CertID(id), nil
}

// RequestVerification opens a verification request for a certificate.
func (r *Registry) RequestVerification(ctx context.Context, caller interfaces.AccountAddress, certID interfaces.CertID, verificationHash interfaces.ContentID) (interfaces.RequestID, error) {
	cert, err := r.machine.CertificateByID(certID)
	if err != nil {
		return 0, err
	}
	if cert.Status == interfaces.CertificateRevoked {
		return 0, interfaces.ErrCertificateRevoked
	}

	receipt, err := r.commit(ctx, KindRequestVerification, caller, requestVerificationPayload{
		CertID:           certID,
		VerificationHash: verificationHash,
	})
	if err != nil {
		return 0, err
	}

	id, err := decodeIDResult(receipt.Result)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrSubmissionFailed, err)
	}
	return interfaces.RequestID(id), nil
}

// ProcessVerification resolves a pending request. Verifier only.
func (r *Registry) ProcessVerification(ctx context.Context, caller interfaces.AccountAddress, requestID interfaces.RequestID, approve bool) error {
	_, err := r.commit(ctx, KindProcessVerification, caller, processVerificationPayload{
		RequestID: requestID,
		Approve:   approve,
	})
	return err
}

// RevokeCertificate terminally revokes a certificate.
func (r *Registry) RevokeCertificate(ctx context.Context, caller interfaces.AccountAddress, certID interfaces.CertID) error {
	_, err := r.commit(ctx, KindRevokeCertificate, caller, revokeCertificatePayload{
		CertID: certID,
	})
	return err
}

// EncryptCertificateData attaches late-bound encrypted amendments.
func (r *Registry) EncryptCertificateData(ctx context.Context, caller interfaces.AccountAddress, certID interfaces.CertID, encScore, encGrade interfaces.CiphertextHandle, dataHash interfaces.ContentID) error {
	_, err := r.commit(ctx, KindEncryptData, caller, encryptDataPayload{
		CertID:   certID,
		EncScore: encScore,
		EncGrade: encGrade,
		DataHash: dataHash,
	})
	return err
}

// UpdateCertificateWithEncryptedData updates status with an encrypted
// attachment.
func (r *Registry) UpdateCertificateWithEncryptedData(ctx context.Context, caller interfaces.AccountAddress, certID interfaces.CertID, newStatus interfaces.CertificateStatus, encData interfaces.CiphertextHandle) error {
	_, err := r.commit(ctx, KindUpdateEncrypted, caller, updateEncryptedPayload{
		CertID:    certID,
		NewStatus: newStatus,
		EncData:   encData,
	})
	return err
}

// commit encodes, submits and awaits finality of one transition.
func (r *Registry) commit(ctx context.Context, kind string, sender interfaces.AccountAddress, payload any) (interfaces.Receipt, error) {
	tx, err := encodeTransition(kind, sender, payload, uuid.NewString())
	if err != nil {
		return interfaces.Receipt{}, fmt.Errorf("%w: %v", interfaces.ErrSubmissionFailed, err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.finalityTimeout)
		defer cancel()
	}

	handle, err := r.ledger.Submit(ctx, tx)
	if err != nil {
		metrics.IncTransitionRejected(kind)
		return interfaces.Receipt{}, err
	}

	receipt, err := r.ledger.AwaitFinality(ctx, handle)
	if err != nil {
		metrics.IncTransitionRejected(kind)
		r.log.Debug("Transition rejected",
			slog.String("kind", kind),
			slog.String("sender", sender.String()),
			"err", err)
		return interfaces.Receipt{}, err
	}

	metrics.IncTransitionApplied(kind)
	return receipt, nil
}
