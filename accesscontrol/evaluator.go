// Package accesscontrol decides who may decrypt which certificate fields.
// The evaluator performs no cryptography: it only authorizes which ciphertext
// handles may be bundled into a grant request and stamps the validity window.
package accesscontrol

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/certvault/certificate-registry-backend/interfaces"
	"github.com/certvault/certificate-registry-backend/metrics"
)

// DefaultGrantDurationDays is the policy constant for grant validity.
const DefaultGrantDurationDays = 10

// Evaluator authorizes decryption grant requests against registry state.
// Only the certificate holder may request decryption of its encrypted
// fields; a non-holder is rejected before any ciphertext handle is resolved.
type Evaluator struct {
	snapshot     interfaces.RegistrySnapshot
	scope        interfaces.AccountAddress
	durationDays uint32
	now          func() time.Time
	log          *slog.Logger
}

// NewEvaluator creates an evaluator bound to the registry's scope address,
// the address ciphertext handles were constructed for.
func NewEvaluator(snapshot interfaces.RegistrySnapshot, scope interfaces.AccountAddress, log *slog.Logger) *Evaluator {
	return &Evaluator{
		snapshot:     snapshot,
		scope:        scope,
		durationDays: DefaultGrantDurationDays,
		now:          time.Now,
		log:          log,
	}
}

// WithClock replaces the time source. Used by tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// RequestDecryption authorizes a grant spec for the requested fields of one
// certificate. The requester must be the certificate's holder. An empty
// field set requests all four encrypted fields.
func (e *Evaluator) RequestDecryption(requester interfaces.AccountAddress, certID interfaces.CertID, fields []interfaces.EncryptedField) (interfaces.AccessGrantSpec, error) {
	cert, err := e.snapshot.CertificateByID(certID)
	if err != nil {
		metrics.IncGrantDenied()
		return interfaces.AccessGrantSpec{}, err
	}

	// The ownership check comes before any handle is touched: a non-holder
	// learns nothing about the certificate's ciphertext handles.
	if requester != cert.Holder {
		metrics.IncGrantDenied()
		e.log.Info("Decryption denied",
			slog.Uint64("certId", uint64(certID)),
			slog.String("requester", requester.String()))
		return interfaces.AccessGrantSpec{}, interfaces.ErrNotHolder
	}

	if len(fields) == 0 {
		fields = []interfaces.EncryptedField{
			interfaces.FieldScore,
			interfaces.FieldGrade,
			interfaces.FieldIssueDate,
			interfaces.FieldExpiryDate,
		}
	}

	handles := make([]interfaces.CiphertextHandle, 0, len(fields))
	for _, field := range fields {
		if !field.Valid() {
			metrics.IncGrantDenied()
			return interfaces.AccessGrantSpec{}, fmt.Errorf("unknown encrypted field %q", field)
		}
		handle := field.Handle(&cert)
		if handle.IsZero() {
			metrics.IncGrantDenied()
			return interfaces.AccessGrantSpec{}, fmt.Errorf("%w: field %s has no attached ciphertext", interfaces.ErrDecryptionFailed, field)
		}
		handles = append(handles, handle)
	}

	metrics.IncGrantIssued()
	return interfaces.AccessGrantSpec{
		Requester:    requester,
		Scope:        e.scope,
		Handles:      handles,
		StartTime:    e.now().Unix(),
		DurationDays: e.durationDays,
	}, nil
}
