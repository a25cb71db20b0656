package accesscontrol

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// stubSnapshot serves a fixed set of certificates.
type stubSnapshot struct {
	certs map[interfaces.CertID]interfaces.Certificate
}

func (s *stubSnapshot) IssuerByAddress(addr interfaces.AccountAddress) (interfaces.Issuer, error) {
	return interfaces.Issuer{}, interfaces.ErrIssuerNotFound
}

func (s *stubSnapshot) CertificateByID(id interfaces.CertID) (interfaces.Certificate, error) {
	cert, ok := s.certs[id]
	if !ok {
		return interfaces.Certificate{}, interfaces.ErrCertificateNotFound
	}
	return cert, nil
}

func (s *stubSnapshot) RequestByID(id interfaces.RequestID) (interfaces.VerificationRequest, error) {
	return interfaces.VerificationRequest{}, interfaces.ErrRequestNotFound
}

func (s *stubSnapshot) CertCounter() uint64    { return uint64(len(s.certs)) }
func (s *stubSnapshot) RequestCounter() uint64 { return 0 }

func testAddr(b byte) interfaces.AccountAddress {
	var a interfaces.AccountAddress
	a[19] = b
	return a
}

func testHandle(b byte) interfaces.CiphertextHandle {
	var h interfaces.CiphertextHandle
	h[31] = b
	return h
}

func newTestEvaluator(certs map[interfaces.CertID]interfaces.Certificate) *Evaluator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEvaluator(&stubSnapshot{certs: certs}, testAddr(0xAA), log)
}

func fullCert(holder interfaces.AccountAddress) interfaces.Certificate {
	return interfaces.Certificate{
		ID:            0,
		Holder:        holder,
		EncIssueDate:  testHandle(1),
		EncExpiryDate: testHandle(2),
		EncScore:      testHandle(3),
		EncGrade:      testHandle(4),
	}
}

func TestRequestDecryptionAllFields(t *testing.T) {
	holder := testAddr(0x20)
	e := newTestEvaluator(map[interfaces.CertID]interfaces.Certificate{0: fullCert(holder)})

	frozen := time.Unix(1700000000, 0)
	e.WithClock(func() time.Time { return frozen })

	spec, err := e.RequestDecryption(holder, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, holder, spec.Requester)
	assert.Equal(t, testAddr(0xAA), spec.Scope)
	assert.Equal(t, frozen.Unix(), spec.StartTime)
	assert.Equal(t, uint32(DefaultGrantDurationDays), spec.DurationDays)

	// Empty field set expands to all four encrypted fields.
	assert.Equal(t, []interfaces.CiphertextHandle{
		testHandle(3), testHandle(4), testHandle(1), testHandle(2),
	}, spec.Handles)
}

func TestRequestDecryptionSelectedFields(t *testing.T) {
	holder := testAddr(0x20)
	e := newTestEvaluator(map[interfaces.CertID]interfaces.Certificate{0: fullCert(holder)})

	spec, err := e.RequestDecryption(holder, 0, []interfaces.EncryptedField{interfaces.FieldScore, interfaces.FieldExpiryDate})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.CiphertextHandle{testHandle(3), testHandle(2)}, spec.Handles)
}

func TestRequestDecryptionNonHolder(t *testing.T) {
	e := newTestEvaluator(map[interfaces.CertID]interfaces.Certificate{0: fullCert(testAddr(0x20))})

	_, err := e.RequestDecryption(testAddr(0x99), 0, nil)
	require.ErrorIs(t, err, interfaces.ErrNotHolder)
}

func TestRequestDecryptionUnknownCertificate(t *testing.T) {
	e := newTestEvaluator(nil)

	_, err := e.RequestDecryption(testAddr(0x20), 42, nil)
	require.ErrorIs(t, err, interfaces.ErrCertificateNotFound)
}

func TestRequestDecryptionInvalidField(t *testing.T) {
	holder := testAddr(0x20)
	e := newTestEvaluator(map[interfaces.CertID]interfaces.Certificate{0: fullCert(holder)})

	_, err := e.RequestDecryption(holder, 0, []interfaces.EncryptedField{"salary"})
	require.Error(t, err)
}

func TestRequestDecryptionMissingHandle(t *testing.T) {
	holder := testAddr(0x20)
	cert := fullCert(holder)
	cert.EncGrade = interfaces.CiphertextHandle{}
	e := newTestEvaluator(map[interfaces.CertID]interfaces.Certificate{0: cert})

	_, err := e.RequestDecryption(holder, 0, []interfaces.EncryptedField{interfaces.FieldGrade})
	require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)

	// The remaining fields are still grantable.
	spec, err := e.RequestDecryption(holder, 0, []interfaces.EncryptedField{interfaces.FieldScore})
	require.NoError(t, err)
	assert.Len(t, spec.Handles, 1)
}
