package query

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// stubSnapshot serves fixed records for read-path tests.
type stubSnapshot struct {
	issuers  map[interfaces.AccountAddress]interfaces.Issuer
	certs    []interfaces.Certificate
	requests []interfaces.VerificationRequest
}

func (s *stubSnapshot) IssuerByAddress(addr interfaces.AccountAddress) (interfaces.Issuer, error) {
	issuer, ok := s.issuers[addr]
	if !ok {
		return interfaces.Issuer{}, interfaces.ErrIssuerNotFound
	}
	return issuer, nil
}

func (s *stubSnapshot) CertificateByID(id interfaces.CertID) (interfaces.Certificate, error) {
	if uint64(id) >= uint64(len(s.certs)) {
		return interfaces.Certificate{}, interfaces.ErrCertificateNotFound
	}
	return s.certs[id], nil
}

func (s *stubSnapshot) RequestByID(id interfaces.RequestID) (interfaces.VerificationRequest, error) {
	if uint64(id) >= uint64(len(s.requests)) {
		return interfaces.VerificationRequest{}, interfaces.ErrRequestNotFound
	}
	return s.requests[id], nil
}

func (s *stubSnapshot) CertCounter() uint64    { return uint64(len(s.certs)) }
func (s *stubSnapshot) RequestCounter() uint64 { return uint64(len(s.requests)) }

func testAddr(b byte) interfaces.AccountAddress {
	var a interfaces.AccountAddress
	a[19] = b
	return a
}

func newTestService(snap *stubSnapshot) *Service {
	return NewService(snap, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func cert(id interfaces.CertID, issuer, holder interfaces.AccountAddress) interfaces.Certificate {
	return interfaces.Certificate{
		ID:       id,
		Issuer:   issuer,
		Holder:   holder,
		CertType: "degree",
		Title:    "BSc",
		Status:   interfaces.CertificateActive,
		Verifier: testAddr(0x02),
	}
}

func TestGetIssuerInfo(t *testing.T) {
	registered := testAddr(0x10)
	s := newTestService(&stubSnapshot{
		issuers: map[interfaces.AccountAddress]interfaces.Issuer{
			registered: {Address: registered, Name: "University", IsAuthorized: true},
		},
	})

	info := s.GetIssuerInfo(registered)
	assert.True(t, info.Registered)
	assert.True(t, info.IsAuthorized)
	assert.Equal(t, "University", info.Name)

	// Unknown addresses yield the zero record, not an error.
	info = s.GetIssuerInfo(testAddr(0x99))
	assert.False(t, info.Registered)
	assert.False(t, info.IsAuthorized)
	assert.Empty(t, info.Name)
	assert.Equal(t, testAddr(0x99), info.Address)
}

func TestGetCertificateInfo(t *testing.T) {
	s := newTestService(&stubSnapshot{
		certs: []interfaces.Certificate{cert(0, testAddr(0x10), testAddr(0x20))},
	})

	info, err := s.GetCertificateInfo(0)
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertID(0), info.CertID)
	assert.Equal(t, testAddr(0x10), info.Issuer)
	assert.Equal(t, testAddr(0x20), info.Holder)
	assert.Equal(t, testAddr(0x02), info.Verifier)

	_, err = s.GetCertificateInfo(1)
	require.ErrorIs(t, err, interfaces.ErrCertificateNotFound)
}

func TestGetCertificateEncryptedData(t *testing.T) {
	c := cert(0, testAddr(0x10), testAddr(0x20))
	c.EncScore[31] = 3
	c.EncGrade[31] = 4
	s := newTestService(&stubSnapshot{certs: []interfaces.Certificate{c}})

	data, err := s.GetCertificateEncryptedData(0)
	require.NoError(t, err)
	assert.Equal(t, c.EncScore, data.EncScore)
	assert.Equal(t, c.EncGrade, data.EncGrade)

	_, err = s.GetCertificateEncryptedData(7)
	require.ErrorIs(t, err, interfaces.ErrCertificateNotFound)
}

func TestVerifyCertificate(t *testing.T) {
	s := newTestService(&stubSnapshot{
		certs: []interfaces.Certificate{cert(0, testAddr(0x10), testAddr(0x20))},
	})

	assert.True(t, s.VerifyCertificate(0))
	assert.False(t, s.VerifyCertificate(1))
}

func TestGetRequestInfo(t *testing.T) {
	s := newTestService(&stubSnapshot{
		requests: []interfaces.VerificationRequest{
			{ID: 0, CertID: 3, Requester: testAddr(0x30), Status: interfaces.RequestPending},
		},
	})

	req, err := s.GetRequestInfo(0)
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertID(3), req.CertID)

	_, err = s.GetRequestInfo(1)
	require.ErrorIs(t, err, interfaces.ErrRequestNotFound)
}

func TestListCertificatesForHolder(t *testing.T) {
	holderA := testAddr(0x20)
	holderB := testAddr(0x21)

	revoked := cert(2, testAddr(0x10), holderA)
	revoked.Status = interfaces.CertificateRevoked

	s := newTestService(&stubSnapshot{
		certs: []interfaces.Certificate{
			cert(0, testAddr(0x10), holderA),
			cert(1, testAddr(0x10), holderB),
			revoked,
		},
	})

	got := s.ListCertificatesForHolder(holderA)
	require.Len(t, got, 2)
	assert.Equal(t, interfaces.CertID(0), got[0].CertID)
	assert.Equal(t, interfaces.CertID(2), got[1].CertID, "ascending id order")
	assert.Equal(t, interfaces.CertificateRevoked, got[1].Status, "revoked certificates stay listed")

	assert.Len(t, s.ListCertificatesForHolder(holderB), 1)
	assert.Empty(t, s.ListCertificatesForHolder(testAddr(0x99)))
}

func TestGetCertCounter(t *testing.T) {
	s := newTestService(&stubSnapshot{
		certs: []interfaces.Certificate{cert(0, testAddr(0x10), testAddr(0x20))},
	})
	assert.Equal(t, uint64(1), s.GetCertCounter())
}
