package httpserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certificate-registry-backend/accesscontrol"
	"github.com/certvault/certificate-registry-backend/api"
	"github.com/certvault/certificate-registry-backend/clients"
	"github.com/certvault/certificate-registry-backend/fhe"
	"github.com/certvault/certificate-registry-backend/interfaces"
	"github.com/certvault/certificate-registry-backend/ledger"
	"github.com/certvault/certificate-registry-backend/query"
	"github.com/certvault/certificate-registry-backend/registry"
	"github.com/certvault/certificate-registry-backend/storage"
)

// testEnv runs a fully wired server over httptest: in-memory ledger with
// synchronous finality, a real compute engine and a file-backed artifact
// store.
type testEnv struct {
	ts *httptest.Server

	ownerKey    *ecdsa.PrivateKey
	verifierKey *ecdsa.PrivateKey
	issuerKey   *ecdsa.PrivateKey
	holderKey   *ecdsa.PrivateKey
}

func addrOf(key *ecdsa.PrivateKey) interfaces.AccountAddress {
	var a interfaces.AccountAddress
	copy(a[:], crypto.PubkeyToAddress(key.PublicKey).Bytes())
	return a
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ownerKey:    mustKey(t),
		verifierKey: mustKey(t),
		issuerKey:   mustKey(t),
		holderKey:   mustKey(t),
	}

	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	engine, err := fhe.NewSimpleFHE(seed)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	scope := interfaces.AccountAddress{0xAA}

	machine := registry.NewStateMachine(registry.Config{
		Owner:                addrOf(env.ownerKey),
		Verifier:             addrOf(env.verifierKey),
		AutoAuthorizeIssuers: false,
	}, engine, log)

	ldg := ledger.NewMemoryLedger(0, log)
	ldg.SetApplier(machine)
	reg := registry.New(machine, ldg, log)

	store, err := storage.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)

	handler := NewHandler(
		reg,
		accesscontrol.NewEvaluator(reg.Snapshot(), scope, log),
		engine,
		query.NewService(reg.Snapshot(), log),
		store,
		scope,
		log,
	)

	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      log,
		DrainDuration:            time.Second,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             10 * time.Second,
	}, handler)
	require.NoError(t, err)

	env.ts = httptest.NewServer(srv.getRouter())
	t.Cleanup(env.ts.Close)
	return env
}

func (env *testEnv) client(key *ecdsa.PrivateKey) *clients.RegistryClient {
	return &clients.RegistryClient{ServerAddr: env.ts.URL, Key: key}
}

// registerAndAuthorize brings the test issuer to authorized state.
func (env *testEnv) registerAndAuthorize(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.client(env.issuerKey).RegisterIssuer(ctx, "Test University", "issues degrees"))
	require.NoError(t, env.client(env.ownerKey).AuthorizeIssuer(ctx, addrOf(env.issuerKey)))
}

func (env *testEnv) issue(t *testing.T, holder interfaces.AccountAddress) interfaces.CertID {
	t.Helper()
	certID, err := env.client(env.issuerKey).IssueCertificate(context.Background(), api.IssueCertificateRequest{
		Holder:      holder,
		CertType:    "degree",
		Title:       "BSc Computer Science",
		Institution: "Test University",
		IssueDate:   20240601,
		ExpiryDate:  20340601,
		Score:       85,
		Grade:       90,
	})
	require.NoError(t, err)
	return certID
}

func TestServerEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	holder := addrOf(env.holderKey)

	env.registerAndAuthorize(t)

	issuerInfo, err := env.client(nil).GetIssuerInfo(ctx, addrOf(env.issuerKey))
	require.NoError(t, err)
	assert.True(t, issuerInfo.Registered)
	assert.True(t, issuerInfo.IsAuthorized)
	assert.Equal(t, "Test University", issuerInfo.Name)

	certID := env.issue(t, holder)
	assert.Equal(t, interfaces.CertID(0), certID)

	counter, err := env.client(nil).GetCertCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)

	info, err := env.client(nil).GetCertificateInfo(ctx, certID)
	require.NoError(t, err)
	assert.Equal(t, holder, info.Holder)
	assert.Equal(t, addrOf(env.issuerKey), info.Issuer)
	assert.Equal(t, interfaces.CertificateActive, info.Status)
	assert.False(t, info.IsVerified)

	exists, err := env.client(nil).VerifyCertificate(ctx, certID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Holder decrypts all four fields.
	encData, err := env.client(nil).GetCertificateEncryptedData(ctx, certID)
	require.NoError(t, err)

	holderClient := env.client(env.holderKey)
	grant, err := holderClient.RequestDecryptionGrant(ctx, certID, nil)
	require.NoError(t, err)
	require.Len(t, grant.Grant.Handles, 4)

	values, err := holderClient.Decrypt(ctx, certID, grant)
	require.NoError(t, err)
	assert.Equal(t, uint32(20240601), values[encData.EncIssueDate.String()])
	assert.Equal(t, uint32(20340601), values[encData.EncExpiryDate.String()])
	assert.Equal(t, uint32(85), values[encData.EncScore.String()])
	assert.Equal(t, uint32(90), values[encData.EncGrade.String()])

	// Verification round.
	requesterClient := env.client(mustKey(t))
	reqID, err := requesterClient.RequestVerification(ctx, certID, interfaces.ComputeContentID([]byte("claim")))
	require.NoError(t, err)

	reqInfo, err := env.client(nil).GetRequestInfo(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, certID, reqInfo.CertID)
	assert.Equal(t, interfaces.RequestPending, reqInfo.Status)

	require.NoError(t, env.client(env.verifierKey).ProcessVerification(ctx, reqID, true))

	info, err = env.client(nil).GetCertificateInfo(ctx, certID)
	require.NoError(t, err)
	assert.True(t, info.IsVerified)

	certs, err := env.client(nil).ListCertificatesForHolder(ctx, holder)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, certID, certs[0].CertID)

	// Revocation is terminal; the replay maps to a conflict.
	require.NoError(t, env.client(env.issuerKey).RevokeCertificate(ctx, certID))

	err = env.client(env.issuerKey).RevokeCertificate(ctx, certID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	info, err = env.client(nil).GetCertificateInfo(ctx, certID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.CertificateRevoked, info.Status)
}

func TestServerAuthentication(t *testing.T) {
	env := newTestEnv(t)

	body, err := json.Marshal(api.RegisterIssuerRequest{Name: "X"})
	require.NoError(t, err)

	// No signature header.
	resp, err := http.Post(env.ts.URL+"/api/registry/issuers", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage signature.
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/registry/issuers", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(api.SignatureHeader, "0xdeadbeef")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The digest binds the path: the owner's signature over one endpoint
	// does not recover to the owner on another, so the replay cannot act
	// with the owner's authority.
	authBody, err := json.Marshal(api.AuthorizeIssuerRequest{Issuer: addrOf(env.issuerKey)})
	require.NoError(t, err)
	sig, err := api.SignRequest("/api/registry/issuers", authBody, env.ownerKey)
	require.NoError(t, err)

	req, err = http.NewRequest(http.MethodPost, env.ts.URL+"/api/registry/issuers/authorize", bytes.NewReader(authBody))
	require.NoError(t, err)
	req.Header.Set(api.SignatureHeader, "0x"+hex.EncodeToString(sig))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServerAuthorizationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Unregistered issuer cannot issue.
	_, err := env.client(env.issuerKey).IssueCertificate(ctx, api.IssueCertificateRequest{
		Holder: addrOf(env.holderKey),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	// Non-owner cannot authorize.
	require.NoError(t, env.client(env.issuerKey).RegisterIssuer(ctx, "Test University", ""))
	err = env.client(env.issuerKey).AuthorizeIssuer(ctx, addrOf(env.issuerKey))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	// Duplicate registration conflicts.
	err = env.client(env.issuerKey).RegisterIssuer(ctx, "Test University", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestServerDecryptionAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerAndAuthorize(t)
	certID := env.issue(t, addrOf(env.holderKey))

	strangerKey := mustKey(t)

	// Only the holder gets a grant.
	_, err := env.client(strangerKey).RequestDecryptionGrant(ctx, certID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	// A signature by anyone but the grant's requester fails redemption.
	grant, err := env.client(env.holderKey).RequestDecryptionGrant(ctx, certID, []interfaces.EncryptedField{interfaces.FieldScore})
	require.NoError(t, err)

	_, err = env.client(strangerKey).Decrypt(ctx, certID, grant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestServerDecryptForeignHandleRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerAndAuthorize(t)
	certID := env.issue(t, addrOf(env.holderKey))
	otherCertID := env.issue(t, addrOf(mustKey(t)))

	otherData, err := env.client(nil).GetCertificateEncryptedData(ctx, otherCertID)
	require.NoError(t, err)

	grant, err := env.client(env.holderKey).RequestDecryptionGrant(ctx, certID, []interfaces.EncryptedField{interfaces.FieldScore})
	require.NoError(t, err)

	// Swap in a handle from someone else's certificate. The server must
	// reject before any decryption happens, signature or not.
	grant.Grant.Handles = []interfaces.CiphertextHandle{otherData.EncScore}
	_, err = env.client(env.holderKey).Decrypt(ctx, certID, grant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestServerDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issuerClient := env.client(env.issuerKey)

	doc := []byte("%PDF-1.4 test certificate document")
	resp, err := issuerClient.PutDocument(ctx, doc, "application/pdf", interfaces.DocumentKind)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeContentID(doc), resp.ContentID)

	got, err := issuerClient.GetDocument(ctx, resp.ContentID, interfaces.DocumentKind)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// Kinds are separate namespaces.
	_, err = issuerClient.GetDocument(ctx, resp.ContentID, interfaces.MetadataKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	meta := []byte(`{"degree":"BSc"}`)
	metaResp, err := issuerClient.PutDocument(ctx, meta, "text/plain", interfaces.MetadataKind)
	require.NoError(t, err)

	gotMeta, err := issuerClient.GetDocument(ctx, metaResp.ContentID, interfaces.MetadataKind)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)

	// Unsupported content type.
	_, err = issuerClient.PutDocument(ctx, doc, "application/zip", interfaces.DocumentKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "415")

	// Oversized upload.
	_, err = issuerClient.PutDocument(ctx, bytes.Repeat([]byte{0x42}, maxDocumentSize+1), "application/pdf", interfaces.DocumentKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")

	// Uploads are authenticated.
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/registry/documents", bytes.NewReader(doc))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/pdf")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode)

	// Unknown content id.
	_, err = issuerClient.GetDocument(ctx, interfaces.ComputeContentID([]byte("missing")), interfaces.DocumentKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestServerPublicReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reader := env.client(nil)

	// Unknown issuer yields the zero record, not an error.
	info, err := reader.GetIssuerInfo(ctx, addrOf(mustKey(t)))
	require.NoError(t, err)
	assert.False(t, info.Registered)

	// Unknown certificate is a 404.
	_, err = reader.GetCertificateInfo(ctx, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	exists, err := reader.VerifyCertificate(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exists)

	counter, err := reader.GetCertCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), counter)

	certs, err := reader.ListCertificatesForHolder(ctx, addrOf(env.holderKey))
	require.NoError(t, err)
	assert.Empty(t, certs)
}

func TestServerHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(env.ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(env.ts.URL + "/drain")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/undrain")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
