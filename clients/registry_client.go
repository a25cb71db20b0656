package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certvault/certificate-registry-backend/api"
	"github.com/certvault/certificate-registry-backend/interfaces"
)

// RegistryClient is a typed HTTP client for the certificate registry
// service. Write operations are signed with the client's key; the server
// derives the caller address from the signature.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server
	ServerAddr string

	// Key signs authenticated requests. May be nil for read-only use.
	Key *ecdsa.PrivateKey

	// HTTPClient defaults to http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Address returns the account address of the client's signing key.
func (c *RegistryClient) Address() (interfaces.AccountAddress, error) {
	if c.Key == nil {
		return interfaces.AccountAddress{}, fmt.Errorf("no signing key configured")
	}
	return interfaces.NewAccountAddressFromBytes(crypto.PubkeyToAddress(c.Key.PublicKey).Bytes())
}

// RegisterIssuer registers the caller as an issuing institution.
func (c *RegistryClient) RegisterIssuer(ctx context.Context, name, description string) error {
	return c.postSigned(ctx, "/api/registry/issuers", api.RegisterIssuerRequest{
		Name:        name,
		Description: description,
	}, nil)
}

// AuthorizeIssuer authorizes a registered issuer. Owner only.
func (c *RegistryClient) AuthorizeIssuer(ctx context.Context, issuer interfaces.AccountAddress) error {
	return c.postSigned(ctx, "/api/registry/issuers/authorize", api.AuthorizeIssuerRequest{
		Issuer: issuer,
	}, nil)
}

// IssueCertificate mints a certificate and returns the allocated id.
func (c *RegistryClient) IssueCertificate(ctx context.Context, req api.IssueCertificateRequest) (interfaces.CertID, error) {
	var resp api.IssueCertificateResponse
	if err := c.postSigned(ctx, "/api/registry/certificates", req, &resp); err != nil {
		return 0, err
	}
	return resp.CertID, nil
}

// RequestVerification opens a verification request for a certificate.
func (c *RegistryClient) RequestVerification(ctx context.Context, certID interfaces.CertID, verificationHash interfaces.ContentID) (interfaces.RequestID, error) {
	var resp api.RequestVerificationResponse
	path := fmt.Sprintf("/api/registry/certificates/%d/verification-requests", certID)
	if err := c.postSigned(ctx, path, api.RequestVerificationRequest{VerificationHash: verificationHash}, &resp); err != nil {
		return 0, err
	}
	return resp.RequestID, nil
}

// ProcessVerification decides a pending verification request. Verifier only.
func (c *RegistryClient) ProcessVerification(ctx context.Context, requestID interfaces.RequestID, approve bool) error {
	path := fmt.Sprintf("/api/registry/verification-requests/%d/process", requestID)
	return c.postSigned(ctx, path, api.ProcessVerificationRequest{Approve: approve}, nil)
}

// RevokeCertificate terminally revokes a certificate.
func (c *RegistryClient) RevokeCertificate(ctx context.Context, certID interfaces.CertID) error {
	path := fmt.Sprintf("/api/registry/certificates/%d/revoke", certID)
	return c.postSigned(ctx, path, nil, nil)
}

// EncryptCertificateData attaches re-encrypted score and grade values.
func (c *RegistryClient) EncryptCertificateData(ctx context.Context, certID interfaces.CertID, req api.EncryptDataRequest) error {
	path := fmt.Sprintf("/api/registry/certificates/%d/encrypted-data", certID)
	return c.postSigned(ctx, path, req, nil)
}

// UpdateCertificateStatus amends certificate status with an encrypted
// attachment.
func (c *RegistryClient) UpdateCertificateStatus(ctx context.Context, certID interfaces.CertID, req api.UpdateEncryptedRequest) error {
	path := fmt.Sprintf("/api/registry/certificates/%d/status", certID)
	return c.postSigned(ctx, path, req, nil)
}

// RequestDecryptionGrant asks for a decryption grant on a certificate's
// encrypted fields. Holder only.
func (c *RegistryClient) RequestDecryptionGrant(ctx context.Context, certID interfaces.CertID, fields []interfaces.EncryptedField) (api.DecryptionGrantResponse, error) {
	var resp api.DecryptionGrantResponse
	err := c.postSigned(ctx, "/api/access/decryption-grants", api.DecryptionGrantRequest{
		CertID: certID,
		Fields: fields,
	}, &resp)
	return resp, err
}

// Decrypt signs the grant digest and redeems the grant for plaintexts.
func (c *RegistryClient) Decrypt(ctx context.Context, certID interfaces.CertID, grant api.DecryptionGrantResponse) (map[string]uint32, error) {
	if c.Key == nil {
		return nil, fmt.Errorf("no signing key configured")
	}

	digest, err := hexDecode(grant.Digest)
	if err != nil || len(digest) != 32 {
		return nil, fmt.Errorf("invalid grant digest: %s", grant.Digest)
	}

	sig, err := crypto.Sign(digest, c.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign grant digest: %w", err)
	}

	var resp api.DecryptResponse
	err = c.post(ctx, "/api/access/decrypt", api.DecryptRequest{
		CertID:    certID,
		Grant:     grant.Grant,
		Signature: "0x" + hex.EncodeToString(sig),
	}, &resp, false)
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// GetIssuerInfo fetches the public issuer record.
func (c *RegistryClient) GetIssuerInfo(ctx context.Context, addr interfaces.AccountAddress) (api.IssuerResponse, error) {
	var resp api.IssuerResponse
	err := c.get(ctx, fmt.Sprintf("/api/public/issuers/%s", addr.String()), &resp)
	return resp, err
}

// GetCertificateInfo fetches the public certificate record.
func (c *RegistryClient) GetCertificateInfo(ctx context.Context, certID interfaces.CertID) (api.CertificateResponse, error) {
	var resp api.CertificateResponse
	err := c.get(ctx, fmt.Sprintf("/api/public/certificates/%d", certID), &resp)
	return resp, err
}

// GetCertificateEncryptedData fetches the certificate's ciphertext handles.
func (c *RegistryClient) GetCertificateEncryptedData(ctx context.Context, certID interfaces.CertID) (api.EncryptedDataResponse, error) {
	var resp api.EncryptedDataResponse
	err := c.get(ctx, fmt.Sprintf("/api/public/certificates/%d/encrypted-data", certID), &resp)
	return resp, err
}

// VerifyCertificate reports whether a certificate exists.
func (c *RegistryClient) VerifyCertificate(ctx context.Context, certID interfaces.CertID) (bool, error) {
	var resp api.VerifyCertificateResponse
	if err := c.get(ctx, fmt.Sprintf("/api/public/certificates/%d/verify", certID), &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// GetRequestInfo fetches a verification request record.
func (c *RegistryClient) GetRequestInfo(ctx context.Context, requestID interfaces.RequestID) (api.VerificationRequestResponse, error) {
	var resp api.VerificationRequestResponse
	err := c.get(ctx, fmt.Sprintf("/api/public/verification-requests/%d", requestID), &resp)
	return resp, err
}

// GetCertCounter fetches the certificate allocation high-water mark.
func (c *RegistryClient) GetCertCounter(ctx context.Context) (uint64, error) {
	var resp api.CertCounterResponse
	if err := c.get(ctx, "/api/public/cert-counter", &resp); err != nil {
		return 0, err
	}
	return resp.CertCounter, nil
}

// ListCertificatesForHolder lists a holder's certificates.
func (c *RegistryClient) ListCertificatesForHolder(ctx context.Context, holder interfaces.AccountAddress) ([]api.CertificateResponse, error) {
	var resp api.HolderCertificatesResponse
	if err := c.get(ctx, fmt.Sprintf("/api/public/holders/%s/certificates", holder.String()), &resp); err != nil {
		return nil, err
	}
	return resp.Certificates, nil
}

// PutDocument uploads a document or metadata artifact and returns its
// content id.
func (c *RegistryClient) PutDocument(ctx context.Context, data []byte, contentType string, kind interfaces.ArtifactKind) (api.PutDocumentResponse, error) {
	var resp api.PutDocumentResponse

	path := "/api/registry/documents"
	if kind == interfaces.MetadataKind {
		path += "?kind=metadata"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+path, bytes.NewReader(data))
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", contentType)

	if err := c.signRequest(req, "/api/registry/documents", data); err != nil {
		return resp, err
	}

	return resp, c.do(req, &resp)
}

// GetDocument fetches an artifact by content id.
func (c *RegistryClient) GetDocument(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	path := fmt.Sprintf("/api/public/documents/%x", id[:])
	if kind == interfaces.MetadataKind {
		path += "?kind=metadata"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request document endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("document endpoint returned error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return io.ReadAll(resp.Body)
}

func (c *RegistryClient) postSigned(ctx context.Context, path string, body any, out any) error {
	return c.post(ctx, path, body, out, true)
}

func (c *RegistryClient) post(ctx context.Context, path string, body any, out any, signed bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		if err := c.signRequest(req, path, payload); err != nil {
			return err
		}
	}

	return c.do(req, out)
}

func (c *RegistryClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RegistryClient) signRequest(req *http.Request, path string, body []byte) error {
	if c.Key == nil {
		return fmt.Errorf("no signing key configured")
	}

	sig, err := api.SignRequest(path, body, c.Key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set(api.SignatureHeader, "0x"+hex.EncodeToString(sig))
	return nil
}

func (c *RegistryClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("%s returned non-2xx response: %d", req.URL.Path, resp.StatusCode)
		}
		return fmt.Errorf("%s returned error %d: %s", req.URL.Path, resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *RegistryClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func hexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
