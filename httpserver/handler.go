package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"

	"github.com/certvault/certificate-registry-backend/api"
	"github.com/certvault/certificate-registry-backend/interfaces"
	"github.com/certvault/certificate-registry-backend/query"
)

const (
	// maxBodySize is the maximum allowed JSON request body size (1MB).
	maxBodySize = 1024 * 1024

	// maxDocumentSize is the maximum allowed document upload size (10MB).
	maxDocumentSize = 10 * 1024 * 1024
)

// allowedDocumentTypes are the content types accepted for document uploads.
var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
	"text/plain":      true,
}

// RequestError provides structured error information for HTTP responses.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// DecryptionEvaluator is the slice of the access-control evaluator the
// handler needs.
type DecryptionEvaluator interface {
	RequestDecryption(requester interfaces.AccountAddress, certID interfaces.CertID, fields []interfaces.EncryptedField) (interfaces.AccessGrantSpec, error)
}

// Handler processes HTTP requests for the certificate registry service.
// Write operations authenticate the caller by recovering the address from
// the signature header; the recovered address is the transition sender.
type Handler struct {
	registry  interfaces.CertificateRegistry
	evaluator DecryptionEvaluator
	compute   interfaces.ConfidentialCompute
	queries   *query.Service
	artifacts interfaces.ArtifactStore
	scope     interfaces.AccountAddress
	log       *slog.Logger
}

// NewHandler creates an HTTP request handler.
//
// Parameters:
//   - registry: write surface of the registry state machine
//   - evaluator: access-control evaluator for decryption grants
//   - compute: confidential compute service for encryption and decryption
//   - queries: read surface over finalized state
//   - artifacts: artifact store for documents and metadata
//   - scope: registry scope address encrypted inputs are bound to
//   - log: structured logger
func NewHandler(registry interfaces.CertificateRegistry, evaluator DecryptionEvaluator, compute interfaces.ConfidentialCompute, queries *query.Service, artifacts interfaces.ArtifactStore, scope interfaces.AccountAddress, log *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		evaluator: evaluator,
		compute:   compute,
		queries:   queries,
		artifacts: artifacts,
		scope:     scope,
		log:       log,
	}
}

// HandleRegisterIssuer processes issuer self-registration.
//
// URL format: POST /api/registry/issuers
func (h *Handler) HandleRegisterIssuer(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterIssuerRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Name == "" {
		h.writeError(w, &RequestError{http.StatusBadRequest, errors.New("issuer name is required")})
		return
	}

	if err := h.registry.RegisterIssuer(r.Context(), caller, req.Name, req.Description); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Issuer registered",
		slog.String("issuer", caller.String()),
		slog.String("name", req.Name))
	w.WriteHeader(http.StatusNoContent)
}

// HandleAuthorizeIssuer flips an issuer's authorization bit. Owner only.
//
// URL format: POST /api/registry/issuers/authorize
func (h *Handler) HandleAuthorizeIssuer(w http.ResponseWriter, r *http.Request) {
	var req api.AuthorizeIssuerRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.registry.AuthorizeIssuer(r.Context(), caller, req.Issuer, true); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleIssueCertificate mints a certificate. The confidential fields arrive
// as plaintext; the handler encrypts them under (scope, caller) and submits
// the resulting handles with the batch input proof.
//
// URL format: POST /api/registry/certificates
func (h *Handler) HandleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req api.IssueCertificateRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// One batch, one proof: issueDate, expiryDate, score, grade in order
	input, err := h.compute.NewEncryptedInput(h.scope, caller).
		Add32(req.IssueDate).
		Add32(req.ExpiryDate).
		Add32(req.Score).
		Add32(req.Grade).
		Encrypt(r.Context())
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to encrypt certificate fields: %w", err))
		return
	}

	certID, err := h.registry.IssueCertificate(r.Context(), caller, interfaces.IssueParams{
		Holder:       req.Holder,
		CertType:     req.CertType,
		Title:        req.Title,
		Institution:  req.Institution,
		Description:  req.Description,
		MetadataHash: req.MetadataHash,

		EncIssueDate:  input.Handles[0],
		EncExpiryDate: input.Handles[1],
		EncScore:      input.Handles[2],
		EncGrade:      input.Handles[3],
		Proof:         input.Proof,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Certificate issued",
		slog.Uint64("cert_id", uint64(certID)),
		slog.String("issuer", caller.String()),
		slog.String("holder", req.Holder.String()))

	h.writeJSON(w, http.StatusCreated, api.IssueCertificateResponse{CertID: certID})
}

// HandleRequestVerification opens a verification request.
//
// URL format: POST /api/registry/certificates/{cert_id}/verification-requests
func (h *Handler) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.RequestVerificationRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	requestID, err := h.registry.RequestVerification(r.Context(), caller, certID, req.VerificationHash)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, api.RequestVerificationResponse{RequestID: requestID})
}

// HandleProcessVerification decides a pending request. Verifier only.
//
// URL format: POST /api/registry/verification-requests/{request_id}/process
func (h *Handler) HandleProcessVerification(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.ProcessVerificationRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.registry.ProcessVerification(r.Context(), caller, requestID, req.Approve); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeCertificate terminally revokes a certificate.
//
// URL format: POST /api/registry/certificates/{cert_id}/revoke
func (h *Handler) HandleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	caller, err := h.authedCaller(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.registry.RevokeCertificate(r.Context(), caller, certID); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Certificate revoked",
		slog.Uint64("cert_id", uint64(certID)),
		slog.String("caller", caller.String()))
	w.WriteHeader(http.StatusNoContent)
}

// HandleEncryptData attaches late-bound encrypted score and grade values.
//
// URL format: POST /api/registry/certificates/{cert_id}/encrypted-data
func (h *Handler) HandleEncryptData(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.EncryptDataRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	input, err := h.compute.NewEncryptedInput(h.scope, caller).
		Add32(req.Score).
		Add32(req.Grade).
		Encrypt(r.Context())
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to encrypt amendment fields: %w", err))
		return
	}

	if err := h.registry.EncryptCertificateData(r.Context(), caller, certID, input.Handles[0], input.Handles[1], req.DataHash); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateEncrypted amends certificate status with an encrypted
// attachment.
//
// URL format: POST /api/registry/certificates/{cert_id}/status
func (h *Handler) HandleUpdateEncrypted(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.UpdateEncryptedRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	input, err := h.compute.NewEncryptedInput(h.scope, caller).
		Add32(req.Data).
		Encrypt(r.Context())
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to encrypt attachment: %w", err))
		return
	}

	if err := h.registry.UpdateCertificateWithEncryptedData(r.Context(), caller, certID, req.NewStatus, input.Handles[0]); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDecryptionGrant evaluates a decryption request and returns the
// grant spec plus the digest the requester must sign. Holder only; the
// requester is the recovered signer, never a body field.
//
// URL format: POST /api/access/decryption-grants
func (h *Handler) HandleDecryptionGrant(w http.ResponseWriter, r *http.Request) {
	var req api.DecryptionGrantRequest
	caller, err := h.authedBody(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	spec, err := h.evaluator.RequestDecryption(caller, req.CertID, req.Fields)
	if err != nil {
		h.writeError(w, err)
		return
	}

	grant, err := h.compute.CreateAccessGrant(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.DecryptionGrantResponse{
		Grant:  grantToWire(grant.Spec),
		Digest: "0x" + hex.EncodeToString(grant.Digest[:]),
	})
}

// HandleDecrypt redeems a signed grant for plaintext values. Authentication
// is the grant signature itself: the compute service rejects a signature
// that does not recover to the grant's requester.
//
// URL format: POST /api/access/decrypt
func (h *Handler) HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req api.DecryptRequest
	if err := h.readBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	sig, err := hexBytes(req.Signature)
	if err != nil || len(sig) != 65 {
		h.writeError(w, &RequestError{http.StatusBadRequest, errors.New("signature must be 65 hex bytes")})
		return
	}

	spec := grantFromWire(req.Grant)
	if err := h.checkGrantAgainstCertificate(req.CertID, spec); err != nil {
		h.writeError(w, err)
		return
	}

	grant, err := h.compute.CreateAccessGrant(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}

	values, err := h.compute.Decrypt(r.Context(), grant, sig)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := api.DecryptResponse{Values: make(map[string]uint32, len(values))}
	for handle, value := range values {
		resp.Values[handle.String()] = value
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleIssuerInfo returns the public issuer record.
//
// URL format: GET /api/public/issuers/{address}
func (h *Handler) HandleIssuerInfo(w http.ResponseWriter, r *http.Request) {
	addr, err := interfaces.NewAccountAddressFromHex(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, &RequestError{http.StatusBadRequest, err})
		return
	}

	info := h.queries.GetIssuerInfo(addr)
	h.writeJSON(w, http.StatusOK, api.IssuerResponse{
		Address:      addr,
		Name:         info.Name,
		Description:  info.Description,
		IsAuthorized: info.IsAuthorized,
		Registered:   info.Registered,
	})
}

// HandleCertificateInfo returns the public certificate record.
//
// URL format: GET /api/public/certificates/{cert_id}
func (h *Handler) HandleCertificateInfo(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	info, err := h.queries.GetCertificateInfo(certID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, certToWire(info))
}

// HandleEncryptedData returns the certificate's ciphertext handles.
//
// URL format: GET /api/public/certificates/{cert_id}/encrypted-data
func (h *Handler) HandleEncryptedData(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data, err := h.queries.GetCertificateEncryptedData(certID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.EncryptedDataResponse{
		CertID:        certID,
		EncIssueDate:  data.EncIssueDate,
		EncExpiryDate: data.EncExpiryDate,
		EncScore:      data.EncScore,
		EncGrade:      data.EncGrade,
	})
}

// HandleVerifyCertificate reports whether a certificate exists.
//
// URL format: GET /api/public/certificates/{cert_id}/verify
func (h *Handler) HandleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	certID, err := certIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.VerifyCertificateResponse{
		CertID: certID,
		Exists: h.queries.VerifyCertificate(certID),
	})
}

// HandleRequestInfo returns the public verification request record.
//
// URL format: GET /api/public/verification-requests/{request_id}
func (h *Handler) HandleRequestInfo(w http.ResponseWriter, r *http.Request) {
	requestID, err := requestIDParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	req, err := h.queries.GetRequestInfo(requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.VerificationRequestResponse{
		RequestID:        req.ID,
		CertID:           req.CertID,
		Requester:        req.Requester,
		VerificationHash: req.VerificationHash,
		Status:           req.Status,
	})
}

// HandleCertCounter returns the certificate allocation high-water mark.
//
// URL format: GET /api/public/cert-counter
func (h *Handler) HandleCertCounter(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, api.CertCounterResponse{CertCounter: h.queries.GetCertCounter()})
}

// HandleHolderCertificates lists a holder's certificates.
//
// URL format: GET /api/public/holders/{address}/certificates
func (h *Handler) HandleHolderCertificates(w http.ResponseWriter, r *http.Request) {
	holder, err := interfaces.NewAccountAddressFromHex(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, &RequestError{http.StatusBadRequest, err})
		return
	}

	infos := h.queries.ListCertificatesForHolder(holder)
	resp := api.HolderCertificatesResponse{
		Holder:       holder,
		Certificates: make([]api.CertificateResponse, 0, len(infos)),
	}
	for _, info := range infos {
		resp.Certificates = append(resp.Certificates, certToWire(info))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandlePutDocument uploads a certificate document or metadata record to
// the artifact store. The body is the raw artifact; kind comes from the
// query string and content type from the standard header.
//
// URL format: POST /api/registry/documents?kind=document
func (h *Handler) HandlePutDocument(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if !allowedDocumentTypes[contentType] {
		h.writeError(w, &RequestError{http.StatusUnsupportedMediaType, fmt.Errorf("unsupported document type: %s", contentType)})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		h.writeError(w, &RequestError{http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err)})
		return
	}
	if len(body) > maxDocumentSize {
		h.writeError(w, &RequestError{http.StatusRequestEntityTooLarge, errors.New("document exceeds 10MB limit")})
		return
	}
	if len(body) == 0 {
		h.writeError(w, &RequestError{http.StatusBadRequest, errors.New("empty document")})
		return
	}

	if _, err := h.recoverCaller(r, body); err != nil {
		h.writeError(w, err)
		return
	}

	kind := interfaces.DocumentKind
	if r.URL.Query().Get("kind") == "metadata" {
		kind = interfaces.MetadataKind
	}

	id, err := h.artifacts.Store(r.Context(), body, kind)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err))
		return
	}

	h.log.Info("Document stored",
		slog.String("content_id", id.String()),
		slog.String("kind", kind.String()),
		slog.Int("size", len(body)))

	h.writeJSON(w, http.StatusCreated, api.PutDocumentResponse{
		ContentID: id,
		Location:  h.artifacts.LocationURI(),
	})
}

// HandleGetDocument fetches an artifact by content id.
//
// URL format: GET /api/public/documents/{content_id}?kind=document
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewContentIDFromHex(chi.URLParam(r, "content_id"))
	if err != nil {
		h.writeError(w, &RequestError{http.StatusBadRequest, err})
		return
	}

	kind := interfaces.DocumentKind
	if r.URL.Query().Get("kind") == "metadata" {
		kind = interfaces.MetadataKind
	}

	data, err := h.artifacts.Fetch(r.Context(), id, kind)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// checkGrantAgainstCertificate re-authorizes a wire grant before decryption:
// the requester must be the certificate holder, and every handle in the
// grant must be one of that certificate's handles. Without this check a
// caller could redeem a grant the evaluator never issued.
func (h *Handler) checkGrantAgainstCertificate(certID interfaces.CertID, spec interfaces.AccessGrantSpec) error {
	info, err := h.queries.GetCertificateInfo(certID)
	if err != nil {
		return err
	}
	if !info.Holder.Equal(spec.Requester) {
		return interfaces.ErrNotHolder
	}

	data, err := h.queries.GetCertificateEncryptedData(certID)
	if err != nil {
		return err
	}
	known := map[interfaces.CiphertextHandle]bool{
		data.EncIssueDate:  true,
		data.EncExpiryDate: true,
		data.EncScore:      true,
		data.EncGrade:      true,
	}
	for _, handle := range spec.Handles {
		if !known[handle] {
			return &RequestError{http.StatusForbidden, fmt.Errorf("handle %s is not part of certificate %d", handle.String(), certID)}
		}
	}
	return nil
}

// authedBody reads and decodes the JSON body and recovers the caller from
// the signature header.
func (h *Handler) authedBody(r *http.Request, dst any) (interfaces.AccountAddress, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return interfaces.AccountAddress{}, &RequestError{http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err)}
	}

	if dst != nil {
		if err := json.Unmarshal(body, dst); err != nil {
			return interfaces.AccountAddress{}, &RequestError{http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)}
		}
	}

	return h.recoverCaller(r, body)
}

// authedCaller recovers the caller for requests without a decoded body.
func (h *Handler) authedCaller(r *http.Request) (interfaces.AccountAddress, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return interfaces.AccountAddress{}, &RequestError{http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err)}
	}
	return h.recoverCaller(r, body)
}

func (h *Handler) readBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &RequestError{http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err)}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &RequestError{http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

// recoverCaller recovers the caller address from the signature header. The
// signed digest binds the request path so a signature cannot be replayed
// against a different endpoint.
func (h *Handler) recoverCaller(r *http.Request, body []byte) (interfaces.AccountAddress, error) {
	sigHex := r.Header.Get(api.SignatureHeader)
	if sigHex == "" {
		return interfaces.AccountAddress{}, &RequestError{http.StatusUnauthorized, errors.New("missing signature header")}
	}

	sig, err := hexBytes(sigHex)
	if err != nil || len(sig) != 65 {
		return interfaces.AccountAddress{}, &RequestError{http.StatusUnauthorized, errors.New("signature must be 65 hex bytes")}
	}

	// Accept both 0/1 and 27/28 recovery ids
	if sig[64] >= 27 {
		normalized := make([]byte, 65)
		copy(normalized, sig)
		normalized[64] -= 27
		sig = normalized
	}

	digest := api.RequestDigest(r.URL.Path, body)
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return interfaces.AccountAddress{}, &RequestError{http.StatusUnauthorized, fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)}
	}

	addr := crypto.PubkeyToAddress(*pub)
	caller, err := interfaces.NewAccountAddressFromBytes(addr.Bytes())
	if err != nil {
		return interfaces.AccountAddress{}, &RequestError{http.StatusUnauthorized, err}
	}

	return caller, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		http.Error(w, reqErr.Error(), reqErr.StatusCode)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrInvalidSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrNotAuthorizedIssuer),
		errors.Is(err, interfaces.ErrNotAuthorizedVerifier),
		errors.Is(err, interfaces.ErrNotHolder),
		errors.Is(err, interfaces.ErrNotOwner),
		errors.Is(err, interfaces.ErrGrantExpired):
		status = http.StatusForbidden
	case errors.Is(err, interfaces.ErrCertificateNotFound),
		errors.Is(err, interfaces.ErrRequestNotFound),
		errors.Is(err, interfaces.ErrIssuerNotFound),
		errors.Is(err, interfaces.ErrArtifactNotFound):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrAlreadyProcessed),
		errors.Is(err, interfaces.ErrAlreadyRevoked),
		errors.Is(err, interfaces.ErrAlreadyRegistered),
		errors.Is(err, interfaces.ErrCertificateRevoked):
		status = http.StatusConflict
	case errors.Is(err, interfaces.ErrInvalidProof),
		errors.Is(err, interfaces.ErrDecryptionFailed):
		status = http.StatusBadRequest
	case errors.Is(err, interfaces.ErrFinalityTimeout),
		errors.Is(err, interfaces.ErrDecryptionTimedOut):
		status = http.StatusGatewayTimeout
	case errors.Is(err, interfaces.ErrSubmissionFailed),
		errors.Is(err, interfaces.ErrBackendUnavailable):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		h.log.Error("Request failed", "err", err, slog.Int("status", status))
	}
	http.Error(w, err.Error(), status)
}

func certIDParam(r *http.Request) (interfaces.CertID, error) {
	raw := chi.URLParam(r, "cert_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &RequestError{http.StatusBadRequest, fmt.Errorf("invalid cert id %q", raw)}
	}
	return interfaces.CertID(id), nil
}

func requestIDParam(r *http.Request) (interfaces.RequestID, error) {
	raw := chi.URLParam(r, "request_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &RequestError{http.StatusBadRequest, fmt.Errorf("invalid request id %q", raw)}
	}
	return interfaces.RequestID(id), nil
}

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func grantToWire(spec interfaces.AccessGrantSpec) api.GrantSpec {
	return api.GrantSpec{
		Requester:    spec.Requester,
		Scope:        spec.Scope,
		Handles:      spec.Handles,
		StartTime:    uint64(spec.StartTime),
		DurationDays: spec.DurationDays,
	}
}

func grantFromWire(spec api.GrantSpec) interfaces.AccessGrantSpec {
	return interfaces.AccessGrantSpec{
		Requester:    spec.Requester,
		Scope:        spec.Scope,
		Handles:      spec.Handles,
		StartTime:    int64(spec.StartTime),
		DurationDays: spec.DurationDays,
	}
}

func certToWire(info query.CertificateInfo) api.CertificateResponse {
	return api.CertificateResponse{
		CertID:       info.CertID,
		Holder:       info.Holder,
		Issuer:       info.Issuer,
		CertType:     info.CertType,
		Title:        info.Title,
		Institution:  info.Institution,
		Description:  info.Description,
		MetadataHash: info.MetadataHash,
		Status:       info.Status,
		IsVerified:   info.IsVerified,
		Verifier:     info.Verifier,
	}
}
