// Package api defines the wire types shared by the certificate registry's
// HTTP server and its clients.
//
// Authenticated routes carry the caller's secp256k1 signature in the
// X-Certvault-Signature header; the server recovers the caller address from
// the signature over the request digest rather than trusting any claimed
// identity in the body. Confidential certificate fields cross the wire as
// plaintext only on the issuing path (where the server encrypts them before
// submission) and on the decrypt path (after a signed grant has been
// verified); everywhere else they appear as opaque ciphertext handles.
package api
