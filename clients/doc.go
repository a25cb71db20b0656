// Package clients provides a typed HTTP client for the certificate
// registry service. Authenticated calls are signed with the client's
// secp256k1 key; the server recovers the caller address from the signature,
// so the client never transmits its identity explicitly.
package clients
