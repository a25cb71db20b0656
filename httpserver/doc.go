/*
Package httpserver implements the HTTP surface of the certificate registry.

Write operations (issuer registration, certificate issuance, verification
decisions, revocation, encrypted amendments) are authenticated by a
secp256k1 signature over the request path and body, carried in the
X-Certvault-Signature header; the recovered address is the transition
sender. Read operations under /api/public are open: certificate records
expose confidential fields only as opaque ciphertext handles.

Decryption is a two-step flow. The holder first requests a decryption
grant, receiving the grant spec and the digest to sign; redeeming the
signed grant on the decrypt endpoint returns plaintext values after the
server re-checks holdership and handle membership.

The server follows the usual operational shape: /livez, /readyz and
/drain and /undrain endpoints, a separate metrics listener and graceful
shutdown with a drain period for load balancers.
*/
package httpserver
