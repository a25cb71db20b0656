// Package fhe implements the confidential compute capability consumed by
// the registry: batch encryption of 32-bit certificate fields into opaque
// ciphertext handles, input proofs binding a batch to its (scope, owner)
// pair, and time-boxed, requester-signed access grants for decryption.
//
// SimpleFHE is a deterministic implementation deriving all key material from
// a single master seed. It stands in for a real FHE coprocessor: handles are
// opaque references, plaintexts never leave the engine except through a
// valid grant, and the registry only ever sees pass/fail proof checks. It is
// suitable for development, testing and single-operator deployments; the
// capability interface keeps the cryptographic backend swappable.
package fhe
