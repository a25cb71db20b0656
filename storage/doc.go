// Package storage provides content-addressed artifact storage with pluggable
// backends.
//
// Certificate documents and metadata records are identified by the SHA-256
// hash of their content and may be replicated across multiple backends:
//
//   - file:// - local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS distributed storage
//   - vault:// - HashiCorp Vault KV v2
//   - ledger:// - the registry ledger's blob side-channel
//
// Backends are created from URIs by StoreFactory, and MultiStore aggregates
// several backends so a document published to both IPFS and S3 can be
// fetched from whichever answers first.
//
// All stores implement interfaces.ArtifactStore. Storing the same bytes
// twice always yields the same content ID, so uploads are safe to retry.
package storage
