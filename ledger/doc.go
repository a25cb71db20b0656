// Package ledger implements the append-only transition log the registry
// state machine commits through.
//
// The ledger assigns every accepted submission a monotonic sequence number
// and finalizes submissions strictly in sequence order. At finality it hands
// the transition to the registered TransitionApplier exactly once; the
// applier's result (or typed rejection) is what AwaitFinality surfaces to
// the submitter. A submission carrying an idempotency key is deduplicated,
// which is what makes retrying an id-allocating transition safe.
//
// MemoryLedger is the in-process implementation used by the service and its
// tests. It simulates eventual finality with a configurable delay and also
// provides the blob side-channel consumed by the ledger:// artifact backend.
package ledger
