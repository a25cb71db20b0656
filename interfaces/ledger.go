package interfaces

import "context"

// Transition is a state-transition request submitted to the ledger. The
// payload encoding is owned by the state machine; the ledger treats it as
// opaque bytes.
type Transition struct {
	Kind           string
	Sender         AccountAddress
	Payload        []byte
	IdempotencyKey string
}

// PendingHandle identifies a submitted, not-yet-final transition. A pending
// transition cannot be canceled; the caller can only observe the outcome at
// finality.
type PendingHandle struct {
	TxID [32]byte
	Seq  uint64
}

// Receipt is the outcome of a finalized transition. Result carries the state
// machine's encoded return value (for example an allocated id); it is empty
// for transitions that return nothing.
type Receipt struct {
	TxID   [32]byte
	Seq    uint64
	Result []byte
}

// TransitionApplier applies a finalized transition to authoritative state.
// The ledger invokes it exactly once per transition, in global sequence
// order. A returned error rejects the transition without advancing any
// state-machine counters.
type TransitionApplier interface {
	ApplyTransition(seq uint64, tx Transition) ([]byte, error)
}

// Ledger is an append-only, totally ordered transition log with eventual
// finality. Sequence numbers are monotonic. Submissions from one sender are
// applied in submission order.
type Ledger interface {
	// Submit appends a transition to the log and returns a handle for
	// awaiting finality.
	Submit(ctx context.Context, tx Transition) (PendingHandle, error)

	// AwaitFinality blocks until the transition is final or ctx expires.
	// Returns the receipt on success, the state machine's typed error if
	// the transition was rejected at apply time, or ErrFinalityTimeout.
	AwaitFinality(ctx context.Context, handle PendingHandle) (Receipt, error)

	// Seq returns the current finalized sequence high-water mark.
	Seq() uint64
}

// ArtifactLedger is the optional blob side-channel of a ledger, used by the
// ledger:// artifact store backend.
type ArtifactLedger interface {
	// AddArtifact appends a blob and returns its content ID.
	AddArtifact(ctx context.Context, data []byte) (ContentID, error)

	// Artifact retrieves a blob by content ID.
	Artifact(ctx context.Context, id ContentID) ([]byte, error)
}
