package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/atomic"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// ErrNoApplier is returned when a transition is submitted before a
// TransitionApplier has been registered.
var ErrNoApplier = errors.New("no transition applier registered")

type entry struct {
	tx     interfaces.Transition
	seq    uint64
	ready  bool
	result []byte
	err    error
	done   chan struct{}
}

// MemoryLedger is an in-memory, totally ordered transition log with
// simulated eventual finality. Transitions are applied in sequence order
// exactly once; the apply outcome is carried on the receipt.
type MemoryLedger struct {
	mu            sync.Mutex
	entries       map[uint64]*entry
	byKey         map[string]*entry
	artifacts     map[interfaces.ContentID][]byte
	applier       interfaces.TransitionApplier
	nextSeq       uint64
	nextApply     uint64
	finalizedSeq  atomic.Uint64
	finalityDelay time.Duration
	log           *slog.Logger
}

// NewMemoryLedger creates a ledger with the given finality delay. A zero
// delay finalizes synchronously on Submit, which is what the tests use.
func NewMemoryLedger(finalityDelay time.Duration, log *slog.Logger) *MemoryLedger {
	return &MemoryLedger{
		entries:       make(map[uint64]*entry),
		byKey:         make(map[string]*entry),
		artifacts:     make(map[interfaces.ContentID][]byte),
		finalityDelay: finalityDelay,
		log:           log,
	}
}

// SetApplier registers the state machine that applies finalized transitions.
// Must be called before the first Submit.
func (l *MemoryLedger) SetApplier(applier interfaces.TransitionApplier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applier = applier
}

// Submit appends a transition to the log. Submissions with a previously seen
// idempotency key return the original entry's handle instead of appending.
func (l *MemoryLedger) Submit(ctx context.Context, tx interfaces.Transition) (interfaces.PendingHandle, error) {
	l.mu.Lock()

	if l.applier == nil {
		l.mu.Unlock()
		return interfaces.PendingHandle{}, fmt.Errorf("%w: %v", interfaces.ErrSubmissionFailed, ErrNoApplier)
	}

	if tx.IdempotencyKey != "" {
		if prior, seen := l.byKey[tx.IdempotencyKey]; seen {
			handle := interfaces.PendingHandle{TxID: txDigest(prior.tx, prior.seq), Seq: prior.seq}
			l.mu.Unlock()
			return handle, nil
		}
	}

	seq := l.nextSeq
	l.nextSeq++

	e := &entry{
		tx:   tx,
		seq:  seq,
		done: make(chan struct{}),
	}
	l.entries[seq] = e
	if tx.IdempotencyKey != "" {
		l.byKey[tx.IdempotencyKey] = e
	}
	l.mu.Unlock()

	if l.finalityDelay == 0 {
		l.finalize(e)
	} else {
		time.AfterFunc(l.finalityDelay, func() { l.finalize(e) })
	}

	return interfaces.PendingHandle{TxID: txDigest(tx, seq), Seq: seq}, nil
}

// finalize applies entries strictly in sequence order. An entry whose
// predecessors have not finalized yet waits for them; timers may fire out of
// order but application never does.
func (l *MemoryLedger) finalize(e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ready = true

	// Apply the consecutive run of ready entries at the head of the order.
	for {
		next, ok := l.entries[l.nextApply]
		if !ok || !next.ready {
			break
		}

		next.result, next.err = l.applier.ApplyTransition(next.seq, next.tx)
		l.finalizedSeq.Store(next.seq + 1)
		l.nextApply++
		close(next.done)

		if next.err != nil && l.log != nil {
			l.log.Debug("Transition rejected at apply",
				slog.String("kind", next.tx.Kind),
				slog.Uint64("seq", next.seq),
				"err", next.err)
		}
	}
}

// AwaitFinality blocks until the transition is final or ctx expires.
func (l *MemoryLedger) AwaitFinality(ctx context.Context, handle interfaces.PendingHandle) (interfaces.Receipt, error) {
	l.mu.Lock()
	e, ok := l.entries[handle.Seq]
	l.mu.Unlock()
	if !ok {
		return interfaces.Receipt{}, fmt.Errorf("%w: unknown sequence %d", interfaces.ErrSubmissionFailed, handle.Seq)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return interfaces.Receipt{}, fmt.Errorf("%w: seq %d", interfaces.ErrFinalityTimeout, handle.Seq)
	}

	if e.err != nil {
		return interfaces.Receipt{}, e.err
	}
	return interfaces.Receipt{TxID: handle.TxID, Seq: e.seq, Result: e.result}, nil
}

// Seq returns the finalized sequence high-water mark.
func (l *MemoryLedger) Seq() uint64 {
	return l.finalizedSeq.Load()
}

// AddArtifact appends a blob to the ledger's artifact side-channel.
func (l *MemoryLedger) AddArtifact(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeContentID(data)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts[id] = data

	return id, nil
}

// Artifact retrieves a blob by content ID.
func (l *MemoryLedger) Artifact(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, ok := l.artifacts[id]
	if !ok {
		return nil, interfaces.ErrArtifactNotFound
	}
	return data, nil
}

// txDigest computes the transaction id the same way for submitter and
// ledger: keccak over the ABI-packed transition fields and sequence.
func txDigest(tx interfaces.Transition, seq uint64) [32]byte {
	stringTy, _ := abi.NewType("string", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)
	bytesTy, _ := abi.NewType("bytes", "", nil)
	uint64Ty, _ := abi.NewType("uint64", "", nil)

	arguments := abi.Arguments{
		{Type: stringTy},
		{Type: addressTy},
		{Type: bytesTy},
		{Type: uint64Ty},
	}

	packed, err := arguments.Pack(tx.Kind, common.Address(tx.Sender), tx.Payload, seq)
	if err != nil {
		// Packing static types cannot fail at runtime; fall back to an
		// unpacked digest rather than panic in the submission path.
		packed = append([]byte(tx.Kind), tx.Payload...)
	}
	return crypto.Keccak256Hash(packed)
}
