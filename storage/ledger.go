package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// LedgerStore implements an artifact store on the ledger's blob side-channel.
// Artifacts live in the same trust domain as the registry state, so a
// certificate's document reference can be resolved without any external
// storage dependency.
type LedgerStore struct {
	ledger      interfaces.ArtifactLedger
	log         *slog.Logger
	locationURI string
}

// NewLedgerStore creates an artifact store backed by the given ledger.
func NewLedgerStore(ledger interfaces.ArtifactLedger, log *slog.Logger) *LedgerStore {
	return &LedgerStore{
		ledger:      ledger,
		log:         log,
		locationURI: "ledger://local",
	}
}

// Fetch retrieves an artifact from the ledger by content ID. The kind is
// ignored: the ledger namespace is flat and content-addressed.
func (b *LedgerStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	data, err := b.ledger.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}

	b.log.Debug("Fetched artifact from ledger",
		slog.String("content_id", id.String()),
		slog.Int("size", len(data)))

	return data, nil
}

// Store appends an artifact to the ledger and returns its content ID.
func (b *LedgerStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	hash := sha256.Sum256(data)
	id := interfaces.ContentID(hash)

	storedID, err := b.ledger.AddArtifact(ctx, data)
	if err != nil {
		return id, fmt.Errorf("failed to store artifact on ledger: %w", err)
	}

	if !storedID.Equal(id) {
		b.log.Warn("Content ID mismatch",
			slog.String("expected", id.String()),
			slog.String("actual", storedID.String()))
	}

	b.log.Debug("Stored artifact on ledger",
		slog.String("content_id", id.String()),
		slog.String("kind", kind.String()))

	return id, nil
}

// Available reports whether the ledger accepts artifact reads.
func (b *LedgerStore) Available(ctx context.Context) bool {
	return b.ledger != nil
}

// Name returns a unique identifier for this store.
func (b *LedgerStore) Name() string {
	return "ledger-local"
}

// LocationURI returns the URI that identifies this store.
func (b *LedgerStore) LocationURI() string {
	return b.locationURI
}
