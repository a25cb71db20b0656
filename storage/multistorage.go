package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// MultiStore implements interfaces.ArtifactStore over multiple member stores
// with fallback. Writes go to every available member; reads return the first
// hit.
type MultiStore struct {
	stores []interfaces.ArtifactStore
	log    *slog.Logger
}

// NewMultiStore creates a multi-store over the given members.
func NewMultiStore(stores []interfaces.ArtifactStore, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		stores: stores,
		log:    logger,
	}
}

// Fetch returns the artifact from the first available member that has it.
func (m *MultiStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	var errs []error
	contentIDStr := fmt.Sprintf("%x", id[:8])

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable",
				slog.String("store_name", store.Name()),
				slog.String("content_id", contentIDStr))
			continue
		}

		data, err := store.Fetch(ctx, id, kind)
		if err == nil {
			m.log.Info("Successfully fetched artifact",
				slog.String("store_name", store.Name()),
				slog.String("content_id", contentIDStr),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("Failed to fetch from store",
			slog.String("store_name", store.Name()),
			slog.String("content_id", contentIDStr),
			"err", err)
	}

	m.log.Error("All stores failed to fetch artifact",
		slog.String("content_id", contentIDStr),
		slog.Int("failed_stores", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all stores failed to fetch %s: %v", contentIDStr, errs)
}

// Store saves the artifact to all available members. It succeeds if at least
// one member accepted the write.
func (m *MultiStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	start := time.Now()
	var result interfaces.ContentID
	var success bool
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable", slog.String("store_name", store.Name()))
			continue
		}

		id, err := store.Store(ctx, data, kind)
		if err == nil {
			if !success {
				result = id
				success = true
				m.log.Info("Successfully stored artifact",
					slog.String("store_name", store.Name()),
					slog.String("content_id", id.String()),
					slog.Duration("duration", time.Since(start)))
			} else if !result.Equal(id) {
				// Same data must produce the same hash
				m.log.Warn("Inconsistent hashes from stores",
					slog.String("store_name", store.Name()),
					slog.String("expected_id", result.String()),
					slog.String("actual_id", id.String()))
			}
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Debug("Failed to store to store",
				slog.String("store_name", store.Name()),
				"err", err)
		}
	}

	if !success {
		m.log.Error("All stores failed to store artifact",
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return result, fmt.Errorf("all stores failed to store artifact: %v", errs)
	}

	return result, nil
}

// Available reports whether any member is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this store.
func (m *MultiStore) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined URI listing all members.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
