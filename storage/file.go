package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// FileStore implements an artifact store on the local file system.
// Artifacts are stored in per-kind subdirectories under a base directory.
type FileStore struct {
	baseDir     string
	subdirs     map[interfaces.ArtifactKind]string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed artifact store rooted at baseDir.
// Subdirectories for documents and metadata are created if missing.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	subdirs := map[interfaces.ArtifactKind]string{
		interfaces.DocumentKind: "documents",
		interfaces.MetadataKind: "metadata",
	}

	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	return &FileStore{
		baseDir:     baseDir,
		subdirs:     subdirs,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves an artifact from the file system by content ID and kind.
// Returns ErrArtifactNotFound if the file does not exist.
func (b *FileStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	filePath := b.filePathFor(id, kind)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, interfaces.ErrArtifactNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched artifact from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves an artifact to the file system and returns its content ID,
// the SHA-256 hash of the data.
func (b *FileStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	hash := sha256.Sum256(data)
	id := interfaces.ContentID(hash)

	filePath := b.filePathFor(id, kind)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return id, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return id, fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored artifact in file",
		slog.String("path", filePath),
		slog.String("content_id", id.String()))

	return id, nil
}

// Available checks that the base directory still exists.
func (b *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (b *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (b *FileStore) LocationURI() string {
	return b.locationURI
}

func (b *FileStore) filePathFor(id interfaces.ContentID, kind interfaces.ArtifactKind) string {
	return filepath.Join(b.baseDir, b.subdirs[kind], fmt.Sprintf("%x", id[:]))
}
