package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// IPFSStore implements an artifact store on the InterPlanetary File System.
// It connects to an IPFS node's API, or to an HTTP gateway for read-only use.
type IPFSStore struct {
	shell       *shell.Shell
	host        string
	port        string
	useGateway  bool
	prefixes    map[interfaces.ArtifactKind]string
	log         *slog.Logger
	locationURI string
}

// NewIPFSStore creates an IPFS artifact store connected to the given host and
// port. When useGateway is true the store addresses an IPFS HTTP gateway
// instead of the node API.
func NewIPFSStore(host, port string, useGateway bool, timeout string, log *slog.Logger) (*IPFSStore, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	var uri string
	if useGateway {
		uri = fmt.Sprintf("ipfs://%s/?gateway=true&timeout=%s", apiURL, timeout)
	} else {
		uri = fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout)
	}

	return &IPFSStore{
		shell:      shell.NewShell(apiURL),
		host:       host,
		port:       port,
		useGateway: useGateway,
		prefixes: map[interfaces.ArtifactKind]string{
			interfaces.DocumentKind: "document",
			interfaces.MetadataKind: "metadata",
		},
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves an artifact from IPFS by content ID and kind.
// Returns ErrArtifactNotFound if the content does not exist, or
// ErrBackendUnavailable if the IPFS node cannot be reached.
func (b *IPFSStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	path := b.ipfsPathFor(id, kind)
	contentIDStr := fmt.Sprintf("%x", id[:8])

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat(path)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") {
			b.log.Debug("Artifact not found in IPFS",
				slog.String("path", path),
				slog.String("content_id", contentIDStr),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrArtifactNotFound
		}

		b.log.Error("Failed to fetch artifact from IPFS",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch artifact from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		b.log.Error("Failed to read artifact from IPFS",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read artifact from IPFS: %w", err)
	}

	b.log.Debug("Fetched artifact from IPFS",
		slog.String("path", path),
		slog.String("content_id", contentIDStr),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store adds an artifact to IPFS and returns its content ID, the SHA-256
// hash of the data. Returns ErrBackendUnavailable if the node is down.
func (b *IPFSStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	hash := sha256.Sum256(data)
	id := interfaces.ContentID(hash)

	if !b.shell.IsUp() {
		return id, interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return id, fmt.Errorf("failed to add artifact to IPFS: %w", err)
	}

	b.log.Debug("Stored artifact in IPFS",
		slog.String("ipfs_cid", cid),
		slog.String("content_id", id.String()),
		slog.String("kind", kind.String()))

	return id, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSStore) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this store.
func (b *IPFSStore) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this store.
func (b *IPFSStore) LocationURI() string {
	return b.locationURI
}

func (b *IPFSStore) ipfsPathFor(id interfaces.ContentID, kind interfaces.ArtifactKind) string {
	return fmt.Sprintf("/ipfs/%s-%x", b.prefixes[kind], id[:])
}
