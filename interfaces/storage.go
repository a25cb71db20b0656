package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ArtifactKind indicates the storage namespace of an artifact.
type ArtifactKind int

const (
	// DocumentKind for certificate documents (diplomas, transcripts).
	DocumentKind ArtifactKind = iota
	// MetadataKind for certificate metadata records.
	MetadataKind
)

// String returns the kind name.
func (k ArtifactKind) String() string {
	switch k {
	case DocumentKind:
		return "document"
	case MetadataKind:
		return "metadata"
	default:
		return "unknown"
	}
}

// ArtifactLocation is a parsed storage backend URI.
type ArtifactLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewArtifactLocation parses and validates a storage backend URI.
func NewArtifactLocation(uri string) (ArtifactLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ArtifactLocation{}, fmt.Errorf("invalid URI format: %w", err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "file", "s3", "ipfs", "vault", "ledger":
		// Valid scheme
	default:
		return ArtifactLocation{}, fmt.Errorf("unsupported storage scheme: %s", scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return ArtifactLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc ArtifactLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc ArtifactLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc ArtifactLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrArtifactNotFound is returned when the requested artifact does not
	// exist in the storage backend.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible, whether from network issues, authentication failures, or
	// service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or names an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// ArtifactStore provides content-addressed blob storage. Put is idempotent:
// storing the same bytes twice yields the same ContentID.
type ArtifactStore interface {
	// Fetch retrieves data by content ID and kind.
	Fetch(ctx context.Context, id ContentID, kind ArtifactKind) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, kind ArtifactKind) (ContentID, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}

// ArtifactStoreFactory creates artifact store backends.
type ArtifactStoreFactory interface {
	// StoreFor creates a backend from a URI.
	// Supports file://, s3://, ipfs://, vault://, ledger://
	StoreFor(location ArtifactLocation) (ArtifactStore, error)

	// CreateMultiStore creates an aggregated backend that stores to every
	// member and fetches from the first that has the content.
	CreateMultiStore(locations []ArtifactLocation) (ArtifactStore, error)
}
