package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// StoreFactory creates artifact stores from location URIs and assembles
// multi-store configurations for redundant storage.
type StoreFactory struct {
	log    *slog.Logger
	ledger interfaces.ArtifactLedger
}

// NewStoreFactory creates a factory instance. If ledger is non-nil it is
// used to back ledger:// stores.
func NewStoreFactory(logger *slog.Logger, ledger interfaces.ArtifactLedger) *StoreFactory {
	return &StoreFactory{
		log:    logger,
		ledger: ledger,
	}
}

// StoreFor creates an artifact store from a parsed location URI.
//
// Supported schemes:
//   - file:// - local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS distributed storage
//   - vault:// - HashiCorp Vault KV v2
//   - ledger:// - the registry ledger's blob side-channel
//
// Returns an error if the scheme is unsupported or the backend cannot be
// constructed.
func (sf *StoreFactory) StoreFor(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	switch strings.ToLower(location.Scheme) {
	case "file":
		return sf.createFileStore(location)
	case "s3":
		return sf.createS3Store(location)
	case "ipfs":
		return sf.createIPFSStore(location)
	case "vault":
		return sf.createVaultStore(location)
	case "ledger":
		return sf.createLedgerStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiStore creates an aggregated store from a list of location URIs.
// The multi-store writes to every available member and reads from the first
// one that has the content. Returns an error if no member could be created.
func (sf *StoreFactory) CreateMultiStore(locations []interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	stores := make([]interfaces.ArtifactStore, 0, len(locations))

	for _, location := range locations {
		store, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("Failed to create artifact store",
				"err", err,
				slog.String("location", location.String()))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid artifact stores created")
	}

	return NewMultiStore(stores, sf.log), nil
}

// createFileStore creates a file system store.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StoreFactory) createFileStore(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("Creating file store", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", location.String())
	}

	return NewFileStore(path, sf.log)
}

// createS3Store creates an S3 or S3-compatible store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StoreFactory) createS3Store(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("Creating S3 store", slog.String("uri", location.String()))

	bucketName := location.Host
	path := strings.TrimPrefix(location.Path, "/")

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := location.GetParam("endpoint")

	var accessKey, secretKey string
	if location.Auth != "" {
		parts := strings.SplitN(location.Auth, ":", 2)
		accessKey = parts[0]
		if len(parts) == 2 {
			secretKey = parts[1]
		}
		sf.log.Debug("Using embedded credentials for write access")
	} else {
		sf.log.Debug("No credentials provided, S3 bucket assumed to be public, write operations may fail")
	}

	return NewS3Store(bucketName, path, region, endpoint, accessKey, secretKey, sf.log)
}

// createIPFSStore creates an IPFS store.
// URI format: ipfs://host:port/?gateway=true&timeout=30s
func (sf *StoreFactory) createIPFSStore(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("Creating IPFS store", slog.String("uri", location.String()))

	host := location.Host
	port := "5001"
	if idx := strings.LastIndex(location.Host, ":"); idx >= 0 {
		host = location.Host[:idx]
		port = location.Host[idx+1:]
	}

	useGateway := location.GetParamBool("gateway")

	timeout := location.GetParam("timeout")
	if timeout == "" {
		timeout = "30s"
	}

	return NewIPFSStore(host, port, useGateway, timeout, sf.log)
}

// createVaultStore creates a Vault KV v2 store.
// URI format: vault://host:port/mount/path?token=TOKEN&tls=true
func (sf *StoreFactory) createVaultStore(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("Creating Vault store", slog.String("uri", location.String()))

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, location.Host)

	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid Vault URI format, expected vault://host:port/mount/path")
	}

	return NewVaultStore(address, parts[0], parts[1], location.GetParam("token"), sf.log)
}

// createLedgerStore creates a store on the registry ledger's blob channel.
// URI format: ledger://local
func (sf *StoreFactory) createLedgerStore(location interfaces.ArtifactLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("Creating ledger store", slog.String("uri", location.String()))

	if sf.ledger == nil {
		return nil, fmt.Errorf("ledger not configured")
	}

	return NewLedgerStore(sf.ledger, sf.log), nil
}
