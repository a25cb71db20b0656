package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

// VaultStore implements an artifact store on HashiCorp Vault's KV v2 engine.
// Metadata records in particular benefit from Vault's access audit trail.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault artifact store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "certvault")
//   - token: Vault token used for authentication; empty falls back to
//     the client's environment configuration
//   - log: structured logger
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Fetch retrieves an artifact from Vault by content ID and kind.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultStore) Fetch(ctx context.Context, id interfaces.ContentID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	contentIDStr := hex.EncodeToString(id[:])

	path := b.secretPathFor(id, kind)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("Artifact not found in Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr))
		return nil, interfaces.ErrArtifactNotFound
	}

	// KV v2 wraps the payload in a "data" map
	data, ok := secret.Data["data"]
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data.(map[string]interface{})["content"]
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	contentStr, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("invalid content format in Vault data")
	}

	decoded, err := hex.DecodeString(contentStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Vault content: %w", err)
	}

	b.log.Info("Successfully fetched artifact from Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return decoded, nil
}

// Store saves an artifact to Vault and returns its content ID, the SHA-256
// hash of the data.
func (b *VaultStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ContentID, error) {
	start := time.Now()

	hash := sha256.Sum256(data)
	id := interfaces.ContentID(hash)
	contentIDStr := hex.EncodeToString(id[:])

	path := b.secretPathFor(id, kind)

	// Hex-encode so binary documents survive Vault's JSON transport
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": hex.EncodeToString(data),
		},
	}

	_, err := b.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			slog.String("content_id", contentIDStr),
			"err", err)
		return id, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Info("Successfully stored artifact in Vault",
		slog.String("content_id", contentIDStr),
		slog.Duration("duration", time.Since(start)))

	return id, nil
}

// Available checks that Vault is initialized and unsealed.
func (b *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (b *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (b *VaultStore) LocationURI() string {
	return b.locationURI
}

func (b *VaultStore) secretPathFor(id interfaces.ContentID, kind interfaces.ArtifactKind) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", b.mountPath, b.dataPath, kind.String(), hex.EncodeToString(id[:]))
}
