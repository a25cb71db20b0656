package storage

import (
	"context"
	"crypto/sha256"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certvault/certificate-registry-backend/interfaces"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	doc := []byte("diploma scan bytes")

	id, err := store.Store(ctx, doc, interfaces.DocumentKind)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ContentID(sha256.Sum256(doc)), id)

	fetched, err := store.Fetch(ctx, id, interfaces.DocumentKind)
	require.NoError(t, err)
	assert.Equal(t, doc, fetched)

	// Same bytes yield the same ID
	id2, err := store.Store(ctx, doc, interfaces.DocumentKind)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestFileStore_KindsAreSeparateNamespaces(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("metadata record")

	id, err := store.Store(ctx, data, interfaces.MetadataKind)
	require.NoError(t, err)

	_, err = store.Fetch(ctx, id, interfaces.DocumentKind)
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)

	fetched, err := store.Fetch(ctx, id, interfaces.MetadataKind)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)
}

func TestFileStore_FetchMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	var id interfaces.ContentID
	id[0] = 0xab

	_, err = store.Fetch(context.Background(), id, interfaces.DocumentKind)
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)
}

func TestFileStore_Available(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), discardLogger())
	require.NoError(t, err)
	assert.True(t, store.Available(context.Background()))
}
