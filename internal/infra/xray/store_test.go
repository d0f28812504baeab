package xray

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "github.com/server24/provisiond/internal/errors"
)

func newTestStore(t *testing.T, content string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewFileStore(path, logger)
}

func TestFileStoreUpdatePersists(t *testing.T) {
	store := newTestStore(t, `{"inbounds": [{"protocol": "vless", "port": 443, "settings": {"clients": []}}]}`)

	err := store.Update(context.Background(), func(doc *Document) error {
		return doc.AddClient("vless", Client{ID: "abc"})
	})
	require.NoError(t, err)

	err = store.View(context.Background(), func(doc *Document) error {
		clients, err := doc.Clients("vless")
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "abc", clients[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestFileStoreUnchangedSkipsWrite(t *testing.T) {
	store := newTestStore(t, `{"inbounds": []}`)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	before := info.ModTime()

	err = store.Update(context.Background(), func(doc *Document) error {
		return ErrUnchanged
	})
	require.NoError(t, err)

	info, err = os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime(), "no write for an unchanged document")
}

func TestFileStoreMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), logger)

	err := store.View(context.Background(), func(doc *Document) error { return nil })
	require.ErrorIs(t, err, app_errors.ErrProxyConfigUnavailable)

	err = store.Update(context.Background(), func(doc *Document) error { return nil })
	require.ErrorIs(t, err, app_errors.ErrProxyConfigUnavailable)
}

func TestFileStoreCorruptFile(t *testing.T) {
	store := newTestStore(t, `{"inbounds": [`)

	err := store.View(context.Background(), func(doc *Document) error { return nil })
	require.ErrorIs(t, err, app_errors.ErrProxyConfigUnavailable)
}

func TestFileStoreCallbackErrorAbortsWrite(t *testing.T) {
	const original = `{"inbounds": [{"protocol": "vless", "port": 443, "settings": {"clients": []}}]}`
	store := newTestStore(t, original)

	boom := errors.New("boom")
	err := store.Update(context.Background(), func(doc *Document) error {
		require.NoError(t, doc.AddClient("vless", Client{ID: "abc"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, original, string(data))
}

func TestFileStoreHonorsCancelledContext(t *testing.T) {
	store := newTestStore(t, `{"inbounds": []}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, func(doc *Document) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
