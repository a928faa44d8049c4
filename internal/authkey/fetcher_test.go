package authkey

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/santosdev/order-orchestrator/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPEM(t *testing.T) []byte {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestFetchAndCache_InstallsKeyAndWritesCache(t *testing.T) {
	keyPEM := testKeyPEM(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/public-key", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(keyPEM)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "auth.pem")
	manager := auth.NewJWTManager(auth.NewConfig())
	f := NewFetcher(srv.URL, cachePath, manager)

	assert.False(t, manager.Ready())
	assert.NoError(t, f.FetchAndCache(context.Background()))
	assert.True(t, manager.Ready())

	cached, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, keyPEM, cached)
}

func TestFetchAndCache_FallsBackToCacheWhenAuthServiceUnreachable(t *testing.T) {
	keyPEM := testKeyPEM(t)
	cachePath := filepath.Join(t.TempDir(), "auth.pem")
	require.NoError(t, os.WriteFile(cachePath, keyPEM, 0o644))

	manager := auth.NewJWTManager(auth.NewConfig())
	f := NewFetcher("http://127.0.0.1:0", cachePath, manager)

	assert.NoError(t, f.FetchAndCache(context.Background()))
	assert.True(t, manager.Ready())
}

func TestFetchAndCache_ErrorsWithoutFetchOrCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "missing.pem")
	manager := auth.NewJWTManager(auth.NewConfig())
	f := NewFetcher("http://127.0.0.1:0", cachePath, manager)

	assert.Error(t, f.FetchAndCache(context.Background()))
	assert.False(t, manager.Ready())
}

func TestFetchAndCache_RejectsNonPEMKeyMaterial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not a pem block"))
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "auth.pem")
	manager := auth.NewJWTManager(auth.NewConfig())
	f := NewFetcher(srv.URL, cachePath, manager)

	assert.Error(t, f.FetchAndCache(context.Background()))
	assert.False(t, manager.Ready())
}
