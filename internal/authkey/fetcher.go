// Package authkey fetches and caches the auth service's RSA public key
// used to verify JWTs on the HTTP façade. Grounded on
// webapi.BillingClient's http.Client pattern; there is no service
// registry here, only a configured base URL (SPEC_FULL.md §7).
package authkey

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/santosdev/order-orchestrator/pkg/auth"
)

var ErrNotAnRSAKey = errors.New("authkey: fetched key is not an RSA public key")

// Fetcher retrieves the auth service's public key over HTTP and installs
// it into a JWTManager, caching the PEM on disk so a restart doesn't need
// the auth service to be reachable to serve previously-authenticated
// traffic (reads still fail closed if the cache is empty and the fetch
// cannot reach the auth service).
type Fetcher struct {
	baseURL    string
	cachePath  string
	httpClient *http.Client
	manager    *auth.JWTManager
}

func NewFetcher(baseURL, cachePath string, manager *auth.JWTManager) *Fetcher {
	return &Fetcher{
		baseURL:   baseURL,
		cachePath: cachePath,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		manager: manager,
	}
}

// FetchAndCache retrieves the current public key from the auth service's
// well-known endpoint, installs it into the JWT manager, and writes it to
// the cache path. Called in response to the auth.running bus event.
func (f *Fetcher) FetchAndCache(ctx context.Context) error {
	pemBytes, fetchErr := f.fetch(ctx)
	if fetchErr != nil {
		if cacheErr := f.LoadCached(); cacheErr != nil {
			return fmt.Errorf("authkey: fetch failed (%v) and no cache available: %w", fetchErr, cacheErr)
		}
		return nil
	}

	if err := os.WriteFile(f.cachePath, pemBytes, 0o644); err != nil {
		// Cache write failure doesn't block using the freshly fetched key.
		_ = err
	}

	return f.install(pemBytes)
}

// LoadCached installs a previously cached key without contacting the auth
// service, used at process startup so the HTTP façade isn't hard-down
// just because the auth service hasn't announced itself yet this run.
func (f *Fetcher) LoadCached() error {
	pemBytes, err := os.ReadFile(f.cachePath)
	if err != nil {
		return fmt.Errorf("authkey: no cached key available: %w", err)
	}
	return f.install(pemBytes)
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	url := fmt.Sprintf("%s/.well-known/public-key", f.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("authkey: building request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authkey: requesting public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authkey: unsuccessful response from auth service: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("authkey: reading response body: %w", err)
	}

	return body, nil
}

func (f *Fetcher) install(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return errors.New("authkey: no PEM block found in key material")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("authkey: parsing public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return ErrNotAnRSAKey
	}

	f.manager.SetPublicKey(rsaPub)
	return nil
}
