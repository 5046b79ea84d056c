// Package identity resolves bearer credentials to verified accounts.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/repository"
)

var (
	// ErrUnauthenticated is returned for unknown or rejected credentials.
	ErrUnauthenticated = errors.New("identity: unauthenticated")
	// ErrUnavailable is returned when the identity service cannot be reached.
	ErrUnavailable = errors.New("identity: unavailable")
)

// Verifier resolves a bearer credential.
type Verifier interface {
	Verify(ctx context.Context, token string) (project.Account, error)
}

// HTTPVerifier asks an identity endpoint who owns a token.
type HTTPVerifier struct {
	url  string
	http *http.Client
}

// NewHTTPVerifier creates a verifier calling url with the token as a
// bearer credential.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{url: url, http: &http.Client{Timeout: timeout}}
}

type whoami struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (project.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return project.Account{}, ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return project.Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return project.Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return project.Account{}, ErrUnauthenticated
	default:
		return project.Account{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var w whoami
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&w); err != nil {
		return project.Account{}, fmt.Errorf("%w: decoding: %v", ErrUnavailable, err)
	}
	if w.ID == "" {
		return project.Account{}, ErrUnauthenticated
	}
	return project.Account{ID: w.ID, DisplayName: w.DisplayName}, nil
}

// CachedVerifier caches successful verifications and collapses concurrent
// lookups of the same token. Failures are never cached.
type CachedVerifier struct {
	next   Verifier
	cache  repository.CacheStore
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedVerifier wraps next with a cache of the given TTL.
func NewCachedVerifier(next Verifier, cache repository.CacheStore, ttl time.Duration, logger *slog.Logger) *CachedVerifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedVerifier{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (project.Account, error) {
	key := cacheKey(token)
	if data, err := v.cache.GetCached(ctx, key); err == nil {
		var acct project.Account
		if json.Unmarshal(data, &acct) == nil && acct.ID != "" {
			return acct, nil
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		v.logger.Warn("identity cache read failed", "error", err)
	}

	res, err, _ := v.group.Do(key, func() (any, error) {
		acct, err := v.next.Verify(ctx, token)
		if err != nil {
			return project.Account{}, err
		}
		if data, err := json.Marshal(acct); err == nil {
			if err := v.cache.PutCached(ctx, key, data, v.ttl); err != nil {
				v.logger.Warn("identity cache write failed", "error", err)
			}
		}
		return acct, nil
	})
	if err != nil {
		return project.Account{}, err
	}
	return res.(project.Account), nil
}
