package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader fetches artifacts and keeps one Session per artifact name for the
// lifetime of the process. Concurrent first loads of the same name share a
// single fetch and load.
type Loader struct {
	runtime Runtime
	cache   *cache.Cache
	group   singleflight.Group
	logger  *zap.SugaredLogger
}

type cachedSession struct {
	session Session
	digest  string
}

// NewLoader creates a Loader backed by rt
func NewLoader(rt Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		runtime: rt,
		cache:   cache.New(cache.NoExpiration, 0),
		logger:  logger.Sugar(),
	}
}

// Load returns the cached session for name, fetching and loading it on first use.
// Failures are not cached; the next call makes a fresh single attempt.
func (l *Loader) Load(ctx context.Context, name string, src ArtifactFetcher) (Session, error) {
	if v, ok := l.cache.Get(name); ok {
		return v.(*cachedSession).session, nil
	}

	v, err, _ := l.group.Do(name, func() (interface{}, error) {
		if v, ok := l.cache.Get(name); ok {
			return v.(*cachedSession), nil
		}

		start := time.Now()
		artifact, err := src.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch artifact: %w", err)
		}

		session, err := l.runtime.Load(ctx, artifact)
		if err != nil {
			return nil, err
		}

		sum := sha256.Sum256(artifact)
		entry := &cachedSession{session: session, digest: hex.EncodeToString(sum[:])}
		l.cache.Set(name, entry, cache.NoExpiration)

		l.logger.Infow("Model session loaded",
			"artifact", name,
			"format", Sniff(artifact),
			"sha256", entry.digest[:12],
			"duration", time.Since(start),
		)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cachedSession).session, nil
}

// Loaded reports whether a session for name is cached
func (l *Loader) Loaded(name string) bool {
	_, ok := l.cache.Get(name)
	return ok
}

// Evict drops and closes the cached session for name
func (l *Loader) Evict(name string) {
	v, ok := l.cache.Get(name)
	if !ok {
		return
	}
	l.cache.Delete(name)
	if err := v.(*cachedSession).session.Close(); err != nil {
		l.logger.Warnw("Failed to close evicted session", "artifact", name, "error", err)
	}
}

// Close releases every cached session
func (l *Loader) Close() {
	for name := range l.cache.Items() {
		l.Evict(name)
	}
}
