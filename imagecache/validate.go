package imagecache

import (
	"os"
	"strings"
	"sync"
	"time"
)

const defaultGrace = 3 * time.Second

// Validator answers "is this asset missing" for URIs referenced by panel
// state. Freshly generated assets get a grace period before they are checked
// against the backing store, so an image that has been produced but not yet
// persisted is not reported as missing.
type Validator struct {
	cache  *Cache
	mu     sync.Mutex
	fresh  map[string]time.Time
	grace  time.Duration
	exists func(uri string) bool
	now    func() time.Time
}

// NewValidator builds a validator over cache. exists may be nil, in which
// case a filesystem stat is used.
func NewValidator(cache *Cache, exists func(uri string) bool) *Validator {
	if exists == nil {
		exists = fileExists
	}
	return &Validator{
		cache:  cache,
		fresh:  make(map[string]time.Time),
		grace:  defaultGrace,
		exists: exists,
		now:    time.Now,
	}
}

// MarkFresh records that uri was just produced; Missing will not flag it
// until the grace period elapses.
func (v *Validator) MarkFresh(uri string) {
	v.mu.Lock()
	v.fresh[uri] = v.now().Add(v.grace)
	v.mu.Unlock()
}

// Missing reports whether uri should be treated as a lost asset. Cached and
// freshly generated URIs are never missing.
func (v *Validator) Missing(uri string) bool {
	if uri == "" {
		return false
	}
	if v.cache != nil && v.cache.Cached(uri) {
		return false
	}
	v.mu.Lock()
	until, ok := v.fresh[uri]
	if ok && v.now().Before(until) {
		v.mu.Unlock()
		return false
	}
	if ok {
		delete(v.fresh, uri)
	}
	v.mu.Unlock()
	return !v.exists(uri)
}

func fileExists(uri string) bool {
	if strings.HasPrefix(uri, "data:") {
		return true
	}
	path := strings.TrimPrefix(uri, "file://")
	_, err := os.Stat(path)
	return err == nil
}
