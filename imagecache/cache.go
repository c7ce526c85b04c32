// Package imagecache provides deduplicated async image loading with an
// in-memory pixel cache, a throttled preload queue, and a small persistent
// metadata store with TTL records.
package imagecache

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"
	"time"
)

// Handle is a decoded image keyed by the URI it was loaded from.
type Handle struct {
	URI   string
	Image image.Image
}

// Decoder resolves a URI into pixels. Injectable so tests and remote loaders
// can replace the filesystem default.
type Decoder func(ctx context.Context, uri string) (image.Image, error)

type entry struct {
	ready chan struct{}
	h     *Handle
	err   error
}

// Cache deduplicates concurrent loads of the same URI: every caller asking
// for an in-flight URI waits on the same decode and receives the identical
// handle. Successful decodes are cached for the process lifetime; failures
// are not cached, so a later retry decodes again.
type Cache struct {
	mu      sync.Mutex
	decode  Decoder
	entries map[string]*entry

	preloadDelay time.Duration
	preloadCh    chan string
	closeCh      chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
}

const defaultPreloadDelay = 150 * time.Millisecond

// New builds a cache using decode, or the filesystem/data-URI decoder when
// decode is nil.
func New(decode Decoder) *Cache {
	if decode == nil {
		decode = DecodeURI
	}
	c := &Cache{
		decode:       decode,
		entries:      make(map[string]*entry),
		preloadDelay: defaultPreloadDelay,
		preloadCh:    make(chan string, 64),
		closeCh:      make(chan struct{}),
	}
	c.wg.Add(1)
	go c.preloadLoop()
	return c
}

// Load returns the handle for uri, decoding it at most once no matter how
// many callers ask concurrently.
func (c *Cache) Load(ctx context.Context, uri string) (*Handle, error) {
	if uri == "" {
		return nil, fmt.Errorf("imagecache: empty uri")
	}

	c.mu.Lock()
	if e, ok := c.entries[uri]; ok {
		c.mu.Unlock()
		return c.wait(ctx, e)
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[uri] = e
	c.mu.Unlock()

	img, err := c.decode(ctx, uri)
	if err != nil {
		e.err = fmt.Errorf("imagecache: load %q: %w", uri, err)
		// failed loads are not cached; the next Load retries
		c.mu.Lock()
		delete(c.entries, uri)
		c.mu.Unlock()
	} else {
		e.h = &Handle{URI: uri, Image: img}
	}
	close(e.ready)
	return e.h, e.err
}

func (c *Cache) wait(ctx context.Context, e *entry) (*Handle, error) {
	select {
	case <-e.ready:
		return e.h, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put inserts an already decoded image under uri, used for uploads and
// sliced atlas cells that never existed as loadable resources. An existing
// entry for uri is left alone.
func (c *Cache) Put(uri string, img image.Image) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok {
		select {
		case <-e.ready:
			if e.h != nil {
				return e.h
			}
		default:
		}
	}
	e := &entry{ready: make(chan struct{}), h: &Handle{URI: uri, Image: img}}
	close(e.ready)
	c.entries[uri] = e
	return e.h
}

// Cached reports whether uri has finished loading successfully.
func (c *Cache) Cached(uri string) bool {
	return c.Get(uri) != nil
}

// Get returns the cached handle for uri without blocking, or nil if it is
// absent or still in flight.
func (c *Cache) Get(uri string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[uri]
	if !ok {
		return nil
	}
	select {
	case <-e.ready:
		return e.h
	default:
		return nil
	}
}

// Preload queues uris for best-effort background warmup. Items decode one at
// a time with a short delay between them so warmup never competes with
// user-triggered loads; failures are skipped silently.
func (c *Cache) Preload(uris []string) {
	for _, uri := range uris {
		select {
		case c.preloadCh <- uri:
		case <-c.closeCh:
			return
		default:
			// queue full, drop; preload is best effort
		}
	}
}

func (c *Cache) preloadLoop() {
	defer c.wg.Done()
	for {
		select {
		case uri := <-c.preloadCh:
			if uri == "" || c.Cached(uri) {
				continue
			}
			_, _ = c.Load(context.Background(), uri)
			select {
			case <-time.After(c.preloadDelay):
			case <-c.closeCh:
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// Close stops the preload worker. Cached handles stay readable.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
	c.wg.Wait()
}

// DecodeURI is the default decoder: it understands plain file paths, file://
// URIs, and base64 data URIs.
func DecodeURI(ctx context.Context, uri string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b []byte
	var err error
	switch {
	case strings.HasPrefix(uri, "data:"):
		b, err = decodeDataURI(uri)
	case strings.HasPrefix(uri, "file://"):
		b, err = os.ReadFile(strings.TrimPrefix(uri, "file://"))
	default:
		b, err = os.ReadFile(uri)
	}
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data uri")
	}
	meta, payload := uri[:idx], uri[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data uri encoding %q", meta)
	}
	return base64.StdEncoding.DecodeString(payload)
}
