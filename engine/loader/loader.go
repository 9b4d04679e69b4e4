package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// LoaderBackendType identifies the asset file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assets map[string]*Asset
	group  singleflight.Group

	backend loaderBackend

	fetcher         Fetcher
	logger          logrus.FieldLogger
	baseURL         string
	wideIndices     bool
	flipV           FlipVMode
	maxFetchWorkers int
	parsers         []ExtensionParserFactory
	profile         bool

	pool           worker.DynamicWorkerPool
	textureCounter atomic.Int64
}

// Loader defines the public-facing interface for loading glTF/GLB assets and keeping a registry
// of the loaded results. It is safe for concurrent use.
type Loader interface {
	// Load fetches an asset file through the configured Fetcher and imports it.
	// A URL already in the registry returns the registered asset; concurrent loads of the same
	// URL share one import.
	//
	// Parameters:
	//   - ctx: cancels outstanding fetches
	//   - url: the asset URL (".glb" selects the binary container, anything else is JSON)
	//
	// Returns:
	//   - *Asset: the loaded asset
	//   - error: error if loading fails
	Load(ctx context.Context, url string) (*Asset, error)

	// LoadBytes imports an asset whose top-level file the caller already holds.
	// The url is used for container detection, relative URIs and the registry key.
	//
	// Parameters:
	//   - ctx: cancels outstanding fetches
	//   - url: the URL the data belongs to
	//   - data: the file contents
	//
	// Returns:
	//   - *Asset: the loaded asset
	//   - error: error if loading fails
	LoadBytes(ctx context.Context, url string, data []byte) (*Asset, error)

	// Get retrieves a registered asset by URL. Returns nil if not found.
	//
	// Parameters:
	//   - url: the URL the asset was loaded from
	//
	// Returns:
	//   - *Asset: the registered asset or nil
	Get(url string) *Asset

	// Assets returns a copy of the registry.
	//
	// Returns:
	//   - map[string]*Asset: all registered assets keyed by URL
	Assets() map[string]*Asset

	// Unload removes an asset from the registry.
	//
	// Parameters:
	//   - url: the URL the asset was loaded from
	//
	// Returns:
	//   - bool: false if no asset was registered under url
	Unload(url string) bool

	// Close stops the fetch workers. The loader must not be used afterwards.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	cfg := DefaultConfig()
	l := &loader{
		mu:              sync.RWMutex{},
		assets:          make(map[string]*Asset),
		logger:          logrus.StandardLogger(),
		wideIndices:     cfg.WideIndices,
		flipV:           cfg.FlipV,
		maxFetchWorkers: cfg.MaxFetchWorkers,
	}

	for _, option := range options {
		option(l)
	}

	if l.fetcher == nil {
		l.fetcher = &SchemeFetcher{
			HTTP:  NewHTTPFetcher(cfg.FetchTimeout),
			Local: NewFSFetcher(cfg.RootDir),
		}
	}
	if l.maxFetchWorkers <= 0 {
		l.maxFetchWorkers = cfg.MaxFetchWorkers
	}
	l.pool = worker.NewDynamicWorkerPool(l.maxFetchWorkers, l.maxFetchWorkers*4, time.Second)

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(newGLTFImporter(gltfImporterConfig{
			fetcher:        &resourceFetcher{fetcher: l.fetcher, pool: l.pool},
			logger:         l.logger,
			wideIndices:    l.wideIndices,
			flipV:          l.flipV,
			parsers:        l.parsers,
			profile:        l.profile,
			textureCounter: &l.textureCounter,
		}))
	}

	return l
}

func (l *loader) Load(ctx context.Context, url string) (*Asset, error) {
	url = l.resolveURL(url)
	if a := l.lookup(url); a != nil {
		return a, nil
	}
	return l.load(url, func() (*Asset, error) {
		data, err := l.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, newLoadError(KindFetchFailure, err, "%s", url)
		}
		return l.backend.Load(ctx, url, data)
	})
}

func (l *loader) LoadBytes(ctx context.Context, url string, data []byte) (*Asset, error) {
	url = l.resolveURL(url)
	if a := l.lookup(url); a != nil {
		return a, nil
	}
	return l.load(url, func() (*Asset, error) {
		return l.backend.Load(ctx, url, data)
	})
}

// load runs one import per URL at a time and registers the result.
func (l *loader) load(url string, run func() (*Asset, error)) (*Asset, error) {
	if l.backend == nil {
		return nil, fmt.Errorf("loader: no backend configured")
	}

	v, err, _ := l.group.Do(url, func() (any, error) {
		if a := l.lookup(url); a != nil {
			return a, nil
		}
		a, err := run()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.assets[url] = a
		l.mu.Unlock()
		l.logger.WithFields(logrus.Fields{"url": url, "meshes": len(a.Meshes), "textures": len(a.Textures)}).Debug("asset loaded")
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}
	return v.(*Asset), nil
}

func (l *loader) Get(url string) *Asset {
	return l.lookup(l.resolveURL(url))
}

func (l *loader) lookup(key string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assets[key]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Asset, len(l.assets))
	for k, v := range l.assets {
		result[k] = v
	}
	return result
}

func (l *loader) Unload(url string) bool {
	url = l.resolveURL(url)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.assets[url]; !ok {
		return false
	}
	delete(l.assets, url)
	return true
}

func (l *loader) Close() {
	if l.pool != nil {
		l.pool.Stop()
	}
}

// resolveURL prefixes relative URLs with the configured base URL. URLs that already carry the
// base URL are returned unchanged, so registry keys resolve to themselves.
func (l *loader) resolveURL(url string) string {
	base := strings.TrimSuffix(l.baseURL, "/")
	if base == "" || url == base || strings.HasPrefix(url, base+"/") {
		return url
	}
	return joinURL(l.baseURL, url)
}
