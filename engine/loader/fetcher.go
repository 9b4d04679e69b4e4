package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// Fetcher supplies the raw bytes behind a URL. Implementations must be safe for concurrent use;
// the loader fetches external buffers and images in parallel.
type Fetcher interface {
	// Fetch retrieves the resource at url.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - url: the resource URL (already joined with the asset's base URL)
	//
	// Returns:
	//   - []byte: the resource body
	//   - error: error if the resource could not be retrieved
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher retrieves resources with an http.Client. Non-2xx responses are errors.
type HTTPFetcher struct {
	Client *http.Client
}

var _ Fetcher = &HTTPFetcher{}

// NewHTTPFetcher creates an HTTPFetcher whose client times out after timeout (0 disables the timeout).
//
// Parameters:
//   - timeout: per-request timeout
//
// Returns:
//   - *HTTPFetcher: the fetcher
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FSFetcher reads resources from a file system. URLs are slash-separated paths relative to the
// file system root; a leading "/" or "file://" prefix is ignored and percent-escapes are decoded.
type FSFetcher struct {
	FS fs.FS
}

var _ Fetcher = &FSFetcher{}

// NewFSFetcher creates an FSFetcher rooted at a directory on disk.
//
// Parameters:
//   - root: the directory URLs are resolved against
//
// Returns:
//   - *FSFetcher: the fetcher
func NewFSFetcher(root string) *FSFetcher {
	if root == "" {
		root = "."
	}
	return &FSFetcher{FS: os.DirFS(root)}
}

func (f *FSFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(rawURL, "file://")
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = "."
	}
	return fs.ReadFile(f.FS, name)
}

// SchemeFetcher routes http(s) URLs to one fetcher and everything else to another.
type SchemeFetcher struct {
	HTTP  Fetcher
	Local Fetcher
}

var _ Fetcher = &SchemeFetcher{}

func (f *SchemeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if f.HTTP == nil {
			return nil, fmt.Errorf("no http fetcher configured for %s", rawURL)
		}
		return f.HTTP.Fetch(ctx, rawURL)
	}
	if f.Local == nil {
		return nil, fmt.Errorf("no local fetcher configured for %s", rawURL)
	}
	return f.Local.Fetch(ctx, rawURL)
}

// hasScheme reports whether uri is absolute ("http://...", "file://...", "blob:...").
func hasScheme(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.Scheme != "" && len(u.Scheme) > 1
}

// baseURL returns the directory part of a load URL, without the query string.
func baseURL(loadURL string) string {
	if i := strings.IndexByte(loadURL, '?'); i >= 0 {
		loadURL = loadURL[:i]
	}
	i := strings.LastIndexByte(loadURL, '/')
	if i < 0 {
		return ""
	}
	return loadURL[:i]
}

// joinURL resolves a resource URI against the asset's base URL. Absolute URIs and rooted
// paths are returned unchanged.
func joinURL(base, uri string) string {
	if base == "" || hasScheme(uri) || strings.HasPrefix(uri, "/") {
		return uri
	}
	return strings.TrimSuffix(base, "/") + "/" + uri
}
