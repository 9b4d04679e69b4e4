package loader

import "context"

// loaderBackend defines the generic interface for turning the bytes of one asset file into an Asset.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full import of an asset whose top-level file is already in memory.
	// Resources the file references are fetched relative to url.
	//
	// Parameters:
	//   - ctx: cancels outstanding resource fetches
	//   - url: the URL the data was loaded from, used for container detection and relative URIs
	//   - data: the top-level file contents
	//
	// Returns:
	//   - *Asset: the imported asset
	//   - error: error if loading fails
	Load(ctx context.Context, url string, data []byte) (*Asset, error)
}
