package loader

import "context"

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - importer: the importer that runs the load pipeline
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(importer gltfImporter) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: importer,
	}
}

func (b *gltfLoaderBackendImpl) Load(ctx context.Context, url string, data []byte) (*Asset, error) {
	return b.importer.Import(ctx, url, data)
}
