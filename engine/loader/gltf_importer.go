package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	fetcher     *resourceFetcher
	logger      logrus.FieldLogger
	wideIndices bool
	flipV       FlipVMode
	parsers     []ExtensionParserFactory
	profile     bool

	// textureCounter numbers texture names across every import of one loader.
	textureCounter *atomic.Int64
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It runs the container reader, the resolvers and every builder in order to produce an Asset.
type gltfImporter interface {
	// Import parses a glTF or GLB file and builds the complete asset.
	// Extension parsers are registered for the duration of the call only.
	//
	// Parameters:
	//   - ctx: cancels outstanding resource fetches
	//   - url: the URL of the file, used for container detection and relative URIs
	//   - data: the file contents
	//
	// Returns:
	//   - *Asset: the fully populated asset
	//   - error: error if import fails; no partial asset is returned
	Import(ctx context.Context, url string, data []byte) (*Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// gltfImporterConfig carries the loader settings an importer runs with.
type gltfImporterConfig struct {
	fetcher        *resourceFetcher
	logger         logrus.FieldLogger
	wideIndices    bool
	flipV          FlipVMode
	parsers        []ExtensionParserFactory
	profile        bool
	textureCounter *atomic.Int64
}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - cfg: the loader settings
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(cfg gltfImporterConfig) gltfImporter {
	counter := cfg.textureCounter
	if counter == nil {
		counter = &atomic.Int64{}
	}
	logger := cfg.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &gltfImporterImpl{
		fetcher:        cfg.fetcher,
		logger:         logger,
		wideIndices:    cfg.wideIndices,
		flipV:          cfg.flipV,
		parsers:        cfg.parsers,
		profile:        cfg.profile,
		textureCounter: counter,
	}
}

func (imp *gltfImporterImpl) Import(ctx context.Context, url string, data []byte) (asset *Asset, err error) {
	logger := imp.logger.WithField("url", url)

	var prof *profiler.Profiler
	stage := func(string) func() { return func() {} }
	if imp.profile {
		prof = profiler.NewProfiler()
		stage = prof.Stage
	}

	done := stage("container")
	c, err := readContainer(url, data)
	if err != nil {
		done()
		return nil, err
	}
	doc, err := parseDocument(c.json)
	done()
	if err != nil {
		return nil, err
	}

	registry := NewExtensionRegistry(logger)
	registry.RemoveAll()
	parsers := make([]ExtensionParser, 0, len(imp.parsers))
	for _, factory := range imp.parsers {
		p := factory()
		p.Register(registry)
		parsers = append(parsers, p)
	}
	defer func() {
		for _, p := range parsers {
			p.Unregister(registry)
		}
		registry.RemoveAll()
	}()

	registry.Preprocess(doc)
	if err := preParseExtensions(doc, registry); err != nil {
		return nil, err
	}

	done = stage("buffers")
	buffers, err := resolveBuffers(ctx, doc, c.binary, baseURL(url), imp.fetcher)
	if err != nil {
		done()
		return nil, err
	}
	views, err := resolveBufferViews(doc, buffers)
	done()
	if err != nil {
		return nil, err
	}

	done = stage("textures")
	tl := &textureLoader{
		doc:      doc,
		views:    views,
		urlBase:  baseURL(url),
		fetcher:  imp.fetcher,
		registry: registry,
		counter:  imp.textureCounter,
	}
	textures, err := tl.loadTextures(ctx)
	done()
	if err != nil {
		return nil, err
	}

	done = stage("materials")
	materials, err := newGLTFMaterialExtractor(doc, textures, registry).ExtractAllMaterials()
	done()
	if err != nil {
		return nil, err
	}

	done = stage("meshes")
	builder := newVertexBufferBuilder(doc, views, imp.flipV.resolve(doc.Asset.Generator))
	meshes, err := newGLTFMeshExtractor(doc, views, builder, imp.wideIndices, logger).ExtractAllMeshes()
	done()
	if err != nil {
		return nil, err
	}

	done = stage("nodes")
	nb := newGLTFNodeBuilder(doc, meshes, registry, logger)
	nodes, err := nb.buildNodes()
	if err != nil {
		done()
		return nil, err
	}
	scenes, defaultScene, err := nb.buildScenes(nodes)
	if err != nil {
		done()
		return nil, err
	}
	cameras, err := nb.buildCameras(nodes)
	if err != nil {
		done()
		return nil, err
	}
	lights, err := nb.buildLights(nodes)
	done()
	if err != nil {
		return nil, err
	}

	asset = &Asset{
		ID:             uuid.NewString(),
		URL:            url,
		Generator:      doc.Asset.Generator,
		Version:        doc.Asset.Version,
		Scenes:         scenes,
		DefaultScene:   defaultScene,
		Nodes:          nodes,
		Meshes:         meshes,
		Materials:      materials,
		Textures:       textures,
		Cameras:        cameras,
		Lights:         lights,
		ExtensionsUsed: doc.ExtensionsUsed,
		AnimationCount: len(doc.Animations),
		SkinCount:      len(doc.Skins),
	}

	done = stage("extensions")
	for _, p := range parsers {
		if perr := p.PostParse(asset); perr != nil {
			done()
			return nil, fmt.Errorf("extension %s: %w", p.Name(), perr)
		}
	}
	done()

	warnUnsupportedRequired(doc, registry, logger)

	if prof != nil {
		prof.Report(logger, logrus.Fields{"meshes": len(meshes), "textures": len(textures)})
	}
	return asset, nil
}

// preParseExtensions runs the PreParse hooks of every object category over the raw document.
func preParseExtensions(doc *gltfDocument, registry *ExtensionRegistry) error {
	var errs []error
	for i := range doc.Nodes {
		errs = append(errs, registry.Node.PreParse(doc.Nodes[i].Extensions))
	}
	for i := range doc.Scenes {
		errs = append(errs, registry.Scene.PreParse(doc.Scenes[i].Extensions))
	}
	for i := range doc.Cameras {
		errs = append(errs, registry.Camera.PreParse(doc.Cameras[i].Extensions))
	}
	for i := range doc.Textures {
		errs = append(errs, registry.Texture.PreParse(doc.Textures[i].Extensions))
	}
	for i := range doc.Materials {
		errs = append(errs, registry.Material.PreParse(doc.Materials[i].Extensions))
	}
	return errors.Join(errs...)
}

// handledExtensions are the extensions the builders interpret themselves.
var handledExtensions = map[string]bool{
	extTextureTransform:   true,
	extTextureBasisu:      true,
	extSpecularGlossiness: true,
	extClearcoat:          true,
	extUnlit:              true,
	extLightsPunctual:     true,
}

// warnUnsupportedRequired logs required extensions that neither a builder nor a registered
// parser understands. The asset is still returned.
func warnUnsupportedRequired(doc *gltfDocument, registry *ExtensionRegistry, logger logrus.FieldLogger) {
	var missing []string
	for _, name := range doc.ExtensionsRequired {
		if handledExtensions[name] {
			continue
		}
		if _, ok := registry.Node.Find(name); ok {
			continue
		}
		if _, ok := registry.Material.Find(name); ok {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		logger.WithField("extension", strings.Join(missing, ",")).Warn("required extensions are not supported")
	}
}
