package loader

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/sirupsen/logrus"
)

// Root exposes the document-level data extension hooks may need, such as root extension tables
// that node or material extensions index into.
type Root struct {
	// Generator is asset.generator.
	Generator string

	// Extensions are the raw root extension payloads.
	Extensions map[string]json.RawMessage

	// Extras is the raw root extras object.
	Extras json.RawMessage
}

// Extension returns the raw payload of a root extension.
//
// Parameters:
//   - name: the extension name
//
// Returns:
//   - json.RawMessage: the payload
//   - bool: false if the root does not carry the extension
func (r *Root) Extension(name string) (json.RawMessage, bool) {
	if r == nil {
		return nil, false
	}
	raw, ok := r.Extensions[name]
	return raw, ok
}

// ExtensionParsers holds the hooks one extension registers for one object category.
type ExtensionParsers[T any] struct {
	// PreParse receives the raw extension payload before the object is built.
	PreParse func(raw json.RawMessage) error

	// PostParse receives the built object, the raw extension payload and the document root.
	PostParse func(obj T, raw json.RawMessage, root *Root) error
}

// ExtensionParserRegistry maps extension names to hooks for one category of object.
// It is safe for concurrent use.
type ExtensionParserRegistry[T any] struct {
	mu       sync.RWMutex
	parsers  map[string]ExtensionParsers[T]
	needRoot bool
	owner    *ExtensionRegistry
}

// NewExtensionParserRegistry creates an empty registry not attached to any ExtensionRegistry.
// Its PostParse never needs a captured root.
//
// Returns:
//   - *ExtensionParserRegistry[T]: the registry
func NewExtensionParserRegistry[T any]() *ExtensionParserRegistry[T] {
	return &ExtensionParserRegistry[T]{parsers: make(map[string]ExtensionParsers[T])}
}

// Add registers hooks under an extension name.
//
// Parameters:
//   - name: the extension name
//   - parsers: the hooks
//
// Returns:
//   - bool: false if the name is already registered (the existing hooks are kept)
func (r *ExtensionParserRegistry[T]) Add(name string, parsers ExtensionParsers[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parsers[name]; ok {
		return false
	}
	r.parsers[name] = parsers
	return true
}

// Remove unregisters an extension name. Unknown names are ignored.
func (r *ExtensionParserRegistry[T]) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parsers, name)
}

// RemoveAll unregisters every extension.
func (r *ExtensionParserRegistry[T]) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = make(map[string]ExtensionParsers[T])
}

// Find returns the hooks registered under name.
func (r *ExtensionParserRegistry[T]) Find(name string) (ExtensionParsers[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	return p, ok
}

// Index returns a copy of every registration.
func (r *ExtensionParserRegistry[T]) Index() map[string]ExtensionParsers[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ExtensionParsers[T], len(r.parsers))
	for k, v := range r.parsers {
		out[k] = v
	}
	return out
}

// PreParse calls the PreParse hook of every registered extension present in exts.
//
// Parameters:
//   - exts: the object's raw extensions
//
// Returns:
//   - error: the first hook error
func (r *ExtensionParserRegistry[T]) PreParse(exts map[string]json.RawMessage) error {
	for _, name := range sortedNames(exts) {
		p, ok := r.Find(name)
		if !ok || p.PreParse == nil {
			continue
		}
		if err := p.PreParse(exts[name]); err != nil {
			return newLoadError(KindInvalidAsset, err, "extension %s", name)
		}
	}
	return nil
}

// PostParse calls the PostParse hook of every registered extension present in exts, in name
// order. Extensions without a registration are ignored. When the registry belongs to an
// ExtensionRegistry that has not captured a root yet, the hooks are skipped with a warning.
//
// Parameters:
//   - obj: the object built from the glTF data
//   - exts: the object's raw extensions
//
// Returns:
//   - error: the first hook error
func (r *ExtensionParserRegistry[T]) PostParse(obj T, exts map[string]json.RawMessage) error {
	if len(exts) == 0 {
		return nil
	}
	var root *Root
	if r.owner != nil {
		root = r.owner.Root()
		if root == nil && r.needRoot {
			r.owner.logger.WithField("extensions", sortedNames(exts)).
				Warn("document root not captured before postParse, skipping extensions")
			return nil
		}
	}
	for _, name := range sortedNames(exts) {
		p, ok := r.Find(name)
		if !ok {
			if r.owner != nil {
				r.owner.logger.WithField("extension", name).Debug("no parser registered for extension")
			}
			continue
		}
		if p.PostParse == nil {
			continue
		}
		if err := p.PostParse(obj, exts[name], root); err != nil {
			return newLoadError(KindInvalidAsset, err, "extension %s", name)
		}
	}
	return nil
}

func sortedNames(exts map[string]json.RawMessage) []string {
	names := make([]string, 0, len(exts))
	for k := range exts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExtensionRegistry groups the per-category registries used during one load.
type ExtensionRegistry struct {
	Node     *ExtensionParserRegistry[*scene.Node]
	Scene    *ExtensionParserRegistry[scene.Scene]
	Camera   *ExtensionParserRegistry[camera.Camera]
	Texture  *ExtensionParserRegistry[*model.Texture]
	Material *ExtensionParserRegistry[*material.Material]

	mu     sync.RWMutex
	root   *Root
	logger logrus.FieldLogger
}

// NewExtensionRegistry creates an empty registry.
//
// Parameters:
//   - logger: receives skipped-hook warnings (nil uses the standard logger)
//
// Returns:
//   - *ExtensionRegistry: the registry
func NewExtensionRegistry(logger logrus.FieldLogger) *ExtensionRegistry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &ExtensionRegistry{logger: logger}
	r.Node = newOwnedRegistry[*scene.Node](r, true)
	r.Scene = newOwnedRegistry[scene.Scene](r, true)
	r.Camera = newOwnedRegistry[camera.Camera](r, true)
	// texture hooks never see the root
	r.Texture = newOwnedRegistry[*model.Texture](r, false)
	r.Material = newOwnedRegistry[*material.Material](r, true)
	return r
}

func newOwnedRegistry[T any](owner *ExtensionRegistry, needRoot bool) *ExtensionParserRegistry[T] {
	r := NewExtensionParserRegistry[T]()
	r.owner = owner
	r.needRoot = needRoot
	return r
}

// Preprocess captures the document root so later PostParse hooks can read root extensions.
func (r *ExtensionRegistry) Preprocess(doc *gltfDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = &Root{
		Generator:  doc.Asset.Generator,
		Extensions: doc.Extensions,
		Extras:     doc.Extras,
	}
}

// Root returns the captured document root, or nil before Preprocess.
func (r *ExtensionRegistry) Root() *Root {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// RemoveAll clears every category registry and forgets the captured root.
func (r *ExtensionRegistry) RemoveAll() {
	r.Node.RemoveAll()
	r.Scene.RemoveAll()
	r.Camera.RemoveAll()
	r.Texture.RemoveAll()
	r.Material.RemoveAll()
	r.mu.Lock()
	r.root = nil
	r.mu.Unlock()
}

// ExtensionParser is a self-contained extension implementation. It registers its per-object hooks
// before a load, finishes its work on the complete asset, and unregisters afterwards.
type ExtensionParser interface {
	// Name returns the glTF extension name the parser handles.
	//
	// Returns:
	//   - string: the extension name
	Name() string

	// Register adds the parser's hooks to the registry.
	//
	// Parameters:
	//   - registry: the per-load registry
	Register(registry *ExtensionRegistry)

	// Unregister removes the parser's hooks and drops any per-load state.
	//
	// Parameters:
	//   - registry: the per-load registry
	Unregister(registry *ExtensionRegistry)

	// PostParse runs once the whole asset is built.
	//
	// Parameters:
	//   - asset: the loaded asset
	//
	// Returns:
	//   - error: error if the extension data is unusable
	PostParse(asset *Asset) error
}
