package loader

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

// Asset is the engine-agnostic result of loading one glTF or GLB file.
// Ownership passes to the caller; the loader keeps only a registry reference.
type Asset struct {
	// ID uniquely identifies this load.
	ID string

	// URL is the URL the asset was loaded from.
	URL string

	// Generator and Version come from the document's asset block.
	Generator string
	Version   string

	// Scenes are the document scenes, each with a synthetic root node.
	Scenes []scene.Scene

	// DefaultScene indexes Scenes, or is -1 when the document has no scenes.
	DefaultScene int

	// Nodes are indexed like the document nodes. Light child nodes are reachable only through the graph.
	Nodes []*scene.Node

	// Meshes are indexed like the document meshes.
	Meshes []*model.Mesh

	// Materials are indexed like the document materials.
	Materials []*material.Material

	// Textures are indexed like the document textures.
	Textures []*model.Texture

	// Cameras and Lights are in node order.
	Cameras []camera.Camera
	Lights  []light.Light

	// ExtensionsUsed is copied from the document.
	ExtensionsUsed []string

	// AnimationCount and SkinCount report data the loader does not build.
	AnimationCount int
	SkinCount      int
}

// Scene returns the default scene, or nil when the asset has none.
//
// Returns:
//   - scene.Scene: the default scene
func (a *Asset) Scene() scene.Scene {
	if a.DefaultScene < 0 || a.DefaultScene >= len(a.Scenes) {
		return nil
	}
	return a.Scenes[a.DefaultScene]
}

// AssetSummary is a flat count of what an asset contains.
type AssetSummary struct {
	URL        string   `json:"url" yaml:"url"`
	Generator  string   `json:"generator,omitempty" yaml:"generator,omitempty"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	Scenes     []string `json:"scenes" yaml:"scenes"`
	Nodes      int      `json:"nodes" yaml:"nodes"`
	Meshes     int      `json:"meshes" yaml:"meshes"`
	Primitives int      `json:"primitives" yaml:"primitives"`
	Vertices   int      `json:"vertices" yaml:"vertices"`
	Materials  int      `json:"materials" yaml:"materials"`
	Textures   int      `json:"textures" yaml:"textures"`
	Cameras    int      `json:"cameras" yaml:"cameras"`
	Lights     int      `json:"lights" yaml:"lights"`
	Animations int      `json:"animations" yaml:"animations"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`

	// Bounds encloses every mesh in its own space; node transforms are not applied.
	Bounds *model.BoundingBox `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// Summary counts the contents of the asset. Shared vertex buffers are counted once.
//
// Returns:
//   - AssetSummary: the counts
func (a *Asset) Summary() AssetSummary {
	s := AssetSummary{
		URL:        a.URL,
		Generator:  a.Generator,
		Version:    a.Version,
		Nodes:      len(a.Nodes),
		Meshes:     len(a.Meshes),
		Materials:  len(a.Materials),
		Textures:   len(a.Textures),
		Cameras:    len(a.Cameras),
		Lights:     len(a.Lights),
		Animations: a.AnimationCount,
		Extensions: a.ExtensionsUsed,
	}
	for _, sc := range a.Scenes {
		s.Scenes = append(s.Scenes, sc.Name())
	}
	seen := make(map[*model.VertexBuffer]bool)
	for _, m := range a.Meshes {
		s.Bounds = s.Bounds.Union(m.Bounds())
		s.Primitives += len(m.Primitives)
		for _, p := range m.Primitives {
			if p.VertexBuffer != nil && !seen[p.VertexBuffer] {
				seen[p.VertexBuffer] = true
				s.Vertices += p.VertexBuffer.NumVertices
			}
		}
	}
	return s
}
