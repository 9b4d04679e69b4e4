package loader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noFetch = FetcherFunc(func(context.Context, string) ([]byte, error) {
	return nil, errors.New("unexpected fetch")
})

// litScene is the red triangle plus a lightmap texture and three nodes referencing the lightmap table.
func litScene(t *testing.T) *docBuilder {
	b := newDocBuilder().redTriangle()
	b.addImage(pngBytes(t, 2, 2), "image/png")
	b.addTexture(gltfTexture{Source: ptr(0)})

	b.doc.Nodes[0].Extensions = ext(extLightmapTextures, `{"lightmap": 0}`)
	b.addNode(gltfNode{Name: "partial", Extensions: ext(extLightmapTextures, `{"lightmap": 1}`)})
	b.addNode(gltfNode{Name: "outside", Extensions: ext(extLightmapTextures, `{"lightmap": 9}`)})
	b.addNode(gltfNode{Name: "badtexture", Extensions: ext(extLightmapTextures, `{"lightmap": 2}`)})

	b.doc.ExtensionsUsed = []string{extLightmapTextures}
	b.doc.ExtensionsRequired = []string{extLightmapTextures}
	b.doc.Extensions = ext(extLightmapTextures, `{"lightmaps": [
		{
			"lightmapAdd": [0, 0, 0, 0],
			"lightmapScale": [2, 2, 2, 1],
			"coordinateScaleBias": [0.5, 0.5, 0, 0.5],
			"texture": {"index": 0, "texCoord": 1}
		},
		{"lightmapAdd": [0, 0, 0, 0], "lightmapScale": [1, 1, 1, 1]},
		{
			"lightmapAdd": [0, 0, 0, 0],
			"lightmapScale": [1, 1, 1, 1],
			"coordinateScaleBias": [1, 1, 0, 0],
			"texture": {"index": 4}
		}
	]}`)
	return b
}

func TestLightmapExtensionEndToEnd(t *testing.T) {
	logger, hook := nullLogger()
	l := NewLoader(BackendTypeGLTF,
		WithFetcher(noFetch),
		WithLogger(logger),
		WithExtensionParser(NewLightmapExtensionParser),
	)
	defer l.Close()

	a, err := l.LoadBytes(context.Background(), "lit.glb", litScene(t).glb(t))
	require.NoError(t, err)

	lm := a.Nodes[0].Lightmap
	require.NotNil(t, lm)
	assert.Same(t, a.Textures[0], lm.Texture)
	assert.Equal(t, 1, lm.TexCoord)
	assert.Equal(t, []float32{0, 0, 0, 0}, lm.LightmapAdd)
	assert.Equal(t, []float32{2, 2, 2, 1}, lm.LightmapScale)
	assert.Equal(t, []float32{0.5, 0.5, 0, 0.5}, lm.CoordinateScaleBias)

	for _, n := range a.Nodes[1:] {
		assert.Nil(t, n.Lightmap, n.Name)
	}

	skipped := map[string]logrus.Fields{}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["node"] != nil {
			skipped[e.Message] = e.Data
		}
	}
	require.Contains(t, skipped, "lightmap entry is incomplete")
	assert.Equal(t, "partial", skipped["lightmap entry is incomplete"]["node"])
	assert.Equal(t, 1, skipped["lightmap entry is incomplete"]["lightmap"])
	require.Contains(t, skipped, "lightmap index out of range")
	assert.Equal(t, "outside", skipped["lightmap index out of range"]["node"])
	assert.Equal(t, 9, skipped["lightmap index out of range"]["lightmap"])
	require.Contains(t, skipped, "lightmap texture not found")
	assert.Equal(t, "badtexture", skipped["lightmap texture not found"]["node"])
	assert.Equal(t, 4, skipped["lightmap texture not found"]["texture"])
	// the parser covers the required extension
	assert.NotContains(t, warnings(hook), "required extensions are not supported")
}

func TestLightmapExtensionMissingRootTable(t *testing.T) {
	logger, hook := nullLogger()
	l := NewLoader(BackendTypeGLTF,
		WithFetcher(noFetch),
		WithLogger(logger),
		WithExtensionParser(NewLightmapExtensionParser),
	)
	defer l.Close()

	b := litScene(t)
	b.doc.Extensions = nil
	a, err := l.LoadBytes(context.Background(), "lit.glb", b.glb(t))
	require.NoError(t, err)
	assert.Nil(t, a.Nodes[0].Lightmap)

	var missing []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "lightmap data missing" {
			missing = append(missing, e)
		}
	}
	require.Len(t, missing, 4)
	assert.Equal(t, logrus.WarnLevel, missing[0].Level)
	assert.Equal(t, 0, missing[0].Data["lightmap"])
	assert.Equal(t, "outside", missing[2].Data["node"])
}

func TestLightmapExtensionFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extensions = []string{extLightmapTextures}
	l := NewLoader(BackendTypeGLTF, WithConfig(cfg), WithFetcher(noFetch))
	defer l.Close()

	a, err := l.LoadBytes(context.Background(), "lit.glb", litScene(t).glb(t))
	require.NoError(t, err)
	assert.NotNil(t, a.Nodes[0].Lightmap)
}

func TestLightmapExtensionDisabled(t *testing.T) {
	logger, hook := nullLogger()
	l := NewLoader(BackendTypeGLTF, WithFetcher(noFetch), WithLogger(logger))
	defer l.Close()

	a, err := l.LoadBytes(context.Background(), "lit.glb", litScene(t).glb(t))
	require.NoError(t, err)
	assert.Nil(t, a.Nodes[0].Lightmap)
	assert.Contains(t, warnings(hook), "required extensions are not supported")
}

func TestLightmapParserLifecycle(t *testing.T) {
	p := NewLightmapExtensionParser()
	assert.Equal(t, extLightmapTextures, p.Name())

	registry := NewExtensionRegistry(nil)
	p.Register(registry)
	_, ok := registry.Node.Find(extLightmapTextures)
	require.True(t, ok)

	registry.Preprocess(&gltfDocument{Extensions: ext(extLightmapTextures, `{"lightmaps": [{
		"lightmapAdd": [0], "lightmapScale": [1], "coordinateScaleBias": [1], "texture": {"index": 0}
	}]}`)})
	node := scene.NewNode("n")
	require.NoError(t, registry.Node.PostParse(node, ext(extLightmapTextures, `{"lightmap": 0}`)))

	// unregistering drops the pending entries
	p.Unregister(registry)
	_, ok = registry.Node.Find(extLightmapTextures)
	assert.False(t, ok)
	require.NoError(t, p.PostParse(&Asset{}))
	assert.Nil(t, node.Lightmap)

	t.Run("malformed node payload", func(t *testing.T) {
		p := NewLightmapExtensionParser()
		p.Register(registry)
		defer p.Unregister(registry)
		err := registry.Node.PostParse(scene.NewNode("n"), map[string]json.RawMessage{extLightmapTextures: json.RawMessage(`[]`)})
		assert.True(t, errors.Is(err, ErrInvalidAsset))
	})
}
