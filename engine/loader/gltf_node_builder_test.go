package loader

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNodeBuilder(doc *gltfDocument, meshes []*model.Mesh) (*gltfNodeBuilder, *test.Hook) {
	logger, hook := nullLogger()
	registry := NewExtensionRegistry(logger)
	registry.Preprocess(doc)
	return newGLTFNodeBuilder(doc, meshes, registry, logger), hook
}

func TestNodeName(t *testing.T) {
	assert.Equal(t, "node_3", nodeName("", 3))
	assert.Equal(t, "arm_left_hand", nodeName("arm/left/hand", 0))
	assert.Equal(t, "root", nodeName("root", 7))
}

func TestBuildNodesTransforms(t *testing.T) {
	s2 := float32(math.Sqrt2 / 2)
	// 90° about Z, uniform scale 2, translation (1, 2, 3), column-major
	matrix := [16]float32{
		0, 2, 0, 0,
		-2, 0, 0, 0,
		0, 0, 2, 0,
		1, 2, 3, 1,
	}
	doc := &gltfDocument{Nodes: []gltfNode{
		{Name: "matrix", Matrix: &matrix},
		{Name: "trs", Translation: &[3]float32{4, 5, 6}, Rotation: &[4]float32{0, s2, 0, s2}, Scale: &[3]float32{1, 2, 3}},
		{Skin: ptr(2), Extras: json.RawMessage(`{"tag":"x"}`)},
	}}
	nb, _ := newTestNodeBuilder(doc, nil)
	nodes, err := nb.buildNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	m := nodes[0]
	assert.Equal(t, 0, m.Index)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, m.Transform.Translation[:], 1e-5)
	assert.InDeltaSlice(t, []float32{2, 2, 2}, m.Transform.Scale[:], 1e-5)
	assert.InDeltaSlice(t, []float32{0, 0, s2, s2}, m.Transform.Rotation[:], 1e-5)
	local := m.LocalMatrix()
	assert.InDeltaSlice(t, matrix[:], local[:], 1e-5)

	trs := nodes[1]
	assert.Equal(t, [3]float32{4, 5, 6}, trs.Transform.Translation)
	assert.Equal(t, [4]float32{0, s2, 0, s2}, trs.Transform.Rotation)
	assert.Equal(t, [3]float32{1, 2, 3}, trs.Transform.Scale)

	plain := nodes[2]
	assert.Equal(t, "node_2", plain.Name)
	assert.Equal(t, model.IdentityTransform(), plain.Transform)
	require.NotNil(t, plain.Skin)
	assert.Equal(t, 2, *plain.Skin)
	assert.JSONEq(t, `{"tag":"x"}`, string(plain.Extras))
}

func TestBuildNodesHierarchy(t *testing.T) {
	mesh := &model.Mesh{Name: "m"}
	doc := &gltfDocument{Nodes: []gltfNode{
		{Name: "root", Children: []int{1, 2}},
		{Name: "a", Children: []int{2}, Mesh: ptr(0)},
		{Name: "b"},
		{Name: "other", Children: []int{1}},
	}}
	builder, hook := newTestNodeBuilder(doc, []*model.Mesh{mesh})
	nodes, err := builder.buildNodes()
	require.NoError(t, err)

	assert.Nil(t, nodes[0].Parent())
	assert.Same(t, nodes[0], nodes[1].Parent())
	// the first parent wins
	assert.Same(t, nodes[0], nodes[2].Parent())
	assert.Empty(t, nodes[1].Children())
	assert.Equal(t, []*scene.Node{nodes[1], nodes[2]}, nodes[0].Children())
	assert.Empty(t, nodes[3].Children())
	assert.Same(t, mesh, nodes[1].Mesh)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestBuildNodesErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []gltfNode
	}{
		{"child out of range", []gltfNode{{Children: []int{4}}}},
		{"negative child", []gltfNode{{Children: []int{-1}}}},
		{"mesh out of range", []gltfNode{{Mesh: ptr(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder, _ := newTestNodeBuilder(&gltfDocument{Nodes: tt.nodes}, nil)
			_, err := builder.buildNodes()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAsset))
		})
	}
}

func TestBuildScenes(t *testing.T) {
	t.Run("no scenes", func(t *testing.T) {
		builder, _ := newTestNodeBuilder(&gltfDocument{}, nil)
		scenes, def, err := builder.buildScenes(nil)
		require.NoError(t, err)
		assert.Empty(t, scenes)
		assert.Equal(t, -1, def)
	})

	doc := &gltfDocument{
		Nodes: []gltfNode{{Name: "a", Children: []int{1}}, {Name: "b"}, {Name: "c"}},
		Scenes: []gltfScene{
			{Nodes: []int{0, 9}},
			{Name: "second", Nodes: []int{2, 1}},
		},
		Scene: ptr(1),
	}
	builder, _ := newTestNodeBuilder(doc, nil)
	nodes, err := builder.buildNodes()
	require.NoError(t, err)
	scenes, def, err := builder.buildScenes(nodes)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, 1, def)

	assert.Equal(t, "scene_0", scenes[0].Name())
	assert.Equal(t, []*scene.Node{nodes[0], nodes[1]}, scenes[0].Nodes())

	assert.Equal(t, "second", scenes[1].Name())
	// b already belongs to a, only c is attached
	assert.Equal(t, []*scene.Node{nodes[2]}, scenes[1].Nodes())

	t.Run("default scene out of range", func(t *testing.T) {
		doc.Scene = ptr(5)
		builder, _ := newTestNodeBuilder(doc, nil)
		nodes, err := builder.buildNodes()
		require.NoError(t, err)
		_, def, err := builder.buildScenes(nodes)
		require.NoError(t, err)
		assert.Equal(t, 0, def)
	})
}

func TestBuildCameras(t *testing.T) {
	doc := &gltfDocument{
		Cameras: []gltfCamera{
			{Type: "perspective", Perspective: &gltfCameraPerspective{Yfov: math.Pi / 4, Znear: 0.01}},
			{Type: "orthographic", Orthographic: &gltfCameraOrthographic{Xmag: 4, Ymag: 2, Znear: 0.5, Zfar: 50}},
			{Type: "perspective", Perspective: &gltfCameraPerspective{Yfov: 1, Znear: 1, Zfar: ptr(float32(100)), AspectRatio: ptr(float32(1.5))}},
		},
		Nodes: []gltfNode{
			{Name: "eye", Camera: ptr(0)},
			{Name: "top", Camera: ptr(1)},
			{Name: "wide", Camera: ptr(2)},
			{Name: "dangling", Camera: ptr(8)},
		},
	}
	builder, _ := newTestNodeBuilder(doc, nil)
	nodes, err := builder.buildNodes()
	require.NoError(t, err)
	cameras, err := builder.buildCameras(nodes)
	require.NoError(t, err)
	require.Len(t, cameras, 3)

	persp := cameras[0]
	assert.Same(t, persp, nodes[0].Camera)
	assert.Equal(t, "eye", persp.Name())
	assert.Equal(t, camera.ProjectionPerspective, persp.Projection())
	assert.InDelta(t, 45, persp.Fov(), 1e-4)
	assert.Equal(t, float32(0.01), persp.NearClip())
	assert.Equal(t, float32(0), persp.FarClip())
	assert.Equal(t, camera.AspectAuto, persp.AspectRatioMode())
	assert.False(t, persp.Enabled())

	ortho := cameras[1]
	assert.Equal(t, camera.ProjectionOrthographic, ortho.Projection())
	assert.Equal(t, float32(2), ortho.OrthoHeight())
	assert.Equal(t, float32(2), ortho.AspectRatio())
	assert.Equal(t, camera.AspectManual, ortho.AspectRatioMode())
	assert.Equal(t, float32(50), ortho.FarClip())

	wide := cameras[2]
	assert.Equal(t, float32(1.5), wide.AspectRatio())
	assert.Equal(t, float32(100), wide.FarClip())

	assert.Nil(t, nodes[3].Camera)

	t.Run("missing projection block", func(t *testing.T) {
		for _, typ := range []string{"perspective", "orthographic"} {
			_, err := newCamera(&gltfCamera{Type: typ}, "broken")
			assert.True(t, errors.Is(err, ErrInvalidAsset), typ)
		}
	})

	t.Run("no cameras", func(t *testing.T) {
		builder, _ := newTestNodeBuilder(&gltfDocument{Nodes: []gltfNode{{Camera: ptr(0)}}}, nil)
		nodes, err := builder.buildNodes()
		require.NoError(t, err)
		cameras, err := builder.buildCameras(nodes)
		require.NoError(t, err)
		assert.Equal(t, []camera.Camera{}, cameras)
	})
}

func TestBuildLights(t *testing.T) {
	doc := &gltfDocument{
		Extensions: ext(extLightsPunctual, `{"lights": [
			{"type": "point"},
			{"name": "sun", "type": "directional", "color": [1, 0.5, 0], "intensity": 3},
			{"type": "spot", "range": 10, "spot": {"innerConeAngle": 0.5235988, "outerConeAngle": 0.7853982}}
		]}`),
		Nodes: []gltfNode{
			{Name: "lamp", Extensions: ext(extLightsPunctual, `{"light": 0}`)},
			{Name: "sky", Extensions: ext(extLightsPunctual, `{"light": 1}`)},
			{Name: "torch", Extensions: ext(extLightsPunctual, `{"light": 2}`)},
			{Name: "none", Extensions: ext(extLightsPunctual, `{"light": 7}`)},
		},
	}
	builder, _ := newTestNodeBuilder(doc, nil)
	nodes, err := builder.buildNodes()
	require.NoError(t, err)
	lights, err := builder.buildLights(nodes)
	require.NoError(t, err)
	require.Len(t, lights, 3)

	point := lights[0]
	assert.Equal(t, light.LightTypePoint, point.Type())
	assert.Equal(t, "lamp", point.Name())
	assert.Equal(t, [3]float32{1, 1, 1}, point.Color())
	assert.Equal(t, float32(1), point.Intensity())
	assert.True(t, math.IsInf(float64(point.Range()), 1))

	require.Len(t, nodes[0].Children(), 1)
	holder := nodes[0].Children()[0]
	assert.Equal(t, "lamp", holder.Name)
	assert.Equal(t, -1, holder.Index)
	assert.Same(t, point, holder.Light)
	assert.Equal(t, lightNodeRotation, holder.Transform.Rotation)
	assert.Nil(t, nodes[0].Light)

	sun := lights[1]
	assert.Equal(t, "sun", sun.Name())
	assert.Equal(t, [3]float32{1, 0.5, 0}, sun.Color())
	assert.Equal(t, float32(3), sun.Intensity())

	spot := lights[2]
	assert.Equal(t, float32(10), spot.Range())
	assert.InDelta(t, 30, spot.InnerConeAngle(), 1e-4)
	assert.InDelta(t, 45, spot.OuterConeAngle(), 1e-4)

	assert.Empty(t, nodes[3].Children())

	t.Run("unknown type", func(t *testing.T) {
		_, err := newLight(&gltfLight{Type: "area"}, "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidAsset))
	})

	t.Run("no punctual lights", func(t *testing.T) {
		builder, _ := newTestNodeBuilder(&gltfDocument{}, nil)
		lights, err := builder.buildLights(nil)
		require.NoError(t, err)
		assert.Equal(t, []light.Light{}, lights)
	})
}

func TestNodeExtensionHooks(t *testing.T) {
	doc := &gltfDocument{Nodes: []gltfNode{
		{Name: "a", Extensions: ext("X_fail", `{}`)},
	}}
	builder, _ := newTestNodeBuilder(doc, nil)
	builder.registry.Node.Add("X_fail", ExtensionParsers[*scene.Node]{
		PostParse: func(*scene.Node, json.RawMessage, *Root) error {
			return errors.New("boom")
		},
	})
	_, err := builder.buildNodes()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAsset))
	assert.Contains(t, err.Error(), "boom")
}
