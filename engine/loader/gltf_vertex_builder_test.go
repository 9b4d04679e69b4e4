package loader

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVertexBuilder(t *testing.T, b *docBuilder, flipV bool) *vertexBufferBuilder {
	return newVertexBufferBuilder(b.document(), b.views(t), flipV)
}

func TestVertexCacheKey(t *testing.T) {
	a := vertexCacheKey(map[string]int{"POSITION": 0, "NORMAL": 1, "_CUSTOM": 9})
	b := vertexCacheKey(map[string]int{"NORMAL": 1, "POSITION": 0})
	assert.Equal(t, "NORMAL:1,POSITION:0", a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, vertexCacheKey(map[string]int{"POSITION": 0, "NORMAL": 2}))
}

func TestBuildInterleavedSource(t *testing.T) {
	// position and normal already interleaved with a 24 byte stride
	b := newDocBuilder()
	src := []float32{
		0, 0, 0, 0, 0, 1,
		1, 0, 0, 0, 0, 1,
		0, 1, 0, 0, 0, 1,
	}
	view := b.addView(leBytes(src), 24)
	pos := b.addAccessor(gltfAccessor{BufferView: ptr(view), ComponentType: 5126, Count: 3, Type: "VEC3"})
	nrm := b.addAccessor(gltfAccessor{BufferView: ptr(view), ByteOffset: 12, ComponentType: 5126, Count: 3, Type: "VEC3"})

	vb, err := newTestVertexBuilder(t, b, false).build(map[string]int{"NORMAL": nrm, "POSITION": pos}, nil)
	require.NoError(t, err)
	require.NotNil(t, vb)
	assert.Equal(t, 3, vb.NumVertices)
	assert.Equal(t, 24, vb.Format.Stride)
	assert.Equal(t, leBytes(src), vb.Data)

	el, ok := vb.Format.Element(model.SemanticNormal)
	require.True(t, ok)
	assert.Equal(t, 12, el.Offset)
}

func TestBuildSeparateStreams(t *testing.T) {
	b := newDocBuilder()
	pos := b.addPositions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	uv := b.addFloats("VEC2", []float32{0, 0, 1, 0, 0, 1})
	colorView := b.addView([]byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255}, 0)
	col := b.addAccessor(gltfAccessor{BufferView: ptr(colorView), ComponentType: 5121, Normalized: true, Count: 3, Type: "VEC4"})

	vb, err := newTestVertexBuilder(t, b, false).build(map[string]int{"POSITION": pos, "TEXCOORD_0": uv, "COLOR_0": col}, []uint32{0, 1, 2})
	require.NoError(t, err)

	semantics := make([]model.Semantic, 0, len(vb.Format.Elements))
	for _, el := range vb.Format.Elements {
		semantics = append(semantics, el.Semantic)
	}
	// normals are generated and the layout follows the canonical order
	assert.Equal(t, []model.Semantic{model.SemanticPosition, model.SemanticNormal, model.SemanticColor, model.SemanticTexCoord0}, semantics)
	assert.Equal(t, 12+12+4+8, vb.Format.Stride)

	positions, err := vb.ElementFloat32s(model.SemanticPosition)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, positions)

	uvs, err := vb.ElementFloat32s(model.SemanticTexCoord0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 1}, uvs)

	colors, err := vb.ElementFloat32s(model.SemanticColor)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1}, colors)

	normals, err := vb.ElementFloat32s(model.SemanticNormal)
	require.NoError(t, err)
	for v := range 3 {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, normals[v*3:v*3+3], 1e-6)
	}
}

func TestBuildSharesVertexBuffers(t *testing.T) {
	b := newDocBuilder()
	pos := b.addPositions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	other := b.addPositions(0, 0, 0, 2, 0, 0, 0, 2, 0)
	builder := newTestVertexBuilder(t, b, false)

	first, err := builder.build(map[string]int{"POSITION": pos}, nil)
	require.NoError(t, err)
	second, err := builder.build(map[string]int{"POSITION": pos, "_BATCHID": 7}, nil)
	require.NoError(t, err)
	third, err := builder.build(map[string]int{"POSITION": other}, nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, third)
}

func TestBuildWithoutPosition(t *testing.T) {
	b := newDocBuilder()
	nrm := b.addFloats("VEC3", []float32{0, 0, 1})
	vb, err := newTestVertexBuilder(t, b, false).build(map[string]int{"NORMAL": nrm}, nil)
	require.NoError(t, err)
	assert.Nil(t, vb)
}

func TestGenerateNormalsTetrahedron(t *testing.T) {
	b := newDocBuilder()
	pos := b.addPositions(
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	)
	// outward facing, counter-clockwise triangles
	indices := []uint32{0, 2, 1, 0, 1, 3, 0, 3, 2, 1, 2, 3}

	vb, err := newTestVertexBuilder(t, b, false).build(map[string]int{"POSITION": pos}, indices)
	require.NoError(t, err)
	normals, err := vb.ElementFloat32s(model.SemanticNormal)
	require.NoError(t, err)
	require.Len(t, normals, 12)

	centroid := [3]float32{0.25, 0.25, 0.25}
	positions, _ := vb.ElementFloat32s(model.SemanticPosition)
	for v := range 4 {
		n := normals[v*3 : v*3+3]
		length := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
		assert.InDelta(t, 1, length, 1e-5, "vertex %d", v)

		var outward float32
		for c := range 3 {
			outward += n[c] * (positions[v*3+c] - centroid[c])
		}
		assert.Greater(t, outward, float32(0), "vertex %d", v)
	}

	inv := float32(1 / math.Sqrt(3))
	assert.InDeltaSlice(t, []float32{-inv, -inv, -inv}, normals[0:3], 1e-5)
}

func TestGenerateNormalsUnreferencedVertex(t *testing.T) {
	b := newDocBuilder()
	pos := b.addPositions(0, 0, 0, 1, 0, 0, 0, 1, 0, 5, 5, 5)
	vb, err := newTestVertexBuilder(t, b, false).build(map[string]int{"POSITION": pos}, []uint32{0, 1, 2})
	require.NoError(t, err)
	normals, err := vb.ElementFloat32s(model.SemanticNormal)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(normals[9])))
}

func TestFlipV(t *testing.T) {
	b := newDocBuilder()
	pos := b.addPositions(0, 0, 0, 1, 0, 0)
	uv0 := b.addFloats("VEC2", []float32{0.5, 0.25, 0.5, 1})
	uv1View := b.addView([]byte{10, 55, 0, 255}, 0)
	uv1 := b.addAccessor(gltfAccessor{BufferView: ptr(uv1View), ComponentType: 5121, Normalized: true, Count: 2, Type: "VEC2"})
	attrs := map[string]int{"POSITION": pos, "TEXCOORD_0": uv0, "TEXCOORD_1": uv1}

	t.Run("flipped", func(t *testing.T) {
		vb, err := newTestVertexBuilder(t, b, true).build(attrs, nil)
		require.NoError(t, err)
		uvs, _ := vb.ElementFloat32s(model.SemanticTexCoord0)
		assert.Equal(t, []float32{0.5, 0.75, 0.5, 0}, uvs)

		el, _ := vb.Format.Element(model.SemanticTexCoord1)
		assert.Equal(t, byte(10), vb.Data[el.Offset])
		assert.Equal(t, byte(200), vb.Data[el.Offset+1])
		assert.Equal(t, byte(0), vb.Data[el.Stride+el.Offset])
		assert.Equal(t, byte(0), vb.Data[el.Stride+el.Offset+1])
	})

	t.Run("untouched", func(t *testing.T) {
		vb, err := newTestVertexBuilder(t, b, false).build(attrs, nil)
		require.NoError(t, err)
		uvs, _ := vb.ElementFloat32s(model.SemanticTexCoord0)
		assert.Equal(t, []float32{0.5, 0.25, 0.5, 1}, uvs)
	})

	t.Run("flipping never writes into the source buffer", func(t *testing.T) {
		builder := newTestVertexBuilder(t, b, true)
		_, err := builder.build(attrs, nil)
		require.NoError(t, err)
		values, err := accessorFloat32(&builder.doc.Accessors[uv0], builder.views)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.25, 0.5, 1}, values)
	})
}

func TestFlipVModeResolve(t *testing.T) {
	assert.True(t, FlipVAuto.resolve("PlayCanvas"))
	assert.False(t, FlipVAuto.resolve("Blender"))
	assert.True(t, FlipVAlways.resolve("Blender"))
	assert.False(t, FlipVNever.resolve("PlayCanvas"))
}
