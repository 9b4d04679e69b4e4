package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

// docBuilder assembles a glTF document and its binary buffer for tests.
type docBuilder struct {
	doc gltfDocument
	bin []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: gltfDocument{Asset: gltfAsset{Version: "2.0", Generator: "oxy-gltf tests"}}}
}

// addView appends data to buffer 0 on a 4-byte boundary.
func (b *docBuilder) addView(data []byte, stride int) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	v := gltfBufferView{Buffer: 0, ByteOffset: len(b.bin), ByteLength: len(data)}
	if stride > 0 {
		v.ByteStride = ptr(stride)
	}
	b.bin = append(b.bin, data...)
	b.doc.BufferViews = append(b.doc.BufferViews, v)
	return len(b.doc.BufferViews) - 1
}

func (b *docBuilder) addAccessor(acc gltfAccessor) int {
	b.doc.Accessors = append(b.doc.Accessors, acc)
	return len(b.doc.Accessors) - 1
}

// addFloats stores float32 values in their own view. typ decides the element count.
func (b *docBuilder) addFloats(typ string, values []float32) int {
	components, _ := accessorComponents(typ)
	view := b.addView(leBytes(values), 0)
	return b.addAccessor(gltfAccessor{
		BufferView:    ptr(view),
		ComponentType: int(5126),
		Count:         len(values) / components,
		Type:          typ,
	})
}

func (b *docBuilder) addPositions(values ...float32) int {
	acc := b.addFloats(gltfAccessorTypeVec3, values)
	lo := []float32{values[0], values[1], values[2]}
	hi := []float32{values[0], values[1], values[2]}
	for i := 3; i < len(values); i += 3 {
		for c := range 3 {
			lo[c] = min(lo[c], values[i+c])
			hi[c] = max(hi[c], values[i+c])
		}
	}
	b.doc.Accessors[acc].Min = lo
	b.doc.Accessors[acc].Max = hi
	return acc
}

func (b *docBuilder) addIndices16(values ...uint16) int {
	view := b.addView(leBytes(values), 0)
	return b.addAccessor(gltfAccessor{BufferView: ptr(view), ComponentType: 5123, Count: len(values), Type: gltfAccessorTypeScalar})
}

func (b *docBuilder) addIndices32(values ...uint32) int {
	view := b.addView(leBytes(values), 0)
	return b.addAccessor(gltfAccessor{BufferView: ptr(view), ComponentType: 5125, Count: len(values), Type: gltfAccessorTypeScalar})
}

func (b *docBuilder) addMesh(name string, prims ...gltfPrimitive) int {
	b.doc.Meshes = append(b.doc.Meshes, gltfMesh{Name: name, Primitives: prims})
	return len(b.doc.Meshes) - 1
}

func (b *docBuilder) addNode(n gltfNode) int {
	b.doc.Nodes = append(b.doc.Nodes, n)
	return len(b.doc.Nodes) - 1
}

func (b *docBuilder) addScene(name string, nodes ...int) int {
	b.doc.Scenes = append(b.doc.Scenes, gltfScene{Name: name, Nodes: nodes})
	if b.doc.Scene == nil {
		b.doc.Scene = ptr(0)
	}
	return len(b.doc.Scenes) - 1
}

func (b *docBuilder) addMaterial(m gltfMaterial) int {
	b.doc.Materials = append(b.doc.Materials, m)
	return len(b.doc.Materials) - 1
}

// addImage stores encoded image bytes in a view and adds a texture sampling it.
func (b *docBuilder) addImage(data []byte, mime string) int {
	view := b.addView(data, 0)
	b.doc.Images = append(b.doc.Images, gltfImage{BufferView: ptr(view), MimeType: mime})
	return len(b.doc.Images) - 1
}

func (b *docBuilder) addTexture(t gltfTexture) int {
	b.doc.Textures = append(b.doc.Textures, t)
	return len(b.doc.Textures) - 1
}

// redTriangle adds an indexed triangle with a red, double sided material and one node in one scene.
func (b *docBuilder) redTriangle() *docBuilder {
	pos := b.addPositions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := b.addIndices16(0, 1, 2)
	mat := b.addMaterial(gltfMaterial{
		Name:                 "red",
		PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorFactor: &[4]float32{1, 0, 0, 1}},
		DoubleSided:          true,
	})
	mesh := b.addMesh("triangle", gltfPrimitive{
		Attributes: map[string]int{"POSITION": pos},
		Indices:    ptr(idx),
		Material:   ptr(mat),
	})
	node := b.addNode(gltfNode{Name: "triangle", Mesh: ptr(mesh)})
	b.addScene("main", node)
	return b
}

// document returns the document with buffer 0 pointing at the binary chunk.
func (b *docBuilder) document() *gltfDocument {
	doc := b.doc
	if len(b.bin) > 0 {
		doc.Buffers = []gltfBuffer{{ByteLength: len(b.bin)}}
	}
	return &doc
}

// views resolves the document's bufferViews over the builder's binary data.
func (b *docBuilder) views(t *testing.T) []bufferView {
	t.Helper()
	views, err := resolveBufferViews(b.document(), [][]byte{b.bin})
	require.NoError(t, err)
	return views
}

// glb encodes a GLB container with the binary data as its BIN chunk.
func (b *docBuilder) glb(t *testing.T) []byte {
	t.Helper()
	js, err := json.Marshal(b.document())
	require.NoError(t, err)
	return buildGLB(js, b.bin)
}

// gltf encodes a JSON document with buffer 0 embedded as a data URI.
func (b *docBuilder) gltf(t *testing.T) []byte {
	t.Helper()
	doc := b.document()
	if len(doc.Buffers) > 0 {
		doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin)
	}
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	return js
}

// buildGLB writes a version 2 container. A nil bin omits the BIN chunk.
func buildGLB(js, bin []byte) []byte {
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	padded := append([]byte(nil), bin...)
	for len(padded)%4 != 0 {
		padded = append(padded, 0)
	}

	total := 12 + 8 + len(js)
	if bin != nil {
		total += 8 + len(padded)
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	buf.Write(js)
	if bin != nil {
		_ = binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(padded)), ChunkType: gltfGLBChunkBIN})
		buf.Write(padded)
	}
	return buf.Bytes()
}

func leBytes(data any) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, data)
	return buf.Bytes()
}

// pngBytes encodes a solid w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func nullLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// warnings returns the messages of every warning the hook recorded.
func warnings(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}
