package loader

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSemantics maps glTF attribute names to vertex semantics. Attributes not listed are ignored.
var gltfSemantics = map[string]model.Semantic{
	"POSITION":   model.SemanticPosition,
	"NORMAL":     model.SemanticNormal,
	"TANGENT":    model.SemanticTangent,
	"COLOR_0":    model.SemanticColor,
	"JOINTS_0":   model.SemanticBlendIndices,
	"WEIGHTS_0":  model.SemanticBlendWeight,
	"TEXCOORD_0": model.SemanticTexCoord0,
	"TEXCOORD_1": model.SemanticTexCoord1,
	"TEXCOORD_2": model.SemanticTexCoord2,
	"TEXCOORD_3": model.SemanticTexCoord3,
	"TEXCOORD_4": model.SemanticTexCoord4,
	"TEXCOORD_5": model.SemanticTexCoord5,
	"TEXCOORD_6": model.SemanticTexCoord6,
	"TEXCOORD_7": model.SemanticTexCoord7,
}

// vertexStream is one source attribute of a primitive.
type vertexStream struct {
	// view is the bufferView index, -1 when the stream owns its data.
	view int
	// buffer is the backing buffer index, -1 when the stream owns its data.
	buffer int
	// offset is the byte offset of the first element inside the backing buffer.
	offset int

	// data starts at the first element and runs to the end of the view.
	data []byte

	stride        int
	size          int
	count         int
	components    int
	componentType model.ComponentType
	normalized    bool
}

// vertexBufferBuilder interleaves primitive attributes into vertex buffers. Buffers are cached by
// their attribute accessors so primitives sharing accessors share one buffer.
type vertexBufferBuilder struct {
	doc   *gltfDocument
	views []bufferView
	flipV bool
	cache map[string]*model.VertexBuffer
}

func newVertexBufferBuilder(doc *gltfDocument, views []bufferView, flipV bool) *vertexBufferBuilder {
	return &vertexBufferBuilder{
		doc:   doc,
		views: views,
		flipV: flipV,
		cache: make(map[string]*model.VertexBuffer),
	}
}

// vertexCacheKey joins the sorted "ATTRIBUTE:accessor" pairs of the known semantics.
func vertexCacheKey(attributes map[string]int) string {
	ids := make([]string, 0, len(attributes))
	for name, acc := range attributes {
		if _, ok := gltfSemantics[name]; ok {
			ids = append(ids, fmt.Sprintf("%s:%d", name, acc))
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// build returns the interleaved vertex buffer for a primitive's attributes, or nil when the
// primitive has no POSITION attribute. indices are only used to generate missing normals.
func (b *vertexBufferBuilder) build(attributes map[string]int, indices []uint32) (*model.VertexBuffer, error) {
	key := vertexCacheKey(attributes)
	if vb, ok := b.cache[key]; ok {
		return vb, nil
	}

	streams := make(map[model.Semantic]*vertexStream, len(attributes))
	for name, accIndex := range attributes {
		semantic, ok := gltfSemantics[name]
		if !ok {
			continue
		}
		s, err := b.stream(accIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		streams[semantic] = s
	}

	position, ok := streams[model.SemanticPosition]
	if !ok {
		return nil, nil
	}

	if _, ok := streams[model.SemanticNormal]; !ok {
		if normal := b.generateNormals(attributes["POSITION"], indices); normal != nil {
			streams[model.SemanticNormal] = normal
		}
	}

	descs := make([]model.VertexElementDesc, 0, len(streams))
	for semantic, s := range streams {
		descs = append(descs, model.VertexElementDesc{
			Semantic:   semantic,
			Components: s.components,
			Type:       s.componentType,
			Normalized: s.normalized,
		})
	}
	format := model.NewVertexFormat(descs)

	vb := &model.VertexBuffer{
		Format:      format,
		NumVertices: position.count,
		Data:        make([]byte, position.count*format.Stride),
	}

	if interleavedLike(format, streams, position) {
		copy(vb.Data, position.data)
	} else {
		for _, el := range format.Elements {
			s := streams[el.Semantic]
			n := min(vb.NumVertices, s.count)
			for v := 0; v < n; v++ {
				src := v * s.stride
				dst := v*format.Stride + el.Offset
				copy(vb.Data[dst:dst+el.Size], s.data[src:src+s.size])
			}
		}
	}

	if b.flipV {
		flipTexCoordVs(vb)
	}

	b.cache[key] = vb
	return vb, nil
}

// stream describes an accessor as a vertex stream without copying dense data.
func (b *vertexBufferBuilder) stream(accIndex int) (*vertexStream, error) {
	if accIndex < 0 || accIndex >= len(b.doc.Accessors) {
		return nil, newLoadError(KindInvalidAsset, nil, "accessor %d", accIndex)
	}
	acc := &b.doc.Accessors[accIndex]
	data, err := decodeAccessor(acc, b.views, false)
	if err != nil {
		return nil, err
	}

	s := &vertexStream{
		view:          -1,
		buffer:        -1,
		data:          data.Data,
		stride:        data.Stride,
		size:          data.ElementSize(),
		count:         data.Count,
		components:    data.Components,
		componentType: data.ComponentType,
		normalized:    data.Normalized,
	}
	if acc.Sparse == nil && acc.BufferView != nil && data.Count > 0 {
		view := b.views[*acc.BufferView]
		s.view = *acc.BufferView
		s.buffer = view.buffer
		s.offset = view.byteOffset + acc.ByteOffset
		s.data = view.data[acc.ByteOffset:]
	}
	return s, nil
}

// interleavedLike reports whether every stream already sits in the target layout relative to the
// position stream, so the whole vertex range can be copied at once.
func interleavedLike(format *model.VertexFormat, streams map[model.Semantic]*vertexStream, position *vertexStream) bool {
	if position.view < 0 {
		return false
	}
	for _, el := range format.Elements {
		s := streams[el.Semantic]
		if s.view != position.view || s.buffer != position.buffer ||
			s.stride != el.Stride || s.size != el.Size ||
			s.offset-position.offset != el.Offset {
			return false
		}
	}
	return true
}

// generateNormals computes smooth vertex normals by summing the face normals of every triangle
// sharing a vertex. It returns nil when POSITION is not a VEC3.
func (b *vertexBufferBuilder) generateNormals(positionAccessor int, indices []uint32) *vertexStream {
	acc := &b.doc.Accessors[positionAccessor]
	data, err := decodeAccessor(acc, b.views, true)
	if err != nil || data.Components != 3 {
		return nil
	}
	positions := data.Float32Values()
	numVertices := data.Count

	if indices == nil {
		indices = make([]uint32, numVertices)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	normals := make([]mgl32.Vec3, numVertices)
	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i1, i2, i3 := indices[t], indices[t+1], indices[t+2]
		if int(i1) >= numVertices || int(i2) >= numVertices || int(i3) >= numVertices {
			continue
		}
		p1 := at(i1)
		face := at(i2).Sub(p1).Cross(at(i3).Sub(p1))
		if l := face.Len(); l > 0 {
			face = face.Mul(1 / l)
		}
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
		normals[i3] = normals[i3].Add(face)
	}

	out := make([]byte, numVertices*12)
	for i, n := range normals {
		// a vertex touched by no triangle ends up non-finite
		invLen := float32(1 / math.Sqrt(float64(n[0]*n[0]+n[1]*n[1]+n[2]*n[2])))
		for c := range 3 {
			binary.LittleEndian.PutUint32(out[i*12+c*4:], math.Float32bits(n[c]*invLen))
		}
	}

	return &vertexStream{
		view:          -1,
		buffer:        -1,
		data:          out,
		stride:        12,
		size:          12,
		count:         numVertices,
		components:    3,
		componentType: model.ComponentTypeFloat32,
	}
}

// flipTexCoordVs replaces v with 1-v on the first two texture coordinate sets.
// Integer coordinates flip against their type's maximum.
func flipTexCoordVs(vb *model.VertexBuffer) {
	for _, semantic := range []model.Semantic{model.SemanticTexCoord0, model.SemanticTexCoord1} {
		el, ok := vb.Format.Element(semantic)
		if !ok || el.Components < 2 {
			continue
		}
		csize := el.Type.Size()
		for v := 0; v < vb.NumVertices; v++ {
			p := v*el.Stride + el.Offset + csize
			switch el.Type {
			case model.ComponentTypeFloat32:
				f := math.Float32frombits(binary.LittleEndian.Uint32(vb.Data[p:]))
				binary.LittleEndian.PutUint32(vb.Data[p:], math.Float32bits(1-f))
			case model.ComponentTypeUint16:
				binary.LittleEndian.PutUint16(vb.Data[p:], 65535-binary.LittleEndian.Uint16(vb.Data[p:]))
			case model.ComponentTypeUint8:
				vb.Data[p] = 255 - vb.Data[p]
			}
		}
	}
}
