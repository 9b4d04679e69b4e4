package model

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// --- Transform & Bounds ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// BoundingBox is an axis-aligned box stored as center and half extents.
type BoundingBox struct {
	// Center is the midpoint of the box.
	Center [3]float32 `json:"center" yaml:"center"`

	// HalfExtents is half of the box size along each axis.
	HalfExtents [3]float32 `json:"halfExtents" yaml:"halfExtents"`
}

// NewBoundingBoxFromMinMax builds a box from its minimum and maximum corners.
func NewBoundingBoxFromMinMax(min, max [3]float32) *BoundingBox {
	return &BoundingBox{
		Center:      [3]float32{(max[0] + min[0]) * 0.5, (max[1] + min[1]) * 0.5, (max[2] + min[2]) * 0.5},
		HalfExtents: [3]float32{(max[0] - min[0]) * 0.5, (max[1] - min[1]) * 0.5, (max[2] - min[2]) * 0.5},
	}
}

// Min returns the minimum corner of the box.
func (b *BoundingBox) Min() [3]float32 {
	return [3]float32{b.Center[0] - b.HalfExtents[0], b.Center[1] - b.HalfExtents[1], b.Center[2] - b.HalfExtents[2]}
}

// Max returns the maximum corner of the box.
func (b *BoundingBox) Max() [3]float32 {
	return [3]float32{b.Center[0] + b.HalfExtents[0], b.Center[1] + b.HalfExtents[1], b.Center[2] + b.HalfExtents[2]}
}

// Union returns the smallest box enclosing b and o. Either may be nil, in which case the other
// is returned as is.
func (b *BoundingBox) Union(o *BoundingBox) *BoundingBox {
	if b == nil {
		return o
	}
	if o == nil {
		return b
	}
	bMin, bMax := b.Min(), b.Max()
	oMin, oMax := o.Min(), o.Max()
	for i := range 3 {
		bMin[i] = min(bMin[i], oMin[i])
		bMax[i] = max(bMax[i], oMax[i])
	}
	return NewBoundingBoxFromMinMax(bMin, bMax)
}

// Radius is the radius of the sphere around Center that encloses the box.
func (b *BoundingBox) Radius() float32 {
	h := b.HalfExtents
	return float32(math.Sqrt(float64(h[0]*h[0] + h[1]*h[1] + h[2]*h[2])))
}

// --- Primitive Types ---

// PrimitiveMode is the topology a primitive is drawn with. Values match the glTF mode enum.
type PrimitiveMode int

const (
	PrimitivePoints PrimitiveMode = iota
	PrimitiveLines
	PrimitiveLineLoop
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriStrip
	PrimitiveTriFan
)

func (m PrimitiveMode) String() string {
	switch m {
	case PrimitivePoints:
		return "points"
	case PrimitiveLines:
		return "lines"
	case PrimitiveLineLoop:
		return "lineloop"
	case PrimitiveLineStrip:
		return "linestrip"
	case PrimitiveTriangles:
		return "triangles"
	case PrimitiveTriStrip:
		return "tristrip"
	case PrimitiveTriFan:
		return "trifan"
	default:
		return fmt.Sprintf("PrimitiveMode(%d)", int(m))
	}
}

// Topology maps the mode to a WebGPU primitive topology.
// Line loops and triangle fans have no WebGPU equivalent and report false.
//
// Returns:
//   - wgpu.PrimitiveTopology: the matching topology
//   - bool: false if the renderer has to convert the primitive itself
func (m PrimitiveMode) Topology() (wgpu.PrimitiveTopology, bool) {
	switch m {
	case PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList, true
	case PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList, true
	case PrimitiveLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, true
	case PrimitiveTriangles:
		return wgpu.PrimitiveTopologyTriangleList, true
	case PrimitiveTriStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, true
	default:
		return wgpu.PrimitiveTopologyTriangleList, false
	}
}

// IndexFormat is the width of the values stored in an index buffer.
type IndexFormat int

const (
	IndexFormatUint8 IndexFormat = iota
	IndexFormatUint16
	IndexFormatUint32
)

// Size returns the byte width of one index.
func (f IndexFormat) Size() int {
	switch f {
	case IndexFormatUint8:
		return 1
	case IndexFormatUint16:
		return 2
	default:
		return 4
	}
}

// WGPUFormat maps the format to a WebGPU index format. WebGPU has no 8-bit indices, so
// IndexFormatUint8 reports wgpu.IndexFormatUndefined and must be widened by the renderer.
func (f IndexFormat) WGPUFormat() wgpu.IndexFormat {
	switch f {
	case IndexFormatUint16:
		return wgpu.IndexFormatUint16
	case IndexFormatUint32:
		return wgpu.IndexFormatUint32
	default:
		return wgpu.IndexFormatUndefined
	}
}

func (f IndexFormat) String() string {
	switch f {
	case IndexFormatUint8:
		return "uint8"
	case IndexFormatUint16:
		return "uint16"
	default:
		return "uint32"
	}
}

// IndexBuffer holds tightly packed little-endian index data.
type IndexBuffer struct {
	// Format is the width of each index.
	Format IndexFormat

	// Count is the number of indices.
	Count int

	// Data is the packed index bytes (Count * Format.Size()).
	Data []byte
}

// Indices returns the index values widened to uint32.
func (b *IndexBuffer) Indices() []uint32 {
	out := make([]uint32, b.Count)
	switch b.Format {
	case IndexFormatUint8:
		for i := range out {
			out[i] = uint32(b.Data[i])
		}
	case IndexFormatUint16:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(b.Data[i*2:]))
		}
	default:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(b.Data[i*4:])
		}
	}
	return out
}

// MorphTarget holds the per-vertex deltas of one blend shape.
type MorphTarget struct {
	// Name is taken from mesh.extras.targetNames or the target index.
	Name string

	// DeltaPositions are flattened float32 xyz position deltas (nil if absent).
	DeltaPositions []float32

	// DeltaNormals are flattened float32 xyz normal deltas (nil if absent).
	DeltaNormals []float32

	// BoundingBox is derived from the POSITION delta accessor's min/max.
	BoundingBox *BoundingBox

	// DefaultWeight is taken from mesh.weights (nil if the mesh declares none).
	DefaultWeight *float32
}

// Primitive is one draw call: a vertex buffer, an optional index buffer and a material reference.
type Primitive struct {
	// VertexBuffer is shared with other primitives that use identical attribute accessors.
	VertexBuffer *VertexBuffer

	// IndexBuffer is nil for non-indexed primitives.
	IndexBuffer *IndexBuffer

	// Mode is the primitive topology.
	Mode PrimitiveMode

	// Base is the first index (or vertex) to draw.
	Base int

	// Count is the number of indices, or vertices when not indexed.
	Count int

	// MaterialIndex references Asset.Materials (nil uses the default material).
	MaterialIndex *int

	// BoundingBox is derived from the POSITION accessor's min/max; nil when undeclared.
	BoundingBox *BoundingBox

	// MorphTargets are the primitive's blend shapes.
	MorphTargets []*MorphTarget
}

// Indexed reports whether the primitive draws through an index buffer.
func (p *Primitive) Indexed() bool {
	return p.IndexBuffer != nil
}

// Mesh is an ordered group of primitives built from one glTF mesh.
type Mesh struct {
	// Name is the mesh name from the document (may be empty).
	Name string

	// Index is the glTF mesh index.
	Index int

	// Primitives are the mesh primitives in document order.
	Primitives []*Primitive

	// Weights are the default morph weights.
	Weights []float32
}

// Bounds encloses the boxes of every primitive that declares one, or is nil if none do.
func (m *Mesh) Bounds() *BoundingBox {
	var box *BoundingBox
	for _, p := range m.Primitives {
		box = box.Union(p.BoundingBox)
	}
	return box
}

// --- Texture ---

// Texture is an image resource plus the sampler state of one glTF texture.
// Textures sharing a source image share Data; every texture after the first is a clone.
type Texture struct {
	// ID uniquely identifies the texture record.
	ID string

	// Name is "<image name or gltf-texture>-<n>", with "_clone" appended for clones.
	Name string

	// ImageIndex is the glTF image the texture samples.
	ImageIndex int

	// URL is the resolved external URL, the data URI, or empty for bufferView images.
	URL string

	// MimeType is the declared or detected image mime type.
	MimeType string

	// Filename is the URL (or name) plus the extension implied by MimeType.
	Filename string

	// Data holds the encoded image bytes.
	Data []byte

	// Info is the probed image format and size (zero for GPU container formats).
	Info common.ImageInfo

	// Sampler is the resolved sampling state.
	Sampler common.SamplerDescriptor

	// Clone reports whether this texture reuses the image of an earlier texture.
	Clone bool
}
