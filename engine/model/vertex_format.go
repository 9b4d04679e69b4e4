package model

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ComponentType is the numeric type of one vertex or accessor component. Values match the glTF enum.
type ComponentType int

const (
	ComponentTypeInt8    ComponentType = 5120
	ComponentTypeUint8   ComponentType = 5121
	ComponentTypeInt16   ComponentType = 5122
	ComponentTypeUint16  ComponentType = 5123
	ComponentTypeInt32   ComponentType = 5124
	ComponentTypeUint32  ComponentType = 5125
	ComponentTypeFloat32 ComponentType = 5126
)

// Size returns the byte width of one component, or 0 for an unknown type.
func (c ComponentType) Size() int {
	switch c {
	case ComponentTypeInt8, ComponentTypeUint8:
		return 1
	case ComponentTypeInt16, ComponentTypeUint16:
		return 2
	case ComponentTypeInt32, ComponentTypeUint32, ComponentTypeFloat32:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) String() string {
	switch c {
	case ComponentTypeInt8:
		return "int8"
	case ComponentTypeUint8:
		return "uint8"
	case ComponentTypeInt16:
		return "int16"
	case ComponentTypeUint16:
		return "uint16"
	case ComponentTypeInt32:
		return "int32"
	case ComponentTypeUint32:
		return "uint32"
	case ComponentTypeFloat32:
		return "float32"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(c))
	}
}

// Dequantize maps a normalized integer component to a float.
// Signed types are clamped to -1; float and 32-bit integer values pass through unchanged.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_mesh_quantization#encoding-quantized-data
func (c ComponentType) Dequantize(v float32) float32 {
	switch c {
	case ComponentTypeInt8:
		return max(v/127.0, -1.0)
	case ComponentTypeUint8:
		return v / 255.0
	case ComponentTypeInt16:
		return max(v/32767.0, -1.0)
	case ComponentTypeUint16:
		return v / 65535.0
	default:
		return v
	}
}

// Semantic names a vertex element.
type Semantic string

const (
	SemanticPosition     Semantic = "POSITION"
	SemanticNormal       Semantic = "NORMAL"
	SemanticTangent      Semantic = "TANGENT"
	SemanticColor        Semantic = "COLOR"
	SemanticBlendIndices Semantic = "BLENDINDICES"
	SemanticBlendWeight  Semantic = "BLENDWEIGHT"
	SemanticTexCoord0    Semantic = "TEXCOORD0"
	SemanticTexCoord1    Semantic = "TEXCOORD1"
	SemanticTexCoord2    Semantic = "TEXCOORD2"
	SemanticTexCoord3    Semantic = "TEXCOORD3"
	SemanticTexCoord4    Semantic = "TEXCOORD4"
	SemanticTexCoord5    Semantic = "TEXCOORD5"
	SemanticTexCoord6    Semantic = "TEXCOORD6"
	SemanticTexCoord7    Semantic = "TEXCOORD7"
)

// semanticOrder is the canonical element order of every vertex format.
var semanticOrder = []Semantic{
	SemanticPosition,
	SemanticNormal,
	SemanticTangent,
	SemanticColor,
	SemanticBlendIndices,
	SemanticBlendWeight,
	SemanticTexCoord0,
	SemanticTexCoord1,
	SemanticTexCoord2,
	SemanticTexCoord3,
	SemanticTexCoord4,
	SemanticTexCoord5,
	SemanticTexCoord6,
	SemanticTexCoord7,
}

// SemanticRank returns the canonical position of a semantic, or len(order) for unknown semantics.
func SemanticRank(s Semantic) int {
	for i, o := range semanticOrder {
		if o == s {
			return i
		}
	}
	return len(semanticOrder)
}

// VertexElementDesc describes one attribute before layout.
type VertexElementDesc struct {
	Semantic   Semantic
	Components int
	Type       ComponentType
	Normalized bool
}

// VertexElement is one attribute inside an interleaved vertex.
type VertexElement struct {
	// Semantic identifies the attribute.
	Semantic Semantic

	// Components is the number of components per vertex (1-4).
	Components int

	// Type is the component type.
	Type ComponentType

	// Normalized reports whether integer components are read as normalized floats.
	Normalized bool

	// Offset is the byte offset of the element inside a vertex (multiple of 4).
	Offset int

	// Size is the unpadded byte size of the element (Components * Type.Size()).
	Size int

	// Stride is the byte distance between consecutive vertices.
	Stride int

	// Format is the matching WebGPU vertex format, or wgpu.VertexFormatUndefined when WebGPU has none.
	Format wgpu.VertexFormat
}

// VertexFormat is an ordered, interleaved vertex layout.
type VertexFormat struct {
	// Elements are sorted in canonical semantic order.
	Elements []VertexElement

	// Stride is the size of one vertex in bytes.
	Stride int
}

// NewVertexFormat sorts the descriptions into canonical order and lays them out interleaved.
// Every element starts on a 4-byte boundary; the stride is the sum of the padded element sizes.
//
// Parameters:
//   - descs: the attributes to lay out (order is irrelevant)
//
// Returns:
//   - *VertexFormat: the resulting layout
func NewVertexFormat(descs []VertexElementDesc) *VertexFormat {
	sorted := make([]VertexElementDesc, len(descs))
	copy(sorted, descs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return SemanticRank(sorted[i].Semantic) < SemanticRank(sorted[j].Semantic)
	})

	f := &VertexFormat{Elements: make([]VertexElement, 0, len(sorted))}
	offset := 0
	for _, d := range sorted {
		size := d.Components * d.Type.Size()
		f.Elements = append(f.Elements, VertexElement{
			Semantic:   d.Semantic,
			Components: d.Components,
			Type:       d.Type,
			Normalized: d.Normalized,
			Offset:     offset,
			Size:       size,
			Format:     vertexFormatFor(d.Type, d.Components, d.Normalized),
		})
		offset += common.RoundUp4(size)
	}
	f.Stride = offset
	for i := range f.Elements {
		f.Elements[i].Stride = f.Stride
	}
	return f
}

// Element returns the element for a semantic.
func (f *VertexFormat) Element(s Semantic) (*VertexElement, bool) {
	for i := range f.Elements {
		if f.Elements[i].Semantic == s {
			return &f.Elements[i], true
		}
	}
	return nil, false
}

// VertexBuffer holds interleaved vertex data in the layout described by Format.
type VertexBuffer struct {
	// Format is the interleaved layout.
	Format *VertexFormat

	// NumVertices is the number of vertices.
	NumVertices int

	// Data is NumVertices * Format.Stride bytes.
	Data []byte
}

// ElementFloat32s reads one element of every vertex as float32 values, flattened
// (NumVertices * Components). Normalized integer components are dequantized.
//
// Parameters:
//   - s: the semantic to read
//
// Returns:
//   - []float32: the values
//   - error: error if the format has no such element
func (vb *VertexBuffer) ElementFloat32s(s Semantic) ([]float32, error) {
	el, ok := vb.Format.Element(s)
	if !ok {
		return nil, fmt.Errorf("vertex format has no %s element", s)
	}
	out := make([]float32, 0, vb.NumVertices*el.Components)
	csize := el.Type.Size()
	for v := 0; v < vb.NumVertices; v++ {
		base := v*el.Stride + el.Offset
		for c := 0; c < el.Components; c++ {
			b := vb.Data[base+c*csize:]
			var value float32
			switch el.Type {
			case ComponentTypeFloat32:
				value = math.Float32frombits(binary.LittleEndian.Uint32(b))
			case ComponentTypeInt8:
				value = float32(int8(b[0]))
			case ComponentTypeUint8:
				value = float32(b[0])
			case ComponentTypeInt16:
				value = float32(int16(binary.LittleEndian.Uint16(b)))
			case ComponentTypeUint16:
				value = float32(binary.LittleEndian.Uint16(b))
			case ComponentTypeInt32:
				value = float32(int32(binary.LittleEndian.Uint32(b)))
			case ComponentTypeUint32:
				value = float32(binary.LittleEndian.Uint32(b))
			}
			if el.Normalized {
				value = el.Type.Dequantize(value)
			}
			out = append(out, value)
		}
	}
	return out, nil
}

// vertexFormatFor maps a component layout to the WebGPU vertex format.
// Reference: https://www.w3.org/TR/webgpu/#enumdef-gpuvertexformat
func vertexFormatFor(t ComponentType, components int, normalized bool) wgpu.VertexFormat {
	switch t {
	case ComponentTypeFloat32:
		switch components {
		case 1:
			return wgpu.VertexFormatFloat32
		case 2:
			return wgpu.VertexFormatFloat32x2
		case 3:
			return wgpu.VertexFormatFloat32x3
		case 4:
			return wgpu.VertexFormatFloat32x4
		}
	case ComponentTypeUint32:
		switch components {
		case 1:
			return wgpu.VertexFormatUint32
		case 2:
			return wgpu.VertexFormatUint32x2
		case 3:
			return wgpu.VertexFormatUint32x3
		case 4:
			return wgpu.VertexFormatUint32x4
		}
	case ComponentTypeInt32:
		switch components {
		case 1:
			return wgpu.VertexFormatSint32
		case 2:
			return wgpu.VertexFormatSint32x2
		case 3:
			return wgpu.VertexFormatSint32x3
		case 4:
			return wgpu.VertexFormatSint32x4
		}
	case ComponentTypeUint8:
		switch {
		case components == 2 && normalized:
			return wgpu.VertexFormatUnorm8x2
		case components == 4 && normalized:
			return wgpu.VertexFormatUnorm8x4
		case components == 2:
			return wgpu.VertexFormatUint8x2
		case components == 4:
			return wgpu.VertexFormatUint8x4
		}
	case ComponentTypeInt8:
		switch {
		case components == 2 && normalized:
			return wgpu.VertexFormatSnorm8x2
		case components == 4 && normalized:
			return wgpu.VertexFormatSnorm8x4
		case components == 2:
			return wgpu.VertexFormatSint8x2
		case components == 4:
			return wgpu.VertexFormatSint8x4
		}
	case ComponentTypeUint16:
		switch {
		case components == 2 && normalized:
			return wgpu.VertexFormatUnorm16x2
		case components == 4 && normalized:
			return wgpu.VertexFormatUnorm16x4
		case components == 2:
			return wgpu.VertexFormatUint16x2
		case components == 4:
			return wgpu.VertexFormatUint16x4
		}
	case ComponentTypeInt16:
		switch {
		case components == 2 && normalized:
			return wgpu.VertexFormatSnorm16x2
		case components == 4 && normalized:
			return wgpu.VertexFormatSnorm16x4
		case components == 2:
			return wgpu.VertexFormatSint16x2
		case components == 4:
			return wgpu.VertexFormatSint16x4
		}
	}
	return wgpu.VertexFormatUndefined
}
