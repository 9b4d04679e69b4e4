package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// AccessorData is the decoded content of an accessor. On the dense path Data aliases the
// buffer the accessor points into; sparse, strided-and-flattened and bufferView-less accessors
// own their Data.
type AccessorData struct {
	// ComponentType is the numeric type of one component.
	ComponentType model.ComponentType

	// Components is the number of components per element (1 for SCALAR, 16 for MAT4).
	Components int

	// Count is the number of elements.
	Count int

	// Normalized reports whether integer components represent normalized floats.
	Normalized bool

	// Stride is the byte distance between consecutive elements in Data.
	Stride int

	// Data holds the element bytes.
	Data []byte
}

// ElementSize returns the byte size of one element.
func (a *AccessorData) ElementSize() int {
	return a.Components * a.ComponentType.Size()
}

// Packed reports whether elements are contiguous in Data.
func (a *AccessorData) Packed() bool {
	return a.Stride == a.ElementSize()
}

// component reads component c of element i as a float64.
func (a *AccessorData) component(i, c int) float64 {
	b := a.Data[i*a.Stride+c*a.ComponentType.Size():]
	switch a.ComponentType {
	case model.ComponentTypeInt8:
		return float64(int8(b[0]))
	case model.ComponentTypeUint8:
		return float64(b[0])
	case model.ComponentTypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case model.ComponentTypeUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case model.ComponentTypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case model.ComponentTypeUint32:
		return float64(binary.LittleEndian.Uint32(b))
	default:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
}

// Float32Values converts every component to float32 without dequantizing.
//
// Returns:
//   - []float32: Count * Components values
func (a *AccessorData) Float32Values() []float32 {
	if a.ComponentType == model.ComponentTypeFloat32 && a.Packed() {
		if v, _ := common.BytesAs[float32](a.Data[:a.Count*a.ElementSize()]); v != nil {
			out := make([]float32, len(v))
			copy(out, v)
			return out
		}
	}
	out := make([]float32, 0, a.Count*a.Components)
	for i := 0; i < a.Count; i++ {
		for c := 0; c < a.Components; c++ {
			out = append(out, float32(a.component(i, c)))
		}
	}
	return out
}

// Uint32Values widens every component to uint32, the form index data is consumed in.
//
// Returns:
//   - []uint32: Count * Components values
func (a *AccessorData) Uint32Values() []uint32 {
	out := make([]uint32, 0, a.Count*a.Components)
	for i := 0; i < a.Count; i++ {
		for c := 0; c < a.Components; c++ {
			out = append(out, uint32(a.component(i, c)))
		}
	}
	return out
}

// accessorComponents maps an accessor type to its component count.
func accessorComponents(t string) (int, bool) {
	switch t {
	case gltfAccessorTypeScalar:
		return 1, true
	case gltfAccessorTypeVec2:
		return 2, true
	case gltfAccessorTypeVec3:
		return 3, true
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4, true
	case gltfAccessorTypeMat3:
		return 9, true
	case gltfAccessorTypeMat4:
		return 16, true
	default:
		return 0, false
	}
}

// componentTypeOf validates a glTF componentType code.
func componentTypeOf(code int) (model.ComponentType, error) {
	ct := model.ComponentType(code)
	if ct.Size() == 0 {
		return 0, newLoadError(KindUnsupportedComponentType, nil, "componentType %d", code)
	}
	return ct, nil
}

// rawAccessor is the minimal description needed to read packed or strided elements out of a view.
type rawAccessor struct {
	view          *int
	byteOffset    int
	componentType int
	components    int
	count         int
	normalized    bool
}

// decodeAccessor reads an accessor's elements.
//
// Sparse accessors are materialized into a new slice. When flatten is set, strided data is
// copied into a tightly packed slice; otherwise the dense path returns a zero-copy view that
// keeps the bufferView stride.
func decodeAccessor(acc *gltfAccessor, views []bufferView, flatten bool) (*AccessorData, error) {
	components, ok := accessorComponents(acc.Type)
	if !ok {
		return nil, newLoadError(KindInvalidAsset, nil, "accessor %q type %q", acc.Name, acc.Type)
	}
	base := rawAccessor{
		view:          acc.BufferView,
		byteOffset:    acc.ByteOffset,
		componentType: acc.ComponentType,
		components:    components,
		count:         acc.Count,
		normalized:    acc.Normalized,
	}

	if acc.Sparse == nil {
		return readElements(base, views, flatten)
	}

	sp := acc.Sparse
	indices, err := readElements(rawAccessor{
		view:          &sp.Indices.BufferView,
		byteOffset:    sp.Indices.ByteOffset,
		componentType: sp.Indices.ComponentType,
		components:    1,
		count:         sp.Count,
	}, views, true)
	if err != nil {
		return nil, fmt.Errorf("sparse indices: %w", err)
	}
	values, err := readElements(rawAccessor{
		view:          &sp.Values.BufferView,
		byteOffset:    sp.Values.ByteOffset,
		componentType: acc.ComponentType,
		components:    components,
		count:         sp.Count,
		normalized:    acc.Normalized,
	}, views, true)
	if err != nil {
		return nil, fmt.Errorf("sparse values: %w", err)
	}

	// the base is copied (or zero filled) so overriding entries never writes into a shared buffer
	dense, err := readElements(base, views, true)
	if err != nil {
		return nil, err
	}
	result := &AccessorData{
		ComponentType: dense.ComponentType,
		Components:    dense.Components,
		Count:         dense.Count,
		Normalized:    dense.Normalized,
		Stride:        dense.Stride,
		Data:          make([]byte, len(dense.Data)),
	}
	copy(result.Data, dense.Data)

	elem := result.ElementSize()
	for i, idx := range indices.Uint32Values() {
		if int(idx) >= result.Count {
			return nil, &LoadError{
				Kind:     KindInvalidAsset,
				Field:    fmt.Sprintf("accessor %q sparse index %d", acc.Name, i),
				Expected: fmt.Sprintf("< %d", result.Count),
				Found:    fmt.Sprint(idx),
			}
		}
		copy(result.Data[int(idx)*elem:int(idx+1)*elem], values.Data[i*elem:(i+1)*elem])
	}
	return result, nil
}

// readElements reads count elements from a view. Missing views yield zero filled data.
func readElements(ra rawAccessor, views []bufferView, flatten bool) (*AccessorData, error) {
	ct, err := componentTypeOf(ra.componentType)
	if err != nil {
		return nil, err
	}
	if ra.count < 0 || ra.byteOffset < 0 {
		return nil, newLoadError(KindInvalidAsset, nil, "accessor count %d byteOffset %d", ra.count, ra.byteOffset)
	}
	out := &AccessorData{
		ComponentType: ct,
		Components:    ra.components,
		Count:         ra.count,
		Normalized:    ra.normalized,
	}
	elem := out.ElementSize()
	out.Stride = elem

	if ra.view == nil {
		out.Data = make([]byte, ra.count*elem)
		return out, nil
	}
	if *ra.view < 0 || *ra.view >= len(views) {
		return nil, newLoadError(KindMissingBufferSource, nil, "bufferView %d", *ra.view)
	}
	view := views[*ra.view]

	stride := elem
	if view.byteStride > 0 {
		stride = view.byteStride
	}
	if ra.count == 0 {
		out.Data = []byte{}
		return out, nil
	}
	end := ra.byteOffset + (ra.count-1)*stride + elem
	if end > len(view.data) {
		return nil, &LoadError{
			Kind:     KindInvalidAsset,
			Field:    fmt.Sprintf("bufferView %d range", *ra.view),
			Expected: fmt.Sprintf("<= %d", len(view.data)),
			Found:    fmt.Sprint(end),
		}
	}

	if stride != elem && flatten {
		out.Data = make([]byte, ra.count*elem)
		for i := 0; i < ra.count; i++ {
			src := ra.byteOffset + i*stride
			copy(out.Data[i*elem:(i+1)*elem], view.data[src:src+elem])
		}
		return out, nil
	}

	out.Stride = stride
	out.Data = view.data[ra.byteOffset:end]
	return out, nil
}

// accessorFloat32 decodes an accessor flattened as float32, dequantizing normalized integer data.
func accessorFloat32(acc *gltfAccessor, views []bufferView) ([]float32, error) {
	data, err := decodeAccessor(acc, views, true)
	if err != nil {
		return nil, err
	}
	values := data.Float32Values()
	if data.Normalized && data.ComponentType != model.ComponentTypeFloat32 {
		for i, v := range values {
			values[i] = data.ComponentType.Dequantize(v)
		}
	}
	return values, nil
}

// accessorBoundingBox derives a box from an accessor's min and max. It returns nil unless both
// carry at least three components.
func accessorBoundingBox(acc *gltfAccessor) *model.BoundingBox {
	if len(acc.Min) < 3 || len(acc.Max) < 3 {
		return nil
	}
	var lo, hi [3]float32
	copy(lo[:], acc.Min[:3])
	copy(hi[:], acc.Max[:3])
	if acc.Normalized {
		ct := model.ComponentType(acc.ComponentType)
		for i := range 3 {
			lo[i] = ct.Dequantize(lo[i])
			hi[i] = ct.Dequantize(hi[i])
		}
	}
	return model.NewBoundingBoxFromMinMax(lo, hi)
}
