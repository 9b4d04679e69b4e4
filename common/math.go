package common

import (
	"math"
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// BytesAs reinterprets a little-endian byte slice as a slice of fixed-size numeric values.
// When the first byte is suitably aligned for T the result is a zero-copy view that shares memory
// with data; otherwise the bytes are copied into a freshly allocated, aligned slice.
// Trailing bytes that do not form a whole element are ignored.
//
// Parameters:
//   - data: source bytes
//
// Returns:
//   - []T: the reinterpreted values
//   - bool: true if the result aliases data
func BytesAs[T int8 | uint8 | int16 | uint16 | int32 | uint32 | float32](data []byte) ([]T, bool) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	n := len(data) / size
	if n == 0 {
		return nil, false
	}
	ptr := unsafe.Pointer(&data[0])
	if uintptr(ptr)%uintptr(unsafe.Alignof(zero)) == 0 {
		return unsafe.Slice((*T)(ptr), n), true
	}
	out := make([]T, n)
	copy(SliceToBytes(out), data[:n*size])
	return out, false
}

// GammaDecode converts a linear color component to the gamma space used by material colors.
//
// Parameters:
//   - c: the linear component
//
// Returns:
//   - float32: pow(c, 1/2.2)
func GammaDecode(c float32) float32 {
	return float32(math.Pow(float64(c), 1.0/2.2))
}

// RoundUp4 rounds n up to the next multiple of 4.
func RoundUp4(n int) int {
	return (n + 3) &^ 3
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float32) float32 {
	return rad * 180.0 / math.Pi
}
