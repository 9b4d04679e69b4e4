// package common contains common types that are used throughout the loader. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// SamplerDescriptor holds the sampling configuration of a texture, expressed with the wgpu enums a renderer
// needs to create the GPU sampler. The raw glTF filter and wrap codes are kept alongside for collaborators that
// distinguish all six glTF minification filters.
type SamplerDescriptor struct {
	// AddressModeU, AddressModeV specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// Mipmaps reports whether the minification filter samples mip levels at all.
	Mipmaps bool
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// GLMinFilter, GLMagFilter, GLWrapS and GLWrapT are the resolved glTF enum values (defaults applied).
	GLMinFilter, GLMagFilter, GLWrapS, GLWrapT int
}

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	// Format is the name of the registered image decoder ("png", "jpeg", "webp", ...).
	Format string
	// Width is the image width in pixels.
	Width int
	// Height is the image height in pixels.
	Height int
}
