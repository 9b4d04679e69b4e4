package material

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
)

// BlendType selects how a material's fragments are combined with the framebuffer.
type BlendType int

const (
	// BlendNone writes fragments opaquely (alpha test may still discard).
	BlendNone BlendType = iota

	// BlendNormal is standard source-over alpha blending.
	BlendNormal
)

func (b BlendType) String() string {
	if b == BlendNormal {
		return "normal"
	}
	return "none"
}

// SpecularOcclusion selects how ambient occlusion affects specular light.
type SpecularOcclusion int

const (
	SpecularOcclusionNone SpecularOcclusion = iota
	SpecularOcclusionAO
)

// TextureMap binds a texture to one material slot.
type TextureMap struct {
	// Texture is the sampled texture (nil when the slot is unused).
	Texture *model.Texture

	// Channel selects the texture channels the slot reads ("rgb", "a", "r", "g", "b").
	Channel string

	// UV is the texture coordinate set.
	UV int

	// Tiling scales the UVs.
	Tiling [2]float32

	// Offset translates the UVs.
	Offset [2]float32

	// Rotation rotates the UVs, in degrees.
	Rotation float32
}

// NewTextureMap returns an empty slot with identity UV transform.
func NewTextureMap() TextureMap {
	return TextureMap{Tiling: [2]float32{1, 1}}
}

// Enabled reports whether a texture is bound to the slot.
func (m *TextureMap) Enabled() bool {
	return m.Texture != nil
}

// Material is an engine-agnostic description of a standard (diffuse/specular or metalness)
// surface. It is built once per glTF material and read by the rendering collaborator.
type Material struct {
	// Name is the glTF material name.
	Name string

	// Diffuse is the gamma-space base color.
	Diffuse [3]float32
	// DiffuseTint multiplies the diffuse map by Diffuse.
	DiffuseTint bool
	// DiffuseVertexColor multiplies the diffuse by the vertex color.
	DiffuseVertexColor bool
	// DiffuseVertexColorChannel selects the vertex color channels used for diffuse.
	DiffuseVertexColorChannel string
	DiffuseMap                TextureMap

	// Opacity is the base alpha.
	Opacity    float32
	OpacityMap TextureMap

	// Specular is the gamma-space specular color (specular-glossiness workflow).
	Specular            [3]float32
	SpecularTint        bool
	SpecularVertexColor bool
	SpecularMap         TextureMap

	// UseMetalness selects the metalness workflow over the specular one.
	UseMetalness bool
	Metalness    float32
	MetalnessMap TextureMap

	// Shininess is glossiness (or roughness for metalness materials) scaled to 0-100.
	Shininess float32
	GlossMap  TextureMap

	NormalMap TextureMap
	// Bumpiness scales the normal map.
	Bumpiness float32

	AOMap           TextureMap
	OccludeSpecular SpecularOcclusion

	// Emissive is the gamma-space emissive color.
	Emissive                   [3]float32
	EmissiveTint               bool
	EmissiveVertexColor        bool
	EmissiveVertexColorChannel string
	EmissiveMap                TextureMap

	// AlphaTest discards fragments whose alpha is below the value (0 disables).
	AlphaTest float32
	Blend     BlendType

	// TwoSidedLighting flips normals of back faces.
	TwoSidedLighting bool
	// Cull is the face culling mode.
	Cull wgpu.CullMode

	// ClearCoat is the clear coat strength.
	ClearCoat           float32
	ClearCoatMap        TextureMap
	ClearCoatGlossiness float32
	ClearCoatGlossMap   TextureMap
	ClearCoatNormalMap  TextureMap
	ClearCoatBumpiness  float32

	// UseLighting is false for unlit materials.
	UseLighting bool
}

// NewMaterial returns a material with the defaults of an unconfigured standard material.
func NewMaterial() *Material {
	return &Material{
		Diffuse:                    [3]float32{1, 1, 1},
		DiffuseVertexColorChannel:  "rgb",
		DiffuseMap:                 NewTextureMap(),
		Opacity:                    1,
		OpacityMap:                 NewTextureMap(),
		Specular:                   [3]float32{1, 1, 1},
		SpecularMap:                NewTextureMap(),
		MetalnessMap:               NewTextureMap(),
		Shininess:                  100,
		GlossMap:                   NewTextureMap(),
		NormalMap:                  NewTextureMap(),
		Bumpiness:                  1,
		AOMap:                      NewTextureMap(),
		EmissiveVertexColorChannel: "rgb",
		EmissiveMap:                NewTextureMap(),
		Cull:                       wgpu.CullModeBack,
		ClearCoatMap:               NewTextureMap(),
		ClearCoatGlossMap:          NewTextureMap(),
		ClearCoatNormalMap:         NewTextureMap(),
		ClearCoatBumpiness:         1,
		UseLighting:                true,
	}
}

// Slot returns the texture map for a slot name ("diffuse", "opacity", "specular", "metalness",
// "gloss", "normal", "ao", "emissive", "clearCoat", "clearCoatGloss", "clearCoatNormal").
func (m *Material) Slot(name string) *TextureMap {
	switch name {
	case "diffuse":
		return &m.DiffuseMap
	case "opacity":
		return &m.OpacityMap
	case "specular":
		return &m.SpecularMap
	case "metalness":
		return &m.MetalnessMap
	case "gloss":
		return &m.GlossMap
	case "normal":
		return &m.NormalMap
	case "ao":
		return &m.AOMap
	case "emissive":
		return &m.EmissiveMap
	case "clearCoat":
		return &m.ClearCoatMap
	case "clearCoatGloss":
		return &m.ClearCoatGlossMap
	case "clearCoatNormal":
		return &m.ClearCoatNormalMap
	default:
		return nil
	}
}

// ApplyUnlit collapses the material to an emissive-only surface: lighting is disabled, the
// diffuse color, map and vertex color settings move to the emissive channel and diffuse is cleared.
func (m *Material) ApplyUnlit() {
	m.UseLighting = false
	m.Emissive = m.Diffuse
	m.EmissiveTint = m.DiffuseTint
	m.EmissiveMap.Texture = m.DiffuseMap.Texture
	m.EmissiveMap.UV = m.DiffuseMap.UV
	m.EmissiveMap.Tiling = m.DiffuseMap.Tiling
	m.EmissiveMap.Offset = m.DiffuseMap.Offset
	m.EmissiveMap.Channel = m.DiffuseMap.Channel
	m.EmissiveVertexColor = m.DiffuseVertexColor
	m.EmissiveVertexColorChannel = m.DiffuseVertexColorChannel

	m.Diffuse = [3]float32{0, 0, 0}
	m.DiffuseTint = false
	m.DiffuseMap.Texture = nil
	m.DiffuseVertexColor = false
}
