package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/material"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	doc      *gltfDocument
	textures []*model.Texture
	registry *ExtensionRegistry
}

// gltfMaterialExtractor defines the interface for converting glTF materials into
// engine-agnostic material.Material descriptions.
type gltfMaterialExtractor interface {
	// ExtractMaterial converts a single material by index and runs the material extension hooks.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *material.Material: the converted material
	//   - error: error if a referenced texture does not exist or a hook fails
	ExtractMaterial(materialIndex int) (*material.Material, error)

	// ExtractAllMaterials converts every material of the document, in document order.
	//
	// Returns:
	//   - []*material.Material: all converted materials
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]*material.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - doc: the parsed document
//   - textures: the loaded textures, indexed like the document's textures
//   - registry: the per-load extension registry (may be nil)
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(doc *gltfDocument, textures []*model.Texture, registry *ExtensionRegistry) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{doc: doc, textures: textures, registry: registry}
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]*material.Material, error) {
	materials := make([]*material.Material, 0, len(e.doc.Materials))
	for i := range e.doc.Materials {
		m, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, nil
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*material.Material, error) {
	if materialIndex < 0 || materialIndex >= len(e.doc.Materials) {
		return nil, newLoadError(KindInvalidAsset, nil, "material index %d", materialIndex)
	}
	gm := &e.doc.Materials[materialIndex]

	m, err := extractMaterial(gm, e.textures)
	if err != nil {
		return nil, fmt.Errorf("material %d %q: %w", materialIndex, gm.Name, err)
	}
	if e.registry != nil {
		if err := e.registry.Material.PostParse(m, gm.Extensions); err != nil {
			return nil, fmt.Errorf("material %d %q: %w", materialIndex, gm.Name, err)
		}
	}
	return m, nil
}

// extractMaterial maps one glTF material onto a material.Material. The specular-glossiness
// extension takes precedence over pbrMetallicRoughness and unlit is applied last.
func extractMaterial(gm *gltfMaterial, textures []*model.Texture) (*material.Material, error) {
	m := material.NewMaterial()
	m.Name = gm.Name
	m.OccludeSpecular = material.SpecularOcclusionNone
	m.DiffuseTint = true
	m.DiffuseVertexColor = true
	m.SpecularTint = true
	m.SpecularVertexColor = true

	bind := func(info *gltfTextureInfo, slots ...string) error {
		tex, err := textureAt(textures, info.Index)
		if err != nil {
			return err
		}
		for _, slot := range slots {
			m.Slot(slot).Texture = tex
		}
		return applyTextureTransform(info, m, slots...)
	}

	var specGloss khrSpecularGlossiness
	hasSpecGloss, err := decodeExtension(gm.Extensions, extSpecularGlossiness, &specGloss)
	if err != nil {
		return nil, err
	}

	switch {
	case hasSpecGloss:
		m.Diffuse, m.Opacity = gammaColor4(specGloss.DiffuseFactor)
		if t := specGloss.DiffuseTexture; t != nil {
			if err := bind(t, "diffuse", "opacity"); err != nil {
				return nil, err
			}
			m.DiffuseMap.Channel = "rgb"
			m.OpacityMap.Channel = "a"
		}
		m.UseMetalness = false
		m.Specular = gammaColor3(specGloss.SpecularFactor, [3]float32{1, 1, 1})
		m.Shininess = 100 * common.Deref(specGloss.GlossinessFactor, 1)
		if t := specGloss.SpecularGlossinessTexture; t != nil {
			if err := bind(t, "specular", "gloss"); err != nil {
				return nil, err
			}
			m.SpecularMap.Channel = "rgb"
			m.GlossMap.Channel = "a"
		}

	case gm.PbrMetallicRoughness != nil:
		pbr := gm.PbrMetallicRoughness
		m.Diffuse, m.Opacity = gammaColor4(pbr.BaseColorFactor)
		if t := pbr.BaseColorTexture; t != nil {
			if err := bind(t, "diffuse", "opacity"); err != nil {
				return nil, err
			}
			m.DiffuseMap.Channel = "rgb"
			m.OpacityMap.Channel = "a"
		}
		m.UseMetalness = true
		m.Metalness = common.Deref(pbr.MetallicFactor, 1)
		m.Shininess = 100 * common.Deref(pbr.RoughnessFactor, 1)
		if t := pbr.MetallicRoughnessTexture; t != nil {
			if err := bind(t, "gloss", "metalness"); err != nil {
				return nil, err
			}
			m.MetalnessMap.Channel = "b"
			m.GlossMap.Channel = "g"
		}
	}

	if t := gm.NormalTexture; t != nil {
		if err := bind(&t.gltfTextureInfo, "normal"); err != nil {
			return nil, err
		}
		if t.Scale != nil {
			m.Bumpiness = *t.Scale
		}
	}

	if t := gm.OcclusionTexture; t != nil {
		if err := bind(&t.gltfTextureInfo, "ao"); err != nil {
			return nil, err
		}
		m.AOMap.Channel = "r"
	}

	if gm.EmissiveFactor != nil {
		m.Emissive = gammaColor3(gm.EmissiveFactor, [3]float32{})
		m.EmissiveTint = true
	} else {
		m.Emissive = [3]float32{}
		m.EmissiveTint = false
	}
	if t := gm.EmissiveTexture; t != nil {
		if err := bind(t, "emissive"); err != nil {
			return nil, err
		}
	}

	switch gm.AlphaMode {
	case gltfAlphaModeMask:
		m.Blend = material.BlendNone
		m.AlphaTest = common.Deref(gm.AlphaCutoff, 0.5)
	case gltfAlphaModeBlend:
		m.Blend = material.BlendNormal
	default:
		m.Blend = material.BlendNone
	}

	m.TwoSidedLighting = gm.DoubleSided
	if gm.DoubleSided {
		m.Cull = wgpu.CullModeNone
	} else {
		m.Cull = wgpu.CullModeBack
	}

	var cc khrClearcoat
	hasClearcoat, err := decodeExtension(gm.Extensions, extClearcoat, &cc)
	if err != nil {
		return nil, err
	}
	if hasClearcoat {
		m.ClearCoat = common.Deref(cc.ClearcoatFactor, 0) * 0.25
		if t := cc.ClearcoatTexture; t != nil {
			if err := bind(t, "clearCoat"); err != nil {
				return nil, err
			}
			m.ClearCoatMap.Channel = "r"
		}
		m.ClearCoatGlossiness = common.Deref(cc.ClearcoatRoughnessFactor, 0)
		if t := cc.ClearcoatRoughnessTexture; t != nil {
			if err := bind(t, "clearCoatGloss"); err != nil {
				return nil, err
			}
			m.ClearCoatGlossMap.Channel = "g"
		}
		if t := cc.ClearcoatNormalTexture; t != nil {
			if err := bind(&t.gltfTextureInfo, "clearCoatNormal"); err != nil {
				return nil, err
			}
			if t.Scale != nil {
				m.ClearCoatBumpiness = *t.Scale
			}
		}
	}

	if _, ok := gm.Extensions[extUnlit]; ok {
		m.ApplyUnlit()
	}
	return m, nil
}

// applyTextureTransform copies the texCoord set and KHR_texture_transform of a texture reference
// onto the named slots. The V offset is re-expressed for a bottom-left UV origin.
func applyTextureTransform(info *gltfTextureInfo, m *material.Material, slots ...string) error {
	var tt khrTextureTransform
	found, err := decodeExtension(info.Extensions, extTextureTransform, &tt)
	if err != nil {
		return err
	}

	uv := info.TexCoord
	if found && tt.TexCoord != nil {
		uv = *tt.TexCoord
	}

	for _, slot := range slots {
		tm := m.Slot(slot)
		if uv != 0 {
			tm.UV = uv
		}
		if !found {
			continue
		}
		offset := common.Deref(tt.Offset, [2]float32{0, 0})
		scale := common.Deref(tt.Scale, [2]float32{1, 1})
		tm.Tiling = scale
		tm.Offset = [2]float32{offset[0], 1 - scale[1] - offset[1]}
		tm.Rotation = -common.RadToDeg(common.Deref(tt.Rotation, 0))
	}
	return nil
}

// textureAt looks up a referenced texture.
func textureAt(textures []*model.Texture, index int) (*model.Texture, error) {
	if index < 0 || index >= len(textures) {
		return nil, &LoadError{
			Kind:     KindInvalidAsset,
			Field:    "texture index",
			Expected: fmt.Sprintf("< %d", len(textures)),
			Found:    fmt.Sprint(index),
		}
	}
	return textures[index], nil
}

// gammaColor4 converts a linear RGBA factor to a gamma space color and an opacity. A nil factor is opaque white.
func gammaColor4(c *[4]float32) ([3]float32, float32) {
	if c == nil {
		return [3]float32{1, 1, 1}, 1
	}
	return [3]float32{common.GammaDecode(c[0]), common.GammaDecode(c[1]), common.GammaDecode(c[2])}, c[3]
}

// gammaColor3 converts a linear RGB factor to gamma space, returning def when the factor is nil.
func gammaColor3(c *[3]float32, def [3]float32) [3]float32 {
	if c == nil {
		return def
	}
	return [3]float32{common.GammaDecode(c[0]), common.GammaDecode(c[1]), common.GammaDecode(c[2])}
}
