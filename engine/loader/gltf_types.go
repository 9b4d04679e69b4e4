// gltf_types.go contains glTF 2.0 spec data structures for JSON deserialization.
// These types map directly to the glTF 2.0 JSON schema and are internal to the loader package.
// Extension payloads stay raw until the component that consumes them decodes them.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import "encoding/json"

// --- glTF Root Structure ---

// gltfDocument represents the root of a glTF JSON document.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	// Asset contains metadata about the glTF asset.
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []gltfScene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []gltfNode `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []gltfMesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []gltfAccessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []gltfBuffer `json:"buffers,omitempty"`

	// Materials is an array of materials.
	Materials []gltfMaterial `json:"materials,omitempty"`

	// Textures is an array of textures.
	Textures []gltfTexture `json:"textures,omitempty"`

	// Images is an array of images.
	Images []gltfImage `json:"images,omitempty"`

	// Samplers define texture sampling parameters.
	Samplers []gltfSampler `json:"samplers,omitempty"`

	// Cameras is an array of camera projections referenced by nodes.
	Cameras []gltfCamera `json:"cameras,omitempty"`

	// Skins and Animations are only counted; skinning and playback happen elsewhere.
	Skins      []json.RawMessage `json:"skins,omitempty"`
	Animations []json.RawMessage `json:"animations,omitempty"`

	// ExtensionsUsed lists extensions used by this asset.
	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired lists extensions required to load this asset.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	// Extensions holds root level extension payloads (lights, lightmaps).
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`

	// Extras is application specific data.
	Extras json.RawMessage `json:"extras,omitempty"`
}

// --- Asset Metadata ---

// gltfAsset contains metadata about the glTF asset.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-asset
type gltfAsset struct {
	// Version is the glTF version (required, must be "2.0" or above).
	Version string `json:"version"`

	// MinVersion is the minimum glTF version required.
	MinVersion string `json:"minVersion,omitempty"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`

	// Copyright information.
	Copyright string `json:"copyright,omitempty"`
}

// --- Scene Graph ---

// gltfScene is a set of visual objects to render.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-scene
type gltfScene struct {
	// Name is an optional name for this scene.
	Name string `json:"name,omitempty"`

	// Nodes are the indices of root nodes in this scene.
	Nodes []int `json:"nodes,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// gltfNode is a node in the node hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	// Name is an optional name for this node.
	Name string `json:"name,omitempty"`

	// Children are indices of child nodes.
	Children []int `json:"children,omitempty"`

	// Mesh is the index of the mesh in this node.
	Mesh *int `json:"mesh,omitempty"`

	// Skin is the index of the skin for this node.
	Skin *int `json:"skin,omitempty"`

	// Camera is the index of the camera in this node.
	Camera *int `json:"camera,omitempty"`

	// Matrix is a 4x4 transformation matrix (column-major).
	Matrix *[16]float32 `json:"matrix,omitempty"`

	// Translation is the node's translation (x, y, z).
	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is the node's rotation as a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	// Scale is the node's scale (x, y, z).
	Scale *[3]float32 `json:"scale,omitempty"`

	// Weights are morph target weights (for blend shapes).
	Weights []float32 `json:"weights,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
	Extras     json.RawMessage            `json:"extras,omitempty"`
}

// gltfCamera is a projection referenced by a node.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-camera
type gltfCamera struct {
	Name string `json:"name,omitempty"`

	// Type is "perspective" or "orthographic".
	Type string `json:"type"`

	Perspective  *gltfCameraPerspective  `json:"perspective,omitempty"`
	Orthographic *gltfCameraOrthographic `json:"orthographic,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// gltfCameraPerspective holds perspective projection parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-camera-perspective
type gltfCameraPerspective struct {
	AspectRatio *float32 `json:"aspectRatio,omitempty"`

	// Yfov is the vertical field of view in radians.
	Yfov float32 `json:"yfov"`

	// Zfar is absent for an infinite projection.
	Zfar  *float32 `json:"zfar,omitempty"`
	Znear float32  `json:"znear"`
}

// gltfCameraOrthographic holds orthographic projection parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-camera-orthographic
type gltfCameraOrthographic struct {
	Xmag  float32 `json:"xmag"`
	Ymag  float32 `json:"ymag"`
	Zfar  float32 `json:"zfar"`
	Znear float32 `json:"znear"`
}

// --- Mesh Data ---

// gltfMesh is a set of primitives to be rendered.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh
type gltfMesh struct {
	// Name is an optional name for this mesh.
	Name string `json:"name,omitempty"`

	// Primitives defines the geometry to render.
	Primitives []gltfPrimitive `json:"primitives"`

	// Weights are default morph target weights.
	Weights []float32 `json:"weights,omitempty"`

	// Extras may carry targetNames for the morph targets.
	Extras json.RawMessage `json:"extras,omitempty"`
}

// gltfMeshExtras is the de facto extras layout naming morph targets.
type gltfMeshExtras struct {
	TargetNames []string `json:"targetNames,omitempty"`
}

// gltfPrimitive defines geometry for rendering.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	// Attributes is a map of attribute semantic to accessor index.
	// Standard attributes: POSITION, NORMAL, TANGENT, TEXCOORD_n, COLOR_0, JOINTS_0, WEIGHTS_0
	Attributes map[string]int `json:"attributes"`

	// Indices is the accessor index for the index buffer.
	Indices *int `json:"indices,omitempty"`

	// Material is the material index.
	Material *int `json:"material,omitempty"`

	// Mode is the primitive topology.
	// 0=POINTS, 1=LINES, 2=LINE_LOOP, 3=LINE_STRIP, 4=TRIANGLES (default), 5=TRIANGLE_STRIP, 6=TRIANGLE_FAN
	Mode *int `json:"mode,omitempty"`

	// Targets are morph targets for this primitive.
	Targets []map[string]int `json:"targets,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// --- Buffer Data ---

// gltfAccessor defines how to interpret buffer data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// BufferView is the index of the bufferView. When absent the accessor is zero filled.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	// 5120=BYTE, 5121=UNSIGNED_BYTE, 5122=SHORT, 5123=UNSIGNED_SHORT, 5124=INT, 5125=UNSIGNED_INT, 5126=FLOAT
	ComponentType int `json:"componentType"`

	// Normalized indicates if integer data should be normalized.
	Normalized bool `json:"normalized,omitempty"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3, MAT4).
	Type string `json:"type"`

	// Max is the maximum value of each component.
	Max []float32 `json:"max,omitempty"`

	// Min is the minimum value of each component.
	Min []float32 `json:"min,omitempty"`

	// Sparse defines sparse storage of accessor values.
	Sparse *gltfAccessorSparse `json:"sparse,omitempty"`
}

// AccessorType constants
const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfAccessorSparse defines sparse storage.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor-sparse
type gltfAccessorSparse struct {
	// Count is the number of sparse entries.
	Count int `json:"count"`

	Indices gltfAccessorSparseIndices `json:"indices"`
	Values  gltfAccessorSparseValues  `json:"values"`
}

// gltfAccessorSparseIndices locates the indices of the overridden elements.
type gltfAccessorSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

// gltfAccessorSparseValues locates the replacement values.
type gltfAccessorSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

// gltfBufferView represents a subset of a buffer.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type gltfBufferView struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride for interleaved data (optional).
	ByteStride *int `json:"byteStride,omitempty"`

	// Target is the intended GPU buffer type.
	// 34962=ARRAY_BUFFER, 34963=ELEMENT_ARRAY_BUFFER
	Target *int `json:"target,omitempty"`
}

// gltfBuffer represents binary data.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-buffer
type gltfBuffer struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the URI of the buffer data (data: URI or relative/absolute URL).
	// Empty means the GLB binary chunk.
	URI string `json:"uri,omitempty"`

	// ByteLength is the length of the buffer.
	ByteLength int `json:"byteLength"`
}

// --- Materials and Textures ---

// gltfMaterial defines the material appearance of a primitive.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// PbrMetallicRoughness is the PBR metallic-roughness model.
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`

	// NormalTexture is the normal map.
	NormalTexture *gltfNormalTextureInfo `json:"normalTexture,omitempty"`

	// OcclusionTexture is the occlusion map.
	OcclusionTexture *gltfOcclusionTextureInfo `json:"occlusionTexture,omitempty"`

	// EmissiveTexture is the emissive map.
	EmissiveTexture *gltfTextureInfo `json:"emissiveTexture,omitempty"`

	// EmissiveFactor is the emissive color (RGB).
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`

	// AlphaMode is the alpha rendering mode.
	// "OPAQUE" (default), "MASK", "BLEND"
	AlphaMode string `json:"alphaMode,omitempty"`

	// AlphaCutoff is the alpha cutoff for MASK mode.
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`

	// DoubleSided indicates if the material is double-sided.
	DoubleSided bool `json:"doubleSided,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// Alpha mode constants
const (
	gltfAlphaModeMask  = "MASK"
	gltfAlphaModeBlend = "BLEND"
)

// gltfPbrMetallicRoughness is the metallic-roughness material model.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-pbrmetallicroughness
type gltfPbrMetallicRoughness struct {
	// BaseColorFactor is the base color (RGBA).
	BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`

	// BaseColorTexture is the base color texture.
	BaseColorTexture *gltfTextureInfo `json:"baseColorTexture,omitempty"`

	// MetallicFactor is the metalness (0.0 = dielectric, 1.0 = metal).
	MetallicFactor *float32 `json:"metallicFactor,omitempty"`

	// RoughnessFactor is the roughness (0.0 = smooth, 1.0 = rough).
	RoughnessFactor *float32 `json:"roughnessFactor,omitempty"`

	// MetallicRoughnessTexture contains metallic (B) and roughness (G) channels.
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo references a texture.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-textureinfo
type gltfTextureInfo struct {
	// Index is the texture index.
	Index int `json:"index"`

	// TexCoord is the UV set to use (default 0).
	TexCoord int `json:"texCoord,omitempty"`

	// Extensions may carry KHR_texture_transform.
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// gltfNormalTextureInfo references a normal map.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-normaltextureinfo
type gltfNormalTextureInfo struct {
	gltfTextureInfo

	// Scale is the normal scale factor.
	Scale *float32 `json:"scale,omitempty"`
}

// gltfOcclusionTextureInfo references an occlusion map.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-occlusiontextureinfo
type gltfOcclusionTextureInfo struct {
	gltfTextureInfo

	// Strength is the occlusion strength.
	Strength *float32 `json:"strength,omitempty"`
}

// gltfTexture combines an image and a sampler.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-texture
type gltfTexture struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Sampler is the sampler index.
	Sampler *int `json:"sampler,omitempty"`

	// Source is the image index.
	Source *int `json:"source,omitempty"`

	// Extensions may carry KHR_texture_basisu, which overrides Source.
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// gltfImage is a texture image source.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-image
type gltfImage struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the image URI (data: URI or relative/absolute URL).
	URI string `json:"uri,omitempty"`

	// MimeType is the MIME type when embedded in a bufferView.
	MimeType string `json:"mimeType,omitempty"`

	// BufferView is the index of the bufferView containing the image.
	BufferView *int `json:"bufferView,omitempty"`
}

// gltfSampler defines texture sampling parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type gltfSampler struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// MagFilter is the magnification filter.
	// 9728=NEAREST, 9729=LINEAR
	MagFilter *int `json:"magFilter,omitempty"`

	// MinFilter is the minification filter.
	// 9728=NEAREST, 9729=LINEAR, 9984-9987=mipmapped variants
	MinFilter *int `json:"minFilter,omitempty"`

	// WrapS is the U wrapping mode.
	// 33071=CLAMP_TO_EDGE, 33648=MIRRORED_REPEAT, 10497=REPEAT (default)
	WrapS *int `json:"wrapS,omitempty"`

	// WrapT is the V wrapping mode.
	WrapT *int `json:"wrapT,omitempty"`
}

// Sampler filter constants
const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

// Sampler wrap constants
const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// --- Extensions ---

// Extension names understood by the loader.
const (
	extTextureTransform   = "KHR_texture_transform"
	extTextureBasisu      = "KHR_texture_basisu"
	extSpecularGlossiness = "KHR_materials_pbrSpecularGlossiness"
	extClearcoat          = "KHR_materials_clearcoat"
	extUnlit              = "KHR_materials_unlit"
	extLightsPunctual     = "KHR_lights_punctual"
	extDracoCompression   = "KHR_draco_mesh_compression"
	extLightmapTextures   = "EPIC_lightmap_textures"
)

// khrTextureTransform offsets, rotates and scales the UVs of one texture slot.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_texture_transform
type khrTextureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation *float32    `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

// khrTextureBasisu points a texture at a Basis Universal image.
type khrTextureBasisu struct {
	Source *int `json:"source,omitempty"`
}

// khrSpecularGlossiness is the specular-glossiness material model.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Archived/KHR_materials_pbrSpecularGlossiness
type khrSpecularGlossiness struct {
	DiffuseFactor             *[4]float32      `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *gltfTextureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float32      `json:"specularFactor,omitempty"`
	GlossinessFactor          *float32         `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *gltfTextureInfo `json:"specularGlossinessTexture,omitempty"`
}

// khrClearcoat adds a clear coat layer on top of the base material.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_materials_clearcoat
type khrClearcoat struct {
	ClearcoatFactor           *float32               `json:"clearcoatFactor,omitempty"`
	ClearcoatTexture          *gltfTextureInfo       `json:"clearcoatTexture,omitempty"`
	ClearcoatRoughnessFactor  *float32               `json:"clearcoatRoughnessFactor,omitempty"`
	ClearcoatRoughnessTexture *gltfTextureInfo       `json:"clearcoatRoughnessTexture,omitempty"`
	ClearcoatNormalTexture    *gltfNormalTextureInfo `json:"clearcoatNormalTexture,omitempty"`
}

// khrLightsPunctual is the root level light list.
// Reference: https://github.com/KhronosGroup/glTF/tree/main/extensions/2.0/Khronos/KHR_lights_punctual
type khrLightsPunctual struct {
	Lights []gltfLight `json:"lights"`
}

// khrLightsPunctualNode is the node level light reference.
type khrLightsPunctualNode struct {
	Light *int `json:"light,omitempty"`
}

// gltfLight is one punctual light.
type gltfLight struct {
	Name      string         `json:"name,omitempty"`
	Type      string         `json:"type"`
	Color     *[3]float32    `json:"color,omitempty"`
	Intensity *float32       `json:"intensity,omitempty"`
	Range     *float32       `json:"range,omitempty"`
	Spot      *gltfLightSpot `json:"spot,omitempty"`
}

// gltfLightSpot holds the cone angles of a spot light, in radians.
type gltfLightSpot struct {
	InnerConeAngle *float32 `json:"innerConeAngle,omitempty"`
	OuterConeAngle *float32 `json:"outerConeAngle,omitempty"`
}

// --- GLB Binary Format ---

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32 // Must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // Must be 2
	Length  uint32 // Total file length
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32 // 0x4E4F534A for JSON, 0x004E4942 for BIN
}

// GLB magic number and chunk type constants
const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)

// decodeExtension unmarshals one named extension payload into out.
// It reports false (and leaves out untouched) when the extension is absent.
func decodeExtension(exts map[string]json.RawMessage, name string, out any) (bool, error) {
	raw, ok := exts[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}
