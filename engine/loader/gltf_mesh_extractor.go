package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/sirupsen/logrus"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc         *gltfDocument
	views       []bufferView
	builder     *vertexBufferBuilder
	wideIndices bool
	logger      logrus.FieldLogger
}

// gltfMeshExtractor defines the interface for turning glTF meshes into engine meshes.
// Vertex buffers are shared between primitives that use the same attribute accessors.
type gltfMeshExtractor interface {
	// ExtractMesh builds a single mesh by index. Primitives without a POSITION attribute are skipped.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - *model.Mesh: the mesh with one Primitive per drawable glTF primitive
	//   - error: error if any accessor fails to decode
	ExtractMesh(meshIndex int) (*model.Mesh, error)

	// ExtractAllMeshes builds every mesh of the document, in document order.
	// It returns an empty slice when the document has no meshes, accessors or bufferViews.
	//
	// Returns:
	//   - []*model.Mesh: the meshes, indexed like the document's meshes
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]*model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a resolved document.
//
// Parameters:
//   - doc: the parsed document
//   - views: the resolved bufferViews
//   - builder: the vertex buffer builder shared by every mesh of the load
//   - wideIndices: whether the target supports 32-bit indices
//   - logger: receives index downgrade warnings
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltfDocument, views []bufferView, builder *vertexBufferBuilder, wideIndices bool, logger logrus.FieldLogger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		doc:         doc,
		views:       views,
		builder:     builder,
		wideIndices: wideIndices,
		logger:      logger,
	}
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]*model.Mesh, error) {
	if len(e.doc.Meshes) == 0 || len(e.doc.Accessors) == 0 || len(e.doc.BufferViews) == 0 {
		return []*model.Mesh{}, nil
	}

	meshes := make([]*model.Mesh, 0, len(e.doc.Meshes))
	for i := range e.doc.Meshes {
		mesh, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (*model.Mesh, error) {
	if meshIndex < 0 || meshIndex >= len(e.doc.Meshes) {
		return nil, newLoadError(KindInvalidAsset, nil, "mesh index %d", meshIndex)
	}
	gm := &e.doc.Meshes[meshIndex]

	var extras gltfMeshExtras
	if len(gm.Extras) > 0 {
		// extras are free form; anything that is not an object with targetNames is ignored
		_ = json.Unmarshal(gm.Extras, &extras)
	}

	mesh := &model.Mesh{
		Name:    gm.Name,
		Index:   meshIndex,
		Weights: gm.Weights,
	}
	for primIdx := range gm.Primitives {
		prim, err := e.extractPrimitive(&gm.Primitives[primIdx], gm, &extras)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		if prim == nil {
			e.logger.WithFields(logrus.Fields{"mesh": meshIndex, "primitive": primIdx}).Debug("primitive has no POSITION attribute, skipped")
			continue
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	return mesh, nil
}

// extractPrimitive builds one primitive. It returns nil when the primitive has no vertex data.
func (e *gltfMeshExtractorImpl) extractPrimitive(gp *gltfPrimitive, gm *gltfMesh, extras *gltfMeshExtras) (*model.Primitive, error) {
	var indexData *AccessorData
	var indices []uint32
	if gp.Indices != nil {
		if *gp.Indices < 0 || *gp.Indices >= len(e.doc.Accessors) {
			return nil, newLoadError(KindInvalidAsset, nil, "indices accessor %d", *gp.Indices)
		}
		data, err := decodeAccessor(&e.doc.Accessors[*gp.Indices], e.views, true)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indexData = data
		indices = data.Uint32Values()
	}

	vb, err := e.builder.build(gp.Attributes, indices)
	if err != nil {
		return nil, err
	}
	if vb == nil {
		return nil, nil
	}

	prim := &model.Primitive{
		VertexBuffer:  vb,
		Mode:          primitiveMode(gp.Mode),
		MaterialIndex: gp.Material,
		BoundingBox:   accessorBoundingBox(&e.doc.Accessors[gp.Attributes["POSITION"]]),
	}

	if indexData != nil {
		ib, err := e.indexBuffer(indexData, indices, vb.NumVertices)
		if err != nil {
			return nil, err
		}
		prim.IndexBuffer = ib
		prim.Count = ib.Count
	} else {
		prim.Count = vb.NumVertices
	}

	_, draco := gp.Extensions[extDracoCompression]
	if !draco && len(gp.Targets) > 0 {
		targets, err := e.morphTargets(gp.Targets, gm, extras)
		if err != nil {
			return nil, err
		}
		prim.MorphTargets = targets
	}
	return prim, nil
}

// indexBuffer packs decoded indices in their source width. 32-bit indices are narrowed to
// 16 bits when the target lacks wide index support.
func (e *gltfMeshExtractorImpl) indexBuffer(data *AccessorData, indices []uint32, numVertices int) (*model.IndexBuffer, error) {
	var format model.IndexFormat
	switch data.ComponentType {
	case model.ComponentTypeUint8:
		format = model.IndexFormatUint8
	case model.ComponentTypeUint16:
		format = model.IndexFormatUint16
	case model.ComponentTypeUint32:
		format = model.IndexFormatUint32
	default:
		return nil, &LoadError{
			Kind:     KindInvalidAsset,
			Field:    "indices.componentType",
			Expected: "uint8, uint16 or uint32",
			Found:    data.ComponentType.String(),
		}
	}

	if format == model.IndexFormatUint32 && !e.wideIndices {
		if numVertices > 0xFFFF {
			e.logger.WithField("vertices", numVertices).Warn("32-bit indices are not supported by the target, narrowing to 16 bits may render incorrectly")
		}
		out := make([]byte, len(indices)*2)
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(idx))
		}
		return &model.IndexBuffer{Format: model.IndexFormatUint16, Count: len(indices), Data: out}, nil
	}

	out := make([]byte, data.Count*format.Size())
	copy(out, data.Data)
	return &model.IndexBuffer{Format: format, Count: data.Count, Data: out}, nil
}

func (e *gltfMeshExtractorImpl) morphTargets(targets []map[string]int, gm *gltfMesh, extras *gltfMeshExtras) ([]*model.MorphTarget, error) {
	out := make([]*model.MorphTarget, 0, len(targets))
	for i, target := range targets {
		mt := &model.MorphTarget{Name: strconv.Itoa(i)}
		if extras.TargetNames != nil {
			if i < len(extras.TargetNames) {
				mt.Name = extras.TargetNames[i]
			} else {
				mt.Name = ""
			}
		}
		if i < len(gm.Weights) {
			w := gm.Weights[i]
			mt.DefaultWeight = &w
		}

		if idx, ok := target["POSITION"]; ok {
			acc, err := e.accessor(idx)
			if err != nil {
				return nil, err
			}
			if mt.DeltaPositions, err = accessorFloat32(acc, e.views); err != nil {
				return nil, fmt.Errorf("morph target %d POSITION: %w", i, err)
			}
			mt.BoundingBox = accessorBoundingBox(acc)
		}
		if idx, ok := target["NORMAL"]; ok {
			acc, err := e.accessor(idx)
			if err != nil {
				return nil, err
			}
			if mt.DeltaNormals, err = accessorFloat32(acc, e.views); err != nil {
				return nil, fmt.Errorf("morph target %d NORMAL: %w", i, err)
			}
		}
		out = append(out, mt)
	}
	return out, nil
}

func (e *gltfMeshExtractorImpl) accessor(index int) (*gltfAccessor, error) {
	if index < 0 || index >= len(e.doc.Accessors) {
		return nil, newLoadError(KindInvalidAsset, nil, "accessor %d", index)
	}
	return &e.doc.Accessors[index], nil
}

// primitiveMode maps the glTF mode, defaulting to triangles.
func primitiveMode(mode *int) model.PrimitiveMode {
	if mode == nil || *mode < int(model.PrimitivePoints) || *mode > int(model.PrimitiveTriFan) {
		return model.PrimitiveTriangles
	}
	return model.PrimitiveMode(*mode)
}
