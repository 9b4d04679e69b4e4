package loader

import (
	"fmt"
	"math"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
	"github.com/sirupsen/logrus"
)

// lightNodeRotation turns the -Z facing glTF light into the engine's -Y facing light (90° about X).
var lightNodeRotation = [4]float32{float32(math.Sin(math.Pi / 4)), 0, 0, float32(math.Cos(math.Pi / 4))}

// gltfNodeBuilder builds the node hierarchy, scenes, cameras and lights of a document.
type gltfNodeBuilder struct {
	doc      *gltfDocument
	meshes   []*model.Mesh
	registry *ExtensionRegistry
	logger   logrus.FieldLogger
}

func newGLTFNodeBuilder(doc *gltfDocument, meshes []*model.Mesh, registry *ExtensionRegistry, logger logrus.FieldLogger) *gltfNodeBuilder {
	return &gltfNodeBuilder{doc: doc, meshes: meshes, registry: registry, logger: logger}
}

// nodeName replaces "/" so names stay usable as path segments.
func nodeName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("node_%d", index)
	}
	return strings.ReplaceAll(name, "/", "_")
}

// buildNodes creates every node, then links children. A node keeps the first parent that claims it.
func (b *gltfNodeBuilder) buildNodes() ([]*scene.Node, error) {
	nodes := make([]*scene.Node, len(b.doc.Nodes))
	for i := range b.doc.Nodes {
		gn := &b.doc.Nodes[i]
		n := scene.NewNode(nodeName(gn.Name, i))
		n.Index = i
		n.Skin = gn.Skin
		n.Extras = gn.Extras

		if gn.Matrix != nil {
			n.SetMatrix(*gn.Matrix)
		}
		if gn.Rotation != nil {
			n.Transform.Rotation = *gn.Rotation
		}
		if gn.Translation != nil {
			n.Transform.Translation = *gn.Translation
		}
		if gn.Scale != nil {
			n.Transform.Scale = *gn.Scale
		}

		if gn.Mesh != nil {
			if *gn.Mesh < 0 || *gn.Mesh >= len(b.meshes) {
				return nil, newLoadError(KindInvalidAsset, nil, "nodes[%d].mesh %d", i, *gn.Mesh)
			}
			n.Mesh = b.meshes[*gn.Mesh]
		}

		if err := b.registry.Node.PostParse(n, gn.Extensions); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = n
	}

	for i := range b.doc.Nodes {
		for _, c := range b.doc.Nodes[i].Children {
			if c < 0 || c >= len(nodes) {
				return nil, &LoadError{
					Kind:     KindInvalidAsset,
					Field:    fmt.Sprintf("nodes[%d].children", i),
					Expected: fmt.Sprintf("< %d", len(nodes)),
					Found:    fmt.Sprint(c),
				}
			}
			child := nodes[c]
			if child.Parent() != nil {
				b.logger.WithFields(logrus.Fields{"node": c, "parent": i}).Debug("node already has a parent, keeping the first")
				continue
			}
			nodes[i].AddChild(child)
		}
	}
	return nodes, nil
}

// buildScenes creates one scene per glTF scene and returns the default scene index (-1 when
// the document has no scenes).
func (b *gltfNodeBuilder) buildScenes(nodes []*scene.Node) ([]scene.Scene, int, error) {
	if len(b.doc.Scenes) == 0 {
		return []scene.Scene{}, -1, nil
	}

	scenes := make([]scene.Scene, 0, len(b.doc.Scenes))
	for i := range b.doc.Scenes {
		gs := &b.doc.Scenes[i]
		name := gs.Name
		if name == "" {
			name = fmt.Sprintf("scene_%d", i)
		}
		sc := scene.NewScene(name)
		for _, idx := range gs.Nodes {
			if idx < 0 || idx >= len(nodes) {
				continue
			}
			if !sc.Add(nodes[idx]) {
				b.logger.WithFields(logrus.Fields{"scene": i, "node": idx}).Debug("scene node already has a parent, keeping the first")
			}
		}
		if err := b.registry.Scene.PostParse(sc, gs.Extensions); err != nil {
			return nil, 0, fmt.Errorf("scene %d: %w", i, err)
		}
		scenes = append(scenes, sc)
	}

	def := 0
	if b.doc.Scene != nil && *b.doc.Scene >= 0 && *b.doc.Scene < len(scenes) {
		def = *b.doc.Scene
	}
	return scenes, def, nil
}

// buildCameras attaches a camera to every node that references one. The camera is named after
// its node and starts disabled.
func (b *gltfNodeBuilder) buildCameras(nodes []*scene.Node) ([]camera.Camera, error) {
	if len(b.doc.Cameras) == 0 {
		return []camera.Camera{}, nil
	}

	cameras := make([]camera.Camera, 0)
	for i := range b.doc.Nodes {
		ref := b.doc.Nodes[i].Camera
		if ref == nil || *ref < 0 || *ref >= len(b.doc.Cameras) {
			continue
		}
		gc := &b.doc.Cameras[*ref]
		cam, err := newCamera(gc, nodes[i].Name)
		if err != nil {
			return nil, fmt.Errorf("camera %d: %w", *ref, err)
		}
		if err := b.registry.Camera.PostParse(cam, gc.Extensions); err != nil {
			return nil, fmt.Errorf("camera %d: %w", *ref, err)
		}
		nodes[i].Camera = cam
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

func newCamera(gc *gltfCamera, name string) (camera.Camera, error) {
	opts := []camera.CameraBuilderOption{camera.WithName(name), camera.WithEnabled(false)}

	if gc.Type == "orthographic" {
		o := gc.Orthographic
		if o == nil {
			return nil, newLoadError(KindInvalidAsset, nil, "orthographic camera %q without orthographic block", gc.Name)
		}
		opts = append(opts,
			camera.WithProjection(camera.ProjectionOrthographic),
			camera.WithOrthoHeight(o.Ymag),
			camera.WithNearClip(o.Znear),
			camera.WithFarClip(o.Zfar),
		)
		if o.Ymag != 0 {
			opts = append(opts, camera.WithAspectRatio(o.Xmag/o.Ymag))
		}
		return camera.NewCamera(opts...), nil
	}

	p := gc.Perspective
	if p == nil {
		return nil, newLoadError(KindInvalidAsset, nil, "perspective camera %q without perspective block", gc.Name)
	}
	opts = append(opts,
		camera.WithProjection(camera.ProjectionPerspective),
		camera.WithFov(common.RadToDeg(p.Yfov)),
		camera.WithNearClip(p.Znear),
		camera.WithFarClip(common.Deref(p.Zfar, 0)),
	)
	if p.AspectRatio != nil {
		opts = append(opts, camera.WithAspectRatio(*p.AspectRatio))
	}
	return camera.NewCamera(opts...), nil
}

// buildLights creates a light for every node referencing a KHR_lights_punctual light. The light
// lives on a new child node named after its owner, rotated to the engine's light direction.
func (b *gltfNodeBuilder) buildLights(nodes []*scene.Node) ([]light.Light, error) {
	var punctual khrLightsPunctual
	found, err := decodeExtension(b.doc.Extensions, extLightsPunctual, &punctual)
	if err != nil {
		return nil, err
	}
	if !found || len(punctual.Lights) == 0 {
		return []light.Light{}, nil
	}

	lights := make([]light.Light, 0)
	for i := range b.doc.Nodes {
		var ref khrLightsPunctualNode
		ok, err := decodeExtension(b.doc.Nodes[i].Extensions, extLightsPunctual, &ref)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if !ok || ref.Light == nil || *ref.Light < 0 || *ref.Light >= len(punctual.Lights) {
			continue
		}

		l, err := newLight(&punctual.Lights[*ref.Light], nodes[i].Name)
		if err != nil {
			return nil, fmt.Errorf("light %d: %w", *ref.Light, err)
		}

		holder := scene.NewNode(nodes[i].Name)
		holder.Transform.Rotation = lightNodeRotation
		holder.Light = l
		nodes[i].AddChild(holder)
		lights = append(lights, l)
	}
	return lights, nil
}

func newLight(gl *gltfLight, name string) (light.Light, error) {
	lightType, ok := light.ParseLightType(gl.Type)
	if !ok {
		return nil, &LoadError{
			Kind:     KindInvalidAsset,
			Field:    "light.type",
			Expected: "directional, point or spot",
			Found:    gl.Type,
		}
	}

	inner, outer := float32(0), float32(45)
	if gl.Spot != nil {
		if gl.Spot.InnerConeAngle != nil {
			inner = common.RadToDeg(*gl.Spot.InnerConeAngle)
		}
		if gl.Spot.OuterConeAngle != nil {
			outer = common.RadToDeg(*gl.Spot.OuterConeAngle)
		}
	}

	opts := []light.LightBuilderOption{
		light.WithName(common.Coalesce(gl.Name, name)),
		light.WithIntensity(common.Deref(gl.Intensity, 1)),
		light.WithRange(common.Deref(gl.Range, float32(math.Inf(1)))),
		light.WithConeAngles(inner, outer),
	}
	if gl.Color != nil {
		opts = append(opts, light.WithColor(gl.Color[0], gl.Color[1], gl.Color[2]))
	}
	return light.NewLight(lightType, opts...), nil
}
