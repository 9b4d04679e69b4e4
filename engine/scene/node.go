package scene

import (
	"encoding/json"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeLightmap is a baked lightmap attached to a node by the EPIC_lightmap_textures extension.
type NodeLightmap struct {
	// Texture is the lightmap texture.
	Texture *model.Texture

	// TexCoord is the UV set the lightmap is sampled with.
	TexCoord int

	// LightmapAdd is added to the decoded lightmap value.
	LightmapAdd []float32

	// LightmapScale multiplies the decoded lightmap value.
	LightmapScale []float32

	// CoordinateScaleBias maps the mesh UVs into the lightmap atlas (scale xy, bias zw).
	CoordinateScaleBias []float32
}

// Node is one entry of the node hierarchy. A node has at most one parent.
type Node struct {
	// Name is the node name with "/" replaced by "_", or "node_<index>".
	Name string

	// Index is the glTF node index, or -1 for nodes created during loading.
	Index int

	// Transform is the local transform relative to the parent.
	Transform model.Transform

	// Mesh is the mesh drawn at this node (nil if none).
	Mesh *model.Mesh

	// Skin is the glTF skin index (nil if none).
	Skin *int

	// Camera is attached when the node references a glTF camera.
	Camera camera.Camera

	// Light is attached to the child node created for a KHR_lights_punctual reference.
	Light light.Light

	// Lightmap is set by the lightmap extension.
	Lightmap *NodeLightmap

	// Extras is the node's raw extras object.
	Extras json.RawMessage

	parent   *Node
	children []*Node
}

// NewNode creates an unparented node with an identity transform.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - *Node: the new node
func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		Index:     -1,
		Transform: model.IdentityTransform(),
	}
}

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// AddChild parents child under n. A node keeps the first parent it is given; later
// attempts, self-parenting and cycles are refused.
//
// Parameters:
//   - child: the node to attach
//
// Returns:
//   - bool: true if the child was attached
func (n *Node) AddChild(child *Node) bool {
	if child == nil || child == n || child.parent != nil {
		return false
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return false
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	return true
}

// SetMatrix decomposes a column-major 4x4 matrix into the node's translation, rotation and scale.
//
// Parameters:
//   - m: the 16 matrix values in glTF (column-major) order
func (n *Node) SetMatrix(m [16]float32) {
	mat := mgl32.Mat4(m)
	t := mat.Col(3)
	sx, sy, sz := mgl32.Extract3DScale(mat)

	// strip scale before extracting rotation
	rot := mat
	for c, sc := range []float32{sx, sy, sz} {
		if sc != 0 {
			col := mat.Col(c).Mul(1 / sc)
			rot.SetCol(c, col)
		}
	}
	q := mgl32.Mat4ToQuat(rot).Normalize()

	n.Transform.Translation = [3]float32{t[0], t[1], t[2]}
	n.Transform.Rotation = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	n.Transform.Scale = [3]float32{sx, sy, sz}
}

// LocalMatrix composes the local transform as T * R * S.
//
// Returns:
//   - mgl32.Mat4: the local matrix
func (n *Node) LocalMatrix() mgl32.Mat4 {
	tr := n.Transform
	q := mgl32.Quat{W: tr.Rotation[3], V: mgl32.Vec3{tr.Rotation[0], tr.Rotation[1], tr.Rotation[2]}}
	return mgl32.Translate3D(tr.Translation[0], tr.Translation[1], tr.Translation[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(tr.Scale[0], tr.Scale[1], tr.Scale[2]))
}

// WorldMatrix composes the local matrices from the root down to this node.
//
// Returns:
//   - mgl32.Mat4: the world matrix
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Walk visits n and its descendants depth-first. Returning false from fn skips the node's children.
//
// Parameters:
//   - fn: the visitor
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Find returns the first descendant (or n itself) with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}
