package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/light"
)

// Scene groups the root nodes of one glTF scene under a single root node.
// Scenes can be toggled via the Active flag to switch between the scenes of an asset.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently the one being shown.
	Active() bool

	// SetActive sets whether this scene is currently the one being shown.
	SetActive(active bool)

	// Root returns the scene's root node. Its children are the scene's top-level nodes.
	//
	// Returns:
	//   - *Node: the root node
	Root() *Node

	// Add attaches a node under the scene root. Nodes that already have a parent are left alone.
	//
	// Parameters:
	//   - n: the node to add
	//
	// Returns:
	//   - bool: true if the node was attached
	Add(n *Node) bool

	// Nodes returns every node below the root in depth-first order.
	//
	// Returns:
	//   - []*Node: the nodes
	Nodes() []*Node

	// Cameras returns the cameras attached to nodes of the scene.
	//
	// Returns:
	//   - []camera.Camera: the cameras in depth-first node order
	Cameras() []camera.Camera

	// Lights returns the lights attached to nodes of the scene.
	//
	// Returns:
	//   - []light.Light: the lights in depth-first node order
	Lights() []light.Light
}

type scene struct {
	mu     sync.RWMutex
	name   string
	active bool
	root   *Node
}

var _ Scene = &scene{}

// NewScene creates an empty scene whose root node carries the scene name.
//
// Parameters:
//   - name: the scene name
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name: name,
		root: NewNode(name),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.root.Name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Root() *Node {
	return s.root
}

func (s *scene) Add(n *Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.AddChild(n)
}

func (s *scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, c := range s.root.children {
		c.Walk(func(n *Node) bool {
			out = append(out, n)
			return true
		})
	}
	return out
}

func (s *scene) Cameras() []camera.Camera {
	var out []camera.Camera
	for _, n := range s.Nodes() {
		if n.Camera != nil {
			out = append(out, n.Camera)
		}
	}
	return out
}

func (s *scene) Lights() []light.Light {
	var out []light.Light
	for _, n := range s.Nodes() {
		if n.Light != nil {
			out = append(out, n.Light)
		}
	}
	return out
}
