package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection identifies the kind of projection a camera uses.
type Projection int

const (
	// ProjectionPerspective is a perspective projection driven by a vertical field of view.
	ProjectionPerspective Projection = iota

	// ProjectionOrthographic is a parallel projection driven by an orthographic half height.
	ProjectionOrthographic
)

func (p Projection) String() string {
	if p == ProjectionOrthographic {
		return "orthographic"
	}
	return "perspective"
}

// AspectRatioMode selects where the aspect ratio comes from.
type AspectRatioMode int

const (
	// AspectAuto derives the aspect ratio from the viewport.
	AspectAuto AspectRatioMode = iota

	// AspectManual uses the camera's own aspect ratio.
	AspectManual
)

type cameraImpl struct {
	mu *sync.Mutex

	name string

	projection      Projection
	fov             float32
	aspectRatio     float32
	aspectRatioMode AspectRatioMode
	orthoHeight     float32
	near            float32
	far             float32

	enabled bool
}

// Camera defines the interface for a camera description imported from an asset.
// The camera holds projection settings only; its placement comes from the scene node it is attached to.
type Camera interface {
	// Name returns the camera name (the owning node's name for imported cameras).
	//
	// Returns:
	//   - string: the camera name
	Name() string

	// Projection returns the projection kind.
	//
	// Returns:
	//   - Projection: perspective or orthographic
	Projection() Projection

	// Fov returns the vertical field of view in degrees.
	//
	// Returns:
	//   - float32: field of view in degrees
	Fov() float32

	// AspectRatio returns the camera's own aspect ratio. Only meaningful when AspectRatioMode is AspectManual.
	//
	// Returns:
	//   - float32: the aspect ratio (width / height)
	AspectRatio() float32

	// AspectRatioMode returns whether the aspect ratio is fixed or taken from the viewport.
	//
	// Returns:
	//   - AspectRatioMode: AspectAuto or AspectManual
	AspectRatioMode() AspectRatioMode

	// OrthoHeight returns the half height of an orthographic view volume.
	//
	// Returns:
	//   - float32: the orthographic half height
	OrthoHeight() float32

	// NearClip returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	NearClip() float32

	// FarClip returns the far clipping plane distance. Zero means an infinite far plane.
	//
	// Returns:
	//   - float32: far plane distance
	FarClip() float32

	// Enabled reports whether the camera should render. Imported cameras start disabled.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables the camera.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// ProjectionMatrix computes the 4x4 projection matrix (column-major).
	//
	// Parameters:
	//   - viewportAspect: aspect ratio used when the mode is AspectAuto
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix(viewportAspect float32) mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with perspective defaults (45° fov, near 0.1, far 1000) and the
// provided options applied.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions to configure the camera
//
// Returns:
//   - Camera: a new Camera instance
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:              &sync.Mutex{},
		projection:      ProjectionPerspective,
		fov:             45,
		aspectRatio:     16.0 / 9.0,
		aspectRatioMode: AspectAuto,
		orthoHeight:     10,
		near:            0.1,
		far:             1000,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Projection() Projection {
	return c.projection
}

func (c *cameraImpl) Fov() float32 {
	return c.fov
}

func (c *cameraImpl) AspectRatio() float32 {
	return c.aspectRatio
}

func (c *cameraImpl) AspectRatioMode() AspectRatioMode {
	return c.aspectRatioMode
}

func (c *cameraImpl) OrthoHeight() float32 {
	return c.orthoHeight
}

func (c *cameraImpl) NearClip() float32 {
	return c.near
}

func (c *cameraImpl) FarClip() float32 {
	return c.far
}

func (c *cameraImpl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *cameraImpl) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

func (c *cameraImpl) ProjectionMatrix(viewportAspect float32) mgl32.Mat4 {
	aspect := viewportAspect
	if c.aspectRatioMode == AspectManual && c.aspectRatio > 0 {
		aspect = c.aspectRatio
	}

	if c.projection == ProjectionOrthographic {
		h := c.orthoHeight
		w := h * aspect
		return mgl32.Ortho(-w, w, -h, h, c.near, c.far)
	}

	fovy := mgl32.DegToRad(c.fov)
	if c.far > 0 {
		return mgl32.Perspective(fovy, aspect, c.near, c.far)
	}

	// infinite far plane
	f := float32(1.0 / math.Tan(float64(fovy)/2))
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -1, -1,
		0, 0, -2 * c.near, 0,
	}
}
