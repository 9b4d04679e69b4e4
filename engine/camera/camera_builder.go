package camera

type CameraBuilderOption func(*cameraImpl)

// WithName sets the camera's name.
//
// Parameters:
//   - name: the camera name
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's name
func WithName(name string) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.name = name
	}
}

// WithProjection sets the camera's projection kind.
//
// Parameters:
//   - projection: perspective or orthographic
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithProjection(projection Projection) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = projection
	}
}

// WithFov sets the camera's vertical field of view in degrees.
//
// Parameters:
//   - fov: field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspectRatio fixes the camera's aspect ratio (width / height) and switches the mode to AspectManual.
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspectRatio(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspectRatio = aspect
		c.aspectRatioMode = AspectManual
	}
}

// WithOrthoHeight sets the half height of the orthographic view volume.
//
// Parameters:
//   - height: the orthographic half height
//
// Returns:
//   - CameraBuilderOption: a function that sets the ortho height
func WithOrthoHeight(height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.orthoHeight = height
	}
}

// WithNearClip sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNearClip(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFarClip sets the far clipping plane distance. Zero selects an infinite far plane.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFarClip(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithEnabled sets whether the camera starts enabled.
//
// Parameters:
//   - enabled: true to enable the camera
//
// Returns:
//   - CameraBuilderOption: functional option to set the enabled flag
func WithEnabled(enabled bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.enabled = enabled
	}
}
