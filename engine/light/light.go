package light

import "math"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// It shines along the owning node's -Z axis with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from the owning node's origin.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone along the owning node's -Z axis.
	// Intensity falls off between the inner and outer cone angles.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "directional"
	}
}

// ParseLightType maps a KHR_lights_punctual type string to a LightType.
//
// Parameters:
//   - s: "directional", "point" or "spot"
//
// Returns:
//   - LightType: the light type
//   - bool: false if the string is not a known type
func ParseLightType(s string) (LightType, bool) {
	switch s {
	case "directional":
		return LightTypeDirectional, true
	case "point":
		return LightTypePoint, true
	case "spot":
		return LightTypeSpot, true
	default:
		return LightTypeDirectional, false
	}
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	name       string
	lightType  LightType
	color      [3]float32
	intensity  float32
	lightRange float32
	innerCone  float32 // degrees
	outerCone  float32 // degrees
	enabled    bool
}

// Light defines the interface for a punctual light imported from an asset.
//
// Lights carry no transform of their own. The node a light is attached to places it,
// and spot and directional lights shine along that node's -Z axis.
type Light interface {
	// Name returns the light name (the owning node's name for imported lights).
	//
	// Returns:
	//   - string: the light name
	Name() string

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Range returns the attenuation distance for point and spot lights.
	// +Inf means the light never cuts off.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// InnerConeAngle returns the inner cone half-angle of a spot light in degrees.
	//
	// Returns:
	//   - float32: inner half-angle in degrees
	InnerConeAngle() float32

	// OuterConeAngle returns the outer cone half-angle of a spot light in degrees.
	//
	// Returns:
	//   - float32: outer half-angle in degrees
	OuterConeAngle() float32

	// InnerCone returns the cosine of the inner cone half-angle, the form shaders consume.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled returns whether this light is active.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetIntensity updates the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity value
	SetIntensity(intensity float32)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the given type with KHR_lights_punctual defaults
// (white, intensity 1, infinite range, inner cone 0°, outer cone 45°) and the options applied.
//
// Parameters:
//   - lightType: the kind of light source
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the newly created light instance
func NewLight(lightType LightType, options ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		color:      [3]float32{1, 1, 1},
		intensity:  1,
		lightRange: float32(math.Inf(1)),
		innerCone:  0,
		outerCone:  45,
		enabled:    true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) Name() string {
	return l.name
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerConeAngle() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterConeAngle() float32 {
	return l.outerCone
}

func (l *lightImpl) InnerCone() float32 {
	return cosDeg(l.innerCone)
}

func (l *lightImpl) OuterCone() float32 {
	return cosDeg(l.outerCone)
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

// cosDeg returns the cosine of an angle given in degrees.
func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
