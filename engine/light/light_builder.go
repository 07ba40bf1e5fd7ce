package light

import "github.com/Carmen-Shannon/oxy-render/engine/drawable"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetColor(r, g, b)
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange is an option builder that sets the maximum attenuation distance.
//
// Parameters:
//   - lightRange: the range value
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = max(lightRange, 0)
	}
}

// WithSpotCone is an option builder that sets the inner and outer cone half-angles.
// Angles are specified in degrees and stored as cosines.
//
// Parameters:
//   - innerDeg: inner cone half-angle in degrees
//   - outerDeg: outer cone half-angle in degrees
//
// Returns:
//   - LightBuilderOption: a function that applies the spot cone option to a lightImpl
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.setCone(innerDeg, outerDeg)
	}
}

// WithCastsShadows is an option builder that sets whether the light casts shadows.
//
// Parameters:
//   - castsShadows: true to enable shadow casting
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow casting option to a lightImpl
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetFlag(drawable.FlagCastShadows, castsShadows)
	}
}

// WithShadowMapSize is an option builder that sets the per-view shadow map size.
//
// Parameters:
//   - size: texels per view, rounded up to a power of two
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow map size to a lightImpl
func WithShadowMapSize(size int) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetShadowMapSize(size)
	}
}

// WithShadowSplits is an option builder that sets the directional cascade split distances.
//
// Parameters:
//   - near: far distance of the first cascade
//   - far: far distance of the second cascade and maximum shadow distance
//
// Returns:
//   - LightBuilderOption: a function that applies the splits to a lightImpl
func WithShadowSplits(near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadowSplits = [2]float32{near, max(near, far)}
	}
}

// WithDepthBias is an option builder that sets the shadow depth biases.
//
// Parameters:
//   - constant: the constant depth bias
//   - slope: the slope-scaled depth bias
//
// Returns:
//   - LightBuilderOption: a function that applies the biases to a lightImpl
func WithDepthBias(constant, slope float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.depthBias = constant
		l.slopeBias = slope
	}
}

// WithMaxDistance is an option builder that sets the draw distance beyond which the light is culled.
//
// Parameters:
//   - distance: the distance, 0 for unlimited
//
// Returns:
//   - LightBuilderOption: a function that applies the draw distance to a lightImpl
func WithMaxDistance(distance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetMaxDistance(distance)
	}
}
