package light

// DefaultShadowMapSize is the default per-view shadow map size in texels for point
// and spot lights. A point light requests 3×2 views of this size from the atlas.
const DefaultShadowMapSize = 512

// DefaultDirectionalShadowMapSize is the default per-cascade size in texels for the
// directional light. Both cascades sit side by side in the directional atlas.
const DefaultDirectionalShadowMapSize = 1024

// DefaultShadowSplits are the far distances of the two directional cascades. The
// second split is also the maximum shadow distance.
var DefaultShadowSplits = [2]float32{15, 60}

// DefaultShadowBias is the constant depth bias applied while rendering shadow maps
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// DefaultShadowSlopeBias is the slope-scaled depth bias applied while rendering
// shadow maps. Higher values reduce acne on surfaces at grazing angles at the cost
// of slight shadow detachment from contact points.
const DefaultShadowSlopeBias float32 = 2.0

// minShadowViewSize bounds the orthographic extent of a focused cascade.
const minShadowViewSize float32 = 1.0

// shadowViewQuantize is the step the focused cascade extent is rounded up to, so
// the texel size only changes when the visible volume changes noticeably.
const shadowViewQuantize float32 = 0.5
