package octree

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
)

// RaycastResult is one drawable hit by a ray.
type RaycastResult struct {
	Position common.Vec3
	Distance float32
	Drawable drawable.Drawable
}

func (o *octreeImpl) FindDrawables(out []drawable.Drawable, box common.Box, mask drawable.Flags) []drawable.Drawable {
	return o.collect(out, o.Root(), mask, func(b common.Box) common.Intersection {
		return box.IsInside(b)
	})
}

func (o *octreeImpl) FindDrawablesInSphere(out []drawable.Drawable, sphere common.Sphere, mask drawable.Flags) []drawable.Drawable {
	return o.collect(out, o.Root(), mask, func(b common.Box) common.Intersection {
		switch b.IsInsideSphere(sphere) {
		case common.Outside:
			return common.Outside
		default:
			// a box only counts as inside the sphere when all its corners are
			for _, c := range b.Corners() {
				if c.DistanceTo(sphere.Center) > sphere.Radius {
					return common.Intersects
				}
			}
			return common.Inside
		}
	})
}

// collect descends while test reports intersection and collects whole subtrees once an
// octant's culling box is fully inside the volume.
func (o *octreeImpl) collect(out []drawable.Drawable, oct *Octant, mask drawable.Flags, test func(common.Box) common.Intersection) []drawable.Drawable {
	switch test(oct.cullingBox) {
	case common.Outside:
		return out
	case common.Inside:
		return o.collectAllMasked(out, oct, mask)
	}

	for _, d := range oct.drawables {
		if d.Flags().Has(mask) && test(d.WorldBoundingBox()) != common.Outside {
			out = append(out, d)
		}
	}
	for _, c := range oct.children {
		if c != NoOctant {
			out = o.collect(out, o.octants[c], mask, test)
		}
	}
	return out
}

func (o *octreeImpl) collectAllMasked(out []drawable.Drawable, oct *Octant, mask drawable.Flags) []drawable.Drawable {
	for _, d := range oct.drawables {
		if d.Flags().Has(mask) {
			out = append(out, d)
		}
	}
	for _, c := range oct.children {
		if c != NoOctant {
			out = o.collectAllMasked(out, o.octants[c], mask)
		}
	}
	return out
}

func (o *octreeImpl) FindDrawablesInFrustum(out []drawable.Drawable, frustum common.Frustum, mask drawable.Flags) []drawable.Drawable {
	return o.collectFrustum(out, o.Root(), frustum, mask, common.PlaneMaskAll)
}

func (o *octreeImpl) collectFrustum(out []drawable.Drawable, oct *Octant, frustum common.Frustum, mask drawable.Flags, planeMask uint8) []drawable.Drawable {
	if planeMask != 0 {
		planeMask = frustum.IsInsideMasked(oct.cullingBox, planeMask)
		if planeMask == common.PlaneMaskOutside {
			return out
		}
	}
	if planeMask == 0 {
		return o.collectAllMasked(out, oct, mask)
	}

	for _, d := range oct.drawables {
		if d.Flags().Has(mask) && frustum.IsInsideMaskedFast(d.WorldBoundingBox(), planeMask) != common.Outside {
			out = append(out, d)
		}
	}
	for _, c := range oct.children {
		if c != NoOctant {
			out = o.collectFrustum(out, o.octants[c], frustum, mask, planeMask)
		}
	}
	return out
}

func (o *octreeImpl) Raycast(ray common.Ray, maxDistance float32, mask drawable.Flags) []RaycastResult {
	var results []RaycastResult
	o.raycast(o.Root(), ray, maxDistance, mask, func(r RaycastResult) float32 {
		results = append(results, r)
		return maxDistance
	})
	slices.SortFunc(results, func(a, b RaycastResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return results
}

func (o *octreeImpl) RaycastSingle(ray common.Ray, maxDistance float32, mask drawable.Flags) (RaycastResult, bool) {
	best := RaycastResult{Distance: math32.Inf(1)}
	found := false
	o.raycast(o.Root(), ray, maxDistance, mask, func(r RaycastResult) float32 {
		if r.Distance < best.Distance {
			best = r
			found = true
		}
		return best.Distance
	})
	return best, found
}

// raycast visits octants the ray enters within limit. hit returns the new limit, letting
// single-hit searches skip octants behind the closest hit so far.
func (o *octreeImpl) raycast(oct *Octant, ray common.Ray, limit float32, mask drawable.Flags, hit func(RaycastResult) float32) float32 {
	if t, ok := oct.cullingBox.RayDistance(ray); !ok || t > limit {
		return limit
	}

	for _, d := range oct.drawables {
		if !d.Flags().Has(mask) {
			continue
		}
		t, ok := d.WorldBoundingBox().RayDistance(ray)
		if !ok || t > limit {
			continue
		}
		if rc, isRaycaster := d.(drawable.Raycaster); isRaycaster {
			t, ok = rc.OnRaycast(ray)
			if !ok || t > limit {
				continue
			}
		}
		limit = hit(RaycastResult{Position: ray.Point(t), Distance: t, Drawable: d})
	}
	for _, c := range oct.children {
		if c != NoOctant {
			limit = o.raycast(o.octants[c], ray, limit, mask, hit)
		}
	}
	return limit
}
