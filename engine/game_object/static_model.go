package game_object

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

const minLodScale = 1e-6

// StaticModel draws a Model with one material per sub-mesh. Sub-meshes with more than
// one LOD level switch geometry by camera distance in OnPrepareRender.
type StaticModel struct {
	drawable.Base

	model     model.Model
	materials []material.Material
	batches   []drawable.SourceBatch
	lodBias   float32
}

var (
	_ drawable.GeometryDrawable = &StaticModel{}
	_ drawable.Raycaster        = &StaticModel{}
)

// NewStaticModel creates a geometry drawable for m. Missing materials fall back to material.Default().
//
// Parameters:
//   - m: the model to draw
//   - materials: one material per sub-mesh; the last one is reused for the remaining sub-meshes
//
// Returns:
//   - *StaticModel: the drawable
func NewStaticModel(m model.Model, materials ...material.Material) *StaticModel {
	s := &StaticModel{}
	s.init(s, m, drawable.FlagGeometry|drawable.FlagCastShadows, materials)
	return s
}

func (s *StaticModel) init(self drawable.Drawable, m model.Model, flags drawable.Flags, materials []material.Material) {
	s.model = m
	s.materials = materials
	s.lodBias = 1

	for i := 0; i < m.NumGeometries(); i++ {
		if len(m.LodGeometries(i)) > 1 {
			flags |= drawable.FlagHasLOD
		}
	}
	s.Base.Init(self, flags)

	s.batches = make([]drawable.SourceBatch, m.NumGeometries())
	for i := range s.batches {
		s.batches[i] = drawable.SourceBatch{
			Geometry: m.Geometry(i, 0),
			Material: s.materialFor(i),
		}
	}
	s.SetLocalBoundingBox(m.BoundingBox())
}

func (s *StaticModel) materialFor(index int) material.Material {
	switch {
	case len(s.materials) == 0:
		return material.Default()
	case index < len(s.materials):
		return s.materials[index]
	default:
		return s.materials[len(s.materials)-1]
	}
}

// Model returns the drawn model.
func (s *StaticModel) Model() model.Model {
	return s.model
}

// SetMaterial replaces the material of one sub-mesh.
func (s *StaticModel) SetMaterial(index int, mat material.Material) {
	if index < 0 || index >= len(s.batches) {
		return
	}
	s.batches[index].Material = mat
}

// LodBias returns the LOD bias; higher values keep detailed geometry further away.
func (s *StaticModel) LodBias() float32 {
	return s.lodBias
}

// SetLodBias sets the LOD bias.
func (s *StaticModel) SetLodBias(bias float32) {
	s.lodBias = math32.Max(bias, minLodScale)
}

// SetCastShadows toggles rendering into shadow maps.
func (s *StaticModel) SetCastShadows(enable bool) {
	s.SetFlag(drawable.FlagCastShadows, enable)
}

func (s *StaticModel) Batches() []drawable.SourceBatch {
	return s.batches
}

func (s *StaticModel) OnPrepareRender(frameNumber uint32, cam camera.Camera) bool {
	if !s.Base.OnPrepareRender(frameNumber, cam) {
		return false
	}
	if s.Flags().Has(drawable.FlagHasLOD) {
		s.selectLods(cam)
	}
	return true
}

func (s *StaticModel) selectLods(cam camera.Camera) {
	lodDistance := s.lodDistance(cam)
	for i := range s.batches {
		levels := s.model.LodGeometries(i)
		if len(levels) <= 1 {
			continue
		}
		j := 1
		for ; j < len(levels); j++ {
			if lodDistance <= levels[j].LodDistance {
				break
			}
		}
		s.batches[i].Geometry = levels[j-1]
	}
}

// lodDistance scales the camera distance by the average world scale and the bias.
// Orthographic cameras use the view size instead of the distance.
func (s *StaticModel) lodDistance(cam camera.Camera) float32 {
	scale := worldScale(s.WorldTransform()).Average()
	d := math32.Max(s.lodBias*scale, minLodScale)
	if cam.Orthographic() {
		return cam.OrthoSize() / d
	}
	return s.Distance() / d
}

func (s *StaticModel) OnRender(params drawable.ShaderParams, geometryIndex int) {}

// OnRaycast intersects the ray with each sub-mesh's bounding box in model space.
func (s *StaticModel) OnRaycast(ray common.Ray) (float32, bool) {
	world := s.WorldTransform()
	inv, ok := world.Inverse()
	if !ok {
		return s.WorldBoundingBox().RayDistance(ray)
	}
	local := common.NewRay(inv.TransformPoint(ray.Origin), inv.TransformDir(ray.Direction))

	best := math32.Inf(1)
	hit := false
	for i := range s.batches {
		t, ok := s.batches[i].Geometry.BoundingBox.RayDistance(local)
		if !ok {
			continue
		}
		worldPoint := world.TransformPoint(local.Point(t))
		if d := worldPoint.DistanceTo(ray.Origin); d < best {
			best = d
			hit = true
		}
	}
	return best, hit
}

func worldScale(m *common.Mat4) common.Vec3 {
	return common.Vec3{
		common.Vec3{m[0], m[1], m[2]}.Length(),
		common.Vec3{m[4], m[5], m[6]}.Length(),
		common.Vec3{m[8], m[9], m[10]}.Length(),
	}
}
