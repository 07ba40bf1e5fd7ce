package model

import "github.com/Carmen-Shannon/oxy-render/common"

// box face definitions: normal, then the tangent axes spanning the face
var boxFaces = [6][3]common.Vec3{
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
}

// NewBoxGeometry builds an axis-aligned box centered at the origin with per-face normals.
//
// Parameters:
//   - name: identifier for debugging
//   - halfSize: half extent along each axis
//   - color: vertex color
//
// Returns:
//   - *Geometry: 24 vertices, 36 indices
func NewBoxGeometry(name string, halfSize common.Vec3, color [4]float32) *Geometry {
	vertices, indices := boxMesh(halfSize, color)
	return NewGeometry(name, vertices, indices)
}

// NewSkinnedBoxGeometry builds a box whose lower half follows bone 0 and upper half bone 1.
//
// Parameters:
//   - name: identifier for debugging
//   - halfSize: half extent along each axis
//   - color: vertex color
//
// Returns:
//   - *Geometry: a skinned geometry with two bone influences
func NewSkinnedBoxGeometry(name string, halfSize common.Vec3, color [4]float32) *Geometry {
	vertices, indices := boxMesh(halfSize, color)
	skinned := make([]GPUSkinnedVertex, len(vertices))
	for i, v := range vertices {
		skinned[i].GPUVertex = v
		if v.Position[1] > 0 {
			skinned[i].BoneIndices = [4]uint32{1, 0, 0, 0}
		}
		skinned[i].BoneWeights = [4]float32{1, 0, 0, 0}
	}
	return NewSkinnedGeometry(name, skinned, indices)
}

func boxMesh(halfSize common.Vec3, color [4]float32) ([]GPUVertex, []uint32) {
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range boxFaces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(vertices))
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			p := n.Add(u.Scale(c[0])).Add(v.Scale(c[1])).Mul(halfSize)
			vertices = append(vertices, GPUVertex{
				Position: p,
				Normal:   n,
				TexCoord: [2]float32{(c[0] + 1) * 0.5, (1 - c[1]) * 0.5},
				Color:    color,
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// NewBoxModel builds a single-mesh box model. Extra LOD distances add copies of the box
// that become active beyond each distance.
//
// Parameters:
//   - name: the model name
//   - halfSize: half extent along each axis
//   - lodDistances: activation distances for additional LOD levels
//
// Returns:
//   - Model: the box model
func NewBoxModel(name string, halfSize common.Vec3, lodDistances ...float32) Model {
	lods := []*Geometry{NewBoxGeometry(name, halfSize, [4]float32{1, 1, 1, 1})}
	for _, d := range lodDistances {
		g := NewBoxGeometry(name+"_lod", halfSize, [4]float32{1, 1, 1, 1})
		g.LodDistance = d
		lods = append(lods, g)
	}
	return NewModel(WithName(name), WithGeometry(lods...))
}

// NewTwoBoneSkeleton returns a skeleton with a root bone and one child at the given height.
//
// Parameters:
//   - height: the child bone's offset along +Y
//
// Returns:
//   - *Skeleton: the skeleton
func NewTwoBoneSkeleton(height float32) *Skeleton {
	var child common.Mat4
	common.BuildModelMatrix(child[:], 0, height, 0, 0, 0, 0, 1, 1, 1)
	childInv, _ := child.Inverse()
	return &Skeleton{Bones: []Bone{
		{Name: "root", ParentIndex: -1, BindMatrix: common.Identity4(), InverseBindMatrix: common.Identity4()},
		{Name: "upper", ParentIndex: 0, BindMatrix: child, InverseBindMatrix: childInv},
	}}
}
