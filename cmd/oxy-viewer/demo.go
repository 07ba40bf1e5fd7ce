package main

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/material"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

const (
	cubeSpacing = 3
	// every dynamicEvery-th grid cube spins and is excluded from shadow caching
	dynamicEvery = 8
	// every alphaEvery-th grid cube is translucent
	alphaEvery = 23
)

// orbiter moves a light on a horizontal circle.
type orbiter struct {
	obj    game_object.GameObject
	center common.Vec3
	radius float32
	speed  float32
	phase  float32
}

// demo is the generated viewer scene.
type demo struct {
	scene    scene.Scene
	orbiters []orbiter
	extent   float32
	time     float32
}

// newDemo fills a scene with a cube grid, translucent and skinned boxes, a sun and a
// mix of static and orbiting local lights.
func newDemo(cfg config.Config, wq work_queue.WorkQueue, log *logger.Logger) *demo {
	half := cfg.Scene.OctreeSize / 2
	sc := scene.NewScene("demo", wq,
		scene.WithOctreeBounds(common.NewBox(common.Vec3{-half, -half, -half}, common.Vec3{half, half, half}), cfg.Scene.OctreeLevels),
		scene.WithComputeWorkers(cfg.Scene.ComputeWorkers),
		scene.WithAmbientColor([3]float32{0.12, 0.12, 0.16}),
		scene.WithLogger(log),
	)
	rng := rand.New(rand.NewPCG(1, 2))

	side := max(int(math32.Ceil(math32.Sqrt(float32(cfg.Scene.Cubes)))), 1)
	extent := float32(side*cubeSpacing) / 2
	d := &demo{scene: sc, extent: extent}

	sc.Add(game_object.NewGameObject(
		game_object.WithName("ground"),
		game_object.WithStatic(true),
		game_object.WithPosition(common.Vec3{0, -1.5, 0}),
		game_object.WithScale(common.Vec3{extent + 10, 1, extent + 10}),
		game_object.WithDrawables(game_object.NewStaticModel(
			model.NewBoxModel("ground", common.Vec3One),
			material.NewMaterial(material.WithName("ground"), material.WithBaseColor([4]float32{0.5, 0.5, 0.45, 1})),
		)),
	))

	crate := model.NewBoxModel("crate", common.Vec3{0.5, 0.5, 0.5}, 60, 150)
	solid := material.NewMaterial(material.WithName("crate"), material.WithBaseColor([4]float32{0.8, 0.6, 0.4, 1}))
	glass := material.NewMaterial(material.WithName("glass"), material.WithBaseColor([4]float32{0.4, 0.7, 1, 0.4}), material.WithAlpha())
	for i := range cfg.Scene.Cubes {
		x := float32(i%side*cubeSpacing) - extent
		z := float32(i/side*cubeSpacing) - extent
		mat := solid
		if i%alphaEvery == 0 {
			mat = glass
		}
		options := []game_object.GameObjectBuilderOption{
			game_object.WithPosition(common.Vec3{x, 0, z}),
			game_object.WithRotation(common.Vec3{0, rng.Float32() * 2 * math32.Pi, 0}),
			game_object.WithDrawables(game_object.NewStaticModel(crate, mat)),
		}
		if i%dynamicEvery == 0 {
			options = append(options, game_object.WithRotationSpeed(common.Vec3{0, 0.5 + rng.Float32(), 0}))
		} else {
			options = append(options, game_object.WithStatic(true))
		}
		sc.Add(game_object.NewGameObject(options...))
	}

	skinned := model.NewModel(
		model.WithName("bender"),
		model.WithGeometry(model.NewSkinnedBoxGeometry("bender", common.Vec3{0.4, 1, 0.4}, [4]float32{0.3, 0.9, 0.4, 1})),
		model.WithSkeleton(model.NewTwoBoneSkeleton(1)),
	)
	for i := range 4 {
		sk := game_object.NewSkinnedModel(skinned)
		sk.SetAnimation(bend(float32(i)))
		sc.Add(game_object.NewGameObject(
			game_object.WithName("bender"),
			game_object.WithPosition(common.Vec3{float32(i*4) - 6, 0.5, extent + 4}),
			game_object.WithDrawables(sk),
		))
	}

	sun := light.NewLight(light.LightTypeDirectional,
		light.WithColor(1, 0.95, 0.85),
		light.WithIntensity(1.2),
		light.WithCastsShadows(cfg.Renderer.DrawShadows),
		light.WithShadowSplits(20, 80),
		light.WithMaxDistance(150),
		light.WithDepthBias(cfg.Renderer.ShadowDepthBias, cfg.Renderer.ShadowSlopeBias),
	)
	sc.Add(game_object.NewGameObject(
		game_object.WithName("sun"),
		game_object.WithDirection(common.Vec3{-0.4, -1, -0.3}),
		game_object.WithDrawables(sun),
	))

	for i := range cfg.Scene.Lights {
		kind := light.LightTypePoint
		if i%2 == 1 {
			kind = light.LightTypeSpot
		}
		l := light.NewLight(kind,
			light.WithColor(0.3+0.7*rng.Float32(), 0.3+0.7*rng.Float32(), 0.3+0.7*rng.Float32()),
			light.WithRange(8+8*rng.Float32()),
			light.WithSpotCone(20, 35),
			light.WithCastsShadows(i%4 < 2),
			light.WithShadowMapSize(256),
			light.WithDepthBias(cfg.Renderer.ShadowDepthBias, cfg.Renderer.ShadowSlopeBias),
		)
		pos := common.Vec3{(rng.Float32()*2 - 1) * extent, 3 + 3*rng.Float32(), (rng.Float32()*2 - 1) * extent}
		moving := i%3 == 0
		obj := game_object.NewGameObject(
			game_object.WithPosition(pos),
			game_object.WithDirection(common.Vec3{0, -1, 0.2}),
			game_object.WithStatic(!moving),
			game_object.WithDrawables(l),
		)
		sc.Add(obj)
		if moving {
			d.orbiters = append(d.orbiters, orbiter{
				obj:    obj,
				center: pos,
				radius: 2 + 4*rng.Float32(),
				speed:  0.3 + rng.Float32(),
				phase:  rng.Float32() * 2 * math32.Pi,
			})
		}
	}
	log.Info("demo scene built", "objects", sc.Count(), "lights", len(sc.Lights()), "orbiting", len(d.orbiters))
	return d
}

// tick moves the orbiting lights.
func (d *demo) tick(dt float32) {
	d.time += dt
	for _, o := range d.orbiters {
		angle := o.phase + d.time*o.speed
		o.obj.SetPosition(o.center.Add(common.Vec3{math32.Cos(angle) * o.radius, 0, math32.Sin(angle) * o.radius}))
	}
}

// bend swings the upper bone of a two-bone skeleton around Z.
func bend(phase float32) game_object.PoseFunc {
	return func(t float32, s *model.Skeleton, poses []common.Mat4) {
		angle := 0.6 * math32.Sin(t*2+phase)
		common.BuildModelMatrix(poses[1][:], 0, 1, 0, 0, 0, angle, 1, 1, 1)
	}
}
