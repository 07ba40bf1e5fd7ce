// Command oxy-viewer renders a generated stress scene: a large grid of instanced cubes,
// spinning dynamic cubes, skinned boxes, a shadowed sun and a set of static and orbiting
// point and spot lights.
//
// Usage:
//
//	oxy-viewer [-config render.toml] [-workers n] [-headless -frames n] [-capture out.oxycap]
//
// Controls: drag or WASD to orbit, scroll or Q/E to zoom, F1 toggles shadows, F2 toggles occlusion,
// P logs the object under the screen center, F12 captures the next frame, Escape quits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/batch"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu/wgpu_device"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/window"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

func init() {
	// glfw requires window calls on the main thread
	runtime.LockOSThread()
}

type options struct {
	configPath  string
	workers     int
	headless    bool
	frames      uint64
	capturePath string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML or YAML render configuration, reloaded on change")
	flag.IntVar(&opts.workers, "workers", -1, "task scheduler worker threads (overrides the config)")
	flag.BoolVar(&opts.headless, "headless", false, "render through the recording device without a window")
	flag.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames (0 runs until closed)")
	flag.StringVar(&opts.capturePath, "capture", "", "write a snapshot of the capture frame to this file")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-viewer:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.workers >= 0 {
		cfg.Workers = opts.workers
		cfg.Validate()
	}
	cfg.Capture.Path = common.Coalesce(opts.capturePath, cfg.Capture.Path)
	if opts.headless && opts.frames == 0 {
		opts.frames = 300
	}

	log := logger.New(cfg.LogLevel, cfg.LogDir)
	log.Info("starting", "workers", cfg.Workers, "headless", opts.headless, "config", common.Coalesce(opts.configPath, "defaults"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wq := work_queue.NewWorkQueue(work_queue.WithWorkers(cfg.Workers), work_queue.WithLogger(log))
	defer wq.Close()

	var (
		win    *titledWindow
		device gpu.Device
	)
	// the device's instance region also holds both shadow maps' instances
	instanceCapacity := cfg.Renderer.InstanceCapacity + 2*batch.DefaultInstanceCapacity
	if opts.headless {
		device = gpu.NewRecorder(gpu.WithSize(cfg.Window.Width, cfg.Window.Height), gpu.WithLogger(log))
	} else {
		w, err := window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
			window.WithMinSize(320, 200),
			window.WithLogger(log),
		)
		if err != nil {
			return err
		}
		defer w.Close()
		win = &titledWindow{Window: w}

		width, height := w.Size()
		d, err := wgpu_device.NewDevice(w.SurfaceDescriptor(), width, height,
			wgpu_device.WithLogger(log),
			wgpu_device.WithInstanceCapacity(instanceCapacity),
		)
		if err != nil {
			return err
		}
		device = d
	}

	defer device.Release()

	vr := renderer.NewViewRenderer(device, wq,
		renderer.WithLogger(log),
		renderer.WithInstanceCapacity(cfg.Renderer.InstanceCapacity),
		renderer.WithClearColor([4]float32{0.05, 0.06, 0.08, 1}),
	)
	defer vr.Release()
	if err := vr.SetupShadowMaps(cfg.Renderer.DirShadowMapSize, cfg.Renderer.LightAtlasSize); err != nil {
		return err
	}

	d := newDemo(cfg, wq, log)
	defer d.scene.Close()

	orbit := camera.NewOrbitController(
		camera.WithTarget(common.Vec3{0, 0, 0}),
		camera.WithRadius(d.extent*1.2+10),
		camera.WithRadiusLimits(5, 4*d.extent+50),
		camera.WithElevation(0.5),
		camera.WithZoomSpeed(2),
	)
	width, height := device.Size()
	cam := camera.NewCamera(
		camera.WithAspect(float32(width)/float32(max(height, 1))),
		camera.WithFar(cfg.Scene.OctreeSize),
		camera.WithController(orbit),
	)

	prof := profiler.NewProfiler(
		profiler.WithLogger(log),
		profiler.WithInterval(time.Duration(cfg.Profiler.Interval*float64(time.Second))),
		profiler.WithRendererStats(vr.Stats),
	)
	engineOptions := []engine.EngineBuilderOption{
		engine.WithLogger(log),
		engine.WithDevice(device),
		engine.WithRenderOptions(cfg.Renderer.DrawShadows, cfg.Renderer.UseOcclusion),
		engine.WithMaxFrames(opts.frames),
	}
	if cfg.Profiler.Enabled {
		engineOptions = append(engineOptions, engine.WithProfiler(prof))
	}
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
	}
	if opts.headless {
		engineOptions = append(engineOptions, engine.WithFixedTimeStep(1.0/60))
	}
	e := engine.NewEngine(d.scene, vr, cam, engineOptions...)

	ctl := newControls(e, orbit, cfg.Capture, log)
	if win != nil {
		ctl.bind(win)
	}
	e.SetTickCallback(func(dt float32) {
		d.tick(dt)
		cam.Update()
	})
	e.SetFrameCallback(func(vr renderer.ViewRenderer) {
		ctl.afterFrame(d.scene.Name(), vr)
		if win != nil && cfg.Profiler.Enabled && e.Frames()%60 == 0 {
			s := prof.Last()
			win.setTitle(fmt.Sprintf("%s - %.0f fps, %d draws, %d lights", cfg.Window.Title, s.FPS, s.Render.Draws, s.Render.Lights))
		}
	})

	if opts.configPath != "" {
		err := config.Watch(ctx, opts.configPath, log, func(c config.Config) {
			e.SetRenderOptions(c.Renderer.DrawShadows, c.Renderer.UseOcclusion)
			log.Info("render options reloaded", "shadows", c.Renderer.DrawShadows, "occlusion", c.Renderer.UseOcclusion)
		})
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	err := e.Run(ctx)
	log.Info("stopped", "frames", e.Frames())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
