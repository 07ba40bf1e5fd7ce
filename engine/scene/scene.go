package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/drawable"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/octree"
	"github.com/Carmen-Shannon/oxy-render/engine/work_queue"
)

// objectsPerTick is the number of objects advanced by one worker pool task.
const objectsPerTick = 64

// Scene owns the octree and a registry of game objects. Objects are ticked in parallel
// on a worker pool; their moved drawables are reinserted into the octree by Update.
// Thread-safe for concurrent access, except that Update must not overlap view preparation.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Octree returns the scene's spatial index.
	//
	// Returns:
	//   - octree.Octree: the octree holding every drawable of the scene
	Octree() octree.Octree

	// FrameNumber returns the number of the last Update. Never zero after the first Update.
	//
	// Returns:
	//   - uint32: the frame number
	FrameNumber() uint32

	// Add registers a GameObject and queues its drawables for octree insertion. Objects
	// without an ID are assigned one.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove unregisters a GameObject and removes its drawables from the octree.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Count returns the number of registered objects.
	//
	// Returns:
	//   - int: object count
	Count() int

	// Clear removes every object.
	Clear()

	// Lights returns the lights attached to registered objects.
	//
	// Returns:
	//   - []light.Light: a copy of the light list
	Lights() []light.Light

	// AmbientColor returns the scene's ambient light color.
	//
	// Returns:
	//   - [3]float32: the ambient RGB color
	AmbientColor() [3]float32

	// SetAmbientColor sets the scene's ambient light color.
	//
	// Parameters:
	//   - color: the ambient RGB color
	SetAmbientColor(color [3]float32)

	// Resize rebuilds the octree with new bounds. Drawables reappear after the next Update.
	//
	// Parameters:
	//   - box: the new world bounds
	//   - levels: subdivision levels
	Resize(box common.Box, levels int)

	// Update advances the frame number, ticks every enabled non-static object by dt on the
	// worker pool, then updates the octree so moved drawables are reinserted.
	//
	// Parameters:
	//   - dt: elapsed time since the last frame in seconds
	Update(dt float32)

	// Close stops the worker pool.
	Close()
}

// advancer is implemented by drawables with their own animation state.
type advancer interface {
	Advance(dt float32) bool
}

type scene struct {
	mu  *sync.RWMutex
	log *logger.Logger

	name         string
	registry     map[uint64]game_object.GameObject
	order        []game_object.GameObject
	lights       []light.Light
	nextID       uint64
	ambientColor [3]float32

	octree      octree.Octree
	octreeOpts  []octree.OctreeBuilderOption
	frameNumber uint32

	tickPool       worker.DynamicWorkerPool
	computeWorkers int
	tickBatch      []game_object.GameObject

	initial []game_object.GameObject
}

var _ Scene = &scene{}

// NewScene creates an empty scene whose octree updates run on workQueue.
//
// Parameters:
//   - name: the name of the scene
//   - workQueue: the task scheduler used by the octree (must not be nil)
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, workQueue work_queue.WorkQueue, options ...SceneBuilderOption) Scene {
	if workQueue == nil {
		panic("scene: NewScene requires a non-nil WorkQueue")
	}
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		registry:       make(map[uint64]game_object.GameObject),
		nextID:         1,
		ambientColor:   [3]float32{0.1, 0.1, 0.1},
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	s.octree = octree.NewOctree(workQueue, append(s.octreeOpts, octree.WithLogger(s.log))...)
	// Queue size of 256 accommodates the tick tasks of a few thousand moving objects.
	s.tickPool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)

	for _, obj := range s.initial {
		s.Add(obj)
	}
	s.initial = nil
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Octree() octree.Octree {
	return s.octree
}

func (s *scene) FrameNumber() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameNumber
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
	} else if obj.ID() >= s.nextID {
		s.nextID = obj.ID() + 1
	}
	if _, exists := s.registry[obj.ID()]; exists {
		return obj.ID()
	}
	s.registry[obj.ID()] = obj
	s.order = append(s.order, obj)

	for _, d := range obj.Drawables() {
		if l, ok := d.(light.Light); ok {
			s.lights = append(s.lights, l)
		}
		s.octree.AddDrawable(d)
	}
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.registry[id]
	if !ok {
		return
	}
	delete(s.registry, id)
	for i, o := range s.order {
		if o == obj {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.detach(obj)
}

// detach removes obj's drawables from the octree and light list. Caller must hold the mutex.
func (s *scene) detach(obj game_object.GameObject) {
	for _, d := range obj.Drawables() {
		s.octree.RemoveDrawable(d)
		if l, ok := d.(light.Light); ok {
			for i, sl := range s.lights {
				if sl == l {
					s.lights = append(s.lights[:i], s.lights[i+1:]...)
					break
				}
			}
		}
	}
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.order {
		s.detach(obj)
	}
	clear(s.registry)
	clear(s.order)
	s.order = s.order[:0]
	s.lights = s.lights[:0]
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) Resize(box common.Box, levels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.octree.Resize(box, levels)
	s.log.Info("scene octree resized", "scene", s.name, "levels", levels)
}

func (s *scene) Update(dt float32) {
	s.mu.Lock()
	s.frameNumber++
	if s.frameNumber == 0 {
		s.frameNumber = 1
	}
	frameNumber := s.frameNumber

	batch := s.tickBatch[:0]
	for _, obj := range s.order {
		if obj.Enabled() && !obj.Static() {
			batch = append(batch, obj)
		}
	}
	s.tickBatch = batch
	s.mu.Unlock()

	s.tick(batch, dt)

	s.octree.Update(frameNumber)
	s.octree.FinishUpdate()
}

// tick advances objects on the worker pool. Workers are reused across frames; a
// WaitGroup provides the per-frame barrier since pool.Wait() waits for idle workers.
func (s *scene) tick(objects []game_object.GameObject, dt float32) {
	if len(objects) == 0 {
		return
	}
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(objects); start += objectsPerTick {
		part := objects[start:min(start+objectsPerTick, len(objects))]
		wg.Add(1)
		s.tickPool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for _, obj := range part {
					tickObject(obj, dt)
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}

func tickObject(obj game_object.GameObject, dt float32) {
	obj.Update(dt)
	for _, d := range obj.Drawables() {
		if a, ok := d.(advancer); ok && d.Flags().Has(drawable.FlagSkinned) {
			a.Advance(dt)
		}
	}
}

func (s *scene) Close() {
	s.tickPool.Stop()
}
