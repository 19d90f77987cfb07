package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

// DefaultShader is the pipeline key BatchModel uses when no shader id is given.
const DefaultShader = "unlit"

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name          string
	cam           camera.Camera
	lights        light.Aggregator
	defaultShader string

	// material is the current material context applied to BatchModel calls, empty for none.
	material string

	// batches keep first-seen key order; index maps a key to its position in batches.
	batches []renderer.DrawBatch
	index   map[renderer.BatchKey]int
}

// Scene accumulates what entities ask to draw during one frame: instances grouped by
// (mesh, shader, material) and the point lights registered this frame.
//
// Batches are reported in the order their key was first seen, and instances keep their
// insertion order inside a batch. Reset clears both at the start of each frame.
type Scene interface {
	// Name returns the name of the scene.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// Camera returns the camera the frame is rendered from.
	//
	// Returns:
	//   - camera.Camera: the scene camera
	Camera() camera.Camera

	// SetCamera replaces the scene camera.
	//
	// Parameters:
	//   - cam: the new camera, ignored when nil
	SetCamera(cam camera.Camera)

	// DefaultShader returns the pipeline key used by BatchModel when the shader id is empty.
	//
	// Returns:
	//   - string: the default pipeline key
	DefaultShader() string

	// UseMaterial sets the material context: subsequent BatchModel calls use key as their
	// material id until ClearMaterial or the next Reset.
	//
	// Parameters:
	//   - key: the material key
	UseMaterial(key string)

	// ClearMaterial clears the material context so BatchModel falls back to the shader id.
	ClearMaterial()

	// Material returns the current material context, or an empty string when none is set.
	//
	// Returns:
	//   - string: the material key
	Material() string

	// BatchModel appends one instance of a mesh, snapshotting the transform's matrices now.
	// The batch key is (meshID, shaderID or the default shader, material context or the shader id).
	//
	// Parameters:
	//   - meshID: the mesh id
	//   - shaderID: the pipeline key, empty for the default shader
	//   - t: the instance transform, nil for identity
	BatchModel(meshID, shaderID string, t *transform.Transform)

	// PointLight registers a point light for the current frame.
	//
	// Parameters:
	//   - pos: the world position of the light
	//   - radius: the distance at which the light's contribution reaches zero
	PointLight(pos mgl32.Vec3, radius float32)

	// Lights returns the point lights registered this frame.
	//
	// Returns:
	//   - []light.PointLight: the lights in registration order
	Lights() []light.PointLight

	// Batches returns the batches of the current frame in first-seen key order.
	//
	// Returns:
	//   - []renderer.DrawBatch: the non-empty batches
	Batches() []renderer.DrawBatch

	// InstanceCount returns the number of instances batched this frame.
	//
	// Returns:
	//   - int: the instance count across all batches
	InstanceCount() int

	// Frame assembles the renderer input of the current frame.
	//
	// Parameters:
	//   - globals: the globals uniform written by the frame driver
	//
	// Returns:
	//   - renderer.Frame: the globals, lights and batches of the frame
	Frame(globals camera.GPUGlobals) renderer.Frame

	// Reset clears the batches, the lights and the material context for a new frame.
	Reset()
}

var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:            &sync.RWMutex{},
		name:          name,
		defaultShader: DefaultShader,
		index:         make(map[renderer.BatchKey]int),
	}

	for _, option := range options {
		option(s)
	}

	if s.cam == nil {
		s.cam = camera.NewCamera()
	}
	if s.lights == nil {
		s.lights = light.NewAggregator()
	}

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) DefaultShader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultShader
}

func (s *scene) UseMaterial(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.material = key
}

func (s *scene) ClearMaterial() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.material = ""
}

func (s *scene) Material() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.material
}

func (s *scene) BatchModel(meshID, shaderID string, t *transform.Transform) {
	var inst model.GPUInstance
	if t != nil {
		inst = model.InstanceFromTransform(t)
	} else {
		inst = model.InstanceFromTransform(transform.New(mgl32.Vec3{}))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if shaderID == "" {
		shaderID = s.defaultShader
	}
	materialID := s.material
	if materialID == "" {
		materialID = shaderID
	}
	key := renderer.BatchKey{Mesh: meshID, Shader: shaderID, Material: materialID}

	i, ok := s.index[key]
	if !ok {
		i = len(s.batches)
		s.index[key] = i
		s.batches = append(s.batches, renderer.DrawBatch{Key: key})
	}
	s.batches[i].Instances = append(s.batches[i].Instances, inst)
}

func (s *scene) PointLight(pos mgl32.Vec3, radius float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights.PointLight([3]float32(pos), radius)
}

func (s *scene) Lights() []light.PointLight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lights.Lights()
}

func (s *scene) Batches() []renderer.DrawBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

func (s *scene) InstanceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.batches {
		n += len(b.Instances)
	}
	return n
}

func (s *scene) Frame(globals camera.GPUGlobals) renderer.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return renderer.Frame{
		Globals: globals,
		Lights:  s.lights.Lights(),
		Batches: s.batches,
	}
}

func (s *scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a fresh slice each frame; the previous one may still be read by the renderer's workers
	s.batches = make([]renderer.DrawBatch, 0, len(s.batches))
	clear(s.index)
	s.lights.Reset()
	s.material = ""
}
