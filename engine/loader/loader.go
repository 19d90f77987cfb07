package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/resource"
)

// defaultExtensions are tried in order when a mesh id has no extension.
var defaultExtensions = []string{".glb", ".gltf"}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	fsys       fs.FS
	extensions []string

	meshCache map[string]model.Mesh
}

// Loader imports glTF 2.0 meshes from a file system and caches them by id.
// It is a resource.MeshSource, so it can be handed to the registry directly or chained
// behind the built-in meshes.
type Loader interface {
	resource.MeshSource

	// Load imports the mesh with the given id and caches the result. An id without an
	// extension is looked up as id.glb then id.gltf. Every triangle primitive of every mesh
	// in the file is merged into one indexed mesh; missing normals are generated from the
	// triangle geometry and missing texture coordinates are zero.
	//
	// Parameters:
	//   - id: the mesh id, a path relative to the loader's root
	//
	// Returns:
	//   - model.Mesh: the imported mesh
	//   - error: an error wrapping resource.ErrResourceNotFound when no file matches, or the parse error
	Load(id string) (model.Mesh, error)

	// Get retrieves a cached mesh by id.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - model.Mesh: the cached mesh
	//   - bool: false if the id was never loaded
	Get(id string) (model.Mesh, bool)
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading files below root.
//
// Parameters:
//   - root: the directory mesh ids are resolved against
//   - options: variadic list of LoaderBuilderOption functions to configure the loader
//
// Returns:
//   - Loader: the new loader
func NewLoader(root string, options ...LoaderBuilderOption) Loader {
	l := &loader{
		fsys:       os.DirFS(root),
		extensions: defaultExtensions,
		meshCache:  make(map[string]model.Mesh),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) LoadMesh(id string) (common.MeshStagingData, error) {
	m, err := l.Load(id)
	if err != nil {
		return common.MeshStagingData{}, err
	}
	return m.StagingData(), nil
}

func (l *loader) Get(id string) (model.Mesh, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.meshCache[id]
	return m, ok
}

func (l *loader) Load(id string) (model.Mesh, error) {
	if m, ok := l.Get(id); ok {
		return m, nil
	}

	name, err := l.resolve(id)
	if err != nil {
		return model.Mesh{}, err
	}

	p := newGLTFParser(l.fsys)
	if err := p.parse(name); err != nil {
		return model.Mesh{}, fmt.Errorf("mesh %q: %w", id, err)
	}
	m, err := extractMesh(p)
	if err != nil {
		return model.Mesh{}, fmt.Errorf("mesh %q: %w", id, err)
	}

	l.mu.Lock()
	l.meshCache[id] = m
	l.mu.Unlock()
	return m, nil
}

// resolve finds the file backing id.
func (l *loader) resolve(id string) (string, error) {
	candidates := []string{id}
	if path.Ext(id) == "" {
		candidates = candidates[:0]
		for _, ext := range l.extensions {
			candidates = append(candidates, id+ext)
		}
	}
	for _, name := range candidates {
		_, err := fs.Stat(l.fsys, name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("mesh %q: %w", id, err)
		}
	}
	return "", fmt.Errorf("mesh %q: %w", id, resource.ErrResourceNotFound)
}

// extractMesh merges all triangle primitives of the document into one mesh.
func extractMesh(p *gltfParser) (model.Mesh, error) {
	var out model.Mesh
	for mi, mesh := range p.document.Meshes {
		for pi := range mesh.Primitives {
			vertices, indices, err := extractPrimitive(p, &mesh.Primitives[pi])
			if err != nil {
				return model.Mesh{}, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			base := uint32(len(out.Vertices))
			out.Vertices = append(out.Vertices, vertices...)
			for _, idx := range indices {
				out.Indices = append(out.Indices, base+idx)
			}
		}
	}
	if len(out.Indices) == 0 {
		return model.Mesh{}, errors.New("no triangle geometry")
	}
	return out, nil
}

func extractPrimitive(p *gltfParser, prim *gltfPrimitive) ([]model.GPUVertex, []uint32, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := p.readVec3(posAccessor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read positions: %w", err)
	}

	vertices := make([]model.GPUVertex, len(positions))
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	hasNormals := false
	if acc, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readVec3(acc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := 0; i < len(normals) && i < len(vertices); i++ {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}

	if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readVec2(acc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		for i := 0; i < len(uvs) && i < len(vertices); i++ {
			vertices[i].TexCoord = uvs[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readIndices(*prim.Indices); err != nil {
			return nil, nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, nil, fmt.Errorf("index %d out of range for %d vertices", idx, len(vertices))
		}
	}

	if !hasNormals {
		generateNormals(vertices, indices)
	}
	return vertices, indices, nil
}

// generateNormals writes smooth vertex normals: area-weighted face normals are accumulated per
// vertex and normalized. Vertices touched by no triangle, or only by degenerate ones, get +Y.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := mgl32.Vec3(vertices[i0].Position)
		p1 := mgl32.Vec3(vertices[i1].Position)
		p2 := mgl32.Vec3(vertices[i2].Position)
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}
