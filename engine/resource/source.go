package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
)

// MeshSource produces the vertex and index data of a mesh by id.
type MeshSource interface {
	// LoadMesh returns the staging data for a mesh.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - common.MeshStagingData: the packed vertex and index bytes
	//   - error: an error wrapping ErrResourceNotFound if the source has no such mesh
	LoadMesh(id string) (common.MeshStagingData, error)
}

// TextureSource produces decoded RGBA8 pixels of a texture by id.
type TextureSource interface {
	// LoadTexture returns the staging data for a texture.
	//
	// Parameters:
	//   - id: the texture id
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels and dimensions
	//   - error: an error wrapping ErrResourceNotFound if the source has no such texture
	LoadTexture(id string) (common.TextureStagingData, error)
}

// MeshSourceFunc adapts a function to MeshSource.
type MeshSourceFunc func(id string) (common.MeshStagingData, error)

func (f MeshSourceFunc) LoadMesh(id string) (common.MeshStagingData, error) {
	return f(id)
}

// TextureSourceFunc adapts a function to TextureSource.
type TextureSourceFunc func(id string) (common.TextureStagingData, error)

func (f TextureSourceFunc) LoadTexture(id string) (common.TextureStagingData, error) {
	return f(id)
}

// builtinMeshes maps the procedural mesh ids to their generators.
var builtinMeshes = map[string]func() model.Mesh{
	"cube": model.Cube,
	"quad": model.Quad,
}

// BuiltinMeshes is a MeshSource serving the procedural "cube" and "quad" meshes.
//
// Returns:
//   - MeshSource: the procedural mesh source
func BuiltinMeshes() MeshSource {
	return MeshSourceFunc(func(id string) (common.MeshStagingData, error) {
		gen, ok := builtinMeshes[id]
		if !ok {
			return common.MeshStagingData{}, fmt.Errorf("mesh %q: %w", id, ErrResourceNotFound)
		}
		return gen().StagingData(), nil
	})
}

const (
	checkerSize  = 64
	checkerCells = 8
)

// ProceduralTextures is a TextureSource serving the "checker" texture: a 64x64 grid of 8x8
// light and dark grey cells.
//
// Returns:
//   - TextureSource: the procedural texture source
func ProceduralTextures() TextureSource {
	return TextureSourceFunc(func(id string) (common.TextureStagingData, error) {
		if id != "checker" {
			return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", id, ErrResourceNotFound)
		}
		return checker(checkerSize, checkerCells), nil
	})
}

func checker(size, cells int) common.TextureStagingData {
	pixels := make([]byte, size*size*4)
	cell := size / cells
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(0x40)
			if (x/cell+y/cell)%2 == 0 {
				v = 0xd0
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 0xff
		}
	}
	return common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(size),
		Height: uint32(size),
	}
}

// textureExtensions are tried in order when a texture id has no extension.
var textureExtensions = []string{".png", ".jpg", ".jpeg"}

// FileTextures is a TextureSource decoding PNG and JPEG files below root. An id without an
// extension is looked up as id.png, id.jpg then id.jpeg.
//
// Parameters:
//   - root: the directory texture ids are resolved against
//
// Returns:
//   - TextureSource: the file texture source
func FileTextures(root string) TextureSource {
	return FSTextures(os.DirFS(root))
}

// FSTextures is FileTextures over an arbitrary file system.
//
// Parameters:
//   - fsys: the file system texture ids are resolved against
//
// Returns:
//   - TextureSource: the file system texture source
func FSTextures(fsys fs.FS) TextureSource {
	return TextureSourceFunc(func(id string) (common.TextureStagingData, error) {
		candidates := []string{id}
		if filepath.Ext(id) == "" {
			candidates = candidates[:0]
			for _, ext := range textureExtensions {
				candidates = append(candidates, id+ext)
			}
		}

		for _, name := range candidates {
			f, err := fsys.Open(filepath.ToSlash(name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", id, err)
			}
			data, err := common.DecodeTexture(f)
			f.Close()
			if err != nil {
				return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", id, err)
			}
			return data, nil
		}
		return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", id, ErrResourceNotFound)
	})
}

// ChainTextures tries each source in order and returns the first texture found. Errors other
// than ErrResourceNotFound stop the search.
//
// Parameters:
//   - sources: the texture sources to consult
//
// Returns:
//   - TextureSource: the combined source
func ChainTextures(sources ...TextureSource) TextureSource {
	return TextureSourceFunc(func(id string) (common.TextureStagingData, error) {
		for _, s := range sources {
			data, err := s.LoadTexture(id)
			if errors.Is(err, ErrResourceNotFound) {
				continue
			}
			return data, err
		}
		return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", id, ErrResourceNotFound)
	})
}

// ChainMeshes tries each source in order and returns the first mesh found. Errors other than
// ErrResourceNotFound stop the search.
//
// Parameters:
//   - sources: the mesh sources to consult
//
// Returns:
//   - MeshSource: the combined source
func ChainMeshes(sources ...MeshSource) MeshSource {
	return MeshSourceFunc(func(id string) (common.MeshStagingData, error) {
		for _, s := range sources {
			data, err := s.LoadMesh(id)
			if errors.Is(err, ErrResourceNotFound) {
				continue
			}
			return data, err
		}
		return common.MeshStagingData{}, fmt.Errorf("mesh %q: %w", id, ErrResourceNotFound)
	})
}
