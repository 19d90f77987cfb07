package loader

import (
	"io/fs"

	"github.com/riwanou/wgpu-lua-fun/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS reads mesh files from fsys instead of the root directory passed to NewLoader.
//
// Parameters:
//   - fsys: the file system mesh ids are resolved against
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.fsys = fsys
	}
}

// WithExtensions sets the extensions tried, in order, for a mesh id without one.
//
// Parameters:
//   - exts: the extensions including the leading dot
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithExtensions(exts ...string) LoaderBuilderOption {
	return func(l *loader) {
		l.extensions = exts
	}
}

// WithMesh pre-populates the mesh cache, e.g. with a procedurally built mesh.
//
// Parameters:
//   - id: the cache key for the mesh
//   - mesh: the mesh to cache
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithMesh(id string, mesh model.Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.meshCache[id] = mesh
	}
}
