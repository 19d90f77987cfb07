package model

import "github.com/riwanou/wgpu-lua-fun/common"

// Mesh is an indexed triangle list in the engine vertex format.
type Mesh struct {
	Vertices []GPUVertex
	Indices  []uint32
}

// StagingData packs the mesh into upload-ready vertex and index bytes.
//
// Returns:
//   - common.MeshStagingData: the packed vertex and index buffers
func (m Mesh) StagingData() common.MeshStagingData {
	return common.MeshStagingData{
		Vertices:   MarshalVertices(m.Vertices),
		Indices:    MarshalIndices(m.Indices),
		IndexCount: len(m.Indices),
	}
}

// Quad returns a unit quad in the XY plane facing +Z, centered on the origin.
//
// Returns:
//   - Mesh: four vertices and two counter-clockwise triangles
func Quad() Mesh {
	n := [3]float32{0, 0, 1}
	return Mesh{
		Vertices: []GPUVertex{
			{Position: [3]float32{-0.5, -0.5, 0}, TexCoord: [2]float32{0, 1}, Normal: n},
			{Position: [3]float32{0.5, -0.5, 0}, TexCoord: [2]float32{1, 1}, Normal: n},
			{Position: [3]float32{0.5, 0.5, 0}, TexCoord: [2]float32{1, 0}, Normal: n},
			{Position: [3]float32{-0.5, 0.5, 0}, TexCoord: [2]float32{0, 0}, Normal: n},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// cubeFaces lists each face as its outward normal followed by the face's right and up axes.
var cubeFaces = [6][3][3]float32{
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
}

// Cube returns a unit cube centered on the origin with per-face normals and UVs.
//
// Returns:
//   - Mesh: 24 vertices and 12 counter-clockwise triangles
func Cube() Mesh {
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	m := Mesh{
		Vertices: make([]GPUVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for _, face := range cubeFaces {
		normal, right, up := face[0], face[1], face[2]
		base := uint32(len(m.Vertices))
		for i, c := range corners {
			var pos [3]float32
			for k := 0; k < 3; k++ {
				pos[k] = 0.5 * (normal[k] + c[0]*right[k] + c[1]*up[k])
			}
			m.Vertices = append(m.Vertices, GPUVertex{Position: pos, TexCoord: uvs[i], Normal: normal})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
