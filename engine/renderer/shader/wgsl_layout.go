package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the size and alignment of a host-shareable WGSL type.
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type typeLayout struct {
	size  uint64
	align uint64
}

// scalarSizes holds the byte size of each numeric scalar type.
var scalarSizes = map[string]uint64{
	"f32": 4,
	"i32": 4,
	"u32": 4,
	"f16": 2,
}

// shorthandScalars maps the suffix of predeclared aliases such as vec3f or mat4x4h to their
// component type.
var shorthandScalars = map[byte]string{
	'f': "f32",
	'i': "i32",
	'u': "u32",
	'h': "f16",
}

// roundUp rounds v up to the next multiple of align. Align must be a power of two.
func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). A type without
// parameters is returned unchanged with empty params.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// numericShape decomposes a scalar, vector or matrix type into its component scalar, column
// count and row count. Scalars are 1x1 and vectors have one column.
func numericShape(typeName string) (scalar string, cols, rows int, ok bool) {
	if _, isScalar := scalarSizes[typeName]; isScalar {
		return typeName, 1, 1, true
	}

	base, param := splitTypeParams(typeName)
	scalar = param
	if param == "" {
		if len(base) < 2 {
			return "", 0, 0, false
		}
		scalar, ok = shorthandScalars[base[len(base)-1]]
		if !ok {
			return "", 0, 0, false
		}
		base = base[:len(base)-1]
	}
	if _, known := scalarSizes[scalar]; !known {
		return "", 0, 0, false
	}

	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		rows = int(base[3] - '0')
		cols = 1
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols = int(base[3] - '0')
		rows = int(base[5] - '0')
	default:
		return "", 0, 0, false
	}
	if cols < 1 || cols > 4 || rows < 1 || rows > 4 {
		return "", 0, 0, false
	}
	return scalar, cols, rows, true
}

// numericLayout returns the layout of a scalar, vector or matrix type. A vec3 is aligned like
// a vec4, and a matrix is an array of column vectors.
func numericLayout(typeName string) (typeLayout, bool) {
	scalar, cols, rows, ok := numericShape(typeName)
	if !ok {
		return typeLayout{}, false
	}
	s := scalarSizes[scalar]
	column := typeLayout{size: s * uint64(rows), align: s * uint64(rows)}
	if rows == 3 {
		column.align = s * 4
	}
	if cols == 1 {
		return column, true
	}
	return typeLayout{size: uint64(cols) * roundUp(column.align, column.size), align: column.align}, true
}

// vertexFormats maps a component scalar to the vertex formats for 1 to 4 components.
var vertexFormats = map[string][4]wgpu.VertexFormat{
	"f32": {wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4},
	"i32": {wgpu.VertexFormatSint32, wgpu.VertexFormatSint32x2, wgpu.VertexFormatSint32x3, wgpu.VertexFormatSint32x4},
	"u32": {wgpu.VertexFormatUint32, wgpu.VertexFormatUint32x2, wgpu.VertexFormatUint32x3, wgpu.VertexFormatUint32x4},
}

// vertexFormat maps a vertex attribute type to its wgpu format and tightly packed byte size.
func vertexFormat(typeName string) (wgpu.VertexFormat, uint64, bool) {
	scalar, cols, rows, ok := numericShape(typeName)
	if !ok || cols != 1 {
		return 0, 0, false
	}
	formats, ok := vertexFormats[scalar]
	if !ok {
		return 0, 0, false
	}
	return formats[rows-1], scalarSizes[scalar] * uint64(rows), true
}

// layoutTable resolves type layouts against the structs declared in one shader, computing
// each struct on first use.
type layoutTable struct {
	structs  map[string]parsedStruct
	resolved map[string]typeLayout
	visiting map[string]bool
}

func newLayoutTable(structs []parsedStruct) *layoutTable {
	t := &layoutTable{
		structs:  make(map[string]parsedStruct, len(structs)),
		resolved: make(map[string]typeLayout, len(structs)),
		visiting: make(map[string]bool),
	}
	for _, ps := range structs {
		t.structs[ps.name] = ps
	}
	return t
}

// resolve returns the layout of typeName. A runtime-sized array counts as one element, which
// is the minimum binding size WebGPU validates against. Unknown or recursive types fail.
func (t *layoutTable) resolve(typeName string) (typeLayout, bool) {
	typeName = strings.TrimSpace(typeName)
	if l, ok := numericLayout(typeName); ok {
		return l, true
	}
	if l, ok := t.resolved[typeName]; ok {
		return l, true
	}

	if base, params := splitTypeParams(typeName); base == "array" && params != "" {
		parts := splitAtTopLevelCommas(params)
		elem, ok := t.resolve(parts[0])
		if !ok {
			return typeLayout{}, false
		}
		count := uint64(1)
		if len(parts) == 2 {
			n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
			if err != nil {
				return typeLayout{}, false
			}
			count = n
		}
		return typeLayout{size: count * roundUp(elem.align, elem.size), align: elem.align}, true
	}

	ps, ok := t.structs[typeName]
	if !ok || t.visiting[typeName] {
		return typeLayout{}, false
	}
	t.visiting[typeName] = true
	defer delete(t.visiting, typeName)

	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := t.resolve(f.typeName)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	l := typeLayout{size: roundUp(maxAlign, offset), align: maxAlign}
	t.resolved[typeName] = l
	return l, true
}
