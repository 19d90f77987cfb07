package shader

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var errNoEntryPoint = errors.New("no entry point found")

var (
	// structBlockRegex captures the name and body of a struct declaration.
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex captures a field name and its type after any attributes. The type capture is
	// greedy so array<T, N> stays whole.
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	// entryRegex captures the stage attribute and function name of every entry point.
	entryRegex = regexp.MustCompile(`@(vertex|fragment)\s+fn\s+(\w+)\s*\(`)

	// vertexParamsRegex captures the parameter list of the @vertex function, which ends at the
	// ")" before "->" or "{".
	vertexParamsRegex = regexp.MustCompile(`(?s)@vertex\s+fn\s+\w+\s*\((.*?)\)\s*(?:->|\{)`)

	// bindingRegex captures group, binding, address space, variable name and type of a
	// resource declaration such as: @group(0) @binding(0) var<uniform> globals: Globals;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// textureDimensions maps sampled texture types to their view dimension and multisampled flag.
var textureDimensions = map[string]struct {
	dimension    wgpu.TextureViewDimension
	multisampled bool
}{
	"texture_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":              {wgpu.TextureViewDimension3D, false},
	"texture_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

var textureSampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// parsedField is one member of a WGSL struct. location is -1 without @location.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// reflection is the layout metadata of one pre-processed shader stage.
type reflection struct {
	entryPoint    string
	bindGroups    map[int]wgpu.BindGroupLayoutDescriptor
	varNames      map[int]map[int]string
	vertexLayouts []wgpu.VertexBufferLayout
}

// reflectSource extracts the entry point, resource bindings and, for the vertex stage, the
// vertex buffer layouts from WGSL source. Bindings are visible to the reflected stage only;
// pipelines merge the visibility of both stages.
func reflectSource(source string, shaderType ShaderType) (reflection, error) {
	var r reflection
	cleaned := stripComments(source)
	structs, err := parseStructs(cleaned)
	if err != nil {
		return r, err
	}

	var stage string
	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeVertex:
		stage, visibility = "vertex", wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		stage, visibility = "fragment", wgpu.ShaderStageFragment
	default:
		return r, errNoEntryPoint
	}
	for _, m := range entryRegex.FindAllStringSubmatch(cleaned, -1) {
		if m[1] == stage {
			r.entryPoint = m[2]
			break
		}
	}
	if r.entryPoint == "" {
		return r, fmt.Errorf("%w for %s stage", errNoEntryPoint, stage)
	}

	r.bindGroups, r.varNames, err = reflectBindings(cleaned, visibility, newLayoutTable(structs))
	if err != nil {
		return r, err
	}
	if shaderType == ShaderTypeVertex {
		r.vertexLayouts = reflectVertexLayouts(cleaned, structs)
	}
	return r, nil
}

// reflectBindings groups every @group/@binding declaration into layout descriptors with
// entries sorted by binding. Buffer entries carry the minimum binding size of their type.
func reflectBindings(source string, visibility wgpu.ShaderStage, layouts *layoutTable) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, error) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)

	for _, m := range bindingRegex.FindAllStringSubmatch(source, -1) {
		group, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, nil, fmt.Errorf("binding %s: group %s: %w", m[4], m[1], err)
		}
		binding, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("binding %s: binding %s: %w", m[4], m[2], err)
		}
		typeName := strings.TrimSpace(m[5])

		entry := bindingEntry(uint32(binding), visibility, strings.TrimSpace(m[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := layouts.resolve(typeName); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		groups[group] = append(groups[group], entry)

		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][int(binding)] = strings.TrimSpace(m[4])
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return out, names, nil
}

// bindingEntry classifies a resource as a buffer (by address space), a sampler or a sampled
// texture (by type).
func bindingEntry(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		if d, ok := textureDimensions[base]; ok {
			entry.Texture.ViewDimension = d.dimension
			entry.Texture.Multisampled = d.multisampled
		}
		if st, ok := textureSampleTypes[param]; ok {
			entry.Texture.SampleType = st
		}
	}
	return entry
}

// reflectVertexLayouts builds one vertex buffer layout per input struct of the @vertex entry
// point. Input structs have @location fields and no @builtin. Per-vertex layouts come first,
// then per-instance ones (struct names containing "Instance"), so the index is the slot. When
// the signature cannot be read every input struct is used.
func reflectVertexLayouts(source string, structs []parsedStruct) []wgpu.VertexBufferLayout {
	var params map[string]bool
	if m := vertexParamsRegex.FindStringSubmatch(source); m != nil {
		params = make(map[string]bool)
		for _, p := range splitAtTopLevelCommas(m[1]) {
			if _, typeName, ok := strings.Cut(p, ":"); ok {
				params[strings.TrimSpace(typeName)] = true
			}
		}
	}

	var perVertex, perInstance []wgpu.VertexBufferLayout
	for _, ps := range structs {
		if !isVertexInput(ps) || (params != nil && !params[ps.name]) {
			continue
		}
		layout, ok := vertexBufferLayout(ps)
		if !ok {
			continue
		}
		if strings.Contains(ps.name, "Instance") {
			layout.StepMode = wgpu.VertexStepModeInstance
			perInstance = append(perInstance, layout)
		} else {
			perVertex = append(perVertex, layout)
		}
	}
	return append(perVertex, perInstance...)
}

func isVertexInput(ps parsedStruct) bool {
	located := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		located = located || f.location >= 0
	}
	return located
}

// vertexBufferLayout packs the struct's fields tightly in declaration order.
func vertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		format, size, ok := vertexFormat(f.typeName)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

func parseStructs(source string) ([]parsedStruct, error) {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	out := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		ps := parsedStruct{name: m[1]}
		for _, member := range splitAtTopLevelCommas(m[2]) {
			member = strings.TrimSpace(member)
			fm := fieldRegex.FindStringSubmatch(member)
			if fm == nil {
				continue
			}
			f := parsedField{
				name:      fm[1],
				typeName:  strings.TrimSpace(fm[2]),
				location:  -1,
				isBuiltin: builtinRegex.MatchString(member),
			}
			if lm := locationRegex.FindStringSubmatch(member); lm != nil {
				loc, err := strconv.Atoi(lm[1])
				if err != nil {
					return nil, fmt.Errorf("struct %s field %s: location %s: %w", ps.name, f.name, lm[1], err)
				}
				f.location = loc
			}
			ps.fields = append(ps.fields, f)
		}
		out = append(out, ps)
	}
	return out, nil
}

// stripComments removes line comments and nested block comments in one pass. Newlines ending
// line comments are kept.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); {
		rest := source[i:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			depth++
			i += 2
		case depth > 0 && strings.HasPrefix(rest, "*/"):
			depth--
			i += 2
		case depth == 0 && strings.HasPrefix(rest, "//"):
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(source)
			}
		default:
			if depth == 0 {
				sb.WriteByte(source[i])
			}
			i++
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits s at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
