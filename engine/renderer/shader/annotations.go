// annotations.go defines the annotation types, argument constants, and parser for the
// engine's WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @engine: that drive struct injection, bind group declaration, and binding role
// declaration. The canonical struct sources come from the Go GPU type packages, so a
// shader that uses them always agrees with the byte layout the renderer uploads.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an engine annotation within a WGSL comment line.
const annotationPrefix = "@engine:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct or helper
	// function at the annotation site. It is consumed entirely during pre-processing.
	//
	// Syntax: //@engine:include <struct_type>
	//
	// Example: //@engine:include vertex
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@engine:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@engine:group 0 0 storage_uniform globals globals
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records the role of a hand-written binding (textures and
	// samplers have no registered struct) without generating any WGSL output.
	//
	// Syntax: //@engine:provider <group> <binding> <provider_identity> [<binding_role>]
	//
	// Example: //@engine:provider 2 1 material diffuse_texture
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @engine: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "globals")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity, [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────

const (
	// AnnotationArgGlobals identifies the Globals struct (clip_view, view_world, elapsed).
	// Source: engine/camera/assets/globals.wgsl
	AnnotationArgGlobals AnnotationArg = "globals"

	// annotationArgVertex identifies the VertexInput struct (locations 0-2).
	// Source: engine/model/assets/vertex.wgsl
	annotationArgVertex AnnotationArg = "vertex"

	// annotationArgInstance identifies the InstanceInput struct (locations 3-9).
	// Source: engine/model/assets/instance.wgsl
	annotationArgInstance AnnotationArg = "instance"

	// AnnotationArgPointLight identifies the PointLight record struct.
	// Source: engine/light/assets/point_light.wgsl
	AnnotationArgPointLight AnnotationArg = "point_light"

	// AnnotationArgPointLights identifies the PointLights storage struct (len + runtime array).
	// Source: engine/light/assets/point_lights.wgsl
	AnnotationArgPointLights AnnotationArg = "point_lights"

	// annotationArgAttenuation identifies the attenuate(d, r) helper function. Include only.
	// Source: engine/light/assets/attenuation.wgsl
	annotationArgAttenuation AnnotationArg = "attenuation"

	// AnnotationArgSimpleMaterial identifies the SimpleMaterial uniform struct (color).
	// Source: engine/renderer/material/assets/simple_material.wgsl
	AnnotationArgSimpleMaterial AnnotationArg = "simple_material"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"
)

// ── Provider identity and binding role arguments ───────────────────────────────

const (
	// AnnotationArgMaterial identifies the material provider (group 2).
	AnnotationArgMaterial AnnotationArg = "material"

	// AnnotationArgDiffuseTexture identifies the diffuse texture binding of a material.
	AnnotationArgDiffuseTexture AnnotationArg = "diffuse_texture"

	// AnnotationArgDiffuseSampler identifies the sampler paired with the diffuse texture.
	AnnotationArgDiffuseSampler AnnotationArg = "diffuse_sampler"
)

var validProviderIdentities = []AnnotationArg{
	AnnotationArgMaterial,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgDiffuseTexture,
	AnnotationArgDiffuseSampler,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @engine: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @engine annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @engine include annotation requires exactly one argument", lineNum)
		}
		if _, ok := includables[AnnotationArg(args[1])]; !ok {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @engine include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @engine group annotation requires exactly five arguments (group, binding, address space, var name, struct type)", lineNum)
		}
		groupInt, bindingInt, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if _, ok := addressSpaces[AnnotationArg(args[3])]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q in @engine group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			typeArg = strings.TrimSuffix(inner, ">")
		}
		if includables[AnnotationArg(typeArg)].typeName == "" {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @engine group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @engine provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		groupInt, bindingInt, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @engine provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @engine provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @engine annotation type %q", lineNum, args[0])
	}
}

func parseGroupBinding(group, binding string, lineNum int) (int, int, error) {
	groupInt, err := strconv.Atoi(group)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %w", lineNum, group, err)
	}
	bindingInt, err := strconv.Atoi(binding)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %w", lineNum, binding, err)
	}
	return groupInt, bindingInt, nil
}
