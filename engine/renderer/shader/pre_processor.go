package shader

import (
	"fmt"
	"strings"

	"github.com/riwanou/wgpu-lua-fun/engine/camera"
	"github.com/riwanou/wgpu-lua-fun/engine/light"
	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/material"
)

// includable is WGSL source the pre-processor can inject. typeName is the struct it declares,
// empty for helper functions, which cannot back a binding.
type includable struct {
	source   string
	typeName string
}

// includables are the canonical GPU types of the engine packages, so shaders that include them
// agree with the byte layout the renderer uploads.
var includables = map[AnnotationArg]includable{
	AnnotationArgGlobals:        {camera.GPUGlobalsSource, "Globals"},
	annotationArgVertex:         {model.GPUVertexSource, "VertexInput"},
	annotationArgInstance:       {model.GPUInstanceSource, "InstanceInput"},
	AnnotationArgPointLight:     {light.GPUPointLightSource, "PointLight"},
	AnnotationArgPointLights:    {light.GPUPointLightsSource, "PointLights"},
	annotationArgAttenuation:    {light.AttenuationSource, ""},
	AnnotationArgSimpleMaterial: {material.GPUSimpleMaterialSource, "SimpleMaterial"},
}

// addressSpaces maps the address space argument of a group annotation to its var declaration.
var addressSpaces = map[AnnotationArg]string{
	annotationArgStorageTypeUniform: "var<uniform>",
	annotationArgStorageTypeRead:    "var<storage, read>",
}

// PreProcessor expands @engine: annotations in WGSL source. Includes inject a registered struct
// or helper once per source, group annotations become @group/@binding declarations, and
// provider annotations only record the role of a hand-written binding.
type PreProcessor interface {
	// Process expands every annotation of source and resets the declarations list.
	//
	// Parameters:
	//   - source: WGSL source that may contain @engine: annotation comments
	//
	// Returns:
	//   - string: plain WGSL source
	//   - error: an error naming the line of the first malformed annotation
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations of the last Process call, in
	// source order.
	//
	// Returns:
	//   - []Annotation: the declarations, nil before the first Process call
	Declarations() []Annotation
}

type preProcessor struct {
	declarations []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor for the engine's registered types.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	var out strings.Builder
	out.Grow(len(source))
	included := make(map[AnnotationArg]bool)

	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out.WriteString(line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			// a second include would redeclare the struct
			if !included[a.Args[0]] {
				included[a.Args[0]] = true
				out.WriteString(includables[a.Args[0]].source)
			}
		case AnnotationTypeBindingGroup:
			fmt.Fprintf(&out, "@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, addressSpaces[a.Args[0]], a.Args[1], bindingType(a.Args[2]))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return out.String(), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// bindingType resolves a group annotation type argument, e.g. array<point_light>, to WGSL.
func bindingType(arg AnnotationArg) string {
	if inner, ok := strings.CutPrefix(string(arg), "array<"); ok {
		return "array<" + includables[AnnotationArg(strings.TrimSuffix(inner, ">"))].typeName + ">"
	}
	return includables[arg].typeName
}
