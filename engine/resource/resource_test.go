package resource

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/riwanou/wgpu-lua-fun/engine/model"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/material"
	"github.com/riwanou/wgpu-lua-fun/engine/renderer/pipeline"
)

func newTestRegistry(t *testing.T, options ...RegistryBuilderOption) (Registry, renderer.HeadlessBackend) {
	reg, _, backend := newTestRegistryRenderer(t, options...)
	return reg, backend
}

func newTestRegistryRenderer(t *testing.T, options ...RegistryBuilderOption) (Registry, renderer.Renderer, renderer.HeadlessBackend) {
	t.Helper()
	backend := renderer.NewHeadlessBackend()
	r := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithBackend(backend),
		renderer.WithPipelines(
			pipeline.NewBuiltinPipeline("unlit", pipeline.VariantUnlit),
			pipeline.NewBuiltinPipeline("animated", pipeline.VariantAnimated),
			pipeline.NewBuiltinPipeline("textured", pipeline.VariantTexturedLit),
		),
	)
	reg := NewRegistry(r, options...)
	t.Cleanup(func() {
		reg.Release()
		r.Release()
	})
	return reg, r, backend
}

func TestLoadMeshIsIdempotent(t *testing.T) {
	reg, backend := newTestRegistry(t)

	first, err := reg.LoadMesh("cube")
	if err != nil {
		t.Fatalf("LoadMesh() error = %v", err)
	}
	second, err := reg.LoadMesh("cube")
	if err != nil {
		t.Fatalf("second LoadMesh() error = %v", err)
	}
	if first != second {
		t.Errorf("LoadMesh() returned different providers for the same id")
	}
	if n := backend.Uploads("cube"); n != 1 {
		t.Errorf("Uploads(cube) = %d, want 1", n)
	}
	if first.IndexCount() != 36 {
		t.Errorf("IndexCount() = %d, want 36", first.IndexCount())
	}
}

func TestLookupsBeforeLoad(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.Mesh("cube"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Mesh() before load error = %v, want ErrResourceNotFound", err)
	}
	if _, err := reg.Texture("checker"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Texture() before load error = %v, want ErrResourceNotFound", err)
	}
	if _, err := reg.Material("unlit"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Material() before add error = %v, want ErrResourceNotFound", err)
	}
	if _, err := reg.LoadMesh("dragon"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("LoadMesh(dragon) error = %v, want ErrResourceNotFound", err)
	}
}

func TestAddMaterialDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t)

	m, err := reg.AddMaterial("animated", MaterialParams{})
	if err != nil {
		t.Fatalf("AddMaterial() error = %v", err)
	}
	if m.Key() != "animated" || m.ShaderKey() != "animated" || m.TextureKey() != "" {
		t.Errorf("material = (%q, %q, %q), want (animated, animated, \"\")", m.Key(), m.ShaderKey(), m.TextureKey())
	}
	if got := m.Uniform().Size(); got != 16 {
		t.Errorf("default uniform size = %d, want 16", got)
	}

	again, err := reg.AddMaterial("animated", MaterialParams{Uniform: material.NewSimpleMaterial([3]float32{0, 0, 1})})
	if err != nil {
		t.Fatalf("second AddMaterial() error = %v", err)
	}
	if again != m || again.Revision() != 0 {
		t.Errorf("second AddMaterial() replaced the cached material")
	}
}

func TestAddMaterialOverrides(t *testing.T) {
	reg, backend := newTestRegistry(t)

	m, err := reg.AddMaterial("animated", MaterialParams{Key: "brick", Shader: "textured", Texture: "checker"})
	if err != nil {
		t.Fatalf("AddMaterial() error = %v", err)
	}
	if m.Key() != "brick" || m.ShaderKey() != "textured" || m.TextureKey() != "checker" {
		t.Errorf("material = (%q, %q, %q), want (brick, textured, checker)", m.Key(), m.ShaderKey(), m.TextureKey())
	}
	if n := backend.Uploads("checker"); n != 1 {
		t.Errorf("Uploads(checker) = %d, want 1", n)
	}
	if _, err := reg.Texture("checker"); err != nil {
		t.Errorf("Texture(checker) after AddMaterial error = %v", err)
	}
}

func TestAddMaterialErrors(t *testing.T) {
	tests := []struct {
		name    string
		shader  string
		params  MaterialParams
		wantErr error
	}{
		{"unknown pipeline", "toon", MaterialParams{}, ErrResourceNotFound},
		{"textured without texture", "textured", MaterialParams{}, pipeline.ErrBindingLayoutMismatch},
		{"texture on untextured variant", "animated", MaterialParams{Texture: "checker"}, pipeline.ErrBindingLayoutMismatch},
		{"uniform size", "animated", MaterialParams{Uniform: material.RawUniform(make([]byte, 32))}, pipeline.ErrBindingLayoutMismatch},
		{"unknown texture", "textured", MaterialParams{Texture: "marble"}, ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t)
			if _, err := reg.AddMaterial(tt.shader, tt.params); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddMaterial(%q) error = %v, want %v", tt.shader, err, tt.wantErr)
			}
			if _, err := reg.Material(tt.shader); !errors.Is(err, ErrResourceNotFound) {
				t.Errorf("failed material %q was cached", tt.shader)
			}
		})
	}
}

func TestSetMaterialData(t *testing.T) {
	reg, _ := newTestRegistry(t)
	m, err := reg.AddMaterial("animated", MaterialParams{})
	if err != nil {
		t.Fatalf("AddMaterial() error = %v", err)
	}

	next := material.NewSimpleMaterial([3]float32{0, 1, 0})
	if err := reg.SetMaterialData("animated", next); err != nil {
		t.Fatalf("SetMaterialData() error = %v", err)
	}
	if m.Uniform() != next || m.Revision() != 1 {
		t.Errorf("after SetMaterialData: uniform replaced = %v, revision = %d, want true, 1", m.Uniform() == next, m.Revision())
	}

	if err := reg.SetMaterialData("animated", material.RawUniform(make([]byte, 4))); !errors.Is(err, pipeline.ErrBindingLayoutMismatch) {
		t.Errorf("SetMaterialData(4 bytes) error = %v, want ErrBindingLayoutMismatch", err)
	}
	if err := reg.SetMaterialData("ghost", next); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("SetMaterialData(ghost) error = %v, want ErrResourceNotFound", err)
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestFSTextures(t *testing.T) {
	fsys := fstest.MapFS{
		"stone.png":       {Data: encodePNG(t, 2, 3)},
		"walls/brick.png": {Data: encodePNG(t, 4, 4)},
		"broken.png":      {Data: []byte("not an image")},
	}
	source := FSTextures(fsys)

	tests := []struct {
		id         string
		wantWidth  uint32
		wantHeight uint32
		wantErr    bool
	}{
		{"stone", 2, 3, false},
		{"stone.png", 2, 3, false},
		{"walls/brick", 4, 4, false},
		{"broken", 0, 0, true},
		{"missing", 0, 0, true},
	}
	for _, tt := range tests {
		data, err := source.LoadTexture(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("LoadTexture(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if err == nil && (data.Width != tt.wantWidth || data.Height != tt.wantHeight) {
			t.Errorf("LoadTexture(%q) = %dx%d, want %dx%d", tt.id, data.Width, data.Height, tt.wantWidth, tt.wantHeight)
		}
		if err == nil && data.Pixels[0] != 255 {
			t.Errorf("LoadTexture(%q) first pixel red = %d, want 255", tt.id, data.Pixels[0])
		}
	}

	if _, err := source.LoadTexture("missing"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("LoadTexture(missing) error = %v, want ErrResourceNotFound", err)
	}
	if _, err := source.LoadTexture("broken"); errors.Is(err, ErrResourceNotFound) {
		t.Errorf("LoadTexture(broken) reported not found, want a decode error")
	}
}

func TestChainTextures(t *testing.T) {
	fsys := fstest.MapFS{"stone.png": {Data: encodePNG(t, 2, 2)}}
	source := ChainTextures(FSTextures(fsys), ProceduralTextures())

	for _, id := range []string{"stone", "checker"} {
		if _, err := source.LoadTexture(id); err != nil {
			t.Errorf("LoadTexture(%q) error = %v", id, err)
		}
	}
	if _, err := source.LoadTexture("marble"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("LoadTexture(marble) error = %v, want ErrResourceNotFound", err)
	}
}

func TestCheckerPattern(t *testing.T) {
	data, err := ProceduralTextures().LoadTexture("checker")
	if err != nil {
		t.Fatalf("LoadTexture(checker) error = %v", err)
	}
	if data.Width != 64 || data.Height != 64 || len(data.Pixels) != 64*64*4 {
		t.Fatalf("checker = %dx%d with %d bytes, want 64x64 with %d", data.Width, data.Height, len(data.Pixels), 64*64*4)
	}
	at := func(x, y int) byte { return data.Pixels[(y*64+x)*4] }
	if at(0, 0) == at(8, 0) || at(0, 0) != at(8, 8) {
		t.Errorf("checker cells do not alternate: (0,0)=%d (8,0)=%d (8,8)=%d", at(0, 0), at(8, 0), at(8, 8))
	}
}

func TestRegistryResolvesFlush(t *testing.T) {
	reg, r, backend := newTestRegistryRenderer(t)
	if _, err := reg.LoadMesh("quad"); err != nil {
		t.Fatalf("LoadMesh() error = %v", err)
	}
	if _, err := reg.AddMaterial("textured", MaterialParams{Key: "floor", Texture: "checker"}); err != nil {
		t.Fatalf("AddMaterial() error = %v", err)
	}

	frame := renderer.Frame{Batches: []renderer.DrawBatch{
		{
			Key:       renderer.BatchKey{Mesh: "quad", Shader: "textured", Material: "floor"},
			Instances: make([]model.GPUInstance, 2),
		},
		{
			Key:       renderer.BatchKey{Mesh: "cube", Shader: "unlit", Material: "unlit"},
			Instances: make([]model.GPUInstance, 1),
		},
	}}
	if err := r.Flush(frame, reg); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	draws := backend.Draws()
	if len(draws) != 1 || draws[0].Mesh != "quad" || draws[0].InstanceCount != 2 {
		t.Errorf("Draws() = %+v, want one quad draw of 2 instances", draws)
	}
	if got := r.Stats().DroppedBatches; got != 1 {
		t.Errorf("DroppedBatches = %d, want 1 for the unloaded cube", got)
	}
}
