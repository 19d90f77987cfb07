package material

import (
	"testing"

	"github.com/riwanou/wgpu-lua-fun/common"
)

func TestSimpleMaterialLayout(t *testing.T) {
	u := NewSimpleMaterial(DefaultColor)
	buf := u.Marshal()
	if len(buf) != 16 || u.Size() != 16 {
		t.Fatalf("Size() = %d, len(Marshal()) = %d, want 16", u.Size(), len(buf))
	}
	for i, want := range DefaultColor {
		if got := common.Float32At(buf, i*4); got != want {
			t.Errorf("color[%d] = %v, want %v", i, got, want)
		}
	}
	if got := common.Float32At(buf, 12); got != 0 {
		t.Errorf("padding = %v, want 0", got)
	}
}

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial("nebula")
	if m.ShaderKey() != "nebula" {
		t.Errorf("ShaderKey() = %q, want %q", m.ShaderKey(), "nebula")
	}
	if m.TextureKey() != "" || m.Uniform() != nil {
		t.Errorf("TextureKey() = %q, Uniform() = %v, want empty", m.TextureKey(), m.Uniform())
	}

	m = NewMaterial("crate", WithShader("textured_lit"), WithTexture("checker"))
	if m.ShaderKey() != "textured_lit" || m.TextureKey() != "checker" {
		t.Errorf("ShaderKey(), TextureKey() = %q, %q, want %q, %q", m.ShaderKey(), m.TextureKey(), "textured_lit", "checker")
	}
}

func TestSetUniformBumpsRevision(t *testing.T) {
	m := NewMaterial("player", WithUniform(NewSimpleMaterial(DefaultColor)))
	before := m.Revision()
	m.SetUniform(RawUniform{1, 2, 3, 4})
	if m.Revision() != before+1 {
		t.Errorf("Revision() = %d, want %d", m.Revision(), before+1)
	}
	if m.Uniform().Size() != 4 {
		t.Errorf("Uniform().Size() = %d, want 4", m.Uniform().Size())
	}
}
