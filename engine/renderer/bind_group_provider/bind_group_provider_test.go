package bind_group_provider

import "testing"

func TestNewBindGroupProviderLabel(t *testing.T) {
	p := NewBindGroupProvider("globals_0", WithBufferSize(0, 144))
	if p.Label() != "globals_0" {
		t.Errorf("Label() = %q, want %q", p.Label(), "globals_0")
	}
	if got := p.BufferSize(0); got != 144 {
		t.Errorf("BufferSize(0) = %d, want 144", got)
	}
	if p.Ready() {
		t.Errorf("Ready() = true before initialization")
	}
}

func TestReleaseBufferForgetsSize(t *testing.T) {
	p := NewBindGroupProvider("lights")
	p.SetBufferSize(0, 32)
	p.SetReady(true)

	p.ReleaseBuffer(0)
	if got := p.BufferSize(0); got != 0 {
		t.Errorf("BufferSize(0) after ReleaseBuffer = %d, want 0", got)
	}
	if !p.Ready() {
		t.Errorf("ReleaseBuffer cleared Ready(), want only ReleaseBindGroup to do that")
	}

	p.ReleaseBindGroup()
	if p.Ready() {
		t.Errorf("Ready() = true after ReleaseBindGroup")
	}
}

func TestReleaseResetsInstanceAndIndexState(t *testing.T) {
	p := NewBindGroupProvider("cube")
	p.SetIndexCount(36)
	p.SetInstanceBuffer(nil, 64)
	p.SetReady(true)

	p.Release()
	if p.IndexCount() != 0 || p.InstanceCapacity() != 0 || p.Ready() {
		t.Errorf("after Release: IndexCount() = %d, InstanceCapacity() = %d, Ready() = %v, want 0, 0, false",
			p.IndexCount(), p.InstanceCapacity(), p.Ready())
	}
}

func TestSharedTextureSurvivesRelease(t *testing.T) {
	owner := NewBindGroupProvider("brick")
	owner.SetTextureView(1, nil)
	owner.SetSampler(2, nil)

	m := NewBindGroupProvider("brick_material", WithSharedTexture(1, 2, owner))
	if !m.(*bindGroupProvider).sharedViews[1] || !m.(*bindGroupProvider).sharedSamplers[2] {
		t.Fatalf("WithSharedTexture did not mark bindings 1 and 2 as shared")
	}

	m.SetTextureView(1, nil)
	if m.(*bindGroupProvider).sharedViews[1] {
		t.Errorf("SetTextureView kept binding 1 shared, want owned")
	}

	m.Release()
	if len(m.(*bindGroupProvider).sharedSamplers) != 0 || m.Sampler(2) != nil {
		t.Errorf("Release kept shared sampler bookkeeping")
	}
}
