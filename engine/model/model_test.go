package model

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/riwanou/wgpu-lua-fun/common"
	"github.com/riwanou/wgpu-lua-fun/engine/transform"
)

func TestGPUTypeSizes(t *testing.T) {
	if got := (&GPUVertex{}).Size(); got != 32 {
		t.Errorf("GPUVertex.Size() = %d, want 32", got)
	}
	if got := (&GPUInstance{}).Size(); got != 100 {
		t.Errorf("GPUInstance.Size() = %d, want 100", got)
	}
}

func TestInstanceFromTransform(t *testing.T) {
	tr := transform.New(mgl32.Vec3{1, 2, 3}, transform.WithScale(mgl32.Vec3{2, 1, 4}))
	inst := InstanceFromTransform(tr)

	if inst.Model[12] != 1 || inst.Model[13] != 2 || inst.Model[14] != 3 {
		t.Errorf("translation = (%v, %v, %v), want (1, 2, 3)", inst.Model[12], inst.Model[13], inst.Model[14])
	}
	want := [9]float32{0.5, 0, 0, 0, 1, 0, 0, 0, 0.25}
	for i := range want {
		if d := inst.NormalRows[i] - want[i]; d > 1e-5 || d < -1e-5 {
			t.Errorf("NormalRows[%d] = %v, want %v", i, inst.NormalRows[i], want[i])
		}
	}
}

func TestInstanceSnapshotsAtCallTime(t *testing.T) {
	tr := transform.New(mgl32.Vec3{})
	first := InstanceFromTransform(tr)
	tr.SetPosition(mgl32.Vec3{9, 0, 0})
	if first.Model[12] != 0 {
		t.Errorf("snapshot changed after SetPosition: Model[12] = %v, want 0", first.Model[12])
	}
}

func TestMarshalInstances(t *testing.T) {
	instances := []GPUInstance{{}, {}}
	instances[1].Model[12] = 7
	instances[1].NormalRows[8] = 3

	buf := MarshalInstances(instances)
	if len(buf) != 200 {
		t.Fatalf("len = %d, want 200", len(buf))
	}
	if got := common.Float32At(buf, 100+12*4); got != 7 {
		t.Errorf("second instance Model[12] = %v, want 7", got)
	}
	if got := common.Float32At(buf, 100+64+8*4); got != 3 {
		t.Errorf("second instance NormalRows[8] = %v, want 3", got)
	}
}

func TestMeshStagingData(t *testing.T) {
	tests := []struct {
		name     string
		mesh     Mesh
		vertices int
		indices  int
		maxIndex uint32
	}{
		{"quad", Quad(), 4, 6, 3},
		{"cube", Cube(), 24, 36, 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mesh.StagingData()
			if len(data.Vertices) != tt.vertices*32 {
				t.Errorf("vertex bytes = %d, want %d", len(data.Vertices), tt.vertices*32)
			}
			if data.IndexCount != tt.indices || len(data.Indices) != tt.indices*4 {
				t.Errorf("IndexCount = %d (%d bytes), want %d", data.IndexCount, len(data.Indices), tt.indices)
			}
			var max uint32
			for i := 0; i < data.IndexCount; i++ {
				if idx := binary.LittleEndian.Uint32(data.Indices[i*4:]); idx > max {
					max = idx
				}
			}
			if max != tt.maxIndex {
				t.Errorf("max index = %d, want %d", max, tt.maxIndex)
			}
		})
	}
}

func TestCubeNormalsPointOutward(t *testing.T) {
	for i, v := range Cube().Vertices {
		p := mgl32.Vec3(v.Position)
		n := mgl32.Vec3(v.Normal)
		if p.Dot(n) <= 0 {
			t.Errorf("vertex %d: position %v is not on the side of normal %v", i, p, n)
		}
	}
}
