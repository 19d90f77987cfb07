package renderer

import (
	"fmt"

	"github.com/riwanou/wgpu-lua-fun/engine/renderer/bind_group_provider"
)

// materialSlotKey identifies a material bound through a specific pipeline. The same material
// drawn with two pipelines gets two providers since their group 2 layouts may differ.
type materialSlotKey struct {
	material string
	shader   string
}

// materialBinding is a per-slot material provider and the uniform revision last uploaded to it.
type materialBinding struct {
	provider bind_group_provider.BindGroupProvider
	revision uint64
	uploaded bool
	lastUsed uint64
}

// instanceBinding is a per-slot instance buffer provider for one batch key.
type instanceBinding struct {
	provider bind_group_provider.BindGroupProvider
	lastUsed uint64
}

// frameSlot owns every buffer written during one frame. Slots rotate so a buffer is never
// rewritten while the GPU may still read it for the previous frame.
type frameSlot struct {
	index int

	// flushes counts the frames flushed through this slot
	flushes uint64

	globals       bind_group_provider.BindGroupProvider
	lights        bind_group_provider.BindGroupProvider
	lightCapacity int

	instances map[BatchKey]*instanceBinding
	materials map[materialSlotKey]*materialBinding
}

func newFrameSlot(index int) *frameSlot {
	return &frameSlot{
		index:     index,
		instances: make(map[BatchKey]*instanceBinding),
		materials: make(map[materialSlotKey]*materialBinding),
	}
}

func (s *frameSlot) label(kind string, parts ...string) string {
	l := fmt.Sprintf("%s_%d", kind, s.index)
	for _, p := range parts {
		l += "_" + p
	}
	return l
}

func (s *frameSlot) release() {
	if s.globals != nil {
		s.globals.Release()
		s.globals = nil
	}
	if s.lights != nil {
		s.lights.Release()
		s.lights = nil
	}
	s.lightCapacity = 0
	for k, b := range s.instances {
		b.provider.Release()
		delete(s.instances, k)
	}
	for k, m := range s.materials {
		m.provider.Release()
		delete(s.materials, k)
	}
}

// evictIdle releases the instance and material providers not used during the last maxIdle
// flushes of this slot and returns how many were released.
func (s *frameSlot) evictIdle(maxIdle uint64) int {
	if s.flushes <= maxIdle {
		return 0
	}
	cutoff := s.flushes - maxIdle
	evicted := 0
	for k, b := range s.instances {
		if b.lastUsed < cutoff {
			b.provider.Release()
			delete(s.instances, k)
			evicted++
		}
	}
	for k, b := range s.materials {
		if b.lastUsed < cutoff {
			b.provider.Release()
			delete(s.materials, k)
			evicted++
		}
	}
	return evicted
}
