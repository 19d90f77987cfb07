package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/riwanou/wgpu-lua-fun/engine/renderer"
)

const mib = 1 << 20

// gcSample summarizes the garbage collector since the previous report.
type gcSample struct {
	heapMiB, sysMiB float64
	allocRateMiB    float64
	cycles          uint32
	lastPause       time.Duration
	maxPause        time.Duration
}

// Profiler logs frame rate, Go runtime memory and renderer counters at a fixed interval.
type Profiler struct {
	interval time.Duration
	now      func() time.Time

	frames      int
	windowStart time.Time

	mem            runtime.MemStats
	lastCycles     uint32
	lastTotalAlloc uint64

	// previous is the renderer snapshot of the last report; cumulative counters are logged as deltas
	previous renderer.Stats
}

// NewProfiler creates a Profiler reporting every second by default.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the new profiler
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		interval: time.Second,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	return p
}

// Tick counts one rendered frame and logs a report once the interval has elapsed. Draw calls,
// instances and lights describe the last frame; reallocations and material uploads are the
// totals since the previous report.
//
// Parameters:
//   - stats: the renderer statistics after the frame was flushed
//
// Returns:
//   - bool: true if a report was logged
func (p *Profiler) Tick(stats renderer.Stats) bool {
	p.frames++
	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	gc := p.sampleGC(elapsed)
	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		float64(p.frames)/elapsed.Seconds(), gc.heapMiB, gc.allocRateMiB, gc.cycles,
		gc.lastPause.Microseconds(), gc.maxPause.Microseconds(), gc.sysMiB)
	log.Printf("[Profiler] Draws: %d | Instances: %d | Dropped: %d | Lights: %d | Light reallocs: %d | Instance reallocs: %d | Material uploads: %d",
		stats.DrawCalls, stats.Instances, stats.DroppedBatches, stats.LightCount,
		stats.LightReallocations-p.previous.LightReallocations,
		stats.InstanceReallocations-p.previous.InstanceReallocations,
		stats.MaterialUploads-p.previous.MaterialUploads)

	p.frames = 0
	p.windowStart = now
	p.previous = stats
	return true
}

// sampleGC reads the runtime memory statistics and advances the GC bookkeeping.
func (p *Profiler) sampleGC(elapsed time.Duration) gcSample {
	runtime.ReadMemStats(&p.mem)
	s := gcSample{
		heapMiB:      float64(p.mem.Alloc) / mib,
		sysMiB:       float64(p.mem.Sys) / mib,
		allocRateMiB: float64(p.mem.TotalAlloc-p.lastTotalAlloc) / mib / elapsed.Seconds(),
		cycles:       p.mem.NumGC,
	}

	// PauseNs is a ring of the last len(PauseNs) pauses
	ring := uint32(len(p.mem.PauseNs))
	if s.cycles > 0 {
		s.lastPause = time.Duration(p.mem.PauseNs[(s.cycles-1)%ring])
	}
	first := max(p.lastCycles, s.cycles-min(s.cycles, ring))
	for i := first; i < s.cycles; i++ {
		s.maxPause = max(s.maxPause, time.Duration(p.mem.PauseNs[i%ring]))
	}

	p.lastCycles = s.cycles
	p.lastTotalAlloc = p.mem.TotalAlloc
	return s
}
