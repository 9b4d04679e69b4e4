package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Profiler records how long each stage of a load takes, plus the heap growth over the whole load.
// Stages may be timed from several goroutines at once.
type Profiler struct {
	mu        sync.Mutex
	start     time.Time
	order     []string
	durations map[string]time.Duration
	memStats  runtime.MemStats
	startHeap uint64
	startGC   uint32
}

// NewProfiler creates a new Profiler and snapshots the current heap statistics.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	p := &Profiler{
		start:     time.Now(),
		durations: make(map[string]time.Duration),
	}
	runtime.ReadMemStats(&p.memStats)
	p.startHeap = p.memStats.TotalAlloc
	p.startGC = p.memStats.NumGC
	return p
}

// Stage starts timing a named stage and returns the function that stops it.
// Timing the same stage twice accumulates.
//
// Parameters:
//   - name: the stage name (e.g. "buffers", "textures")
//
// Returns:
//   - func(): call to stop the timer, typically deferred
func (p *Profiler) Stage(name string) func() {
	begin := time.Now()
	return func() {
		elapsed := time.Since(begin)
		p.mu.Lock()
		if _, ok := p.durations[name]; !ok {
			p.order = append(p.order, name)
		}
		p.durations[name] += elapsed
		p.mu.Unlock()
	}
}

// Durations returns a copy of the recorded stage durations.
//
// Returns:
//   - map[string]time.Duration: stage name to accumulated duration
func (p *Profiler) Durations() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.durations))
	for k, v := range p.durations {
		out[k] = v
	}
	return out
}

// Report logs one line with every stage duration, the total wall time, the bytes allocated
// and the number of garbage collections since the profiler was created.
//
// Parameters:
//   - logger: the logger to write to
//   - fields: extra fields (such as the asset URL) to attach
func (p *Profiler) Report(logger logrus.FieldLogger, fields logrus.Fields) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.TotalAlloc-p.startHeap) / 1024 / 1024

	entry := logger.WithFields(fields).WithFields(logrus.Fields{
		"total":    time.Since(p.start).String(),
		"allocMB":  allocMB,
		"gcCycles": p.memStats.NumGC - p.startGC,
	})
	for _, name := range p.order {
		entry = entry.WithField("stage."+name, p.durations[name].String())
	}
	entry.Info("load profile")
}
