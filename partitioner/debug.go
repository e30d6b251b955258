// File: partitioner/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package partitioner

import (
	"github.com/momentics/respartition/control"
	"github.com/momentics/respartition/sched"
)

// PoolSnapshot is a point-in-time copy of one pool's configuration,
// safe to read after the partitioner lock has been released.
type PoolSnapshot struct {
	Name       string
	Policy     sched.Policy
	NumThreads int
}

// Snapshot is a point-in-time copy of the whole partitioner, suitable
// for debug probes, metrics export, or a print surface.
type Snapshot struct {
	Initialized  bool
	ThreadsTotal int
	Pools        []PoolSnapshot
}

// Snapshot copies the partitioner's current pool layout under the read
// lock and returns it detached, so callers may inspect or print it
// without holding the partitioner lock.
func (p *Partitioner) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{Initialized: p.initialized}
	for _, d := range p.pools {
		n := d.NumThreads()
		s.Pools = append(s.Pools, PoolSnapshot{Name: d.Name, Policy: d.Policy, NumThreads: n})
		s.ThreadsTotal += n
	}
	return s
}

// Debug wires a Partitioner's Snapshot into a control.DebugProbes
// registry and a control.MetricsRegistry, the same probe/metrics split
// the teacher exposes for its own runtime state.
type Debug struct {
	p       *Partitioner
	probes  *control.DebugProbes
	metrics *control.MetricsRegistry
}

// NewDebug registers a "partitioner.pools" probe that reports p's
// current Snapshot and records its pool/thread counts into the
// returned Debug's metrics registry each time the probe fires. It also
// registers whatever platform-specific probes RegisterPlatformProbes
// contributes for the current build target.
func NewDebug(p *Partitioner) *Debug {
	probes := control.NewDebugProbes()
	metrics := control.NewMetricsRegistry()

	probes.RegisterProbe("partitioner.pools", func() any {
		snap := p.Snapshot()
		metrics.Set("partitioner.pools_count", len(snap.Pools))
		metrics.Set("partitioner.threads_total", snap.ThreadsTotal)
		return snap
	})
	control.RegisterPlatformProbes(probes)

	return &Debug{p: p, probes: probes, metrics: metrics}
}

// DumpState runs every registered probe and returns their combined
// output, keyed by probe name.
func (d *Debug) DumpState() map[string]any {
	return d.probes.DumpState()
}

// Metrics returns the most recent values recorded by probe runs.
func (d *Debug) Metrics() map[string]any {
	return d.metrics.GetSnapshot()
}

// WatchSettings registers a global hot-reload hook that re-probes the
// partitioner whenever control.TriggerHotReload (or TriggerHotReloadSync
// in tests) is called, refreshing d's metrics. Changes to the settings
// store alone do not run the hook.
func (d *Debug) WatchSettings() {
	control.RegisterReloadHook(func() {
		d.DumpState()
	})
}
