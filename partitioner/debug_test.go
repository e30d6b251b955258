// File: partitioner/debug_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package partitioner

import (
	"testing"

	"github.com/momentics/respartition/control"
)

func TestSnapshotReflectsConfiguredPools(t *testing.T) {
	p := newTestPartitioner(t, 4, 1, ModeDefault)
	if err := p.ConfigurePools(); err != nil {
		t.Fatalf("ConfigurePools: %v", err)
	}

	snap := p.Snapshot()
	if !snap.Initialized {
		t.Errorf("expected Snapshot().Initialized to be true after ConfigurePools")
	}
	if snap.ThreadsTotal != 4 {
		t.Errorf("Snapshot().ThreadsTotal = %d, want 4", snap.ThreadsTotal)
	}
	if len(snap.Pools) != 1 || snap.Pools[0].Name != "default" {
		t.Fatalf("Snapshot().Pools = %+v, want a single default pool", snap.Pools)
	}
}

func TestDebugDumpStateExposesPoolsProbe(t *testing.T) {
	p := newTestPartitioner(t, 4, 1, ModeDefault)
	if err := p.ConfigurePools(); err != nil {
		t.Fatalf("ConfigurePools: %v", err)
	}

	dbg := NewDebug(p)
	state := dbg.DumpState()
	snap, ok := state["partitioner.pools"].(Snapshot)
	if !ok {
		t.Fatalf("expected partitioner.pools probe to return a Snapshot, got %T", state["partitioner.pools"])
	}
	if snap.ThreadsTotal != 4 {
		t.Errorf("probed ThreadsTotal = %d, want 4", snap.ThreadsTotal)
	}

	metrics := dbg.Metrics()
	if metrics["partitioner.threads_total"] != 4 {
		t.Errorf("metrics[partitioner.threads_total] = %v, want 4", metrics["partitioner.threads_total"])
	}
}

func TestDebugWatchSettingsRefreshesOnHotReload(t *testing.T) {
	p := newTestPartitioner(t, 4, 1, ModeDefault)
	if err := p.ConfigurePools(); err != nil {
		t.Fatalf("ConfigurePools: %v", err)
	}

	dbg := NewDebug(p)
	dbg.WatchSettings()

	control.TriggerHotReloadSync()

	metrics := dbg.Metrics()
	if metrics["partitioner.threads_total"] != 4 {
		t.Errorf("expected hot-reload to have re-probed the partitioner, metrics = %v", metrics)
	}
}
