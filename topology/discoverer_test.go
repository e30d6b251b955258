// File: topology/discoverer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package topology

import (
	"runtime"
	"testing"
)

func TestDefaultDiscovererShape(t *testing.T) {
	d := NewDefaultDiscoverer()
	n := runtime.NumCPU()

	if d.TotalPUs() != n {
		t.Errorf("TotalPUs() = %d, want %d", d.TotalPUs(), n)
	}
	if d.NumNumaDomains() != 1 {
		t.Errorf("expected a single flat NUMA domain, got %d", d.NumNumaDomains())
	}
	if d.NumCoresInDomain(0) != n {
		t.Errorf("NumCoresInDomain(0) = %d, want %d", d.NumCoresInDomain(0), n)
	}
	if d.NumPUsInCore(0, 0) != 1 {
		t.Errorf("expected one PU per core, got %d", d.NumPUsInCore(0, 0))
	}
	if d.ThreadOccupancy(0) != 1 {
		t.Errorf("expected occupancy 1 per PU, got %d", d.ThreadOccupancy(0))
	}
}

func TestDefaultDiscovererFeedsFillTopologyVectors(t *testing.T) {
	d := NewDefaultDiscoverer()
	topo, err := FillTopologyVectors(d)
	if err != nil {
		t.Fatalf("FillTopologyVectors: %v", err)
	}
	if len(topo.PUs) == 0 {
		t.Fatalf("expected at least one PU")
	}
}
