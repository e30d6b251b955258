// File: topology/topology_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package topology

import (
	"testing"

	"github.com/momentics/respartition/affinity"
)

// fakeDiscoverer reports a fixed 2-domain, 2-cores-per-domain, 2-PUs-per-core
// layout (8 PUs total), with uniform occupancy 1 and every PU exposed.
type fakeDiscoverer struct {
	restricted affinity.Mask // if Len() > 0, only PUs set here are exposed
}

func (f *fakeDiscoverer) TotalPUs() int            { return 8 }
func (f *fakeDiscoverer) NumNumaDomains() int       { return 2 }
func (f *fakeDiscoverer) NumCoresInDomain(int) int  { return 2 }
func (f *fakeDiscoverer) NumPUsInCore(int, int) int { return 2 }
func (f *fakeDiscoverer) ThreadOccupancy(int) int   { return 1 }
func (f *fakeDiscoverer) UsedPUsMask(puID int) affinity.Mask {
	if f.restricted.Len() == 0 {
		return affinity.Mask{}
	}
	return f.restricted
}

func TestFillTopologyVectorsFullyExposed(t *testing.T) {
	d := &fakeDiscoverer{}
	topo, err := FillTopologyVectors(d)
	if err != nil {
		t.Fatalf("FillTopologyVectors: %v", err)
	}
	if len(topo.PUs) != 8 {
		t.Fatalf("expected 8 PUs, got %d", len(topo.PUs))
	}
	if len(topo.Cores) != 4 {
		t.Fatalf("expected 4 cores, got %d", len(topo.Cores))
	}
	if len(topo.NumaDomains) != 2 {
		t.Fatalf("expected 2 NUMA domains, got %d", len(topo.NumaDomains))
	}
	if topo.TotalPUs != 8 {
		t.Errorf("expected TotalPUs 8, got %d", topo.TotalPUs)
	}
}

func TestFillTopologyVectorsPrunesUnexposedPUs(t *testing.T) {
	restricted := affinity.New(8)
	restricted.Set(0)
	restricted.Set(1)
	d := &fakeDiscoverer{restricted: restricted}

	topo, err := FillTopologyVectors(d)
	if err != nil {
		t.Fatalf("FillTopologyVectors: %v", err)
	}
	if len(topo.PUs) != 2 {
		t.Fatalf("expected 2 exposed PUs, got %d", len(topo.PUs))
	}
	if len(topo.Cores) != 1 {
		t.Fatalf("expected empty cores pruned down to 1, got %d", len(topo.Cores))
	}
	if len(topo.NumaDomains) != 1 {
		t.Fatalf("expected empty NUMA domains pruned down to 1, got %d", len(topo.NumaDomains))
	}
}

type zeroOccupancyDiscoverer struct{}

func (zeroOccupancyDiscoverer) TotalPUs() int                          { return 1 }
func (zeroOccupancyDiscoverer) NumNumaDomains() int                    { return 1 }
func (zeroOccupancyDiscoverer) NumCoresInDomain(int) int               { return 1 }
func (zeroOccupancyDiscoverer) NumPUsInCore(int, int) int              { return 1 }
func (zeroOccupancyDiscoverer) ThreadOccupancy(int) int                { return 0 }
func (zeroOccupancyDiscoverer) UsedPUsMask(int) affinity.Mask          { return affinity.Mask{} }

func TestFillTopologyVectorsZeroOccupancyIsFatal(t *testing.T) {
	_, err := FillTopologyVectors(zeroOccupancyDiscoverer{})
	if err == nil {
		t.Fatalf("expected a zero-occupancy PU to be fatal")
	}
}

func TestIncrementOccupancyAndAccessors(t *testing.T) {
	d := &fakeDiscoverer{}
	topo, err := FillTopologyVectors(d)
	if err != nil {
		t.Fatalf("FillTopologyVectors: %v", err)
	}

	if got := topo.OccupancyCount(3); got != 0 {
		t.Errorf("expected initial occupancy count 0, got %d", got)
	}
	topo.IncrementOccupancy(3)
	topo.IncrementOccupancy(3)
	if got := topo.OccupancyCount(3); got != 2 {
		t.Errorf("expected occupancy count 2 after two increments, got %d", got)
	}
	if got := topo.Occupancy(3); got != 1 {
		t.Errorf("expected static thread occupancy 1, got %d", got)
	}

	// incrementing a PU id that does not exist in the arena is a no-op.
	topo.IncrementOccupancy(999)
}

func TestPUByID(t *testing.T) {
	d := &fakeDiscoverer{}
	topo, err := FillTopologyVectors(d)
	if err != nil {
		t.Fatalf("FillTopologyVectors: %v", err)
	}
	if idx := topo.PUByID(5); idx < 0 || topo.PUs[idx].ID != 5 {
		t.Errorf("PUByID(5) did not resolve to the PU with hardware id 5")
	}
	if idx := topo.PUByID(999); idx != -1 {
		t.Errorf("expected PUByID to report -1 for an unknown id, got %d", idx)
	}
}
