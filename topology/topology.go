// File: topology/topology.go
// Package topology models the immutable hardware tree the partitioner
// consults: NUMA domains, their cores, and each core's processing units
// (PUs).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Parent references are stored as indices into the Topology's own flat
// arrays, never as pointers: NumaDomain, Core and PU each live in one of
// three arena slices owned by Topology, and a child stores the index of
// its parent in that parent's slice. This removes the pointer-invalidation
// hazard the original implementation's raw back-pointers carried across
// incremental topology construction.
package topology

import "github.com/momentics/respartition/perr"

// PU is a single hardware-addressable execution resource.
type PU struct {
	ID              int // hardware PU index, stable across the whole topology
	CoreIndex       int // index into Topology.Cores
	ThreadOccupancy int // max worker threads this PU may host, >= 1

	// OccupancyCount is how many worker slots currently reference this
	// PU. The tree shape (domains/cores/PUs) is immutable once built;
	// this one field is not — add_resource mutates it through
	// Topology.IncrementOccupancy as pools claim PUs.
	OccupancyCount int
}

// Core groups PUs that share execution resources.
type Core struct {
	ID        int // original position within its NUMA domain, pre-pruning
	NumaIndex int // index into Topology.NumaDomains
	PUIndices []int
}

// NumaDomain groups cores that share a memory controller.
type NumaDomain struct {
	ID          int // original discovery-order position, pre-pruning
	CoreIndices []int
}

// Topology is the pruned, read-only-after-construction hardware tree:
// NUMA domains, cores and PUs flattened into three arenas. Only PUs
// exposed to this process (per the discoverer's used-PUs mask) appear;
// cores left with no PU, and NUMA domains left with no core, are pruned.
type Topology struct {
	NumaDomains []NumaDomain
	Cores       []Core
	PUs         []PU

	// TotalPUs is the discoverer's declared hardware PU count, i.e. the
	// bound every pu_index must respect regardless of how many PUs ended
	// up exposed after pruning.
	TotalPUs int
}

// PUByID returns the arena index of the PU with hardware index id, or -1
// if that PU was pruned (not exposed) or does not exist.
func (t *Topology) PUByID(id int) int {
	for i, p := range t.PUs {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// IncrementOccupancy records one more worker slot referencing the PU
// with hardware index id. A no-op if that PU is not exposed.
func (t *Topology) IncrementOccupancy(id int) {
	if i := t.PUByID(id); i >= 0 {
		t.PUs[i].OccupancyCount++
	}
}

// OccupancyCount reports how many worker slots currently reference the
// PU with hardware index id.
func (t *Topology) OccupancyCount(id int) int {
	if i := t.PUByID(id); i >= 0 {
		return t.PUs[i].OccupancyCount
	}
	return 0
}

// Occupancy reports the PU's maximum thread occupancy (from discovery),
// or 0 if that PU is not exposed.
func (t *Topology) Occupancy(id int) int {
	if i := t.PUByID(id); i >= 0 {
		return t.PUs[i].ThreadOccupancy
	}
	return 0
}

// FillTopologyVectors walks d and builds the pruned arena, following
// fill_topology_vectors: a PU is recorded only if its one-hot mask
// intersects the discoverer's used-PUs mask for that PU index; a PU with
// ThreadOccupancy 0 is fatal; empty cores and empty NUMA domains are
// pruned after the fact.
func FillTopologyVectors(d Discoverer) (*Topology, error) {
	total := d.TotalPUs()
	t := &Topology{TotalPUs: total}

	pid := 0
	numNuma := d.NumNumaDomains()
	for i := 0; i < numNuma; i++ {
		var coreIndices []int
		numaNodeCores := d.NumCoresInDomain(i)

		for j := 0; j < numaNodeCores; j++ {
			var puIndices []int
			corePUs := d.NumPUsInCore(i, j)

			for k := 0; k < corePUs; k++ {
				if puExposed(d, pid) {
					occ := d.ThreadOccupancy(pid)
					if occ == 0 {
						return nil, perr.ErrInvalidStatus.WithContext("pu", pid).
							WithContext("reason", "thread occupancy is 0")
					}
					puIdx := len(t.PUs)
					t.PUs = append(t.PUs, PU{ID: pid, ThreadOccupancy: occ})
					puIndices = append(puIndices, puIdx)
				}
				pid++
			}

			if len(puIndices) > 0 {
				coreIdx := len(t.Cores)
				t.Cores = append(t.Cores, Core{ID: j, PUIndices: puIndices})
				for _, puIdx := range puIndices {
					t.PUs[puIdx].CoreIndex = coreIdx
				}
				coreIndices = append(coreIndices, coreIdx)
			}
		}

		if len(coreIndices) > 0 {
			numaIdx := len(t.NumaDomains)
			t.NumaDomains = append(t.NumaDomains, NumaDomain{ID: i, CoreIndices: coreIndices})
			for _, coreIdx := range coreIndices {
				t.Cores[coreIdx].NumaIndex = numaIdx
			}
		}
	}

	return t, nil
}

func puExposed(d Discoverer, pid int) bool {
	used := d.UsedPUsMask(pid)
	if used.Len() == 0 {
		return true
	}
	oneHot := used.Clone()
	oneHot.Reset()
	oneHot.Set(pid)
	return used.And(oneHot).Any()
}
