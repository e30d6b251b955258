// File: topology/discoverer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Discoverer is the external collaborator this module consults but never
// implements for real: per spec.md's scope, topology discovery belongs to
// the runtime that embeds the partitioner. DefaultDiscoverer exists only
// as a best-effort fallback for callers and tests that do not supply a
// richer implementation (e.g. one backed by hwloc, as
// other_examples/NVIDIA-k8s-device-plugin__cpuset.go does for a real
// deployment).

package topology

import (
	"runtime"

	"github.com/momentics/respartition/affinity"
)

// Discoverer reports the shape of the hardware topology and, per PU,
// its thread occupancy and the mask of PUs the process is allowed to
// use. Global PU indices (puID) run across the whole tree in discovery
// order: NUMA domain 0's cores first, then NUMA domain 1's, and so on.
type Discoverer interface {
	// TotalPUs is the hardware_concurrency bound every pu_index must
	// respect.
	TotalPUs() int
	NumNumaDomains() int
	NumCoresInDomain(numaIdx int) int
	NumPUsInCore(numaIdx, coreIdx int) int
	ThreadOccupancy(puID int) int
	UsedPUsMask(puID int) affinity.Mask
}

// DefaultDiscoverer reports a single NUMA domain, one core per PU, PU
// occupancy of 1, and a used-PUs mask read from the process's current
// affinity (on platforms that can report one; otherwise "every PU").
type DefaultDiscoverer struct {
	numPUs int
	used   affinity.Mask
}

// NewDefaultDiscoverer builds a DefaultDiscoverer sized to
// runtime.NumCPU().
func NewDefaultDiscoverer() *DefaultDiscoverer {
	n := runtime.NumCPU()
	return &DefaultDiscoverer{
		numPUs: n,
		used:   affinity.CurrentProcessMask(n),
	}
}

// TotalPUs implements Discoverer.
func (d *DefaultDiscoverer) TotalPUs() int { return d.numPUs }

// NumNumaDomains implements Discoverer: a single flat domain.
func (d *DefaultDiscoverer) NumNumaDomains() int { return 1 }

// NumCoresInDomain implements Discoverer: one core per PU.
func (d *DefaultDiscoverer) NumCoresInDomain(int) int { return d.numPUs }

// NumPUsInCore implements Discoverer: one PU per core.
func (d *DefaultDiscoverer) NumPUsInCore(int, int) int { return 1 }

// ThreadOccupancy implements Discoverer: every PU hosts one worker by
// default.
func (d *DefaultDiscoverer) ThreadOccupancy(int) int { return 1 }

// UsedPUsMask implements Discoverer.
func (d *DefaultDiscoverer) UsedPUsMask(int) affinity.Mask { return d.used }
