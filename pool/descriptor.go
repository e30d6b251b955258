// File: pool/descriptor.go
// Package pool implements the per-pool descriptor: a pool's name,
// scheduling policy, mode flags, optional custom-scheduler factory and
// background-work hook, and the ordered list of worker slots it owns.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This is the Go port of init_pool_data. One Descriptor exists per
// thread pool the partitioner knows about; the partitioner package owns
// a slice of these and is the only thing that mutates them.
package pool

import (
	"fmt"
	"io"

	"github.com/momentics/respartition/affinity"
	"github.com/momentics/respartition/perr"
	"github.com/momentics/respartition/sched"
)

// BackgroundWorkFunc is forwarded verbatim to the executor that actually
// creates the pool; it is never called by this module.
type BackgroundWorkFunc func(numaHint int) bool

// SchedulerFactory builds a custom scheduler for a pool whose Policy is
// sched.UserDefined. Opaque to this module: stored and handed back to
// the caller that instantiates pools, never invoked here.
type SchedulerFactory func() any

// Slot is one worker position within a pool: the PU it is bound to,
// whether that binding is exclusive (may never be taken by shrink_pool),
// and whether a running worker currently occupies it.
type Slot struct {
	PUIndex   int
	Exclusive bool
	Assigned  bool
}

// Descriptor is one pool's full configuration and live slot table.
type Descriptor struct {
	Name           string
	Policy         sched.Policy
	Mode           sched.Mode
	CreateFunc     SchedulerFactory
	BackgroundWork BackgroundWorkFunc

	assignedPUs    []affinity.Mask
	assignedPUNums []Slot
	totalPUs       int // hardware_concurrency bound for AddResource/AssignFirstCore
}

// New builds a Descriptor for a statically-named scheduling policy.
// name must be non-empty; totalPUs bounds every pu_index AddResource
// will accept.
func New(name string, policy sched.Policy, mode sched.Mode, bg BackgroundWorkFunc, totalPUs int) (*Descriptor, error) {
	if name == "" {
		return nil, perr.ErrInvalidArgument.WithContext("reason",
			"cannot instantiate a thread pool with empty string as a name")
	}
	return &Descriptor{
		Name:           name,
		Policy:         policy,
		Mode:           mode,
		BackgroundWork: bg,
		totalPUs:       totalPUs,
	}, nil
}

// NewUserDefined builds a Descriptor backed by a custom scheduler
// factory; its Policy is always sched.UserDefined.
func NewUserDefined(name string, factory SchedulerFactory, mode sched.Mode, bg BackgroundWorkFunc, totalPUs int) (*Descriptor, error) {
	if name == "" {
		return nil, perr.ErrInvalidArgument.WithContext("reason",
			"cannot instantiate a thread pool with empty string as a name")
	}
	return &Descriptor{
		Name:           name,
		Policy:         sched.UserDefined,
		Mode:           mode,
		CreateFunc:     factory,
		BackgroundWork: bg,
		totalPUs:       totalPUs,
	}, nil
}

// NumThreads is the number of worker slots this pool currently owns.
func (d *Descriptor) NumThreads() int { return len(d.assignedPUNums) }

// AssignedPUs returns the per-slot affinity masks, in slot order.
func (d *Descriptor) AssignedPUs() []affinity.Mask { return d.assignedPUs }

// AssignedPUNums returns the per-slot (pu_index, exclusive, assigned)
// triples, in slot order.
func (d *Descriptor) AssignedPUNums() []Slot { return d.assignedPUNums }

// AddResource appends numThreads worker slots, all bound to puIndex,
// each carrying a one-hot mask on puIndex.
func (d *Descriptor) AddResource(puIndex int, exclusive bool, numThreads int) error {
	if puIndex < 0 || puIndex >= d.totalPUs {
		return perr.ErrInvalidArgument.WithContext("pu", puIndex).
			WithContext("reason", fmt.Sprintf(
				"processing unit index out of bounds; total available is %d", d.totalPUs))
	}
	mask := affinity.OneHot(d.totalPUs, puIndex)
	for i := 0; i < numThreads; i++ {
		d.assignedPUs = append(d.assignedPUs, mask.Clone())
		d.assignedPUNums = append(d.assignedPUNums, Slot{PUIndex: puIndex, Exclusive: exclusive})
	}
	return nil
}

// AssignPU flips slot virtCore's Assigned flag to true. The slot must
// currently be unassigned.
func (d *Descriptor) AssignPU(virtCore int) error {
	if virtCore >= len(d.assignedPUNums) {
		return perr.ErrInvalidArgument.WithContext("virt_core", virtCore)
	}
	if d.assignedPUNums[virtCore].Assigned {
		return perr.ErrBadParameter.WithContext("virt_core", virtCore).
			WithContext("reason", "slot is already assigned")
	}
	d.assignedPUNums[virtCore].Assigned = true
	return nil
}

// UnassignPU flips slot virtCore's Assigned flag to false. The slot
// must currently be assigned.
func (d *Descriptor) UnassignPU(virtCore int) error {
	if virtCore >= len(d.assignedPUNums) {
		return perr.ErrInvalidArgument.WithContext("virt_core", virtCore)
	}
	if !d.assignedPUNums[virtCore].Assigned {
		return perr.ErrBadParameter.WithContext("virt_core", virtCore).
			WithContext("reason", "slot is already unassigned")
	}
	d.assignedPUNums[virtCore].Assigned = false
	return nil
}

// PUIsExclusive reports whether slot virtCore may not be taken by
// shrink_pool.
func (d *Descriptor) PUIsExclusive(virtCore int) bool {
	return d.assignedPUNums[virtCore].Exclusive
}

// PUIsAssigned reports whether slot virtCore currently hosts a running
// worker.
func (d *Descriptor) PUIsAssigned(virtCore int) bool {
	return d.assignedPUNums[virtCore].Assigned
}

// AssignFirstCore shifts every slot's pu_index by offset modulo
// totalPUs and rebuilds every mask accordingly, used when the runtime
// is told to start numbering PUs from a different first core.
func (d *Descriptor) AssignFirstCore(offset int) {
	for i := range d.assignedPUNums {
		newPU := ((d.assignedPUNums[i].PUIndex + offset) % d.totalPUs + d.totalPUs) % d.totalPUs
		d.assignedPUNums[i].PUIndex = newPU
		d.assignedPUs[i] = affinity.OneHot(d.totalPUs, newPU)
	}
}

// PrintPool writes a human-readable summary: pool name, scheduler name,
// and every worker's affinity mask, mirroring print_init_pool_data's
// per-pool section.
func (d *Descriptor) PrintPool(w io.Writer) {
	fmt.Fprintf(w, "[pool \"%s\"] with scheduler \"%s\" is running on PUs :\n", d.Name, d.Policy)
	for _, m := range d.assignedPUs {
		fmt.Fprintln(w, m.String())
	}
}
