// File: partitioner/partitioner.go
// Package partitioner is the process-wide configuration authority for a
// parallel runtime: it owns the topology model, the pool registry, the
// affinity rewrite from topology order to pool order, and the dynamic
// PU membership protocol (assign/unassign/shrink/expand).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Only one Partitioner may exist per process at a time; New enforces
// this with an atomic instance counter rather than a language-level
// singleton, so the type remains an ordinary owned value a caller can
// pass into runtime initialization and discard at teardown.
package partitioner

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/respartition/affinity"
	"github.com/momentics/respartition/perr"
	"github.com/momentics/respartition/pool"
	"github.com/momentics/respartition/sched"
	"github.com/momentics/respartition/settings"
	"github.com/momentics/respartition/topology"
)

const defaultPoolName = "default"

// RemovePUFunc is invoked once per slot being shrunk out of a pool, with
// that slot's virtual-core index (not its hardware PU index), always
// outside the partitioner lock. It is expected to call back into
// UnassignPU for the same slot.
type RemovePUFunc func(virtCore int)

// AddPUFunc is invoked once per slot being expanded into a pool, with
// that slot's virtual-core index (not its hardware PU index), always
// outside the partitioner lock. It is expected to call back into
// AssignPU for the same slot.
type AddPUFunc func(virtCore int)

var instanceCount atomic.Int32

// Partitioner is the registry of pool descriptors plus the topology they
// are carved from. All structural reads and writes serialize through mu;
// see ShrinkPool/ExpandPool for where user callbacks are deliberately
// invoked without it held, and UnassignPU for its try-lock.
type Partitioner struct {
	mu sync.RWMutex

	mode     Mode
	topo     *topology.Topology
	settings *settings.Settings

	pools []*pool.Descriptor

	firstCore      int // -1 means "never assigned"
	pusNeeded      int // -1 means "not yet cached"
	overallThreads int // cumulative worker count across all pools

	affinityPUNums []int
	affinityMasks  []affinity.Mask

	initialized bool
}

// New builds a Partitioner from the topology discovered through d,
// seeded with mode and the scheduler-mode default read from set. Only
// one Partitioner may be live per process; constructing a second one is
// fatal and returns an InvalidStatus error, matching HPX's
// instance_number_counter_ contract.
func New(d topology.Discoverer, set *settings.Settings, mode Mode) (*Partitioner, error) {
	if instanceCount.Add(1) > 1 {
		instanceCount.Add(-1)
		return nil, perr.ErrInvalidStatus.WithContext("reason",
			"a resource partitioner already exists in this process")
	}

	topo, err := topology.FillTopologyVectors(d)
	if err != nil {
		instanceCount.Add(-1)
		return nil, err
	}

	defMode, err := set.DefaultSchedulerMode()
	if err != nil {
		instanceCount.Add(-1)
		return nil, err
	}

	defaultDescriptor, err := pool.New(defaultPoolName, sched.Unspecified, defMode, nil, topo.TotalPUs)
	if err != nil {
		instanceCount.Add(-1)
		return nil, err
	}

	return &Partitioner{
		mode:      mode,
		topo:      topo,
		settings:  set,
		pools:     []*pool.Descriptor{defaultDescriptor},
		firstCore: -1,
		pusNeeded: -1,
	}, nil
}

// Close releases this process's partitioner slot, allowing a subsequent
// New call to succeed. It does not otherwise reset any state; the value
// should not be used again afterwards.
func (p *Partitioner) Close() {
	instanceCount.Add(-1)
}

func (p *Partitioner) getPoolByNameLocked(name string) (*pool.Descriptor, error) {
	for _, d := range p.pools {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, perr.ErrInvalidArgument.WithContext("pool", name).
		WithContext("reason", "the resource partitioner does not own a thread pool named this")
}

func (p *Partitioner) getPoolByIndexLocked(index int) (*pool.Descriptor, error) {
	if index < 0 || index >= len(p.pools) {
		return nil, perr.ErrInvalidArgument.WithContext("index", index).
			WithContext("owned", len(p.pools)).
			WithContext("reason", "pool index too large")
	}
	return p.pools[index], nil
}

// CreateThreadPool registers a pool with a statically-named scheduling
// policy. Creating one named "default" replaces the existing default
// pool outright; any other duplicate name is an InvalidArgument.
func (p *Partitioner) CreateThreadPool(name string, policy sched.Policy, mode sched.Mode, bg pool.BackgroundWorkFunc) error {
	if name == "" {
		return perr.ErrInvalidArgument.WithContext("reason",
			"cannot instantiate a thread pool with empty string as a name")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if name == defaultPoolName {
		d, err := pool.New(defaultPoolName, policy, mode, bg, p.topo.TotalPUs)
		if err != nil {
			return err
		}
		p.pools[0] = d
		return nil
	}

	for _, d := range p.pools[1:] {
		if d.Name == name {
			return perr.ErrInvalidArgument.WithContext("pool", name).
				WithContext("reason", "there already exists a pool with this name")
		}
	}

	d, err := pool.New(name, policy, mode, bg, p.topo.TotalPUs)
	if err != nil {
		return err
	}
	p.pools = append(p.pools, d)
	return nil
}

// CreateThreadPoolWithFactory registers a pool whose scheduler is built
// by factory at pool-creation time, i.e. a sched.UserDefined pool. The
// duplicate-name and default-pool-replace rules match CreateThreadPool.
func (p *Partitioner) CreateThreadPoolWithFactory(name string, factory pool.SchedulerFactory, bg pool.BackgroundWorkFunc) error {
	if name == "" {
		return perr.ErrInvalidArgument.WithContext("reason",
			"cannot instantiate a thread pool with empty string as a name")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	defMode, err := p.settings.DefaultSchedulerMode()
	if err != nil {
		return err
	}

	if name == defaultPoolName {
		d, err := pool.NewUserDefined(defaultPoolName, factory, defMode, bg, p.topo.TotalPUs)
		if err != nil {
			return err
		}
		p.pools[0] = d
		return nil
	}

	for _, d := range p.pools[1:] {
		if d.Name == name {
			return perr.ErrInvalidArgument.WithContext("pool", name).
				WithContext("reason", "there already exists a pool with this name")
		}
	}

	d, err := pool.NewUserDefined(name, factory, defMode, bg, p.topo.TotalPUs)
	if err != nil {
		return err
	}
	p.pools = append(p.pools, d)
	return nil
}

// AddResource binds one PU to an existing pool, numThreads times. Under
// AllowOversubscription the occupancy cap is not enforced; otherwise a
// PU already occupying a slot anywhere is rejected, and the cumulative
// worker count across every pool may not exceed hpx.os_threads.
func (p *Partitioner) AddResource(puIndex int, poolName string, exclusive bool, numThreads int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addResourceLocked(puIndex, poolName, exclusive, numThreads)
}

func (p *Partitioner) addResourceLocked(puIndex int, poolName string, exclusive bool, numThreads int) error {
	if !exclusive && !p.mode.Has(AllowDynamicPools) {
		return perr.ErrBadParameter.WithContext("pool", poolName).
			WithContext("reason", "dynamic pools have not been enabled for this partitioner")
	}

	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return err
	}

	if p.mode.Has(AllowOversubscription) {
		if err := d.AddResource(puIndex, exclusive, numThreads); err != nil {
			return err
		}
		p.topo.IncrementOccupancy(puIndex)
		p.overallThreads += numThreads
		return nil
	}

	if p.topo.OccupancyCount(puIndex) != 0 {
		return perr.ErrBadParameter.WithContext("pu", puIndex).
			WithContext("reason", fmt.Sprintf(
				"PU #%d can be assigned only %d threads according to affinity bindings",
				puIndex, p.topo.Occupancy(puIndex)))
	}

	osThreads, err := p.settings.OSThreads()
	if err != nil {
		return err
	}
	if p.overallThreads+numThreads > osThreads {
		return perr.ErrBadParameter.WithContext("requested", p.overallThreads+numThreads).
			WithContext("os_threads", osThreads).
			WithContext("reason", "creation of more threads requested than provided on the command line")
	}

	if err := d.AddResource(puIndex, exclusive, numThreads); err != nil {
		return err
	}
	p.topo.IncrementOccupancy(puIndex)
	p.overallThreads += numThreads
	return nil
}

// SetScheduler overwrites the scheduling policy of an existing pool.
func (p *Partitioner) SetScheduler(policy sched.Policy, poolName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return err
	}
	d.Policy = policy
	return nil
}

// ConfigurePools runs the four-step setup pipeline and freezes the
// layout: assign every still-unclaimed PU to the default pool, resolve
// every Unspecified scheduler to the settings default, rewrite affinity
// data into pool order, then mark the partitioner initialized. Any
// failure aborts before that last step, leaving Initialized false.
func (p *Partitioner) ConfigurePools() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.setupPoolsLocked(); err != nil {
		return err
	}
	if err := p.setupSchedulersLocked(); err != nil {
		return err
	}
	p.reconfigureAffinitiesLocked()

	p.initialized = true
	return nil
}

func (p *Partitioner) setupPoolsLocked() error {
	first := true
	for _, nd := range p.topo.NumaDomains {
		for _, coreIdx := range nd.CoreIndices {
			core := p.topo.Cores[coreIdx]
			for _, puIdx := range core.PUIndices {
				pu := p.topo.PUs[puIdx]
				if pu.OccupancyCount != 0 {
					continue
				}
				exclusive := first || !p.mode.Has(AllowDynamicPools)
				if err := p.addResourceLocked(pu.ID, defaultPoolName, exclusive, 1); err != nil {
					return err
				}
				first = false
			}
		}
	}

	if p.pools[0].NumThreads() == 0 {
		return perr.ErrInvalidStatus.WithContext("pool", defaultPoolName).
			WithContext("reason", "default pool has no threads assigned; rerun with a positive hpx.os_threads")
	}

	for _, d := range p.pools {
		if d.NumThreads() == 0 {
			return perr.ErrInvalidStatus.WithContext("pool", d.Name).
				WithContext("reason", "pools empty of resources are not allowed")
		}
	}
	return nil
}

func (p *Partitioner) setupSchedulersLocked() error {
	def, err := p.settings.SchedulerName()
	if err != nil {
		return err
	}
	for _, d := range p.pools {
		if d.Policy == sched.Unspecified {
			d.Policy = def
		}
	}
	return nil
}

// ReconfigureAffinities rewrites the flat (pu_index, mask) vectors from
// topology order into pool order (default pool first, then creation
// order), as GetPUMask serves post-initialization.
func (p *Partitioner) ReconfigureAffinities() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconfigureAffinitiesLocked()
}

func (p *Partitioner) reconfigureAffinitiesLocked() {
	var puNums []int
	var masks []affinity.Mask

	for _, d := range p.pools {
		masks = append(masks, d.AssignedPUs()...)
		for _, slot := range d.AssignedPUNums() {
			puNums = append(puNums, slot.PUIndex)
		}
	}

	p.affinityPUNums = puNums
	p.affinityMasks = masks
}

// AssignCores shifts every pool's PU bindings by the distance between
// the previously assigned first core and firstCore, measured in PUs,
// and returns the cached total thread count. A no-op beyond the return
// value if firstCore matches the last call's value.
func (p *Partitioner) AssignCores(firstCore int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.firstCore != firstCore {
		offset := firstCore
		numPUsCore := p.pusPerCoreLocked(firstCore)

		if p.firstCore != -1 {
			offset -= p.firstCore
		}

		if offset != 0 {
			offset *= numPUsCore
			for _, d := range p.pools {
				d.AssignFirstCore(offset)
			}
		}
		p.firstCore = firstCore
		p.reconfigureAffinitiesLocked()
	}

	return p.threadsNeededLocked()
}

func (p *Partitioner) pusPerCoreLocked(coreIndex int) int {
	if coreIndex < 0 || coreIndex >= len(p.topo.Cores) {
		return 1
	}
	n := len(p.topo.Cores[coreIndex].PUIndices)
	if n == 0 {
		return 1
	}
	return n
}

func (p *Partitioner) threadsNeededLocked() int {
	if p.pusNeeded == -1 {
		total := 0
		for _, d := range p.pools {
			total += d.NumThreads()
		}
		p.pusNeeded = total
	}
	return p.pusNeeded
}

// ShrinkPool snapshots every non-exclusive, currently assigned slot of
// poolName under the read lock, releases it, then invokes remove once
// per snapshotted slot's virtual-core index — never with the lock held,
// so remove may safely call back into UnassignPU. Returns the number of
// slots removed.
func (p *Partitioner) ShrinkPool(poolName string, remove RemovePUFunc) (int, error) {
	if !p.mode.Has(AllowDynamicPools) {
		return 0, perr.ErrBadParameter.WithContext("pool", poolName).
			WithContext("reason", "dynamic pools have not been enabled for the partitioner")
	}

	p.mu.RLock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		p.mu.RUnlock()
		return 0, err
	}

	pending := queue.New()
	hasNonExclusive := false
	for i := 0; i < d.NumThreads(); i++ {
		if !d.PUIsExclusive(i) {
			hasNonExclusive = true
			if d.PUIsAssigned(i) {
				pending.Add(i)
			}
		}
	}
	p.mu.RUnlock()

	if !hasNonExclusive {
		return 0, perr.ErrBadParameter.WithContext("pool", poolName).
			WithContext("reason", "pool has no non-exclusive pus associated")
	}

	count := pending.Length()
	for pending.Length() > 0 {
		remove(pending.Remove().(int))
	}
	return count, nil
}

// ExpandPool snapshots every non-exclusive, currently unassigned slot of
// poolName under the read lock, releases it, then invokes add once per
// snapshotted slot's virtual-core index — never with the lock held.
// Returns the number of slots added.
func (p *Partitioner) ExpandPool(poolName string, add AddPUFunc) (int, error) {
	if !p.mode.Has(AllowDynamicPools) {
		return 0, perr.ErrBadParameter.WithContext("pool", poolName).
			WithContext("reason", "dynamic pools have not been enabled for the partitioner")
	}

	p.mu.RLock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		p.mu.RUnlock()
		return 0, err
	}

	pending := queue.New()
	hasNonExclusive := false
	for i := 0; i < d.NumThreads(); i++ {
		if !d.PUIsExclusive(i) {
			hasNonExclusive = true
			if !d.PUIsAssigned(i) {
				pending.Add(i)
			}
		}
	}
	p.mu.RUnlock()

	if !hasNonExclusive {
		return 0, perr.ErrBadParameter.WithContext("pool", poolName).
			WithContext("reason", "pool has no non-exclusive pus associated")
	}

	count := pending.Length()
	for pending.Length() > 0 {
		add(pending.Remove().(int))
	}
	return count, nil
}

// AssignPU marks slot virtCore of poolName as hosting a running worker.
func (p *Partitioner) AssignPU(poolName string, virtCore int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return err
	}
	return d.AssignPU(virtCore)
}

// UnassignPU marks slot virtCore of poolName as retired, but only if the
// partitioner lock is immediately available. If it is contended, the
// unassignment is silently skipped — a concurrent reconfiguration is
// assumed to cover it. Preserved verbatim from the original's try_lock
// behavior; whether this masks a latent race or is an intentional
// cooperation mechanism is an open question carried over from the
// original implementation.
func (p *Partitioner) UnassignPU(poolName string, virtCore int) error {
	if !p.mu.TryLock() {
		return nil
	}
	defer p.mu.Unlock()

	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return err
	}
	return d.UnassignPU(virtCore)
}

// GetPoolIndex resolves a pool name to its registry index. "default"
// always resolves to 0 by literal comparison, without consulting the
// registry; every other name is found by a linear scan.
func (p *Partitioner) GetPoolIndex(name string) (int, error) {
	if name == defaultPoolName {
		return 0, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, d := range p.pools {
		if d.Name == name {
			return i, nil
		}
	}
	return 0, perr.ErrInvalidArgument.WithContext("pool", name).
		WithContext("reason", "the resource partitioner does not own a thread pool named this")
}

// GetPoolName returns the display name of the pool at index.
func (p *Partitioner) GetPoolName(index int) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, err := p.getPoolByIndexLocked(index)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// NumPools reports how many pools the partitioner currently owns.
func (p *Partitioner) NumPools() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pools)
}

// GetNumThreads reports poolName's worker-slot count.
func (p *Partitioner) GetNumThreads(poolName string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return 0, err
	}
	return d.NumThreads(), nil
}

// GetNumThreadsTotal sums worker-slot counts across every pool.
func (p *Partitioner) GetNumThreadsTotal() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := 0
	for _, d := range p.pools {
		total += d.NumThreads()
	}
	return total
}

// GetPoolCreator returns the custom scheduler factory registered for
// the pool at index, nil if it was created with a static policy.
func (p *Partitioner) GetPoolCreator(index int) (pool.SchedulerFactory, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, err := p.getPoolByIndexLocked(index)
	if err != nil {
		return nil, err
	}
	return d.CreateFunc, nil
}

// WhichScheduler returns poolName's resolved scheduling policy. It is
// InvalidArgument to call this before ConfigurePools has resolved every
// pool's policy away from Unspecified.
func (p *Partitioner) WhichScheduler(poolName string) (sched.Policy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, err := p.getPoolByNameLocked(poolName)
	if err != nil {
		return sched.Unspecified, err
	}
	if d.Policy == sched.Unspecified {
		return sched.Unspecified, perr.ErrInvalidArgument.WithContext("pool", poolName).
			WithContext("reason", "thread pool cannot be instantiated with unspecified scheduler type")
	}
	return d.Policy, nil
}

// Initialized reports whether ConfigurePools has completed successfully.
func (p *Partitioner) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// GetPUMask returns the affinity mask bound to global worker index
// globalThreadNum, in pool order. Before ConfigurePools succeeds, it
// falls back to a one-hot identity mask on globalThreadNum.
func (p *Partitioner) GetPUMask(globalThreadNum int) affinity.Mask {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.initialized && globalThreadNum >= 0 && globalThreadNum < len(p.affinityMasks) {
		return p.affinityMasks[globalThreadNum]
	}
	return affinity.OneHot(p.topo.TotalPUs, globalThreadNum)
}

// GetPUNum returns the hardware PU index bound to global worker index
// globalThreadNum, in pool order. Before ConfigurePools succeeds, it
// falls back to the identity mapping (globalThreadNum itself).
func (p *Partitioner) GetPUNum(globalThreadNum int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.initialized && globalThreadNum >= 0 && globalThreadNum < len(p.affinityPUNums) {
		return p.affinityPUNums[globalThreadNum]
	}
	return globalThreadNum
}

// GetThreadOccupancy reports the maximum worker count a hardware PU may
// host, as discovered at construction time.
func (p *Partitioner) GetThreadOccupancy(puNum int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.topo.Occupancy(puNum)
}

// PrintInitPoolData writes a human-readable summary of every pool's
// name, scheduler and per-worker affinity masks to w.
func (p *Partitioner) PrintInitPoolData(w io.Writer) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fmt.Fprintf(w, "the resource partitioner owns %d pool(s):\n", len(p.pools))
	for _, d := range p.pools {
		d.PrintPool(w)
	}
}
