//go:build linux
// +build linux

// File: affinity/mask_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific way of reading the calling process's currently usable PUs,
// used by the topology package's default discoverer to compute each PU's
// used-PUs mask. Ported from the teacher's cgo pthread_setaffinity_np
// approach to the pure-Go golang.org/x/sys/unix syscall wrapper, which
// needs no C toolchain and reports the same information.

package affinity

import "golang.org/x/sys/unix"

// CurrentProcessMask returns the set of PUs the calling process is
// currently allowed to run on, sized to n PU indices. Indices at or
// beyond unix.CPUSet's own capacity are left clear.
func CurrentProcessMask(n int) Mask {
	m := New(n)
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		// Fall back to "every PU usable" so the caller never ends up with
		// an unusably empty mask because of a transient syscall failure.
		for i := 0; i < n; i++ {
			m.Set(i)
		}
		return m
	}
	for i := 0; i < n; i++ {
		if set.IsSet(i) {
			m.Set(i)
		}
	}
	return m
}

// ToCPUSet converts m into a unix.CPUSet suitable for
// unix.SchedSetaffinity, for callers (the executor, not this module) that
// actually pin an OS thread using the mask this module computed.
func (m Mask) ToCPUSet() unix.CPUSet {
	var set unix.CPUSet
	for i := 0; i < m.n; i++ {
		if m.Test(i) {
			set.Set(i)
		}
	}
	return set
}

// FromCPUSet builds a Mask of capacity n from a unix.CPUSet.
func FromCPUSet(n int, set unix.CPUSet) Mask {
	m := New(n)
	for i := 0; i < n; i++ {
		if set.IsSet(i) {
			m.Set(i)
		}
	}
	return m
}
