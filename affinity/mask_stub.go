//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/mask_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without a known way to query process affinity:
// report every PU as usable, matching the topology model's rule that an
// unrestricted process exposes its entire PU set.

package affinity

// CurrentProcessMask returns a mask with every one of the n PU indices
// set, since this platform offers no affinity query.
func CurrentProcessMask(n int) Mask {
	m := New(n)
	for i := 0; i < n; i++ {
		m.Set(i)
	}
	return m
}
