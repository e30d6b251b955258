//go:build windows
// +build windows

// File: affinity/mask_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific way of reading the calling process's currently usable
// PUs. Ported from the teacher's SetThreadAffinityMask-via-kernel32
// approach, swapped for the read-only GetProcessAffinityMask query since
// this module only ever needs to know which PUs are available, not to
// pin a thread itself.

package affinity

import (
	"syscall"
	"unsafe"
)

// CurrentProcessMask returns the set of PUs the calling process is
// currently allowed to run on, sized to n PU indices.
func CurrentProcessMask(n int) Mask {
	m := New(n)
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentProcess := kernel32.NewProc("GetCurrentProcess")
	procGetProcessAffinityMask := kernel32.NewProc("GetProcessAffinityMask")

	hProcess, _, _ := procGetCurrentProcess.Call()
	var processMask, systemMask uintptr
	ret, _, _ := procGetProcessAffinityMask.Call(
		hProcess,
		uintptr(unsafe.Pointer(&processMask)),
		uintptr(unsafe.Pointer(&systemMask)),
	)
	if ret == 0 {
		for i := 0; i < n; i++ {
			m.Set(i)
		}
		return m
	}
	for i := 0; i < n && i < 64; i++ {
		if processMask&(1<<uint(i)) != 0 {
			m.Set(i)
		}
	}
	return m
}
