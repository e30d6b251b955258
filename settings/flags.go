// File: settings/flags.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A minimal adapter from stdlib flag.FlagSet to Settings, for callers
// that want the three partitioner-relevant keys settable from the
// command line. This is not a general command-line parser — that
// remains an external collaborator per spec.md's scope.
package settings

import "flag"

// RegisterFlags adds --hpx-os-threads, --hpx-scheduler and
// --hpx-default-scheduler-mode to fs, and returns a function the
// caller must invoke after fs.Parse to copy every flag holding a
// non-zero (for the scheduler name: non-empty) value into s.
func RegisterFlags(fs *flag.FlagSet, s *Settings) (apply func()) {
	osThreads := fs.Int("hpx-os-threads", 0, "target worker thread count (0 = use runtime.NumCPU())")
	scheduler := fs.String("hpx-scheduler", "", "default scheduler policy name")
	mode := fs.Int("hpx-default-scheduler-mode", 0, "default scheduler mode bitmask")

	return func() {
		if *osThreads > 0 {
			s.Set(KeyOSThreads, *osThreads)
		}
		if *scheduler != "" {
			s.Set(KeyScheduler, *scheduler)
		}
		if *mode != 0 {
			s.Set(KeyDefaultSchedulerMode, *mode)
		}
	}
}
