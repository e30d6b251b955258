// File: settings/settings.go
// Package settings reads the partitioner's few configuration keys
// (hpx.os_threads, hpx.scheduler, hpx.default_scheduler_mode) from a
// control.ConfigStore-backed key/value store, applying compile-time
// defaults when a key is absent.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package settings

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/momentics/respartition/control"
	"github.com/momentics/respartition/perr"
	"github.com/momentics/respartition/sched"
)

const (
	KeyOSThreads            = "hpx.os_threads"
	KeyScheduler            = "hpx.scheduler"
	KeyDefaultSchedulerMode = "hpx.default_scheduler_mode"
)

// defaultSchedulerName is the compile-time fallback used when
// hpx.scheduler is absent, matching the scheduler HPX applications get
// without an explicit --hpx:queuing override.
const defaultSchedulerName = "local-priority-fifo"

// Settings is a thin typed view over a control.ConfigStore, exposing
// exactly the keys the partitioner's setup pipeline needs.
type Settings struct {
	store *control.ConfigStore
}

// New creates an empty Settings, backed by a fresh ConfigStore.
func New() *Settings {
	return &Settings{store: control.NewConfigStore()}
}

// FromStore adapts an already-populated ConfigStore, letting callers
// share one store (and its OnReload listeners) across multiple
// consumers.
func FromStore(store *control.ConfigStore) *Settings {
	return &Settings{store: store}
}

// Set assigns a raw key/value pair, as a command-line or config-file
// parser would.
func (s *Settings) Set(key string, value any) {
	s.store.SetConfig(map[string]any{key: value})
}

// OnReload registers fn to run whenever the underlying store changes,
// letting a caller re-validate a not-yet-configured partitioner after
// changing hpx.os_threads between runs.
func (s *Settings) OnReload(fn func()) {
	s.store.OnReload(fn)
}

func (s *Settings) raw(key string) (any, bool) {
	snap := s.store.GetSnapshot()
	v, ok := snap[key]
	return v, ok
}

// OSThreads returns hpx.os_threads, defaulting to runtime.NumCPU() when
// absent. A present-but-non-positive value is a BadParameter.
func (s *Settings) OSThreads() (int, error) {
	v, ok := s.raw(KeyOSThreads)
	if !ok {
		return runtime.NumCPU(), nil
	}
	n, err := toInt(v)
	if err != nil || n <= 0 {
		return 0, perr.ErrBadParameter.WithContext("key", KeyOSThreads).
			WithContext("value", v).
			WithContext("reason", "hpx.os_threads must be a positive integer")
	}
	return n, nil
}

// SchedulerName returns the default scheduler policy selected by
// hpx.scheduler, resolved via sched.ParsePrefix, defaulting to
// defaultSchedulerName when the key is absent. An unrecognized name is
// a CommandLineError, matching setup_schedulers's behavior exactly.
func (s *Settings) SchedulerName() (sched.Policy, error) {
	name := defaultSchedulerName
	if v, ok := s.raw(KeyScheduler); ok {
		str, ok := v.(string)
		if !ok {
			return sched.Unspecified, perr.ErrCommandLineError.WithContext("key", KeyScheduler).
				WithContext("value", v)
		}
		name = str
	}
	policy, ok := sched.ParsePrefix(name)
	if !ok {
		return sched.Unspecified, perr.ErrCommandLineError.WithContext("key", KeyScheduler).
			WithContext("value", name).
			WithContext("reason", "bad value for --hpx:queuing")
	}
	return policy, nil
}

// DefaultSchedulerMode returns hpx.default_scheduler_mode, defaulting
// to sched.ModeDefault when absent. A value setting any bit outside
// sched.AllModes is a BadParameter.
func (s *Settings) DefaultSchedulerMode() (sched.Mode, error) {
	v, ok := s.raw(KeyDefaultSchedulerMode)
	if !ok {
		return sched.ModeDefault, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, perr.ErrBadParameter.WithContext("key", KeyDefaultSchedulerMode).
			WithContext("value", v)
	}
	mode := sched.Mode(n)
	if mode&^sched.AllModes != 0 {
		return 0, perr.ErrBadParameter.WithContext("key", KeyDefaultSchedulerMode).
			WithContext("value", v).
			WithContext("reason", "hpx.default_scheduler_mode contains unknown scheduler modes")
	}
	return mode, nil
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	default:
		return 0, fmt.Errorf("settings: cannot convert %T to int", v)
	}
}
