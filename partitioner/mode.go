// File: partitioner/mode.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package partitioner

// Mode is the partitioner-wide bitset of behavior flags, independent of
// any one pool's sched.Mode: it governs what AddResource, ShrinkPool and
// ExpandPool are allowed to do, not how a scheduler itself behaves.
type Mode uint32

const (
	AllowDynamicPools Mode = 1 << iota
	AllowOversubscription
)

const ModeDefault Mode = 0

// Has reports whether m has every bit of flag set.
func (m Mode) Has(flag Mode) bool { return m&flag == flag }
