// File: affinity/mask_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package affinity

import "testing"

func TestMaskSetClearTest(t *testing.T) {
	m := New(8)
	if m.Test(3) {
		t.Errorf("expected bit 3 clear on a fresh mask")
	}
	m.Set(3)
	if !m.Test(3) {
		t.Errorf("expected bit 3 set after Set")
	}
	m.Clear(3)
	if m.Test(3) {
		t.Errorf("expected bit 3 clear after Clear")
	}
}

func TestMaskOutOfRangeIsNoOp(t *testing.T) {
	m := New(4)
	m.Set(100)
	if m.Any() {
		t.Errorf("expected out-of-range Set to be a no-op")
	}
	if m.Test(-1) {
		t.Errorf("expected negative Test to report false")
	}
}

func TestMaskOneHot(t *testing.T) {
	m := OneHot(8, 5)
	for i := 0; i < 8; i++ {
		want := i == 5
		if got := m.Test(i); got != want {
			t.Errorf("bit %d: got %v, want %v", i, got, want)
		}
	}
}

func TestMaskAnd(t *testing.T) {
	a := OneHot(8, 2)
	b := New(8)
	b.Set(2)
	b.Set(3)
	c := a.And(b)
	if !c.Test(2) || c.Test(3) {
		t.Errorf("expected And to keep only the shared bit 2")
	}
}

func TestMaskAndPanicsOnMismatchedCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected And to panic on mismatched capacity")
		}
	}()
	a := New(4)
	b := New(8)
	a.And(b)
}

func TestMaskCloneIsIndependent(t *testing.T) {
	a := New(4)
	a.Set(1)
	b := a.Clone()
	b.Set(2)
	if a.Test(2) {
		t.Errorf("expected Clone to be independent of the original")
	}
}

func TestMaskString(t *testing.T) {
	m := New(8)
	m.Set(0)
	m.Set(2)
	m.Set(3)
	if got, want := m.String(), "{0,2,3}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestMaskReset(t *testing.T) {
	m := New(8)
	m.Set(1)
	m.Set(5)
	m.Reset()
	if m.Any() {
		t.Errorf("expected Reset to clear every bit")
	}
}
