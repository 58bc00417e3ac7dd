package osmstore

import "testing"

func TestUsedWaysWithinCapacity(t *testing.T) {
	u := NewUsedWays(1000)
	u.Mark(42)
	if !u.Used(42) {
		t.Error("Used(42) = false after Mark(42)")
	}
	if u.Used(43) {
		t.Error("Used(43) = true without ever marking it")
	}
}

func TestUsedWaysOverflowBeyondCapacity(t *testing.T) {
	u := NewUsedWays(10)
	u.Mark(9999999)
	if !u.Used(9999999) {
		t.Error("Used() = false for an id handled by the overflow map")
	}
}

func TestUsedWaysClear(t *testing.T) {
	u := NewUsedWays(100)
	u.Mark(5)
	u.Mark(99999)
	u.Clear()
	if u.Used(5) || u.Used(99999) {
		t.Error("Clear() did not reset marked ids")
	}
}
