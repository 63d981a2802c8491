package model

import "testing"

func TestStepMapMapResult(t *testing.T) {
	m := NewStepMap(3, 2, 0)
	tests := []struct {
		pos     int
		assoc   int
		want    int
		deleted bool
	}{
		{2, 1, 2, false},
		{3, 1, 3, false},
		{4, 1, 3, true},
		{4, -1, 3, true},
		{5, -1, 3, false},
		{7, 1, 5, false},
	}
	for _, tt := range tests {
		got := m.MapResult(tt.pos, tt.assoc)
		if got.Pos != tt.want || got.Deleted != tt.deleted {
			t.Errorf("MapResult(%d, %d) = %+v, want {%d %v}", tt.pos, tt.assoc, got, tt.want, tt.deleted)
		}
	}
}

func TestStepMapInsertionAssoc(t *testing.T) {
	m := NewStepMap(0, 0, 1, 7, 0, 1)
	tests := []struct {
		pos, assoc, want int
	}{
		{0, -1, 0},
		{0, 1, 1},
		{3, 1, 4},
		{7, -1, 8},
		{7, 1, 9},
		{10, 1, 12},
	}
	for _, tt := range tests {
		if got := m.Map(tt.pos, tt.assoc); got != tt.want {
			t.Errorf("Map(%d, %d) = %d, want %d", tt.pos, tt.assoc, got, tt.want)
		}
	}
}

func TestStepMapInvert(t *testing.T) {
	m := NewStepMap(2, 0, 3, 10, 4, 1)
	inv := m.Invert()
	for _, pos := range []int{0, 1, 2, 9, 15, 20} {
		fwd := m.Map(pos, 1)
		if back := inv.Map(fwd, 1); back != pos {
			t.Errorf("pos %d -> %d -> %d", pos, fwd, back)
		}
	}
}

func TestMappingChains(t *testing.T) {
	mp := NewMapping(NewStepMap(1, 0, 2), NewStepMap(5, 3, 0))
	if mp.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", mp.Len())
	}
	// 4 -> 6 (insert 2 at 1) -> inside deleted 5..8 -> 5.
	r := mp.MapResult(4, 1)
	if r.Pos != 5 || !r.Deleted {
		t.Errorf("MapResult(4) = %+v, want {5 true}", r)
	}
	if got := mp.Map(10, 1); got != 9 {
		t.Errorf("Map(10) = %d, want 9", got)
	}
	inv := mp.Invert()
	if got := inv.Map(9, 1); got != 10 {
		t.Errorf("inverse Map(9) = %d, want 10", got)
	}
	if got := mp.Slice(1, 2).Map(10, 1); got != 7 {
		t.Errorf("Slice(1,2).Map(10) = %d, want 7", got)
	}
	var nilMapping *Mapping
	if got := nilMapping.Map(3, 1); got != 3 {
		t.Errorf("nil mapping Map(3) = %d", got)
	}
}

func TestIdentityMap(t *testing.T) {
	if got := IdentityMap.Map(42, -1); got != 42 {
		t.Errorf("IdentityMap.Map(42) = %d", got)
	}
	if got := NewStepMap(4, 0, 0).String(); got != "StepMap[]" {
		t.Errorf("empty triple kept: %s", got)
	}
}
