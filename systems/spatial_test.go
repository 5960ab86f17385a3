package systems

import (
	"slices"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
)

func newGridEntities(n int) []ecs.Entity {
	w := ecs.NewWorld()
	m := ecs.NewMap1[components.Position](w)
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = m.NewEntity(&components.Position{})
	}
	return out
}

func TestSpatialGridQuerySuperset(t *testing.T) {
	grid := NewSpatialGrid(1000, 1000, 100, 8)
	es := newGridEntities(4)

	grid.Insert(es[0], 500, 500)
	grid.Insert(es[1], 540, 520) // same cell
	grid.Insert(es[2], 690, 500) // two cells away
	grid.Insert(es[3], 950, 950) // far corner

	got := grid.QueryInto(nil, 500, 500, 150)
	for _, want := range es[:3] {
		if !slices.Contains(got, want) {
			t.Errorf("query missing entity %v", want)
		}
	}
	if slices.Contains(got, es[3]) {
		t.Errorf("query returned far entity %v", es[3])
	}
}

func TestSpatialGridZeroRadiusUsesMargin(t *testing.T) {
	grid := NewSpatialGrid(1000, 1000, 100, 8)
	es := newGridEntities(2)
	grid.Insert(es[0], 150, 150)
	grid.Insert(es[1], 250, 250) // adjacent cell

	got := grid.QueryInto(nil, 150, 150, 0)
	if !slices.Contains(got, es[1]) {
		t.Error("adjacent cell not scanned with zero radius")
	}
}

func TestSpatialGridOverflow(t *testing.T) {
	grid := NewSpatialGrid(1000, 1000, 100, 2)
	es := newGridEntities(3)

	for i, e := range es {
		ok := grid.Insert(e, 50, 50)
		if want := i < 2; ok != want {
			t.Errorf("Insert #%d = %v, want %v", i, ok, want)
		}
	}
	if grid.Overflow() != 1 {
		t.Errorf("Overflow() = %d, want 1", grid.Overflow())
	}
	if got := grid.QueryInto(nil, 50, 50, 10); len(got) != 2 {
		t.Errorf("query returned %d entities, want 2", len(got))
	}

	grid.Clear()
	if grid.Overflow() != 0 {
		t.Errorf("Overflow() after Clear = %d, want 0", grid.Overflow())
	}
	if got := grid.QueryInto(nil, 50, 50, 10); len(got) != 0 {
		t.Errorf("query after Clear returned %d entities", len(got))
	}
}

func TestSpatialGridClampsOutOfBounds(t *testing.T) {
	grid := NewSpatialGrid(1000, 1000, 100, 4)
	es := newGridEntities(2)

	grid.Insert(es[0], -50, -50)
	grid.Insert(es[1], 5000, 5000)

	if got := grid.QueryInto(nil, 0, 0, 10); !slices.Contains(got, es[0]) {
		t.Error("negative position not clamped into first cell")
	}
	if got := grid.QueryInto(nil, 1000, 1000, 10); !slices.Contains(got, es[1]) {
		t.Error("oversized position not clamped into last cell")
	}
}

func TestSpatialGridReusesBuffer(t *testing.T) {
	grid := NewSpatialGrid(1000, 1000, 100, 4)
	es := newGridEntities(1)
	grid.Insert(es[0], 10, 10)

	buf := make([]ecs.Entity, 0, 16)
	buf = grid.QueryInto(buf[:0], 10, 10, 10)
	buf = grid.QueryInto(buf[:0], 10, 10, 10)
	if len(buf) != 1 {
		t.Errorf("len = %d, want 1", len(buf))
	}
}
