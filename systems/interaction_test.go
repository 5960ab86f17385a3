package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/cellarena/components"
)

func TestAbsorbLargerEatsSmaller(t *testing.T) {
	a := newTestArena(t, testConfig())
	player := a.spawn(components.KindControlled, 500, 500, 100, 1)
	ai := a.spawnAI(500, 500, 50, 2, neutral)
	a.rebuild()

	sys := NewInteractionSystem(a.world, a.cfg, a.rng)
	res := sys.Update(a.roster, a.grid)

	pb := a.bodies.Get(player)
	if pb.Mass != 150 {
		t.Errorf("predator mass = %v, want 150", pb.Mass)
	}
	if pb.Radius != Radius(150, a.cfg.Mass.RadiusFactor) {
		t.Errorf("predator radius = %v, want %v", pb.Radius, Radius(150, a.cfg.Mass.RadiusFactor))
	}
	if a.bodies.Get(ai).Alive {
		t.Error("prey still alive")
	}
	if len(res.Absorptions) != 1 || len(res.Removed) != 1 || res.Removed[0] != ai {
		t.Fatalf("absorptions = %d removed = %v, want one absorption of the prey", len(res.Absorptions), res.Removed)
	}
	ev := res.Absorptions[0]
	if ev.PredatorKind != components.KindControlled || ev.PreyKind != components.KindAutonomous || ev.PreyMass != 50 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestAbsorbDominanceBoundary(t *testing.T) {
	tests := []struct {
		name     string
		predator float64
		prey     float64
		wantEat  bool
	}{
		{"exactly at ratio", 125, 100, false},
		{"just above ratio", 125.5, 100, true},
		{"equal masses", 100, 100, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Mass.DominanceRatio = 1.25
			a := newTestArena(t, cfg)
			pred := a.spawnAI(800, 800, tc.predator, 1, neutral)
			prey := a.spawnAI(800, 800, tc.prey, 2, neutral)
			a.rebuild()

			NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

			if eaten := !a.bodies.Get(prey).Alive; eaten != tc.wantEat {
				t.Errorf("prey eaten = %v, want %v", eaten, tc.wantEat)
			}
			want := tc.predator
			if tc.wantEat {
				want += tc.prey
			}
			if got := a.bodies.Get(pred).Mass; got != want {
				t.Errorf("predator mass = %v, want %v", got, want)
			}
		})
	}
}

func TestAbsorbRequiresEatRange(t *testing.T) {
	a := newTestArena(t, testConfig())
	pred := a.spawn(components.KindControlled, 500, 500, 100, 1)
	// Predator radius 40, eat range 32
	food := a.spawn(components.KindFood, 535, 500, 1, 0)
	a.rebuild()

	NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if !a.bodies.Get(food).Alive {
		t.Error("food outside eat range was absorbed")
	}
	if a.bodies.Get(pred).Mass != 100 {
		t.Errorf("predator mass = %v, want 100", a.bodies.Get(pred).Mass)
	}
}

func TestAbsorbUsesClassEfficiency(t *testing.T) {
	a := newTestArena(t, testConfig())
	pred := a.spawn(components.KindControlled, 500, 500, 100, 1)
	a.profs.Get(pred).Absorption = 1.5
	a.spawn(components.KindFood, 500, 500, 10, 0)
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if got := a.bodies.Get(pred).Mass; got != 115 {
		t.Errorf("predator mass = %v, want 115", got)
	}
	if res.FoodEaten != 1 {
		t.Errorf("FoodEaten = %d, want 1", res.FoodEaten)
	}
}

func TestProtectedSiblingsSurvive(t *testing.T) {
	a := newTestArena(t, testConfig())
	f1 := a.spawn(components.KindControlled, 500, 500, 40, 1)
	f2 := a.spawn(components.KindControlled, 505, 500, 20, 1)
	a.timers.Get(f1).MergeProtection = 100
	a.timers.Get(f2).MergeProtection = 100
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if !a.bodies.Get(f1).Alive || !a.bodies.Get(f2).Alive {
		t.Fatal("protected sibling removed")
	}
	if res.Merges != 0 || len(res.Absorptions) != 0 {
		t.Errorf("merges = %d absorptions = %d, want none", res.Merges, len(res.Absorptions))
	}
	p1, p2 := a.pos.Get(f1), a.pos.Get(f2)
	if d := math.Hypot(p2.X-p1.X, p2.Y-p1.Y); d <= 5 {
		t.Errorf("siblings not pushed apart, distance %v", d)
	}
	// Lighter fragment moves further
	if 500-p1.X >= p2.X-505 {
		t.Errorf("push not split inversely by mass: heavy moved %v, light moved %v", 500-p1.X, p2.X-505)
	}
}

func TestUnprotectedSiblingsMerge(t *testing.T) {
	a := newTestArena(t, testConfig())
	f1 := a.spawn(components.KindControlled, 500, 500, 20, 1)
	f2 := a.spawn(components.KindControlled, 505, 500, 40, 1)
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if res.Merges != 1 {
		t.Fatalf("Merges = %d, want 1", res.Merges)
	}
	if a.bodies.Get(f1).Alive {
		t.Error("lighter fragment should be absorbed by the heavier one")
	}
	if got := a.bodies.Get(f2).Mass; got != 60 {
		t.Errorf("merged mass = %v, want 60", got)
	}
	if len(res.Absorptions) != 0 {
		t.Errorf("merge reported as absorption")
	}
}

func TestEjectedSpawnProtection(t *testing.T) {
	tests := []struct {
		name       string
		group      uint32
		protection int32
		wantEaten  bool
	}{
		{"own shot protected", 1, 5, false},
		{"own shot expired", 1, 0, true},
		{"foreign shot protected", 2, 5, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestArena(t, testConfig())
			a.spawn(components.KindControlled, 500, 500, 100, 1)
			shot := a.spawn(components.KindEjected, 500, 500, 12, components.GroupID(tc.group))
			a.timers.Get(shot).SpawnProtection = tc.protection
			a.rebuild()

			NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

			if eaten := !a.bodies.Get(shot).Alive; eaten != tc.wantEaten {
				t.Errorf("shot eaten = %v, want %v", eaten, tc.wantEaten)
			}
		})
	}
}

func TestVirusNotEdible(t *testing.T) {
	a := newTestArena(t, testConfig())
	ai := a.spawnAI(500, 500, 500, 1, neutral)
	virus := a.spawn(components.KindVirus, 500, 500, 100, 0)
	a.rebuild()

	NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if !a.bodies.Get(virus).Alive {
		t.Error("autonomous cell consumed a virus")
	}
	if a.bodies.Get(ai).Mass != 500 {
		t.Errorf("autonomous mass = %v, want 500", a.bodies.Get(ai).Mass)
	}
}

func TestVirusBurstShattersCell(t *testing.T) {
	a := newTestArena(t, testConfig())
	cell := a.spawn(components.KindControlled, 1000, 1000, 300, 1)
	virus := a.spawn(components.KindVirus, 1000, 1000, 100, 0)
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if a.bodies.Get(virus).Alive || res.VirusPops != 1 {
		t.Fatalf("virus alive = %v pops = %d, want popped", a.bodies.Get(virus).Alive, res.VirusPops)
	}
	// 400 mass over min(8, 16, 40) pieces
	wantPieces := 8
	if len(res.Spawns) != wantPieces-1 {
		t.Fatalf("spawns = %d, want %d", len(res.Spawns), wantPieces-1)
	}
	total := a.bodies.Get(cell).Mass
	for _, sp := range res.Spawns {
		if sp.Kind != components.KindControlled || sp.Group != 1 {
			t.Errorf("spawn %+v is not a fragment of group 1", sp)
		}
		if sp.MergeProtection != a.cfg.Player.MergeProtectionTicks {
			t.Errorf("spawn merge protection = %d, want %d", sp.MergeProtection, a.cfg.Player.MergeProtectionTicks)
		}
		total += sp.Mass
	}
	if math.Abs(total-400) > 1e-9 {
		t.Errorf("total mass after burst = %v, want 400", total)
	}
	if a.timers.Get(cell).MergeProtection == 0 {
		t.Error("burst cell has no merge protection")
	}
}

func TestVirusTouchOutsideEatRangeDoesNotBurst(t *testing.T) {
	a := newTestArena(t, testConfig())
	// r=69.3 and r=40 overlap at d=100, but the eat range is 69.3*0.8=55.4
	cell := a.spawn(components.KindControlled, 1000, 1000, 300, 1)
	virus := a.spawn(components.KindVirus, 1100, 1000, 100, 0)
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if !a.bodies.Get(virus).Alive || res.VirusPops != 0 {
		t.Errorf("virus alive = %v pops = %d, want untouched", a.bodies.Get(virus).Alive, res.VirusPops)
	}
	if len(res.Spawns) != 0 {
		t.Errorf("spawns = %d, want 0", len(res.Spawns))
	}
	if got := a.bodies.Get(cell).Mass; got != 300 {
		t.Errorf("cell mass = %v, want 300", got)
	}
}

func TestBurstPieces(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name      string
		mass      float64
		groupSize int
		want      int
	}{
		{"virus cap", 1000, 1, cfg.Virus.MaxFragments},
		{"fragment cap", 1000, cfg.Player.MaxFragments - 2, 3},
		{"mass cap", 35, 1, 3},
		{"full group", 1000, cfg.Player.MaxFragments, 1},
	}
	for _, tc := range tests {
		if got := BurstPieces(tc.mass, tc.groupSize, cfg); got != tc.want {
			t.Errorf("%s: BurstPieces = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestVirusFedPastSplitMassReproduces(t *testing.T) {
	a := newTestArena(t, testConfig())
	virus := a.spawn(components.KindVirus, 1000, 1000, 175, 0)
	shot := a.spawn(components.KindEjected, 1030, 1000, 12, 1)
	a.vel.Get(shot).X = -200
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if a.bodies.Get(shot).Alive {
		t.Error("shot not absorbed by virus")
	}
	if got := a.bodies.Get(virus).Mass; got != a.cfg.Virus.Mass {
		t.Errorf("virus mass = %v, want reset to %v", got, a.cfg.Virus.Mass)
	}
	if res.VirusBirths != 1 || len(res.Spawns) != 1 {
		t.Fatalf("births = %d spawns = %d, want 1", res.VirusBirths, len(res.Spawns))
	}
	sp := res.Spawns[0]
	if sp.Kind != components.KindVirus || sp.X >= 1000 || sp.VX >= 0 {
		t.Errorf("newborn virus %+v not launched along the shot heading", sp)
	}
}

func TestVirusFedBelowSplitMassGrows(t *testing.T) {
	a := newTestArena(t, testConfig())
	virus := a.spawn(components.KindVirus, 1000, 1000, 100, 0)
	a.spawn(components.KindEjected, 1010, 1000, 12, 1)
	a.rebuild()

	res := NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if got := a.bodies.Get(virus).Mass; got != 112 {
		t.Errorf("virus mass = %v, want 112", got)
	}
	if res.VirusFed != 1 || res.VirusBirths != 0 {
		t.Errorf("fed = %d births = %d, want 1/0", res.VirusFed, res.VirusBirths)
	}
}

func TestRemovedEntitySkippedAsPredator(t *testing.T) {
	a := newTestArena(t, testConfig())
	// big eats mid first (lower serial), so mid cannot eat small afterwards
	big := a.spawnAI(600, 600, 400, 1, neutral)
	mid := a.spawnAI(600, 600, 100, 2, neutral)
	small := a.spawnAI(600, 600, 10, 3, neutral)
	a.rebuild()

	NewInteractionSystem(a.world, a.cfg, a.rng).Update(a.roster, a.grid)

	if a.bodies.Get(mid).Alive {
		t.Error("mid should be eaten")
	}
	if a.bodies.Get(small).Alive {
		t.Error("small should be eaten by big")
	}
	if got := a.bodies.Get(big).Mass; got != 510 {
		t.Errorf("big mass = %v, want 510", got)
	}
}
