package game

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/systems"
)

func spawnReq(kind components.Kind, group components.GroupID) systems.Spawn {
	return systems.Spawn{
		Kind:    kind,
		Group:   group,
		X:       10,
		Y:       20,
		VX:      5,
		VY:      -5,
		Mass:    12,
		Profile: components.NeutralProfile(),
	}
}

func TestStoreSpawnAssignsSerialsInOrder(t *testing.T) {
	s := NewStore(testConfig())
	g := s.NewGroup()

	a := s.Spawn(spawnReq(components.KindFood, 0))
	b := s.Spawn(spawnReq(components.KindControlled, g))
	c := s.Spawn(spawnReq(components.KindControlled, g))

	live := s.Live()
	if len(live) != 3 || live[0] != a || live[1] != b || live[2] != c {
		t.Fatalf("live = %v, want [a b c]", live)
	}
	if sa, sc := s.Body(a).Serial, s.Body(c).Serial; sa >= sc {
		t.Errorf("serials not ascending: %d >= %d", sa, sc)
	}
	if got := s.Members(g); len(got) != 2 {
		t.Errorf("members = %d, want 2", len(got))
	}
	if groups := s.Groups(); len(groups) != 1 || groups[0] != g {
		t.Errorf("groups = %v, want [%d]", groups, g)
	}
	if s.Count(components.KindControlled) != 2 || s.Count(components.KindFood) != 1 {
		t.Errorf("counts wrong: controlled=%d food=%d", s.Count(components.KindControlled), s.Count(components.KindFood))
	}
	if r := s.Body(a).Radius; r != systems.Radius(12, s.cfg.Mass.RadiusFactor) {
		t.Errorf("radius = %v, want radius of mass 12", r)
	}
}

func TestStoreEjectedTimers(t *testing.T) {
	s := NewStore(testConfig())
	e := s.Spawn(spawnReq(components.KindEjected, 0))
	tim := s.Timers(e)
	if tim.TTL != s.cfg.Ejected.TTLTicks || tim.SpawnProtection != s.cfg.Ejected.SpawnProtectionTicks {
		t.Errorf("timers = %+v", *tim)
	}
}

func TestStoreCommit(t *testing.T) {
	s := NewStore(testConfig())
	g := s.NewGroup()

	food := s.Spawn(spawnReq(components.KindFood, 0))
	virus := s.Spawn(spawnReq(components.KindVirus, 0))
	frag := s.Spawn(spawnReq(components.KindControlled, g))
	keep := s.Spawn(spawnReq(components.KindFood, 0))

	s.Body(food).Alive = false
	s.Body(virus).Alive = false
	s.Body(frag).Alive = false

	// Duplicates are dropped once
	removals := s.Commit([]ecs.Entity{food, virus, food, frag, virus})
	if len(removals) != 3 {
		t.Fatalf("removals = %d, want 3", len(removals))
	}
	if removals[2].Kind != components.KindControlled || removals[2].Group != g {
		t.Errorf("removal = %+v, want controlled of group %d", removals[2], g)
	}

	if live := s.Live(); len(live) != 1 || live[0] != keep {
		t.Errorf("live = %v, want [keep]", live)
	}
	if len(s.Groups()) != 0 || len(s.Members(g)) != 0 {
		t.Errorf("empty group still indexed: %v", s.Groups())
	}
	if s.World().Alive(virus) {
		t.Error("virus still in world")
	}
	if !s.World().Alive(food) {
		t.Error("pooled food left the world")
	}
	if s.Pool(components.KindFood).Free() != 1 {
		t.Errorf("food pool free = %d, want 1", s.Pool(components.KindFood).Free())
	}
	if s.Count(components.KindFood) != 1 || s.Count(components.KindVirus) != 0 {
		t.Errorf("counts: food=%d virus=%d", s.Count(components.KindFood), s.Count(components.KindVirus))
	}
}

func TestPoolReuseResetsState(t *testing.T) {
	s := NewStore(testConfig())
	g := s.NewGroup()

	e := s.Spawn(spawnReq(components.KindEjected, g))
	old := s.Body(e).Serial
	s.Body(e).Alive = false
	s.Commit([]ecs.Entity{e})

	// Released state is fully zeroed
	if b := s.Body(e); b.Serial != 0 || b.Mass != 0 || s.Owner(e) != 0 || s.Velocity(e).X != 0 {
		t.Errorf("released entity not reset: body=%+v owner=%d", *b, s.Owner(e))
	}

	sp := spawnReq(components.KindEjected, 0)
	sp.VX, sp.VY = 0, 0
	reused := s.Spawn(sp)
	if reused != e {
		t.Fatalf("pool did not reuse the released entity")
	}
	if s.Pool(components.KindEjected).Created() != 1 {
		t.Errorf("created = %d, want 1", s.Pool(components.KindEjected).Created())
	}
	if b := s.Body(reused); b.Serial == old || !b.Alive {
		t.Errorf("reused body = %+v, want fresh serial", *b)
	}
	if s.Owner(reused) != 0 {
		t.Errorf("stale owner %d carried into new entity", s.Owner(reused))
	}
	if v := s.Velocity(reused); v.X != 0 || v.Y != 0 {
		t.Errorf("stale velocity %+v carried into new entity", *v)
	}
}

func TestPoolDoubleReleasePanics(t *testing.T) {
	s := NewStore(testConfig())
	e := s.Spawn(spawnReq(components.KindFood, 0))
	pool := s.Pool(components.KindFood)
	pool.Release(e)

	defer func() {
		if recover() == nil {
			t.Error("double release did not panic")
		}
	}()
	pool.Release(e)
}

func TestStoreUnpooledKinds(t *testing.T) {
	s := NewStore(testConfig())
	for _, k := range []components.Kind{components.KindControlled, components.KindAutonomous, components.KindVirus} {
		if s.Pool(k) != nil {
			t.Errorf("%v has a pool", k)
		}
	}
}
