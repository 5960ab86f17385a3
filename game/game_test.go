package game

import (
	"errors"
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
	"github.com/pthm-cable/cellarena/systems"
)

// testConfig returns a small empty arena without passive mass effects.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Width = 1000
	cfg.World.Height = 1000
	cfg.Food.Count = 0
	cfg.Virus.Count = 0
	cfg.AI.Count = 0
	cfg.Biomes = nil
	cfg.Mass.DecayRate = 0
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config) *Game {
	t.Helper()
	g, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

// playerFragment returns the player's first fragment placed at (x, y) with the given mass.
func playerFragment(g *Game, x, y, mass float64) ecs.Entity {
	e := g.store.Members(g.player.Group)[0]
	pos := g.store.Position(e)
	pos.X, pos.Y = x, y
	systems.SetMass(g.store.Body(e), mass, g.cfg.Mass.RadiusFactor)
	return e
}

func findSerial(g *Game, serial uint64) bool {
	for _, v := range g.Snapshot(nil) {
		if v.ID == serial {
			return true
		}
	}
	return false
}

func TestNewUnknownClass(t *testing.T) {
	_, err := New(testConfig(), Options{PlayerClass: "wizard"})
	if err == nil {
		t.Fatal("expected error for unknown class")
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.DT = 0
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestSplitScenario(t *testing.T) {
	g := newTestGame(t, testConfig())
	parent := playerFragment(g, 500, 500, 40)

	g.Steer(1, 0)
	g.Enqueue(CommandSplit)
	g.Step()

	members := g.store.Members(g.player.Group)
	if len(members) != 2 {
		t.Fatalf("fragments = %d, want 2", len(members))
	}
	for _, e := range members {
		body := g.store.Body(e)
		if math.Abs(body.Mass-20) > 1e-9 {
			t.Errorf("fragment mass = %v, want 20", body.Mass)
		}
		if got := g.store.Timers(e).MergeProtection; got != g.cfg.Player.MergeProtectionTicks {
			t.Errorf("fragment %d merge protection = %d, want %d", body.Serial, got, g.cfg.Player.MergeProtectionTicks)
		}
	}

	child := members[1]
	if members[0] != parent {
		t.Fatalf("parent is not first member")
	}
	if px, cx := g.store.Position(parent).X, g.store.Position(child).X; cx <= px {
		t.Errorf("child x = %v, want > parent x %v", cx, px)
	}
	if dy := g.store.Position(child).Y - g.store.Position(parent).Y; math.Abs(dy) > 1e-6 {
		t.Errorf("child offset dy = %v, want 0", dy)
	}
}

func TestSplitBelowMinimumIsNoop(t *testing.T) {
	g := newTestGame(t, testConfig())
	playerFragment(g, 500, 500, 30)
	before := len(g.store.Live())

	g.Steer(1, 0)
	if n := g.split(); n != 0 {
		t.Errorf("split() = %d, want 0", n)
	}
	if got := len(g.store.Live()); got != before {
		t.Errorf("live entities = %d, want %d", got, before)
	}
	if g.player.splitCooldown != 0 {
		t.Error("no-op split consumed the cooldown")
	}
}

func TestSplitRespectsMaxFragments(t *testing.T) {
	cfg := testConfig()
	cfg.Player.MaxFragments = 3
	cfg.Player.SplitCooldownTicks = 0
	g := newTestGame(t, cfg)
	playerFragment(g, 500, 500, 400)

	g.split()
	g.split()
	g.split()
	if n := len(g.store.Members(g.player.Group)); n != 3 {
		t.Errorf("fragments = %d, want 3", n)
	}
}

func TestEjectedMassTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Ejected.TTLTicks = 20
	g := newTestGame(t, cfg)
	playerFragment(g, 50, 50, 20)

	e := g.store.Spawn(systems.Spawn{
		Kind:    components.KindEjected,
		X:       900,
		Y:       900,
		Mass:    cfg.Player.EjectMass,
		Profile: components.NeutralProfile(),
	})
	serial := g.store.Body(e).Serial

	for i := int32(0); i < cfg.Ejected.TTLTicks-1; i++ {
		g.Step()
	}
	if !findSerial(g, serial) {
		t.Fatalf("ejected mass gone at tick T-1")
	}
	g.Step()
	g.Step()
	if findSerial(g, serial) {
		t.Errorf("ejected mass still present at tick T+1")
	}
	if g.store.Count(components.KindEjected) != 0 {
		t.Errorf("ejected count = %d, want 0", g.store.Count(components.KindEjected))
	}
	if g.store.Pool(components.KindEjected).Free() != 1 {
		t.Errorf("ejected pool free = %d, want 1", g.store.Pool(components.KindEjected).Free())
	}
}

func TestEjectCommandKeepsFullTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Ejected.TTLTicks = 20
	g := newTestGame(t, cfg)
	playerFragment(g, 300, 500, 100)

	g.Steer(1, 0)
	g.Enqueue(CommandEject)
	g.Step()

	var serial uint64
	found := false
	for _, v := range g.Snapshot(nil) {
		if v.Kind == components.KindEjected.String() {
			serial, found = v.ID, true
		}
	}
	if !found {
		t.Fatal("no ejected mass after eject command")
	}

	// The eject tick is relative tick 0
	for i := int32(1); i < cfg.Ejected.TTLTicks; i++ {
		g.Step()
	}
	if !findSerial(g, serial) {
		t.Fatalf("ejected mass gone at relative tick T-1")
	}
	g.Step()
	if findSerial(g, serial) {
		t.Errorf("ejected mass still present at relative tick T")
	}
}

func TestEject(t *testing.T) {
	g := newTestGame(t, testConfig())
	frag := playerFragment(g, 500, 500, 100)

	g.Steer(0, 1)
	g.Enqueue(CommandEject)
	g.Step()

	if got := g.store.Body(frag).Mass; math.Abs(got-(100-g.cfg.Player.EjectCost)) > 1e-9 {
		t.Errorf("emitter mass = %v, want %v", got, 100-g.cfg.Player.EjectCost)
	}
	if g.store.Count(components.KindEjected) != 1 {
		t.Fatalf("ejected count = %d, want 1", g.store.Count(components.KindEjected))
	}
	for _, v := range g.Snapshot(nil) {
		if v.Kind != components.KindEjected.String() {
			continue
		}
		if components.GroupID(v.Group) != g.player.Group {
			t.Errorf("ejected group = %d, want %d", v.Group, g.player.Group)
		}
		if v.Y <= 500 {
			t.Errorf("ejected y = %v, want > 500", v.Y)
		}
	}

	// Cooldown blocks an immediate second eject
	if n := g.eject(); n != 0 {
		t.Errorf("eject() during cooldown = %d, want 0", n)
	}
}

func TestAbilityCooldown(t *testing.T) {
	g := newTestGame(t, testConfig())
	if !g.useAbility() {
		t.Fatal("first useAbility() = false")
	}
	if g.useAbility() {
		t.Error("second useAbility() = true during cooldown")
	}
	if g.player.abilityTicks != g.cfg.Ability.DurationTicks {
		t.Errorf("abilityTicks = %d, want %d", g.player.abilityTicks, g.cfg.Ability.DurationTicks)
	}
}

func TestPlayerEatsFoodAndGainsExperience(t *testing.T) {
	cfg := testConfig()
	cfg.Food.Count = 1
	g := newTestGame(t, cfg)
	frag := playerFragment(g, 500, 500, 20)

	food := g.store.Live()[0]
	if g.store.Body(food).Kind != components.KindFood {
		t.Fatalf("first live entity is %v, want food", g.store.Body(food).Kind)
	}
	fpos := g.store.Position(food)
	fpos.X, fpos.Y = 500, 500

	g.Step()

	if got := g.store.Body(frag).Mass; math.Abs(got-21) > 1e-9 {
		t.Errorf("player mass = %v, want 21", got)
	}
	if got := g.Progress().Experience; got != cfg.Food.Mass*cfg.Progression.XPPerMass {
		t.Errorf("experience = %v, want %v", got, cfg.Food.Mass*cfg.Progression.XPPerMass)
	}
	if got := g.store.Count(components.KindFood); got != 1 {
		t.Errorf("food count = %d, want 1", got)
	}
}

func TestInvariantsOverManyTicks(t *testing.T) {
	cfg := testConfig()
	cfg.Food.Count = 150
	cfg.Virus.Count = 4
	cfg.AI.Count = 12
	cfg.AI.RespawnDelayTicks = 10
	cfg.Biomes = config.Default().Biomes
	g := newTestGame(t, cfg)
	g.Steer(1, 1)

	for tick := 0; tick < 400; tick++ {
		if tick%50 == 0 {
			g.Enqueue(CommandSplit)
			g.Enqueue(CommandEject)
		}
		g.Step()

		if got := g.store.Count(components.KindFood); got != cfg.Food.Count {
			t.Fatalf("tick %d: food count = %d, want %d", tick, got, cfg.Food.Count)
		}

		var food int
		for _, v := range g.Snapshot(nil) {
			if v.Kind == components.KindFood.String() {
				food++
			}
			if v.X < 0 || v.X > cfg.World.Width || v.Y < 0 || v.Y > cfg.World.Height {
				t.Fatalf("tick %d: entity %d out of bounds at (%v, %v)", tick, v.ID, v.X, v.Y)
			}
			if want := systems.Radius(v.Mass, cfg.Mass.RadiusFactor); math.Abs(v.Radius-want) > 1e-9 {
				t.Fatalf("tick %d: entity %d radius %v, want %v", tick, v.ID, v.Radius, want)
			}
			if v.Mass <= 0 {
				t.Fatalf("tick %d: entity %d has mass %v", tick, v.ID, v.Mass)
			}
		}
		if food != cfg.Food.Count {
			t.Fatalf("tick %d: live food = %d, want %d", tick, food, cfg.Food.Count)
		}

		p := g.Progress()
		if p.Experience < 0 || p.Experience >= g.player.progress.Threshold {
			t.Fatalf("tick %d: experience %v outside [0, %v)", tick, p.Experience, g.player.progress.Threshold)
		}
		if g.eliminated {
			break
		}
	}

	if got := g.store.Count(components.KindVirus); got < cfg.Virus.Count {
		t.Errorf("virus count = %d, want >= %d", got, cfg.Virus.Count)
	}
}

func TestEliminationAndRespawn(t *testing.T) {
	g := newTestGame(t, testConfig())
	playerFragment(g, 500, 500, 20)
	oldGroup := g.player.Group

	g.store.SpawnAutonomous(500, 500, 500, g.store.NewGroup(), components.Brain{
		Personality: components.Personality{Aggression: 1, RiskAversion: 1, FleeRatio: 1.1},
		Cooldown:    1000,
	})

	err := g.Frame(g.cfg.Derived.Step)
	if !errors.Is(err, ErrEliminated) {
		t.Fatalf("Frame() = %v, want ErrEliminated", err)
	}
	if !g.Eliminated() {
		t.Fatal("Eliminated() = false")
	}
	if p := g.Progress(); p.Fragments != 0 || !p.Eliminated {
		t.Errorf("progress = %+v, want no fragments", p)
	}

	g.RespawnPlayer()
	if g.Eliminated() {
		t.Fatal("still eliminated after respawn")
	}
	if g.player.Group == oldGroup {
		t.Error("respawned actor reused the old group")
	}
	if n := len(g.store.Members(g.player.Group)); n != 1 {
		t.Errorf("respawned fragments = %d, want 1", n)
	}
}

func TestFrameRunsBoundedTicks(t *testing.T) {
	g := newTestGame(t, testConfig())
	step := g.cfg.Derived.Step

	if err := g.Frame(step * 3); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if g.Tick() != 3 {
		t.Errorf("Tick() = %d, want 3", g.Tick())
	}

	// A long hitch is capped and the backlog dropped
	if err := g.Frame(g.cfg.Derived.MaxFrame * 4); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if got := g.Tick(); got != 3+int32(g.cfg.Physics.MaxTicksPerFrame) {
		t.Errorf("Tick() = %d, want %d", got, 3+g.cfg.Physics.MaxTicksPerFrame)
	}
}

func TestLeaderboard(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Count = 5
	cfg.AI.StartMassMin = 100
	cfg.AI.StartMassMax = 100
	g := newTestGame(t, cfg)

	board := g.Leaderboard()
	if len(board) != 6 {
		t.Fatalf("leaderboard size = %d, want 6", len(board))
	}
	for i, e := range board {
		if e.Rank != i+1 {
			t.Errorf("entry %d rank = %d", i, e.Rank)
		}
		if i > 0 && board[i-1].Mass < e.Mass {
			t.Errorf("leaderboard not sorted at %d", i)
		}
	}
	if last := board[len(board)-1]; last.Name != g.player.Name {
		t.Errorf("lightest entry = %q, want player %q", last.Name, g.player.Name)
	}
}
