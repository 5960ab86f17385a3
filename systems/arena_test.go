package systems

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
)

// testRoster is a minimal Roster over a serial-ordered slice.
type testRoster struct {
	bodies *ecs.Map[components.Body]
	owners *ecs.Map[components.Owner]
	live   []ecs.Entity
}

func (r *testRoster) Live() []ecs.Entity { return r.live }

func (r *testRoster) Groups() []components.GroupID {
	var out []components.GroupID
	for _, e := range r.live {
		b := r.bodies.Get(e)
		g := r.owners.Get(e).Group
		if b.Alive && b.Kind.IsCell() && g != 0 && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	slices.Sort(out)
	return out
}

func (r *testRoster) Members(g components.GroupID) []ecs.Entity {
	var out []ecs.Entity
	for _, e := range r.live {
		if r.bodies.Get(e).Kind.IsCell() && r.owners.Get(e).Group == g {
			out = append(out, e)
		}
	}
	return out
}

func (r *testRoster) Count(k components.Kind) int {
	n := 0
	for _, e := range r.live {
		if b := r.bodies.Get(e); b.Alive && b.Kind == k {
			n++
		}
	}
	return n
}

// testArena wires a world, grid and roster for system tests.
type testArena struct {
	cfg    *config.Config
	world  *ecs.World
	cells  *ecs.Map6[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile]
	ais    *ecs.Map7[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile, components.Brain]
	pos    *ecs.Map[components.Position]
	vel    *ecs.Map[components.Velocity]
	bodies *ecs.Map[components.Body]
	timers *ecs.Map[components.Timers]
	profs  *ecs.Map[components.Profile]
	brains *ecs.Map[components.Brain]
	roster *testRoster
	grid   *SpatialGrid
	rng    *rand.Rand
	serial uint64
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Biomes = nil
	cfg.Mass.DecayRate = 0
	return cfg
}

func newTestArena(t *testing.T, cfg *config.Config) *testArena {
	t.Helper()
	w := ecs.NewWorld()
	a := &testArena{
		cfg:    cfg,
		world:  w,
		cells:  ecs.NewMap6[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile](w),
		ais:    ecs.NewMap7[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile, components.Brain](w),
		pos:    ecs.NewMap[components.Position](w),
		vel:    ecs.NewMap[components.Velocity](w),
		bodies: ecs.NewMap[components.Body](w),
		timers: ecs.NewMap[components.Timers](w),
		profs:  ecs.NewMap[components.Profile](w),
		brains: ecs.NewMap[components.Brain](w),
		grid:   NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize, cfg.Physics.GridCellCapacity),
		rng:    rand.New(rand.NewSource(1)),
	}
	a.roster = &testRoster{bodies: a.bodies, owners: ecs.NewMap[components.Owner](w)}
	return a
}

func (a *testArena) body(kind components.Kind, mass float64) components.Body {
	a.serial++
	b := components.Body{Kind: kind, Alive: true, Serial: a.serial}
	SetMass(&b, mass, a.cfg.Mass.RadiusFactor)
	return b
}

func (a *testArena) spawn(kind components.Kind, x, y, mass float64, group components.GroupID) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	body := a.body(kind, mass)
	owner := components.Owner{Group: group}
	timers := components.Timers{}
	prof := components.NeutralProfile()
	e := a.cells.NewEntity(&pos, &vel, &body, &owner, &timers, &prof)
	a.roster.live = append(a.roster.live, e)
	return e
}

func (a *testArena) spawnAI(x, y, mass float64, group components.GroupID, p components.Personality) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	body := a.body(components.KindAutonomous, mass)
	owner := components.Owner{Group: group}
	timers := components.Timers{}
	prof := components.NeutralProfile()
	brain := components.Brain{Personality: p, Cooldown: 1}
	e := a.ais.NewEntity(&pos, &vel, &body, &owner, &timers, &prof, &brain)
	a.roster.live = append(a.roster.live, e)
	return e
}

// rebuild refills the grid from the live list.
func (a *testArena) rebuild() {
	a.grid.Clear()
	for _, e := range a.roster.live {
		if b := a.bodies.Get(e); b.Alive {
			p := a.pos.Get(e)
			a.grid.Insert(e, p.X, p.Y)
		}
	}
}

var neutral = components.Personality{Aggression: 1, RiskAversion: 1, FleeRatio: 1.15}
