package game

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/systems"
)

// seedWorld creates the initial food, viruses and AI population.
func (g *Game) seedWorld() {
	cfg := g.cfg
	for i := 0; i < cfg.Food.Count; i++ {
		g.spawnFood()
	}
	for i := 0; i < cfg.Virus.Count; i++ {
		g.spawnVirus()
	}
	for i := 0; i < cfg.AI.Count; i++ {
		g.spawnAI()
	}
}

// randomPoint returns a uniformly random position inside the world.
func (g *Game) randomPoint() (float64, float64) {
	return g.rng.Float64() * g.cfg.World.Width, g.rng.Float64() * g.cfg.World.Height
}

// spawnFood places one food pellet at a random position.
func (g *Game) spawnFood() {
	x, y := g.randomPoint()
	g.store.Spawn(systems.Spawn{
		Kind:    components.KindFood,
		X:       x,
		Y:       y,
		Mass:    g.cfg.Food.Mass,
		Profile: components.NeutralProfile(),
	})
}

// spawnVirus places one virus at a random position.
func (g *Game) spawnVirus() {
	x, y := g.randomPoint()
	g.store.Spawn(systems.Spawn{
		Kind:    components.KindVirus,
		X:       x,
		Y:       y,
		Mass:    g.cfg.Virus.Mass,
		Profile: components.NeutralProfile(),
	})
}

// topUpViruses restores the virus population consumed by bursts.
func (g *Game) topUpViruses() {
	for g.store.Count(components.KindVirus) < g.cfg.Virus.Count {
		g.spawnVirus()
	}
}

// spawnAI creates an autonomous actor with a sampled personality and a
// staggered first evaluation.
func (g *Game) spawnAI() {
	cfg := g.cfg
	group := g.store.NewGroup()

	idx := 0
	personality := components.Personality{Aggression: 1, RiskAversion: 1, FleeRatio: cfg.AI.MinEatRatio}
	if n := len(cfg.AI.Personalities); n > 0 {
		idx = g.hallOfFame.SamplePersonality(n)
		p := cfg.AI.Personalities[idx]
		personality = components.Personality{
			Aggression:   p.Aggression,
			RiskAversion: p.RiskAversion,
			FleeRatio:    p.FleeRatio,
		}
	}

	angle := g.rng.Float64() * 2 * math.Pi
	brain := components.Brain{
		State:       components.StateIdle,
		Drift:       components.DriftRandom,
		SteerX:      math.Cos(angle),
		SteerY:      math.Sin(angle),
		Personality: personality,
		Cooldown:    1 + g.rng.Int31n(cfg.AI.ReevaluateTicks),
	}

	mass := cfg.AI.StartMassMin + g.rng.Float64()*(cfg.AI.StartMassMax-cfg.AI.StartMassMin)
	x, y := g.randomPoint()
	e := g.store.SpawnAutonomous(x, y, mass, group, brain)

	g.ais[group] = &aiActor{entity: e, personality: idx}
	g.lifetimes.Register(uint32(group), g.tick, uint8(idx), mass)
}

// retireAI ends an AI actor's career and schedules its replacement.
func (g *Game) retireAI(group components.GroupID) {
	actor, ok := g.ais[group]
	if !ok {
		return
	}
	delete(g.ais, group)
	g.collector.RecordAIDeath()

	if stats := g.lifetimes.Remove(uint32(group), g.tick, g.cfg.Physics.DT); stats != nil {
		if g.hallOfFame.Consider(uint32(group), stats) {
			slog.Debug("hall_of_fame_entry",
				"group", group,
				"personality", actor.personality,
				"peak_mass", stats.PeakMass,
				"kills", stats.Kills,
			)
		}
	}
	g.respawns = append(g.respawns, g.tick+g.cfg.AI.RespawnDelayTicks)
}

// respawnDueAI spawns replacements whose delay has elapsed.
func (g *Game) respawnDueAI() {
	kept := g.respawns[:0]
	for _, due := range g.respawns {
		if due > g.tick || len(g.ais) >= g.cfg.AI.Count {
			kept = append(kept, due)
			continue
		}
		g.spawnAI()
		g.collector.RecordAIRespawn()
	}
	g.respawns = kept
}

// spawnPlayer creates the controlled actor with a single fragment.
func (g *Game) spawnPlayer(name string, classIdx int) {
	cfg := g.cfg
	class := cfg.Classes[classIdx]
	profile := components.Profile{
		Class:      uint8(classIdx),
		Speed:      class.Speed,
		Absorption: class.Absorption,
		Defense:    class.Defense,
		Regen:      class.Regen,
		Burst:      class.Burst,
	}

	group := g.store.NewGroup()
	x, y := g.randomPoint()
	g.store.Spawn(systems.Spawn{
		Kind:    components.KindControlled,
		Group:   group,
		X:       x,
		Y:       y,
		Mass:    cfg.Player.StartMass,
		Profile: profile,
	})

	g.player = &Actor{
		Name:     name,
		Group:    group,
		profile:  profile,
		headX:    1,
		progress: systems.NewProgressionTracker(cfg.Progression.BaseThreshold, cfg.Progression.GrowthFactor),
		spawned:  g.tick,
	}
}

// eliminatePlayer records the terminal state of the controlled actor.
func (g *Game) eliminatePlayer() {
	g.eliminated = true
	p := g.player
	slog.Info("actor_eliminated",
		"group", p.Group,
		"name", p.Name,
		"tick", g.tick,
		"level", p.progress.Level,
		"survival_sec", float64(g.tick-p.spawned)*g.cfg.Physics.DT,
	)
}
