package game

import (
	"log/slog"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/systems"
	"github.com/pthm-cable/cellarena/telemetry"
)

// Step advances the simulation by exactly one tick. Phases run strictly in
// order; nothing outside the game observes the state in between.
func (g *Game) Step() {
	g.perfCollector.StartTick()
	g.removed = g.removed[:0]

	// Timers run first so entities spawned by this tick's commands keep
	// their full countdown.
	g.perfCollector.StartPhase(telemetry.PhaseTimers)
	g.updateTimers()

	g.perfCollector.StartPhase(telemetry.PhaseCommands)
	g.applyCommands()

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.updateMovement()

	g.perfCollector.StartPhase(telemetry.PhaseSpatialGrid)
	g.updateSpatialGrid()

	g.perfCollector.StartPhase(telemetry.PhaseBehavior)
	g.lastBehavior = g.behavior.Update(g.grid)
	g.collector.RecordTargetsLost(g.lastBehavior.TargetsLost)

	g.perfCollector.StartPhase(telemetry.PhaseInteractions)
	res := g.interaction.Update(g.store, g.grid)
	g.removed = append(g.removed, res.Removed...)
	g.collector.RecordInteractions(res.Merges, res.VirusFed, res.VirusPops, res.VirusBirths)

	g.perfCollector.StartPhase(telemetry.PhaseProgression)
	g.updateProgression(res)

	g.perfCollector.StartPhase(telemetry.PhaseCommit)
	g.commit(res.Spawns)

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	if iv := g.cfg.Leaderboard.IntervalTicks; iv > 0 && g.tick%iv == 0 {
		g.refreshLeaderboard()
	}
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// updateTimers counts down every timer. Expired ejected mass is marked dead.
func (g *Game) updateTimers() {
	query := g.timerFilter.Query()
	for query.Next() {
		body, timers := query.Get()
		if !body.Alive {
			continue
		}
		if timers.Tick() {
			body.Alive = false
			g.removed = append(g.removed, query.Entity())
		}
	}

	p := g.player
	if p.splitCooldown > 0 {
		p.splitCooldown--
	}
	if p.ejectCooldown > 0 {
		p.ejectCooldown--
	}
	if p.abilityCooldown > 0 {
		p.abilityCooldown--
	}
	if p.abilityTicks > 0 {
		p.abilityTicks--
	}
}

// updateMovement steers and displaces everything, then marks drained cells dead.
func (g *Game) updateMovement() {
	g.controls = g.controls[:0]
	if !g.eliminated {
		p := g.player
		boost := 1.0
		if p.abilityTicks > 0 {
			boost += g.cfg.Ability.Boost * p.profile.Burst
		}
		g.controls = append(g.controls, systems.Control{
			Group: p.Group,
			DX:    p.steerX,
			DY:    p.steerY,
			Boost: boost,
		})
	}

	depleted := g.movement.Update(g.store, g.controls)
	for _, e := range depleted {
		g.store.Body(e).Alive = false
		g.collector.RecordStarved()
	}
	g.removed = append(g.removed, depleted...)
}

// updateSpatialGrid rebuilds the spatial index from the live list.
func (g *Game) updateSpatialGrid() {
	g.grid.Clear()
	for _, e := range g.store.Live() {
		if !g.store.Body(e).Alive {
			continue
		}
		pos := g.store.Position(e)
		g.grid.Insert(e, pos.X, pos.Y)
	}
	if n := g.grid.Overflow(); n > 0 {
		g.collector.RecordGridOverflow(n)
	}
}

// updateProgression turns absorptions into experience, career stats and
// window counters.
func (g *Game) updateProgression(res *systems.Result) {
	player := g.player
	for i := range res.Absorptions {
		abs := &res.Absorptions[i]
		g.collector.RecordAbsorption(abs.PreyMass, abs.PreyKind == components.KindFood)

		switch abs.PredatorKind {
		case components.KindControlled:
			if !g.eliminated && abs.PredatorGroup == player.Group {
				player.progress.Award(abs.PreyMass * g.cfg.Progression.XPPerMass)
			}
		case components.KindAutonomous:
			group := uint32(abs.PredatorGroup)
			g.lifetimes.RecordAbsorption(group, abs.Gained, abs.PreyKind.IsCell())
			if b := g.store.Body(abs.Predator); b.Alive {
				g.lifetimes.UpdateMass(group, b.Mass)
			}
		}
	}

	if levels := player.progress.Settle(); levels > 0 {
		g.collector.RecordLevelUps(levels)
		slog.Debug("player_level_up", "level", player.progress.Level, "tick", g.tick)
	}
}

// commit drops dead entities, applies deferred spawns and restores
// populations. Food eaten this tick is replaced before commit returns.
func (g *Game) commit(spawns []systems.Spawn) {
	removals := g.store.Commit(g.removed)

	foodLost := 0
	for _, r := range removals {
		switch r.Kind {
		case components.KindFood:
			foodLost++
		case components.KindAutonomous:
			g.retireAI(r.Group)
		}
	}

	for i := range spawns {
		g.store.Spawn(spawns[i])
	}

	for i := 0; i < foodLost; i++ {
		g.spawnFood()
	}

	if !g.eliminated && len(g.store.Members(g.player.Group)) == 0 {
		g.eliminatePlayer()
	}

	g.topUpViruses()
	g.respawnDueAI()
}
