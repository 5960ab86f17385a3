package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/systems"
)

// applyCommands drains the input queue into the controlled actor.
func (g *Game) applyCommands() {
	var dx, dy float64
	var steered bool
	g.actions, dx, dy, steered = g.commands.Drain(g.actions[:0])
	if g.eliminated {
		return
	}

	p := g.player
	if steered {
		p.steerX, p.steerY = dx, dy
		if hx, hy := systems.Normalize(dx, dy); hx != 0 || hy != 0 {
			p.headX, p.headY = hx, hy
		}
	}

	for _, c := range g.actions {
		switch c {
		case CommandSplit:
			g.split()
		case CommandEject:
			g.eject()
		case CommandAbility:
			g.useAbility()
		}
	}
}

// split halves every fragment heavy enough while the group has room. The new
// half launches along the heading; both halves get merge protection.
// Returns the number of fragments created.
func (g *Game) split() int {
	p := g.player
	if p.splitCooldown > 0 {
		return 0
	}
	cfg := g.cfg

	// Snapshot: members grows as halves are spawned
	parents := append([]ecs.Entity(nil), g.store.Members(p.Group)...)
	size := len(parents)
	created := 0
	for _, e := range parents {
		if size >= cfg.Player.MaxFragments {
			break
		}
		body := g.store.Body(e)
		if !body.Alive || body.Mass < cfg.Player.MinSplitMass {
			continue
		}

		half := body.Mass / 2
		systems.SetMass(body, half, cfg.Mass.RadiusFactor)
		g.store.Timers(e).MergeProtection = cfg.Player.MergeProtectionTicks

		pos := g.store.Position(e)
		g.store.Spawn(systems.Spawn{
			Kind:            components.KindControlled,
			Group:           p.Group,
			X:               systems.Clamp(pos.X+p.headX*body.Radius, 0, cfg.World.Width),
			Y:               systems.Clamp(pos.Y+p.headY*body.Radius, 0, cfg.World.Height),
			VX:              p.headX * cfg.Player.SplitSpeed,
			VY:              p.headY * cfg.Player.SplitSpeed,
			Mass:            half,
			MergeProtection: cfg.Player.MergeProtectionTicks,
			Profile:         *g.store.Profile(e),
		})
		size++
		created++
	}

	if created > 0 {
		p.splitCooldown = cfg.Player.SplitCooldownTicks
		g.collector.RecordSplit()
	}
	return created
}

// eject fires a projectile from every fragment heavy enough. Returns the
// number of projectiles.
func (g *Game) eject() int {
	p := g.player
	if p.ejectCooldown > 0 {
		return 0
	}
	cfg := g.cfg

	parents := append([]ecs.Entity(nil), g.store.Members(p.Group)...)
	fired := 0
	for _, e := range parents {
		body := g.store.Body(e)
		if !body.Alive || body.Mass < cfg.Player.MinEjectMass || body.Mass <= cfg.Player.EjectCost {
			continue
		}
		systems.AddMass(body, -cfg.Player.EjectCost, cfg.Mass.RadiusFactor)

		pos := g.store.Position(e)
		off := body.Radius + systems.Radius(cfg.Player.EjectMass, cfg.Mass.RadiusFactor)
		g.store.Spawn(systems.Spawn{
			Kind:    components.KindEjected,
			Group:   p.Group,
			X:       systems.Clamp(pos.X+p.headX*off, 0, cfg.World.Width),
			Y:       systems.Clamp(pos.Y+p.headY*off, 0, cfg.World.Height),
			VX:      p.headX * cfg.Player.EjectSpeed,
			VY:      p.headY * cfg.Player.EjectSpeed,
			Mass:    cfg.Player.EjectMass,
			Profile: components.NeutralProfile(),
		})
		fired++
	}

	if fired > 0 {
		p.ejectCooldown = cfg.Player.EjectCooldownTicks
		g.collector.RecordEject()
	}
	return fired
}

// useAbility starts the speed burst if it is off cooldown.
func (g *Game) useAbility() bool {
	p := g.player
	if p.abilityCooldown > 0 {
		return false
	}
	p.abilityTicks = g.cfg.Ability.DurationTicks
	p.abilityCooldown = g.cfg.Ability.CooldownTicks
	g.collector.RecordAbility()
	slog.Debug("ability_used", "group", p.Group, "tick", g.tick)
	return true
}
