package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
)

// Control is the steering input for one controlled group this tick.
type Control struct {
	Group  components.GroupID
	DX, DY float64 // Desired direction, need not be normalized
	Boost  float64 // Speed multiplier from active abilities (1 = none)
}

// MovementSystem integrates steering, ballistic motion, group cohesion and
// passive mass effects, then clamps every entity to the arena.
type MovementSystem struct {
	world   *ecs.World
	filter  ecs.Filter6[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile]
	posMap  *ecs.Map[components.Position]
	bodyMap *ecs.Map[components.Body]
	timMap  *ecs.Map[components.Timers]
	brains  *ecs.Map[components.Brain]
	biomes  *BiomeMap
	cfg     *config.Config

	groups   []groupState // scratch, rebuilt every tick
	depleted []ecs.Entity
}

// groupState holds per-group aggregates for one tick.
type groupState struct {
	id       components.GroupID
	mass     float64
	cx, cy   float64
	fragment int
}

// NewMovementSystem creates a new movement system.
func NewMovementSystem(w *ecs.World, cfg *config.Config, biomes *BiomeMap) *MovementSystem {
	return &MovementSystem{
		world:   w,
		filter:  *ecs.NewFilter6[components.Position, components.Velocity, components.Body, components.Owner, components.Timers, components.Profile](w),
		posMap:  ecs.NewMap[components.Position](w),
		bodyMap: ecs.NewMap[components.Body](w),
		timMap:  ecs.NewMap[components.Timers](w),
		brains:  ecs.NewMap[components.Brain](w),
		biomes:  biomes,
		cfg:     cfg,
	}
}

// Update advances every live entity by one tick. Returns the cells whose
// mass was drained to zero; the caller removes them. The returned slice is
// reused on the next call.
func (s *MovementSystem) Update(r Roster, controls []Control) []ecs.Entity {
	s.depleted = s.depleted[:0]
	dt := s.cfg.Physics.DT
	w, h := s.cfg.World.Width, s.cfg.World.Height

	s.aggregateGroups(r)
	s.applyCohesion(r, dt)

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, vel, body, owner, _, prof := query.Get()
		if !body.Alive {
			continue
		}

		// Ballistic displacement with friction decay
		if !vel.Zero() {
			pos.X += vel.X * dt
			pos.Y += vel.Y * dt
			vel.X *= s.cfg.Motion.Friction
			vel.Y *= s.cfg.Motion.Friction
			if math.Hypot(vel.X, vel.Y) < s.cfg.Motion.MinSpeed {
				vel.X, vel.Y = 0, 0
			}
		}

		if body.Kind.IsCell() {
			massRate, speedMul := s.biomes.At(pos.X, pos.Y)
			speed := Speed(body.Mass, prof.Speed, s.cfg.Player.BaseSpeed, s.cfg.Player.SpeedDampening) * speedMul

			var dx, dy float64
			switch body.Kind {
			case components.KindControlled:
				if c, ok := findControl(controls, owner.Group); ok {
					dx, dy = Normalize(c.DX, c.DY)
					speed *= max(c.Boost, 1)
				}
			case components.KindAutonomous:
				dx, dy = s.aiHeading(entity, pos)
			}
			pos.X += dx * speed * dt
			pos.Y += dy * speed * dt

			if !s.applyPassiveMass(body, owner, prof, massRate, dt) {
				s.depleted = append(s.depleted, entity)
			}
		}

		pos.X = Clamp(pos.X, 0, w)
		pos.Y = Clamp(pos.Y, 0, h)
	}
	return s.depleted
}

// aiHeading returns the displacement direction for an autonomous cell,
// scaled by the drift fraction when idle.
func (s *MovementSystem) aiHeading(e ecs.Entity, pos *components.Position) (float64, float64) {
	brain := s.brains.Get(e)
	if brain == nil {
		return 0, 0
	}
	switch brain.State {
	case components.StateIdle:
		return brain.SteerX * s.cfg.AI.DriftSpeed, brain.SteerY * s.cfg.AI.DriftSpeed
	case components.StateHunting:
		// Re-aim at the target while the lock is still valid
		if tp, ok := s.targetPosition(brain.Target); ok {
			if dx, dy := Normalize(tp.X-pos.X, tp.Y-pos.Y); dx != 0 || dy != 0 {
				brain.SteerX, brain.SteerY = dx, dy
			}
		}
	}
	return brain.SteerX, brain.SteerY
}

// targetPosition resolves a cached target, failing if it died or its slot
// was reused.
func (s *MovementSystem) targetPosition(t components.Target) (components.Position, bool) {
	if t.Serial == 0 || !s.world.Alive(t.Entity) {
		return components.Position{}, false
	}
	b := s.bodyMap.Get(t.Entity)
	if !b.Alive || b.Serial != t.Serial {
		return components.Position{}, false
	}
	return *s.posMap.Get(t.Entity), true
}

// applyPassiveMass applies biome rates, decay and class regen.
// Returns false if the cell has no mass left.
func (s *MovementSystem) applyPassiveMass(body *components.Body, owner *components.Owner, prof *components.Profile, massRate, dt float64) bool {
	defense := max(prof.Defense, 0.01)
	delta := massRate
	if delta < 0 {
		delta /= defense
	}
	if body.Mass > s.cfg.Mass.DecayMinMass && s.cfg.Mass.DecayRate > 0 {
		delta -= body.Mass * s.cfg.Mass.DecayRate / defense
	}
	if body.Kind == components.KindControlled && prof.Regen > 0 {
		if g := s.group(owner.Group); g != nil && g.mass > 0 {
			delta += prof.Regen * body.Mass / g.mass
		}
	}
	if delta == 0 {
		return true
	}
	return AddMass(body, delta*dt, s.cfg.Mass.RadiusFactor)
}

// aggregateGroups computes mass and mass-weighted centroid per group.
func (s *MovementSystem) aggregateGroups(r Roster) {
	s.groups = s.groups[:0]
	for _, id := range r.Groups() {
		g := groupState{id: id}
		for _, e := range r.Members(id) {
			b := s.bodyMap.Get(e)
			if !b.Alive {
				continue
			}
			p := s.posMap.Get(e)
			g.mass += b.Mass
			g.cx += p.X * b.Mass
			g.cy += p.Y * b.Mass
			g.fragment++
		}
		if g.mass > 0 {
			g.cx /= g.mass
			g.cy /= g.mass
		}
		s.groups = append(s.groups, g)
	}
}

// applyCohesion pulls stray fragments toward their group centroid and pushes
// overlapping protected siblings apart.
func (s *MovementSystem) applyCohesion(r Roster, dt float64) {
	for i := range s.groups {
		g := &s.groups[i]
		if g.fragment < 2 {
			continue
		}
		members := r.Members(g.id)
		for _, e := range members {
			b := s.bodyMap.Get(e)
			if !b.Alive {
				continue
			}
			p := s.posMap.Get(e)
			dx, dy := g.cx-p.X, g.cy-p.Y
			d := math.Hypot(dx, dy)
			if d > 2*b.Radius {
				step := min(s.cfg.Player.Cohesion*dt, d-2*b.Radius)
				p.X += dx / d * step
				p.Y += dy / d * step
			}
		}

		for a := 0; a < len(members); a++ {
			ea := members[a]
			ba := s.bodyMap.Get(ea)
			if !ba.Alive {
				continue
			}
			for b := a + 1; b < len(members); b++ {
				eb := members[b]
				bb := s.bodyMap.Get(eb)
				if !bb.Alive {
					continue
				}
				// Mergeable pairs are left overlapping
				if s.timMap.Get(ea).MergeProtection == 0 && s.timMap.Get(eb).MergeProtection == 0 {
					continue
				}
				pa, pb := s.posMap.Get(ea), s.posMap.Get(eb)
				dx, dy := pb.X-pa.X, pb.Y-pa.Y
				d := math.Hypot(dx, dy)
				reach := ba.Radius + bb.Radius
				if d >= reach {
					continue
				}
				nx, ny := 1.0, 0.0
				if d > 0 {
					nx, ny = dx/d, dy/d
				}
				push := s.cfg.Player.Separation * dt * (reach - d) / reach * 0.5
				pa.X -= nx * push
				pa.Y -= ny * push
				pb.X += nx * push
				pb.Y += ny * push
			}
		}
	}
}

func (s *MovementSystem) group(id components.GroupID) *groupState {
	for i := range s.groups {
		if s.groups[i].id == id {
			return &s.groups[i]
		}
	}
	return nil
}

func findControl(controls []Control, g components.GroupID) (Control, bool) {
	for _, c := range controls {
		if c.Group == g {
			return c, true
		}
	}
	return Control{}, false
}
