package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
)

// BehaviorStats counts AI states after an update.
type BehaviorStats struct {
	Evaluated   int
	TargetsLost int // Hunting brains whose target vanished before re-evaluation
	Idle        int
	Fleeing     int
	Hunting     int
}

// BehaviorSystem runs the autonomous cell state machine. Each brain is
// re-evaluated only when its cooldown reaches zero; in between the cached
// decision stands.
type BehaviorSystem struct {
	world   *ecs.World
	filter  ecs.Filter4[components.Position, components.Body, components.Owner, components.Brain]
	posMap  *ecs.Map[components.Position]
	bodyMap *ecs.Map[components.Body]
	ownMap  *ecs.Map[components.Owner]
	rng     *rand.Rand
	cfg     *config.Config

	neighbors []ecs.Entity
}

// NewBehaviorSystem creates a new behavior system.
func NewBehaviorSystem(w *ecs.World, cfg *config.Config, rng *rand.Rand) *BehaviorSystem {
	return &BehaviorSystem{
		world:     w,
		filter:    *ecs.NewFilter4[components.Position, components.Body, components.Owner, components.Brain](w),
		posMap:    ecs.NewMap[components.Position](w),
		bodyMap:   ecs.NewMap[components.Body](w),
		ownMap:    ecs.NewMap[components.Owner](w),
		rng:       rng,
		cfg:       cfg,
		neighbors: make([]ecs.Entity, 0, 256),
	}
}

// Update counts down every brain and re-evaluates those that are due.
func (s *BehaviorSystem) Update(grid *SpatialGrid) BehaviorStats {
	var stats BehaviorStats

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, body, owner, brain := query.Get()
		if !body.Alive {
			continue
		}

		brain.Cooldown--
		if brain.Cooldown <= 0 {
			if brain.State == components.StateHunting && !s.TargetValid(brain.Target) {
				stats.TargetsLost++
			}
			brain.Cooldown = s.cfg.AI.ReevaluateTicks
			s.evaluate(entity, pos, body, owner, brain, grid)
			stats.Evaluated++
		}

		switch brain.State {
		case components.StateIdle:
			stats.Idle++
		case components.StateFleeing:
			stats.Fleeing++
		case components.StateHunting:
			stats.Hunting++
		}
	}
	return stats
}

// evaluate perceives the neighborhood and picks a new state.
// Priority: flee threats, hunt the best prey, drift toward food, wander.
func (s *BehaviorSystem) evaluate(self ecs.Entity, pos *components.Position, body *components.Body, owner *components.Owner, brain *components.Brain, grid *SpatialGrid) {
	vision := s.cfg.AI.VisionRadius
	p := brain.Personality

	var (
		awayX, awayY float64
		threats      int
		best         ecs.Entity
		bestSerial   uint64
		bestScore    float64
		bestX, bestY float64
		foodX, foodY float64
		foodCount    int
	)

	s.neighbors = grid.QueryInto(s.neighbors[:0], pos.X, pos.Y, vision+body.Radius)
	for _, e := range s.neighbors {
		if e == self {
			continue
		}
		nb := s.bodyMap.Get(e)
		if !nb.Alive {
			continue
		}
		np := s.posMap.Get(e)
		dx, dy := np.X-pos.X, np.Y-pos.Y
		d := math.Hypot(dx, dy)
		if d-nb.Radius > vision {
			continue
		}

		switch nb.Kind {
		case components.KindVirus:
			// Never prey; a heavy enough virus is still a threat
			if nb.Mass > body.Mass*p.FleeRatio {
				if d > 0 {
					awayX -= dx / d
					awayY -= dy / d
				}
				threats++
			}

		case components.KindFood, components.KindEjected:
			foodX += np.X
			foodY += np.Y
			foodCount++

		case components.KindControlled, components.KindAutonomous:
			if og := s.ownMap.Get(e).Group; og != 0 && og == owner.Group {
				continue
			}
			if nb.Mass > body.Mass*p.FleeRatio {
				if d > 0 {
					awayX -= dx / d
					awayY -= dy / d
				}
				threats++
				continue
			}
			if body.Mass > nb.Mass*s.cfg.AI.MinEatRatio {
				score := nb.Mass / max(d, 1) * p.Aggression
				if score > bestScore {
					best, bestSerial, bestScore = e, nb.Serial, score
					bestX, bestY = np.X, np.Y
				}
			}
		}
	}

	brain.Target = components.Target{}
	switch {
	case threats > 0:
		brain.State = components.StateFleeing
		brain.SteerX, brain.SteerY = Normalize(awayX, awayY)
		if brain.SteerX == 0 && brain.SteerY == 0 {
			brain.SteerX, brain.SteerY = s.randomHeading()
		}

	case bestSerial != 0 && bestScore > s.cfg.AI.HuntThreshold*p.RiskAversion:
		brain.State = components.StateHunting
		brain.Target = components.Target{Entity: best, Serial: bestSerial}
		brain.SteerX, brain.SteerY = Normalize(bestX-pos.X, bestY-pos.Y)

	case foodCount > 0 && foodCount >= s.cfg.AI.FoodDensityThreshold:
		brain.State = components.StateIdle
		brain.Drift = components.DriftFood
		n := float64(foodCount)
		brain.SteerX, brain.SteerY = Normalize(foodX/n-pos.X, foodY/n-pos.Y)

	default:
		brain.State = components.StateIdle
		brain.Drift = components.DriftRandom
		brain.SteerX, brain.SteerY = s.randomHeading()
	}
}

// TargetValid reports whether a cached target still refers to the same
// live entity.
func (s *BehaviorSystem) TargetValid(t components.Target) bool {
	if t.Serial == 0 || !s.world.Alive(t.Entity) {
		return false
	}
	b := s.bodyMap.Get(t.Entity)
	return b.Alive && b.Serial == t.Serial
}

func (s *BehaviorSystem) randomHeading() (float64, float64) {
	a := s.rng.Float64() * 2 * math.Pi
	return math.Cos(a), math.Sin(a)
}
