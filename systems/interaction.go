package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
)

// Absorption records one predator consuming one prey.
type Absorption struct {
	Predator      ecs.Entity
	Prey          ecs.Entity
	PredatorKind  components.Kind
	PreyKind      components.Kind
	PredatorGroup components.GroupID
	PreyGroup     components.GroupID
	PreyMass      float64
	Gained        float64 // PreyMass times the predator's efficiency
}

// Spawn is a deferred entity creation produced during interactions.
// The store applies spawns at commit, after all queries are closed.
type Spawn struct {
	Kind            components.Kind
	Group           components.GroupID
	X, Y            float64
	VX, VY          float64
	Mass            float64
	MergeProtection int32
	Profile         components.Profile
}

// Result collects everything an interaction pass produced.
// Slices are reused between ticks.
type Result struct {
	Absorptions []Absorption
	Removed     []ecs.Entity
	Spawns      []Spawn
	Merges      int
	FoodEaten   int
	VirusFed    int
	VirusPops   int // Viruses consumed by a controlled cell burst
	VirusBirths int
	Pushes      int
}

// Reset truncates the result for reuse.
func (r *Result) Reset() {
	r.Absorptions = r.Absorptions[:0]
	r.Removed = r.Removed[:0]
	r.Spawns = r.Spawns[:0]
	r.Merges = 0
	r.FoodEaten = 0
	r.VirusFed = 0
	r.VirusPops = 0
	r.VirusBirths = 0
	r.Pushes = 0
}

// InteractionSystem resolves contacts: sibling merges and pushes (phase A),
// then absorption, virus feeding and virus bursts (phase B). Entities are
// visited in serial order; an entity removed earlier in the tick is skipped
// both as actor and as neighbor.
type InteractionSystem struct {
	posMap  *ecs.Map[components.Position]
	velMap  *ecs.Map[components.Velocity]
	bodyMap *ecs.Map[components.Body]
	ownMap  *ecs.Map[components.Owner]
	timMap  *ecs.Map[components.Timers]
	profMap *ecs.Map[components.Profile]
	rng     *rand.Rand
	cfg     *config.Config

	neighbors []ecs.Entity
	result    Result
}

// NewInteractionSystem creates a new interaction system.
func NewInteractionSystem(w *ecs.World, cfg *config.Config, rng *rand.Rand) *InteractionSystem {
	return &InteractionSystem{
		posMap:    ecs.NewMap[components.Position](w),
		velMap:    ecs.NewMap[components.Velocity](w),
		bodyMap:   ecs.NewMap[components.Body](w),
		ownMap:    ecs.NewMap[components.Owner](w),
		timMap:    ecs.NewMap[components.Timers](w),
		profMap:   ecs.NewMap[components.Profile](w),
		rng:       rng,
		cfg:       cfg,
		neighbors: make([]ecs.Entity, 0, 256),
	}
}

// Update runs both phases and returns the tick's result. Removed entities
// are marked dead in place; the caller commits them.
func (s *InteractionSystem) Update(r Roster, grid *SpatialGrid) *Result {
	res := &s.result
	res.Reset()

	s.resolveSiblings(r, res)
	s.resolveContacts(r, grid, res)
	return res
}

// resolveSiblings handles overlapping fragments of the same group.
// Unprotected pairs merge; protected pairs are pushed apart.
func (s *InteractionSystem) resolveSiblings(r Roster, res *Result) {
	for _, g := range r.Groups() {
		members := r.Members(g)
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			a := members[i]
			for j := i + 1; j < len(members); j++ {
				ba := s.bodyMap.Get(a)
				if !ba.Alive {
					break
				}
				b := members[j]
				bb := s.bodyMap.Get(b)
				if !bb.Alive {
					continue
				}

				pa, pb := s.posMap.Get(a), s.posMap.Get(b)
				dx, dy := pb.X-pa.X, pb.Y-pa.Y
				d := math.Hypot(dx, dy)
				reach := ba.Radius + bb.Radius
				if d >= reach {
					continue
				}

				if s.mergeable(a, b) {
					s.merge(a, b, res)
					continue
				}

				nx, ny := 1.0, 0.0
				if d > 0 {
					nx, ny = dx/d, dy/d
				}
				corr := (reach - d) * s.cfg.Mass.PushStrength
				total := ba.Mass + bb.Mass
				shareA, shareB := bb.Mass/total, ba.Mass/total
				pa.X = Clamp(pa.X-nx*corr*shareA, 0, s.cfg.World.Width)
				pa.Y = Clamp(pa.Y-ny*corr*shareA, 0, s.cfg.World.Height)
				pb.X = Clamp(pb.X+nx*corr*shareB, 0, s.cfg.World.Width)
				pb.Y = Clamp(pb.Y+ny*corr*shareB, 0, s.cfg.World.Height)
				res.Pushes++
			}
		}
	}
}

// resolveContacts runs the absorption pass over the live list.
func (s *InteractionSystem) resolveContacts(r Roster, grid *SpatialGrid, res *Result) {
	shrink := s.cfg.Mass.ShrinkFactor

	for _, a := range r.Live() {
		ba := s.bodyMap.Get(a)
		if !ba.Alive || !(ba.Kind.IsCell() || ba.Kind == components.KindVirus) {
			continue
		}
		pa := s.posMap.Get(a)
		ga := s.ownMap.Get(a).Group

		// Contact reach never exceeds twice the larger radius
		s.neighbors = grid.QueryInto(s.neighbors[:0], pa.X, pa.Y, 2*ba.Radius)
		for _, b := range s.neighbors {
			if !ba.Alive {
				break
			}
			if b == a {
				continue
			}
			bb := s.bodyMap.Get(b)
			if !bb.Alive {
				continue
			}
			pb := s.posMap.Get(b)
			dx, dy := pb.X-pa.X, pb.Y-pa.Y
			distSq := dx*dx + dy*dy
			contact := distSq < (ba.Radius+bb.Radius)*(ba.Radius+bb.Radius)
			eatRange := ba.Radius * shrink
			inside := distSq < eatRange*eatRange

			if ba.Kind == components.KindVirus {
				if bb.Kind == components.KindEjected && contact {
					s.feedVirus(r, a, b, res)
				}
				continue
			}

			// a is a cell from here on
			if bb.Kind == components.KindVirus {
				if ba.Kind == components.KindControlled && inside &&
					ba.Mass > bb.Mass*s.cfg.Virus.BurstRatio {
					s.burst(r, a, b, res)
				}
				continue
			}

			gb := s.ownMap.Get(b).Group
			if bb.Kind.IsCell() && ga != 0 && ga == gb {
				if inside && s.mergeable(a, b) {
					s.merge(a, b, res)
				}
				continue
			}
			if bb.Kind == components.KindEjected && ga != 0 && ga == gb &&
				s.timMap.Get(b).SpawnProtection > 0 {
				continue
			}

			if inside && Dominates(ba.Mass, bb.Mass, s.cfg.Mass.DominanceRatio) {
				s.absorb(a, b, res)
			}
		}
	}
}

// absorb moves prey mass into the predator, scaled by its efficiency.
func (s *InteractionSystem) absorb(pred, prey ecs.Entity, res *Result) {
	bp, bq := s.bodyMap.Get(pred), s.bodyMap.Get(prey)
	gained := bq.Mass * s.efficiency(pred)

	res.Absorptions = append(res.Absorptions, Absorption{
		Predator:      pred,
		Prey:          prey,
		PredatorKind:  bp.Kind,
		PreyKind:      bq.Kind,
		PredatorGroup: s.ownMap.Get(pred).Group,
		PreyGroup:     s.ownMap.Get(prey).Group,
		PreyMass:      bq.Mass,
		Gained:        gained,
	})
	if bq.Kind == components.KindFood {
		res.FoodEaten++
	}

	AddMass(bp, gained, s.cfg.Mass.RadiusFactor)
	s.remove(prey, res)
}

// merge joins two siblings; the heavier one (earlier serial on ties) survives.
func (s *InteractionSystem) merge(a, b ecs.Entity, res *Result) {
	ba, bb := s.bodyMap.Get(a), s.bodyMap.Get(b)
	keep, drop := a, b
	if bb.Mass > ba.Mass || (bb.Mass == ba.Mass && bb.Serial < ba.Serial) {
		keep, drop = b, a
	}
	bk, bd := s.bodyMap.Get(keep), s.bodyMap.Get(drop)
	AddMass(bk, bd.Mass, s.cfg.Mass.RadiusFactor)
	s.remove(drop, res)
	res.Merges++
}

// feedVirus absorbs ejected mass into a virus. A virus fed past its split
// mass resets and launches a new virus along the projectile's heading.
func (s *InteractionSystem) feedVirus(r Roster, virus, shot ecs.Entity, res *Result) {
	bv, bs := s.bodyMap.Get(virus), s.bodyMap.Get(shot)
	pv, ps := s.posMap.Get(virus), s.posMap.Get(shot)
	vs := s.velMap.Get(shot)

	dirX, dirY := Normalize(vs.X, vs.Y)
	if dirX == 0 && dirY == 0 {
		dirX, dirY = Normalize(pv.X-ps.X, pv.Y-ps.Y)
	}
	if dirX == 0 && dirY == 0 {
		dirX = 1
	}

	AddMass(bv, bs.Mass, s.cfg.Mass.RadiusFactor)
	s.remove(shot, res)
	res.VirusFed++

	if bv.Mass <= s.cfg.Virus.SplitMass {
		return
	}
	SetMass(bv, s.cfg.Virus.Mass, s.cfg.Mass.RadiusFactor)
	if r.Count(components.KindVirus)+s.pendingSpawns(res, components.KindVirus, 0) >= s.cfg.Virus.MaxCount {
		return
	}
	off := bv.Radius * 2
	res.Spawns = append(res.Spawns, Spawn{
		Kind:    components.KindVirus,
		X:       Clamp(pv.X+dirX*off, 0, s.cfg.World.Width),
		Y:       Clamp(pv.Y+dirY*off, 0, s.cfg.World.Height),
		VX:      dirX * s.cfg.Virus.BirthSpeed,
		VY:      dirY * s.cfg.Virus.BirthSpeed,
		Mass:    s.cfg.Virus.Mass,
		Profile: components.NeutralProfile(),
	})
	res.VirusBirths++
}

// burst pops a virus on a controlled cell: the cell takes the virus mass,
// then shatters into equal pieces flying outward.
func (s *InteractionSystem) burst(r Roster, cell, virus ecs.Entity, res *Result) {
	bc, bv := s.bodyMap.Get(cell), s.bodyMap.Get(virus)
	group := s.ownMap.Get(cell).Group
	gained := bv.Mass * s.efficiency(cell)

	res.Absorptions = append(res.Absorptions, Absorption{
		Predator:      cell,
		Prey:          virus,
		PredatorKind:  bc.Kind,
		PreyKind:      bv.Kind,
		PredatorGroup: group,
		PreyMass:      bv.Mass,
		Gained:        gained,
	})
	AddMass(bc, gained, s.cfg.Mass.RadiusFactor)
	s.remove(virus, res)
	res.VirusPops++

	groupSize := s.liveMembers(r, group) + s.pendingSpawns(res, components.KindControlled, group)
	n := BurstPieces(bc.Mass, groupSize, s.cfg)
	if n < 2 {
		return
	}

	piece := bc.Mass / float64(n)
	SetMass(bc, piece, s.cfg.Mass.RadiusFactor)
	s.timMap.Get(cell).MergeProtection = s.cfg.Player.MergeProtectionTicks

	pc := s.posMap.Get(cell)
	vc := s.velMap.Get(cell)
	prof := *s.profMap.Get(cell)
	base := s.rng.Float64() * 2 * math.Pi
	step := 2 * math.Pi / float64(n)
	speed := s.cfg.Virus.BurstSpeed

	vc.X, vc.Y = math.Cos(base)*speed, math.Sin(base)*speed
	for i := 1; i < n; i++ {
		angle := base + float64(i)*step
		jitter := bc.Radius * 0.5 * s.rng.Float64()
		res.Spawns = append(res.Spawns, Spawn{
			Kind:            components.KindControlled,
			Group:           group,
			X:               Clamp(pc.X+math.Cos(angle)*jitter, 0, s.cfg.World.Width),
			Y:               Clamp(pc.Y+math.Sin(angle)*jitter, 0, s.cfg.World.Height),
			VX:              math.Cos(angle) * speed,
			VY:              math.Sin(angle) * speed,
			Mass:            piece,
			MergeProtection: s.cfg.Player.MergeProtectionTicks,
			Profile:         prof,
		})
	}
}

// BurstPieces returns how many pieces a cell of the given mass shatters into
// when it pops a virus. Values below 2 mean no shattering.
func BurstPieces(mass float64, groupSize int, cfg *config.Config) int {
	n := cfg.Virus.MaxFragments
	n = min(n, cfg.Player.MaxFragments-groupSize+1)
	if cfg.Player.MinFragmentMass > 0 {
		n = min(n, int(mass/cfg.Player.MinFragmentMass))
	}
	return n
}

// efficiency is the fraction of prey mass a predator keeps.
func (s *InteractionSystem) efficiency(e ecs.Entity) float64 {
	if s.bodyMap.Get(e).Kind != components.KindControlled {
		return 1
	}
	return s.profMap.Get(e).Absorption
}

func (s *InteractionSystem) mergeable(a, b ecs.Entity) bool {
	return s.timMap.Get(a).MergeProtection == 0 && s.timMap.Get(b).MergeProtection == 0
}

func (s *InteractionSystem) remove(e ecs.Entity, res *Result) {
	s.bodyMap.Get(e).Alive = false
	res.Removed = append(res.Removed, e)
}

func (s *InteractionSystem) liveMembers(r Roster, g components.GroupID) int {
	n := 0
	for _, e := range r.Members(g) {
		if s.bodyMap.Get(e).Alive {
			n++
		}
	}
	return n
}

func (s *InteractionSystem) pendingSpawns(res *Result, k components.Kind, g components.GroupID) int {
	n := 0
	for i := range res.Spawns {
		if res.Spawns[i].Kind == k && res.Spawns[i].Group == g {
			n++
		}
	}
	return n
}
