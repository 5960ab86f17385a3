package game

import (
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
	"github.com/pthm-cable/cellarena/systems"
)

// Removal describes an entity dropped at commit.
type Removal struct {
	Kind   components.Kind
	Group  components.GroupID
	Serial uint64
}

// Store is the authoritative entity collection. It owns the ECS world, the
// pools for food and ejected mass, the owner-group index and the live list
// in ascending serial order. It implements systems.Roster.
type Store struct {
	world *ecs.World
	cfg   *config.Config

	// Spawners
	plainMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Body,
		components.Owner,
		components.Timers,
		components.Profile,
	]
	brainMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Body,
		components.Owner,
		components.Timers,
		components.Profile,
		components.Brain,
	]

	posMap   *ecs.Map[components.Position]
	velMap   *ecs.Map[components.Velocity]
	bodyMap  *ecs.Map[components.Body]
	ownMap   *ecs.Map[components.Owner]
	timMap   *ecs.Map[components.Timers]
	profMap  *ecs.Map[components.Profile]
	brainMap *ecs.Map[components.Brain]

	pools [components.NumKinds]*Pool

	live     []ecs.Entity
	groups   map[components.GroupID][]ecs.Entity
	groupIDs []components.GroupID
	counts   [components.NumKinds]int

	nextSerial uint64
	nextGroup  components.GroupID

	removals []Removal
}

// NewStore creates an empty store over a fresh world.
func NewStore(cfg *config.Config) *Store {
	world := ecs.NewWorld()
	s := &Store{
		world: world,
		cfg:   cfg,
		plainMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Body,
			components.Owner,
			components.Timers,
			components.Profile,
		](world),
		brainMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Body,
			components.Owner,
			components.Timers,
			components.Profile,
			components.Brain,
		](world),
		posMap:   ecs.NewMap[components.Position](world),
		velMap:   ecs.NewMap[components.Velocity](world),
		bodyMap:  ecs.NewMap[components.Body](world),
		ownMap:   ecs.NewMap[components.Owner](world),
		timMap:   ecs.NewMap[components.Timers](world),
		profMap:  ecs.NewMap[components.Profile](world),
		brainMap: ecs.NewMap[components.Brain](world),
		groups:   make(map[components.GroupID][]ecs.Entity),
		live:     make([]ecs.Entity, 0, cfg.Food.Count+cfg.AI.Count+cfg.Virus.MaxCount+64),
	}
	s.pools[components.KindFood] = newPool(components.KindFood, s, 64)
	s.pools[components.KindEjected] = newPool(components.KindEjected, s, 64)
	return s
}

// World returns the underlying ECS world.
func (s *Store) World() *ecs.World {
	return s.world
}

// Pool returns the pool for a kind, or nil if the kind is not pooled.
func (s *Store) Pool(k components.Kind) *Pool {
	return s.pools[k]
}

// NewGroup allocates a fresh owner-group id.
func (s *Store) NewGroup() components.GroupID {
	s.nextGroup++
	return s.nextGroup
}

// Spawn creates an entity from a spawn request. Food and ejected mass come
// from their pools. Ejected mass gets its TTL and spawn protection here.
func (s *Store) Spawn(sp systems.Spawn) ecs.Entity {
	s.nextSerial++
	pos := components.Position{X: sp.X, Y: sp.Y}
	vel := components.Velocity{X: sp.VX, Y: sp.VY}
	body := components.Body{Kind: sp.Kind, Alive: true, Serial: s.nextSerial}
	systems.SetMass(&body, sp.Mass, s.cfg.Mass.RadiusFactor)
	owner := components.Owner{Group: sp.Group}
	timers := components.Timers{MergeProtection: sp.MergeProtection}
	if sp.Kind == components.KindEjected {
		timers.TTL = s.cfg.Ejected.TTLTicks
		timers.SpawnProtection = s.cfg.Ejected.SpawnProtectionTicks
	}
	prof := sp.Profile

	var e ecs.Entity
	reused := false
	if pool := s.pools[sp.Kind]; pool != nil {
		e, reused = pool.acquire()
	}
	if reused {
		*s.posMap.Get(e) = pos
		*s.velMap.Get(e) = vel
		*s.bodyMap.Get(e) = body
		*s.ownMap.Get(e) = owner
		*s.timMap.Get(e) = timers
		*s.profMap.Get(e) = prof
	} else {
		e = s.plainMapper.NewEntity(&pos, &vel, &body, &owner, &timers, &prof)
	}

	s.track(e, sp.Kind, sp.Group)
	return e
}

// SpawnAutonomous creates an AI cell carrying a brain.
func (s *Store) SpawnAutonomous(x, y, mass float64, group components.GroupID, brain components.Brain) ecs.Entity {
	s.nextSerial++
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	body := components.Body{Kind: components.KindAutonomous, Alive: true, Serial: s.nextSerial}
	systems.SetMass(&body, mass, s.cfg.Mass.RadiusFactor)
	owner := components.Owner{Group: group}
	timers := components.Timers{}
	prof := components.NeutralProfile()

	e := s.brainMapper.NewEntity(&pos, &vel, &body, &owner, &timers, &prof, &brain)
	s.track(e, components.KindAutonomous, group)
	return e
}

// track appends a new entity to the live list and indexes cells by group.
// Serials only grow, so appending keeps both lists sorted.
func (s *Store) track(e ecs.Entity, kind components.Kind, group components.GroupID) {
	s.live = append(s.live, e)
	s.counts[kind]++
	if !kind.IsCell() || group == 0 {
		return
	}
	members, ok := s.groups[group]
	if !ok {
		idx, _ := slices.BinarySearch(s.groupIDs, group)
		s.groupIDs = slices.Insert(s.groupIDs, idx, group)
	}
	s.groups[group] = append(members, e)
}

// Commit drops entities marked dead this tick. Entries may repeat or refer
// to entities already gone; each entity is dropped at most once. Pooled
// kinds return to their pool, others leave the world. The returned slice is
// reused by the next call.
func (s *Store) Commit(removed []ecs.Entity) []Removal {
	s.removals = s.removals[:0]
	if len(removed) == 0 {
		return s.removals
	}

	alive := func(e ecs.Entity) bool { return s.bodyMap.Get(e).Alive }
	s.live = slices.DeleteFunc(s.live, func(e ecs.Entity) bool { return !alive(e) })
	for i := 0; i < len(s.groupIDs); {
		id := s.groupIDs[i]
		members := slices.DeleteFunc(s.groups[id], func(e ecs.Entity) bool { return !alive(e) })
		if len(members) == 0 {
			delete(s.groups, id)
			s.groupIDs = slices.Delete(s.groupIDs, i, i+1)
			continue
		}
		s.groups[id] = members
		i++
	}

	for _, e := range removed {
		if !s.world.Alive(e) {
			continue
		}
		body := s.bodyMap.Get(e)
		if body.Serial == 0 || body.Alive {
			continue
		}
		s.removals = append(s.removals, Removal{
			Kind:   body.Kind,
			Group:  s.ownMap.Get(e).Group,
			Serial: body.Serial,
		})
		s.counts[body.Kind]--

		if pool := s.pools[body.Kind]; pool != nil {
			pool.Release(e)
		} else {
			s.world.RemoveEntity(e)
		}
	}
	return s.removals
}

// Live returns every live entity in ascending serial order.
func (s *Store) Live() []ecs.Entity {
	return s.live
}

// Groups returns the owner groups that have at least one fragment.
func (s *Store) Groups() []components.GroupID {
	return s.groupIDs
}

// Members returns the fragments of a group in ascending serial order.
func (s *Store) Members(g components.GroupID) []ecs.Entity {
	return s.groups[g]
}

// Count returns the number of live entities of the given kind.
func (s *Store) Count(k components.Kind) int {
	return s.counts[k]
}

// Body returns the body of e.
func (s *Store) Body(e ecs.Entity) *components.Body {
	return s.bodyMap.Get(e)
}

// Position returns the position of e.
func (s *Store) Position(e ecs.Entity) *components.Position {
	return s.posMap.Get(e)
}

// Velocity returns the velocity of e.
func (s *Store) Velocity(e ecs.Entity) *components.Velocity {
	return s.velMap.Get(e)
}

// Owner returns the owner tag of e.
func (s *Store) Owner(e ecs.Entity) components.GroupID {
	return s.ownMap.Get(e).Group
}

// Timers returns the timers of e.
func (s *Store) Timers(e ecs.Entity) *components.Timers {
	return s.timMap.Get(e)
}

// Profile returns the class profile of e.
func (s *Store) Profile(e ecs.Entity) *components.Profile {
	return s.profMap.Get(e)
}

// Brain returns the brain of e, or nil if it has none.
func (s *Store) Brain(e ecs.Entity) *components.Brain {
	if !s.brainMap.Has(e) {
		return nil
	}
	return s.brainMap.Get(e)
}

// GroupMass sums the mass of a group's live fragments.
func (s *Store) GroupMass(g components.GroupID) float64 {
	var total float64
	for _, e := range s.groups[g] {
		if b := s.bodyMap.Get(e); b.Alive {
			total += b.Mass
		}
	}
	return total
}
