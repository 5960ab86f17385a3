package components

// Kind identifies what an entity is. Fixed at creation.
type Kind uint8

const (
	KindControlled Kind = iota // Player-controlled fragment
	KindAutonomous             // AI-controlled cell
	KindFood                   // Static food pellet
	KindEjected                // Ejected-mass projectile
	KindVirus                  // Static hazard
	NumKinds
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindControlled:
		return "controlled"
	case KindAutonomous:
		return "autonomous"
	case KindFood:
		return "food"
	case KindEjected:
		return "ejected"
	case KindVirus:
		return "virus"
	default:
		return "unknown"
	}
}

// IsCell reports whether the kind can act as a predator.
func (k Kind) IsCell() bool {
	return k == KindControlled || k == KindAutonomous
}

// IsStatic reports whether the kind never moves under steering.
func (k Kind) IsStatic() bool {
	return k == KindFood || k == KindVirus
}

// Body holds the mass-derived geometry of an entity.
// Radius is a pure function of Mass; mutate Mass only through systems.SetMass.
type Body struct {
	Kind   Kind
	Mass   float64
	Radius float64
	Alive  bool   // false while dormant in a pool or removed this tick
	Serial uint64 // logical id, unique for this incarnation
}

// GroupID links fragments and ejected mass to the actor that owns them.
// Zero means no owner.
type GroupID uint32

// Owner holds the owner-group tag.
type Owner struct {
	Group GroupID
}

// Timers holds per-tick countdowns.
type Timers struct {
	MergeProtection int32 // >0: siblings cannot merge with this fragment
	SpawnProtection int32 // >0: emitter cannot reabsorb this ejected mass
	TTL             int32 // >0: ticks left before despawn; 0 means no limit
}

// Tick decrements all running countdowns. Reports whether TTL just expired.
func (t *Timers) Tick() (expired bool) {
	if t.MergeProtection > 0 {
		t.MergeProtection--
	}
	if t.SpawnProtection > 0 {
		t.SpawnProtection--
	}
	if t.TTL > 0 {
		t.TTL--
		return t.TTL == 0
	}
	return false
}

// Profile holds class stat multipliers attached at spawn.
type Profile struct {
	Class      uint8
	Speed      float64
	Absorption float64
	Defense    float64
	Regen      float64
	Burst      float64
}

// NeutralProfile returns multipliers that leave every stat unchanged.
func NeutralProfile() Profile {
	return Profile{Speed: 1, Absorption: 1, Defense: 1, Burst: 1}
}
