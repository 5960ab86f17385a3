package telemetry

// LifetimeStats tracks one AI actor's career from spawn to death.
type LifetimeStats struct {
	BirthTick       int32
	SurvivalTimeSec float64

	Personality uint8 // Index into the configured personalities

	PeakMass     float64
	Kills        int // Cells absorbed
	MassAbsorbed float64
}

// LifetimeTracker manages per-actor lifetime statistics, keyed by owner group.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register starts tracking a new actor.
func (lt *LifetimeTracker) Register(group uint32, birthTick int32, personality uint8, mass float64) {
	lt.stats[group] = &LifetimeStats{
		BirthTick:   birthTick,
		Personality: personality,
		PeakMass:    mass,
	}
}

// Get returns the lifetime stats for an actor, or nil if not found.
func (lt *LifetimeTracker) Get(group uint32) *LifetimeStats {
	return lt.stats[group]
}

// Remove stops tracking an actor and returns its final stats with survival
// time filled in.
func (lt *LifetimeTracker) Remove(group uint32, currentTick int32, dt float64) *LifetimeStats {
	stats := lt.stats[group]
	if stats == nil {
		return nil
	}
	delete(lt.stats, group)
	stats.SurvivalTimeSec = float64(currentTick-stats.BirthTick) * dt
	return stats
}

// RecordAbsorption credits an actor with absorbed mass. Cell prey counts as a kill.
func (lt *LifetimeTracker) RecordAbsorption(group uint32, mass float64, cell bool) {
	if s := lt.stats[group]; s != nil {
		s.MassAbsorbed += mass
		if cell {
			s.Kills++
		}
	}
}

// UpdateMass raises the actor's peak mass if exceeded.
func (lt *LifetimeTracker) UpdateMass(group uint32, mass float64) {
	if s := lt.stats[group]; s != nil && mass > s.PeakMass {
		s.PeakMass = mass
	}
}

// Count returns the number of tracked actors.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
