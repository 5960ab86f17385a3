package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	absorptions  int
	foodEaten    int
	massAbsorbed float64
	aiDeaths     int
	aiRespawns   int
	starved      int
	merges       int
	splits       int
	ejects       int
	abilities    int
	virusFed     int
	virusPops    int
	virusBirths  int
	levelUps     int
	targetsLost  int
	gridOverflow int
	droppedTicks int
}

// Sample holds the arena state measured by the caller at flush time.
type Sample struct {
	Food, Viruses, Ejected, AI int
	Fragments                  int
	Idle, Fleeing, Hunting     int
	CellMasses                 []float64
	PlayerMass                 float64
	PlayerLevel                int
	LargestGroupMass           float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordAbsorption records one predator consuming one prey.
func (c *Collector) RecordAbsorption(mass float64, food bool) {
	c.absorptions++
	c.massAbsorbed += mass
	if food {
		c.foodEaten++
	}
}

// RecordAIDeath records an autonomous cell being eaten or starved.
func (c *Collector) RecordAIDeath() { c.aiDeaths++ }

// RecordAIRespawn records a replacement autonomous cell.
func (c *Collector) RecordAIRespawn() { c.aiRespawns++ }

// RecordStarved records a cell drained to zero mass.
func (c *Collector) RecordStarved() { c.starved++ }

// RecordSplit records a player split action that produced fragments.
func (c *Collector) RecordSplit() { c.splits++ }

// RecordEject records a player eject action that produced projectiles.
func (c *Collector) RecordEject() { c.ejects++ }

// RecordAbility records an ability activation.
func (c *Collector) RecordAbility() { c.abilities++ }

// RecordInteractions folds the counters of one interaction pass.
func (c *Collector) RecordInteractions(merges, virusFed, virusPops, virusBirths int) {
	c.merges += merges
	c.virusFed += virusFed
	c.virusPops += virusPops
	c.virusBirths += virusBirths
}

// RecordLevelUps records levels gained by the controlled actor.
func (c *Collector) RecordLevelUps(n int) { c.levelUps += n }

// RecordTargetsLost records hunting brains whose target vanished.
func (c *Collector) RecordTargetsLost(n int) { c.targetsLost += n }

// RecordGridOverflow records inserts dropped by the spatial grid.
func (c *Collector) RecordGridOverflow(n int) { c.gridOverflow += n }

// RecordDroppedTicks records ticks discarded by the clock.
func (c *Collector) RecordDroppedTicks(n int) { c.droppedTicks += n }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	ms := ComputeMassStats(s.CellMasses)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		FoodCount:    s.Food,
		VirusCount:   s.Viruses,
		EjectedCount: s.Ejected,
		AICount:      s.AI,
		Fragments:    s.Fragments,

		Absorptions:  c.absorptions,
		FoodEaten:    c.foodEaten,
		MassAbsorbed: c.massAbsorbed,
		AIDeaths:     c.aiDeaths,
		AIRespawns:   c.aiRespawns,
		Starved:      c.starved,
		Merges:       c.merges,
		Splits:       c.splits,
		Ejects:       c.ejects,
		Abilities:    c.abilities,
		VirusFed:     c.virusFed,
		VirusPops:    c.virusPops,
		VirusBirths:  c.virusBirths,
		LevelUps:     c.levelUps,
		TargetsLost:  c.targetsLost,
		GridOverflow: c.gridOverflow,
		DroppedTicks: c.droppedTicks,

		Idle:    s.Idle,
		Fleeing: s.Fleeing,
		Hunting: s.Hunting,

		MassMean: ms.Mean,
		MassStd:  ms.Std,
		MassP10:  ms.P10,
		MassP50:  ms.P50,
		MassP90:  ms.P90,
		MassMax:  ms.Max,

		PlayerMass:       s.PlayerMass,
		PlayerLevel:      s.PlayerLevel,
		LargestGroupMass: s.LargestGroupMass,
	}

	// Reset for next window
	*c = Collector{
		windowDurationSec:   c.windowDurationSec,
		windowDurationTicks: c.windowDurationTicks,
		dt:                  c.dt,
		windowStartTick:     currentTick,
	}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
