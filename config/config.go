// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Mass        MassConfig        `yaml:"mass"`
	Player      PlayerConfig      `yaml:"player"`
	Ability     AbilityConfig     `yaml:"ability"`
	Ejected     EjectedConfig     `yaml:"ejected"`
	Motion      MotionConfig      `yaml:"motion"`
	Food        FoodConfig        `yaml:"food"`
	Virus       VirusConfig       `yaml:"virus"`
	AI          AIConfig          `yaml:"ai"`
	Classes     []ClassConfig     `yaml:"classes"`
	Biomes      []BiomeConfig     `yaml:"biomes"`
	Progression ProgressionConfig `yaml:"progression"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	HallOfFame  HallOfFameConfig  `yaml:"hall_of_fame"`
	Network     NetworkConfig     `yaml:"network"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the arena bounds in world units.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PhysicsConfig holds timestep and broad-phase parameters.
type PhysicsConfig struct {
	DT               float64 `yaml:"dt"`                  // Seconds per tick
	GridCellSize     float64 `yaml:"grid_cell_size"`      // Spatial grid cell edge, much larger than typical radius
	GridCellCapacity int     `yaml:"grid_cell_capacity"`  // Entities per cell before soft overflow
	MaxFrameTime     float64 `yaml:"max_frame_time"`      // Cap on elapsed seconds accepted per frame
	MaxTicksPerFrame int     `yaml:"max_ticks_per_frame"` // Catch-up bound
}

// MassConfig holds mass/size relationships and absorption rules.
type MassConfig struct {
	RadiusFactor   float64 `yaml:"radius_factor"`   // radius = factor * sqrt(mass)
	DominanceRatio float64 `yaml:"dominance_ratio"` // predator must exceed prey mass by this multiple
	ShrinkFactor   float64 `yaml:"shrink_factor"`   // eat range = radius * this (< 1)
	PushStrength   float64 `yaml:"push_strength"`   // Fraction of sibling penetration corrected per tick
	DecayRate      float64 `yaml:"decay_rate"`      // Fraction of mass lost per second above DecayMinMass
	DecayMinMass   float64 `yaml:"decay_min_mass"`
}

// PlayerConfig holds controlled actor parameters.
type PlayerConfig struct {
	Name                 string  `yaml:"name"`
	Class                string  `yaml:"class"`
	StartMass            float64 `yaml:"start_mass"`
	BaseSpeed            float64 `yaml:"base_speed"`      // World units per second before mass damping
	SpeedDampening       float64 `yaml:"speed_dampening"` // speed = base / (1 + sqrt(mass)/dampening)
	MinSplitMass         float64 `yaml:"min_split_mass"`
	MinFragmentMass      float64 `yaml:"min_fragment_mass"` // Smallest piece a virus burst produces
	MaxFragments         int     `yaml:"max_fragments"`
	SplitSpeed           float64 `yaml:"split_speed"`
	SplitCooldownTicks   int32   `yaml:"split_cooldown_ticks"`
	MergeProtectionTicks int32   `yaml:"merge_protection_ticks"`
	EjectMass            float64 `yaml:"eject_mass"` // Mass of the projectile
	EjectCost            float64 `yaml:"eject_cost"` // Mass removed from the emitter
	MinEjectMass         float64 `yaml:"min_eject_mass"`
	EjectSpeed           float64 `yaml:"eject_speed"`
	EjectCooldownTicks   int32   `yaml:"eject_cooldown_ticks"`
	Cohesion             float64 `yaml:"cohesion"`   // Pull toward group centroid, units/s
	Separation           float64 `yaml:"separation"` // Push between overlapping siblings, units/s
}

// AbilityConfig holds the burst ability parameters.
type AbilityConfig struct {
	Boost         float64 `yaml:"boost"` // Extra speed fraction, scaled by class burst
	DurationTicks int32   `yaml:"duration_ticks"`
	CooldownTicks int32   `yaml:"cooldown_ticks"`
}

// EjectedConfig holds ejected-mass lifetime parameters.
type EjectedConfig struct {
	TTLTicks             int32 `yaml:"ttl_ticks"`
	SpawnProtectionTicks int32 `yaml:"spawn_protection_ticks"`
}

// MotionConfig holds ballistic motion parameters.
type MotionConfig struct {
	Friction float64 `yaml:"friction"`  // Multiplicative velocity decay per tick
	MinSpeed float64 `yaml:"min_speed"` // Velocity magnitude (units/s) below which it snaps to zero
}

// FoodConfig holds static food parameters.
type FoodConfig struct {
	Count int     `yaml:"count"`
	Mass  float64 `yaml:"mass"`
}

// VirusConfig holds virus hazard parameters.
type VirusConfig struct {
	Count        int     `yaml:"count"`     // Population maintained by respawn
	MaxCount     int     `yaml:"max_count"` // Reproduction stops at this population
	Mass         float64 `yaml:"mass"`
	SplitMass    float64 `yaml:"split_mass"`  // Reproduce when fed above this
	BurstRatio   float64 `yaml:"burst_ratio"` // Controlled cell pops virus when mass > virus * this
	MaxFragments int     `yaml:"max_fragments"`
	BurstSpeed   float64 `yaml:"burst_speed"`
	BirthSpeed   float64 `yaml:"birth_speed"`
}

// PersonalityConfig is an AI behavior profile.
type PersonalityConfig struct {
	Name         string  `yaml:"name"`
	Aggression   float64 `yaml:"aggression"`    // Scales prey score
	RiskAversion float64 `yaml:"risk_aversion"` // Scales the hunt threshold
	FleeRatio    float64 `yaml:"flee_ratio"`    // Threat when other.mass > self.mass * this
}

// AIConfig holds autonomous cell parameters.
type AIConfig struct {
	Count                int                 `yaml:"count"`
	StartMassMin         float64             `yaml:"start_mass_min"`
	StartMassMax         float64             `yaml:"start_mass_max"`
	ReevaluateTicks      int32               `yaml:"reevaluate_ticks"`
	VisionRadius         float64             `yaml:"vision_radius"`
	MinEatRatio          float64             `yaml:"min_eat_ratio"`
	HuntThreshold        float64             `yaml:"hunt_threshold"`
	FoodDensityThreshold int                 `yaml:"food_density_threshold"`
	DriftSpeed           float64             `yaml:"drift_speed"` // Speed fraction while idle
	RespawnDelayTicks    int32               `yaml:"respawn_delay_ticks"`
	Personalities        []PersonalityConfig `yaml:"personalities"`
}

// ClassConfig holds per-class stat multipliers.
type ClassConfig struct {
	Name       string  `yaml:"name"`
	Speed      float64 `yaml:"speed"`
	Absorption float64 `yaml:"absorption"`
	Defense    float64 `yaml:"defense"`
	Regen      float64 `yaml:"regen"` // Mass per second
	Burst      float64 `yaml:"burst"`
}

// BiomeConfig describes a rectangular zone with passive effects.
type BiomeConfig struct {
	Name            string  `yaml:"name"`
	Effect          string  `yaml:"effect"` // drain, growth, slow, haste
	X               float64 `yaml:"x"`
	Y               float64 `yaml:"y"`
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	MassRate        float64 `yaml:"mass_rate"` // Mass per second, negative drains
	SpeedMultiplier float64 `yaml:"speed_multiplier"`
}

// ProgressionConfig holds experience/level parameters.
type ProgressionConfig struct {
	BaseThreshold float64 `yaml:"base_threshold"`
	GrowthFactor  float64 `yaml:"growth_factor"`
	XPPerMass     float64 `yaml:"xp_per_mass"`
}

// LeaderboardConfig holds leaderboard view parameters.
type LeaderboardConfig struct {
	Size          int   `yaml:"size"`
	IntervalTicks int32 `yaml:"interval_ticks"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	GiantMass           float64 `yaml:"giant_mass"` // Bookmark when any group exceeds this
}

// HallOfFameConfig holds parameters for ranking finished AI careers.
type HallOfFameConfig struct {
	Size           int                     `yaml:"size"`
	MinSurvivalSec float64                 `yaml:"min_survival_sec"`
	SampleChance   float64                 `yaml:"sample_chance"` // Respawns draw a proven personality with this probability
	Fitness        HallOfFameFitnessConfig `yaml:"fitness"`
}

// HallOfFameFitnessConfig holds the career score weights.
type HallOfFameFitnessConfig struct {
	PeakMassWeight float64 `yaml:"peak_mass_weight"`
	KillsWeight    float64 `yaml:"kills_weight"`
	SurvivalWeight float64 `yaml:"survival_weight"`
}

// NetworkConfig holds spectator feed parameters.
type NetworkConfig struct {
	SendIntervalTicks int32 `yaml:"send_interval_ticks"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Step       time.Duration  // Physics.DT as a duration
	MaxFrame   time.Duration  // Physics.MaxFrameTime as a duration
	ClassIndex map[string]int // name -> index into Classes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Classes = append([]ClassConfig(nil), c.Classes...)
	cp.Biomes = append([]BiomeConfig(nil), c.Biomes...)
	cp.AI.Personalities = append([]PersonalityConfig(nil), c.AI.Personalities...)
	cp.computeDerived()
	return &cp
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Step = time.Duration(c.Physics.DT * float64(time.Second))
	c.Derived.MaxFrame = time.Duration(c.Physics.MaxFrameTime * float64(time.Second))

	// Synthesize a neutral class if none specified
	if len(c.Classes) == 0 {
		c.Classes = []ClassConfig{{Name: "balanced", Speed: 1, Absorption: 1, Defense: 1, Burst: 1}}
	}
	for i := range c.Classes {
		cl := &c.Classes[i]
		if cl.Speed == 0 {
			cl.Speed = 1
		}
		if cl.Absorption == 0 {
			cl.Absorption = 1
		}
		if cl.Defense == 0 {
			cl.Defense = 1
		}
		if cl.Burst == 0 {
			cl.Burst = 1
		}
	}

	if len(c.AI.Personalities) == 0 {
		c.AI.Personalities = []PersonalityConfig{{Name: "neutral", Aggression: 1, RiskAversion: 1, FleeRatio: 1.15}}
	}

	for i := range c.Biomes {
		if c.Biomes[i].SpeedMultiplier == 0 {
			c.Biomes[i].SpeedMultiplier = 1
		}
	}

	c.Derived.ClassIndex = make(map[string]int, len(c.Classes))
	for i, cl := range c.Classes {
		c.Derived.ClassIndex[cl.Name] = i
	}
}

// Validate reports the first parameter that would break simulation invariants.
func (c *Config) Validate() error {
	switch {
	case c.World.Width <= 0 || c.World.Height <= 0:
		return fmt.Errorf("world: bounds must be positive, got %vx%v", c.World.Width, c.World.Height)
	case c.Physics.DT <= 0:
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	case c.Physics.GridCellSize <= 0:
		return fmt.Errorf("physics.grid_cell_size must be positive, got %v", c.Physics.GridCellSize)
	case c.Physics.GridCellCapacity <= 0:
		return fmt.Errorf("physics.grid_cell_capacity must be positive, got %d", c.Physics.GridCellCapacity)
	case c.Physics.MaxTicksPerFrame <= 0:
		return fmt.Errorf("physics.max_ticks_per_frame must be positive, got %d", c.Physics.MaxTicksPerFrame)
	case c.Mass.RadiusFactor <= 0:
		return fmt.Errorf("mass.radius_factor must be positive, got %v", c.Mass.RadiusFactor)
	case c.Mass.DominanceRatio < 1:
		return fmt.Errorf("mass.dominance_ratio must be >= 1, got %v", c.Mass.DominanceRatio)
	case c.Mass.ShrinkFactor <= 0 || c.Mass.ShrinkFactor > 1:
		return fmt.Errorf("mass.shrink_factor must be in (0, 1], got %v", c.Mass.ShrinkFactor)
	case c.Player.StartMass <= 0:
		return fmt.Errorf("player.start_mass must be positive, got %v", c.Player.StartMass)
	case c.Player.MaxFragments < 1:
		return fmt.Errorf("player.max_fragments must be >= 1, got %d", c.Player.MaxFragments)
	case c.Player.EjectMass <= 0 || c.Player.EjectCost < c.Player.EjectMass:
		return fmt.Errorf("player.eject_cost (%v) must be >= eject_mass (%v) > 0", c.Player.EjectCost, c.Player.EjectMass)
	case c.Motion.Friction < 0 || c.Motion.Friction >= 1:
		return fmt.Errorf("motion.friction must be in [0, 1), got %v", c.Motion.Friction)
	case c.Food.Count > 0 && c.Food.Mass <= 0:
		return fmt.Errorf("food.mass must be positive, got %v", c.Food.Mass)
	case c.Virus.Count > 0 && (c.Virus.Mass <= 0 || c.Virus.SplitMass <= c.Virus.Mass):
		return fmt.Errorf("virus.split_mass (%v) must exceed virus.mass (%v) > 0", c.Virus.SplitMass, c.Virus.Mass)
	case c.AI.Count > 0 && (c.AI.StartMassMin <= 0 || c.AI.StartMassMax < c.AI.StartMassMin):
		return fmt.Errorf("ai start mass range invalid: [%v, %v]", c.AI.StartMassMin, c.AI.StartMassMax)
	case c.AI.ReevaluateTicks < 1:
		return fmt.Errorf("ai.reevaluate_ticks must be >= 1, got %d", c.AI.ReevaluateTicks)
	case c.Progression.BaseThreshold <= 0 || c.Progression.GrowthFactor <= 1:
		return fmt.Errorf("progression: base_threshold must be > 0 and growth_factor > 1")
	}
	for _, b := range c.Biomes {
		if b.Width <= 0 || b.Height <= 0 || math.IsNaN(b.MassRate) {
			return fmt.Errorf("biome %q: invalid rectangle %vx%v", b.Name, b.Width, b.Height)
		}
	}
	return nil
}

// Class returns the class config with the given name.
func (c *Config) Class(name string) (ClassConfig, bool) {
	idx, ok := c.Derived.ClassIndex[name]
	if !ok {
		return ClassConfig{}, false
	}
	return c.Classes[idx], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
