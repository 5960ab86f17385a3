// Package game orchestrates the arena: it owns the entity store, runs the
// systems in a fixed order every tick and exposes settled post-tick views.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/config"
	"github.com/pthm-cable/cellarena/systems"
	"github.com/pthm-cable/cellarena/telemetry"
)

// ErrEliminated is returned by Frame once the controlled actor has lost
// its last fragment.
var ErrEliminated = errors.New("game: controlled actor eliminated")

// commandCapacity bounds the actions buffered between ticks.
const commandCapacity = 64

// Options configures a game instance.
type Options struct {
	Seed           int64
	PlayerName     string // Empty = config player.name
	PlayerClass    string // Empty = config player.class
	OutputDir      string // Empty = no CSV output
	LogStats       bool
	StatsWindowSec float64 // 0 = config telemetry.stats_window
	StatsCallback  func(telemetry.WindowStats)
}

// Actor is the controlled actor: a group of fragments steered together.
type Actor struct {
	Name    string
	Group   components.GroupID
	profile components.Profile

	steerX, steerY float64
	headX, headY   float64 // Last non-zero steering direction

	splitCooldown   int32
	ejectCooldown   int32
	abilityCooldown int32
	abilityTicks    int32

	progress *systems.ProgressionTracker
	spawned  int32
}

// aiActor tracks one autonomous cell and the personality it was given.
type aiActor struct {
	entity      ecs.Entity
	personality int
}

// Game holds the complete simulation state.
type Game struct {
	cfg *config.Config
	rng *rand.Rand

	store  *Store
	grid   *systems.SpatialGrid
	biomes *systems.BiomeMap

	movement    *systems.MovementSystem
	behavior    *systems.BehaviorSystem
	interaction *systems.InteractionSystem

	timerFilter *ecs.Filter2[components.Body, components.Timers]

	clock    *Clock
	commands *CommandQueue

	player     *Actor
	eliminated bool
	ais        map[components.GroupID]*aiActor
	respawns   []int32 // Ticks at which a replacement AI is due

	tick int32

	// Scratch reused every tick
	removed  []ecs.Entity
	actions  []Command
	controls []systems.Control

	lastBehavior systems.BehaviorStats
	leaderboard  []LeaderboardEntry

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	lifetimes        *telemetry.LifetimeTracker
	hallOfFame       *telemetry.HallOfFame
	logStats         bool
	statsCallback    func(telemetry.WindowStats)
}

// New creates a game over the given configuration and seeds the world.
// The configuration is read, never mutated.
func New(cfg *config.Config, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	className := opts.PlayerClass
	if className == "" {
		className = cfg.Player.Class
	}
	classIdx, ok := cfg.Derived.ClassIndex[className]
	if !ok {
		return nil, fmt.Errorf("unknown player class %q", className)
	}

	name := opts.PlayerName
	if name == "" {
		name = cfg.Player.Name
	}

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	store := NewStore(cfg)
	world := store.World()
	biomes := systems.NewBiomeMap(cfg.Biomes)

	g := &Game{
		cfg:              cfg,
		rng:              rng,
		store:            store,
		grid:             systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize, cfg.Physics.GridCellCapacity),
		biomes:           biomes,
		movement:         systems.NewMovementSystem(world, cfg, biomes),
		behavior:         systems.NewBehaviorSystem(world, cfg, rng),
		interaction:      systems.NewInteractionSystem(world, cfg, rng),
		timerFilter:      ecs.NewFilter2[components.Body, components.Timers](world),
		clock:            NewClock(cfg.Derived.Step, cfg.Derived.MaxFrame, cfg.Physics.MaxTicksPerFrame),
		commands:         NewCommandQueue(commandCapacity),
		ais:              make(map[components.GroupID]*aiActor, cfg.AI.Count),
		collector:        telemetry.NewCollector(statsWindow, cfg.Physics.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Telemetry.GiantMass),
		lifetimes:        telemetry.NewLifetimeTracker(),
		hallOfFame:       telemetry.NewHallOfFame(cfg.HallOfFame, len(cfg.AI.Personalities), rng),
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	g.seedWorld()
	g.spawnPlayer(name, classIdx)
	g.refreshLeaderboard()

	slog.Info("game_started",
		"seed", opts.Seed,
		"player", name,
		"class", className,
		"food", store.Count(components.KindFood),
		"viruses", store.Count(components.KindVirus),
		"ai", store.Count(components.KindAutonomous),
	)
	return g, nil
}

// Frame feeds elapsed wall time to the clock and runs the resulting ticks.
// Returns ErrEliminated once the controlled actor is gone.
func (g *Game) Frame(elapsed time.Duration) error {
	g.perfCollector.RecordFrame()

	before, _ := g.clock.Dropped()
	n := g.clock.Advance(elapsed)
	if after, _ := g.clock.Dropped(); after > before {
		g.collector.RecordDroppedTicks(after - before)
	}

	for i := 0; i < n; i++ {
		g.Step()
	}
	if g.eliminated {
		return ErrEliminated
	}
	return nil
}

// Steer sets the controlled actor's steering vector. Safe for concurrent use.
func (g *Game) Steer(dx, dy float64) {
	g.commands.Steer(dx, dy)
}

// Enqueue queues an action for the next tick. Safe for concurrent use.
// Returns false if the queue is full.
func (g *Game) Enqueue(c Command) bool {
	return g.commands.Push(c)
}

// Commands returns the input queue shared with other goroutines.
func (g *Game) Commands() *CommandQueue {
	return g.commands
}

// Eliminated reports whether the controlled actor has no fragments left.
func (g *Game) Eliminated() bool {
	return g.eliminated
}

// RespawnPlayer starts a new controlled actor after elimination.
// It is a no-op while the current actor is alive.
func (g *Game) RespawnPlayer() {
	if !g.eliminated {
		return
	}
	classIdx := int(g.player.profile.Class)
	g.spawnPlayer(g.player.Name, classIdx)
	g.eliminated = false
	slog.Info("player_respawned", "group", g.player.Group, "tick", g.tick)
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// Alpha returns the clock's interpolation fraction.
func (g *Game) Alpha() float64 {
	return g.clock.Alpha()
}

// Config returns the configuration the game runs with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Store exposes the entity store for read-only inspection.
func (g *Game) Store() *Store {
	return g.store
}

// Player returns the controlled actor.
func (g *Game) Player() *Actor {
	return g.player
}

// Close writes final outputs and closes output files.
func (g *Game) Close() error {
	if g.outputManager == nil {
		return nil
	}
	if err := g.outputManager.WriteHallOfFame(g.hallOfFame, g.cfg.AI.Personalities); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	return g.outputManager.Close()
}
