package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies a step of the simulation tick.
type Phase uint8

const (
	PhaseCommands Phase = iota
	PhaseTimers
	PhaseMovement
	PhaseSpatialGrid
	PhaseBehavior
	PhaseInteractions
	PhaseProgression
	PhaseCommit
	PhaseTelemetry
	numPhases
	phaseNone Phase = 255
)

var phaseNames = [numPhases]string{
	"commands", "timers", "movement", "spatial_grid", "behavior",
	"interactions", "progression", "commit", "telemetry",
}

// String returns the phase name used in logs and CSV headers.
func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       [numPhases]time.Duration
}

// PerfCollector tracks per-phase tick timing over a rolling window.
// Samples live in a fixed ring so recording never allocates.
type PerfCollector struct {
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    PerfSample
	tickStart  time.Time
	phaseStart time.Time
	lastPhase  Phase

	// Wall clock between Frame calls
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over (e.g., 60 for 1 second at 60 ticks/s).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		samples:   make([]PerfSample, windowSize),
		lastPhase: phaseNone,
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = PerfSample{}
	p.lastPhase = phaseNone
}

// StartPhase ends the running phase, if any, and starts timing the next.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	if p.lastPhase != phaseNone {
		p.current.Phases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != phaseNone {
		p.current.Phases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.current.TickDuration = now.Sub(p.tickStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % len(p.samples)
	if p.sampleCount < len(p.samples) {
		p.sampleCount++
	}
	p.lastPhase = phaseNone
}

// RecordFrame records the wall-clock time since the previous frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Average duration and share of tick time per phase
	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{FrameDuration: p.frameDuration}
	if p.frameDuration > 0 {
		out.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	if p.sampleCount == 0 {
		return out
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := &p.samples[i]
		total += s.TickDuration
		if i == 0 || s.TickDuration < out.MinTickDuration {
			out.MinTickDuration = s.TickDuration
		}
		out.MaxTickDuration = max(out.MaxTickDuration, s.TickDuration)
		for ph, d := range s.Phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.sampleCount)
	out.AvgTickDuration = total / n
	for ph := range phaseSum {
		out.PhaseAvg[ph] = phaseSum[ph] / n
		if out.AvgTickDuration > 0 {
			out.PhasePct[ph] = float64(out.PhaseAvg[ph]) / float64(out.AvgTickDuration) * 100
		}
	}
	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
	}
	return out
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, Phase(ph).String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	FPS             float64 `csv:"fps"`
	CommandsPct     float64 `csv:"commands_pct"`
	TimersPct       float64 `csv:"timers_pct"`
	MovementPct     float64 `csv:"movement_pct"`
	SpatialGridPct  float64 `csv:"spatial_grid_pct"`
	BehaviorPct     float64 `csv:"behavior_pct"`
	InteractionsPct float64 `csv:"interactions_pct"`
	ProgressionPct  float64 `csv:"progression_pct"`
	CommitPct       float64 `csv:"commit_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTickDuration.Microseconds(),
		MinTickUS:       s.MinTickDuration.Microseconds(),
		MaxTickUS:       s.MaxTickDuration.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		FPS:             s.FPS,
		CommandsPct:     s.PhasePct[PhaseCommands],
		TimersPct:       s.PhasePct[PhaseTimers],
		MovementPct:     s.PhasePct[PhaseMovement],
		SpatialGridPct:  s.PhasePct[PhaseSpatialGrid],
		BehaviorPct:     s.PhasePct[PhaseBehavior],
		InteractionsPct: s.PhasePct[PhaseInteractions],
		ProgressionPct:  s.PhasePct[PhaseProgression],
		CommitPct:       s.PhasePct[PhaseCommit],
		TelemetryPct:    s.PhasePct[PhaseTelemetry],
	}
}
