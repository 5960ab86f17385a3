// Package telemetry provides arena health tracking, bookmarking, and CSV output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	FoodCount    int `csv:"food"`
	VirusCount   int `csv:"viruses"`
	EjectedCount int `csv:"ejected"`
	AICount      int `csv:"ai"`
	Fragments    int `csv:"player_fragments"`

	// Events during window
	Absorptions  int     `csv:"absorptions"`
	FoodEaten    int     `csv:"food_eaten"`
	MassAbsorbed float64 `csv:"mass_absorbed"`
	AIDeaths     int     `csv:"ai_deaths"`
	AIRespawns   int     `csv:"ai_respawns"`
	Starved      int     `csv:"starved"`
	Merges       int     `csv:"merges"`
	Splits       int     `csv:"splits"`
	Ejects       int     `csv:"ejects"`
	Abilities    int     `csv:"abilities"`
	VirusFed     int     `csv:"virus_fed"`
	VirusPops    int     `csv:"virus_pops"`
	VirusBirths  int     `csv:"virus_births"`
	LevelUps     int     `csv:"level_ups"`
	TargetsLost  int     `csv:"targets_lost"`
	GridOverflow int     `csv:"grid_overflow"`
	DroppedTicks int     `csv:"dropped_ticks"`

	// AI state at window end
	Idle    int `csv:"ai_idle"`
	Fleeing int `csv:"ai_fleeing"`
	Hunting int `csv:"ai_hunting"`

	// Cell mass distribution (sampled at window end)
	MassMean float64 `csv:"mass_mean"`
	MassStd  float64 `csv:"mass_std"`
	MassP10  float64 `csv:"mass_p10"`
	MassP50  float64 `csv:"mass_p50"`
	MassP90  float64 `csv:"mass_p90"`
	MassMax  float64 `csv:"mass_max"`

	// Controlled actor
	PlayerMass  float64 `csv:"player_mass"`
	PlayerLevel int     `csv:"player_level"`

	// Heaviest owner group
	LargestGroupMass float64 `csv:"largest_group_mass"`
}

// MassStats holds summary statistics of a mass sample.
type MassStats struct {
	Mean, Std          float64
	P10, P50, P90, Max float64
}

// ComputeMassStats calculates mean, std, and quantiles from mass values.
// The input is not modified.
func ComputeMassStats(values []float64) MassStats {
	n := len(values)
	if n == 0 {
		return MassStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var ms MassStats
	if n == 1 {
		ms.Mean = sorted[0]
	} else {
		ms.Mean, ms.Std = stat.MeanStdDev(sorted, nil)
	}
	ms.P10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	ms.P50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	ms.P90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)
	ms.Max = sorted[n-1]
	return ms
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("ai", s.AICount),
		slog.Int("food", s.FoodCount),
		slog.Int("viruses", s.VirusCount),
		slog.Int("absorptions", s.Absorptions),
		slog.Int("ai_deaths", s.AIDeaths),
		slog.Float64("mass_mean", s.MassMean),
		slog.Float64("mass_max", s.MassMax),
		slog.Float64("player_mass", s.PlayerMass),
		slog.Int("player_level", s.PlayerLevel),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"food", s.FoodCount,
		"viruses", s.VirusCount,
		"ejected", s.EjectedCount,
		"ai", s.AICount,
		"player_fragments", s.Fragments,
		"absorptions", s.Absorptions,
		"food_eaten", s.FoodEaten,
		"mass_absorbed", s.MassAbsorbed,
		"ai_deaths", s.AIDeaths,
		"ai_respawns", s.AIRespawns,
		"starved", s.Starved,
		"merges", s.Merges,
		"splits", s.Splits,
		"ejects", s.Ejects,
		"abilities", s.Abilities,
		"virus_fed", s.VirusFed,
		"virus_pops", s.VirusPops,
		"virus_births", s.VirusBirths,
		"level_ups", s.LevelUps,
		"targets_lost", s.TargetsLost,
		"grid_overflow", s.GridOverflow,
		"dropped_ticks", s.DroppedTicks,
		"ai_idle", s.Idle,
		"ai_fleeing", s.Fleeing,
		"ai_hunting", s.Hunting,
		"mass_mean", s.MassMean,
		"mass_std", s.MassStd,
		"mass_p50", s.MassP50,
		"mass_p90", s.MassP90,
		"mass_max", s.MassMax,
		"player_mass", s.PlayerMass,
		"player_level", s.PlayerLevel,
		"largest_group_mass", s.LargestGroupMass,
	)
}
