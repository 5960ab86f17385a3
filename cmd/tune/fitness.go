package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/cellarena/config"
	"github.com/pthm-cable/cellarena/game"
	"github.com/pthm-cable/cellarena/telemetry"
)

// FitnessEvaluator runs headless arenas and scores them.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu        sync.Mutex
	lastScore Score
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 10.0,
	}
}

// LastScore returns the averaged score components of the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() Score {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastScore
}

// Score breaks arena quality into its weighted parts, each in [0, 1].
type Score struct {
	Turnover  float64 // AI deaths per AI per minute near the target rate
	Dominance float64 // No group runs away with the arena
	Activity  float64 // Share of AI hunting near the target share
	Stability float64 // Low variation in AI and virus populations
	Total     float64
}

// Score component weights and targets.
const (
	weightTurnover  = 0.30
	weightDominance = 0.30
	weightActivity  = 0.20
	weightStability = 0.20

	targetDeathsPerMin = 1.0
	targetHuntShare    = 0.3

	warmupWindows = 2
)

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Seeds run in parallel, each on its own config clone.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.params.Apply(fe.baseConfig, x)

	scores := make([]Score, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			scores[idx] = computeScore(fe.runSimulation(cfg.Clone(), s), cfg)
		}(i, seed)
	}
	wg.Wait()

	var avg Score
	for _, s := range scores {
		avg.Turnover += s.Turnover
		avg.Dominance += s.Dominance
		avg.Activity += s.Activity
		avg.Stability += s.Stability
		avg.Total += s.Total
	}
	n := float64(len(scores))
	avg.Turnover /= n
	avg.Dominance /= n
	avg.Activity /= n
	avg.Stability /= n
	avg.Total /= n

	fitness := -avg.Total

	fe.mu.Lock()
	fe.lastScore = avg
	fe.mu.Unlock()

	return fitness
}

// runSimulation runs one headless arena for maxTicks and returns its windows.
// The controlled actor idles and respawns when eliminated.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) []telemetry.WindowStats {
	var windows []telemetry.WindowStats
	g, err := game.New(cfg, game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StatsCallback: func(w telemetry.WindowStats) {
			windows = append(windows, w)
		},
	})
	if err != nil {
		return nil
	}
	defer g.Close()

	for g.Tick() < fe.maxTicks {
		g.Step()
		if g.Eliminated() {
			g.RespawnPlayer()
		}
	}
	return windows
}

// computeScore scores a run's windows. Runs too short to pass warmup score zero.
func computeScore(windows []telemetry.WindowStats, cfg *config.Config) Score {
	if len(windows) <= warmupWindows {
		return Score{}
	}
	valid := windows[warmupWindows:]

	var turnoverSum, dominanceSum, activitySum float64
	var activityCount int
	aiCounts := make([]float64, 0, len(valid))
	virusCounts := make([]float64, 0, len(valid))

	for _, w := range valid {
		aiCounts = append(aiCounts, float64(w.AICount))
		virusCounts = append(virusCounts, float64(w.VirusCount))

		minutes := float64(w.WindowEndTick-w.WindowStartTick) * cfg.Physics.DT / 60
		if w.AICount > 0 && minutes > 0 {
			rate := float64(w.AIDeaths) / float64(w.AICount) / minutes
			turnoverSum += gaussian(rate, targetDeathsPerMin, 0.75)
		}

		if cfg.Telemetry.GiantMass > 0 {
			dominanceSum += 1 - clamp01(w.LargestGroupMass/cfg.Telemetry.GiantMass)
		}

		if w.AICount > 0 {
			share := float64(w.Hunting) / float64(w.AICount)
			activitySum += gaussian(share, targetHuntShare, 0.2)
			activityCount++
		}
	}

	n := float64(len(valid))
	s := Score{
		Turnover:  turnoverSum / n,
		Dominance: dominanceSum / n,
	}
	if activityCount > 0 {
		s.Activity = activitySum / float64(activityCount)
	}
	if len(valid) >= 2 {
		cvAI := cv(aiCounts)
		cvVirus := cv(virusCounts)
		s.Stability = math.Exp(-(cvAI*cvAI + cvVirus*cvVirus))
	}

	s.Total = clamp01(weightTurnover*s.Turnover +
		weightDominance*s.Dominance +
		weightActivity*s.Activity +
		weightStability*s.Stability)
	return s
}

// gaussian scores x by its distance from target, 1 at the target.
func gaussian(x, target, width float64) float64 {
	d := (x - target) / width
	return math.Exp(-d * d)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
