package telemetry

import (
	"encoding/json"
	"math/rand"
	"sort"

	"github.com/pthm-cable/cellarena/config"
)

// HallEntry records a finished AI career worth remembering.
type HallEntry struct {
	Group       uint32
	Personality uint8
	Fitness     float64
	PeakMass    float64
	Kills       int
	Survival    float64
}

// HallOfFame ranks finished AI careers, one hall per personality.
// Respawning actors can draw a personality weighted by past success.
type HallOfFame struct {
	halls   [][]HallEntry
	maxSize int
	cfg     config.HallOfFameConfig
	rng     *rand.Rand
}

// NewHallOfFame creates a hall of fame with the given capacity per personality.
func NewHallOfFame(cfg config.HallOfFameConfig, numPersonalities int, rng *rand.Rand) *HallOfFame {
	halls := make([][]HallEntry, numPersonalities)
	for i := range halls {
		halls[i] = make([]HallEntry, 0, cfg.Size)
	}
	return &HallOfFame{
		halls:   halls,
		maxSize: cfg.Size,
		cfg:     cfg,
		rng:     rng,
	}
}

// Consider evaluates a finished career for hall entry.
// Returns true if the career was added.
func (hof *HallOfFame) Consider(group uint32, stats *LifetimeStats) bool {
	if stats == nil || hof.maxSize <= 0 || int(stats.Personality) >= len(hof.halls) {
		return false
	}
	if stats.SurvivalTimeSec < hof.cfg.MinSurvivalSec {
		return false
	}

	entry := HallEntry{
		Group:       group,
		Personality: stats.Personality,
		Fitness:     hof.fitness(stats),
		PeakMass:    stats.PeakMass,
		Kills:       stats.Kills,
		Survival:    stats.SurvivalTimeSec,
	}

	var added bool
	hof.halls[stats.Personality], added = hof.insertEntry(hof.halls[stats.Personality], entry)
	return added
}

func (hof *HallOfFame) fitness(stats *LifetimeStats) float64 {
	w := hof.cfg.Fitness
	return stats.PeakMass*w.PeakMassWeight +
		float64(stats.Kills)*w.KillsWeight +
		stats.SurvivalTimeSec*w.SurvivalWeight
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) ([]HallEntry, bool) {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})
	if idx >= hof.maxSize {
		return hall, false
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall, true
}

// SamplePersonality picks a personality index. With the configured chance it
// runs a tournament over all recorded careers; otherwise, or when the halls
// are empty, it picks uniformly among n personalities.
func (hof *HallOfFame) SamplePersonality(n int) int {
	if n <= 0 {
		return 0
	}
	total := hof.Size()
	if total == 0 || hof.rng.Float64() >= hof.cfg.SampleChance {
		return hof.rng.Intn(n)
	}

	// Tournament selection with k=3
	const tournamentSize = 3
	var best *HallEntry
	for i := 0; i < tournamentSize; i++ {
		c := hof.entryAt(hof.rng.Intn(total))
		if best == nil || c.Fitness > best.Fitness {
			best = c
		}
	}
	if int(best.Personality) >= n {
		return hof.rng.Intn(n)
	}
	return int(best.Personality)
}

func (hof *HallOfFame) entryAt(i int) *HallEntry {
	for h := range hof.halls {
		if i < len(hof.halls[h]) {
			return &hof.halls[h][i]
		}
		i -= len(hof.halls[h])
	}
	return nil
}

// Size returns the total number of entries across all halls.
func (hof *HallOfFame) Size() int {
	n := 0
	for _, h := range hof.halls {
		n += len(h)
	}
	return n
}

// TopFitness returns the highest fitness recorded for a personality.
func (hof *HallOfFame) TopFitness(personality int) float64 {
	if personality < 0 || personality >= len(hof.halls) || len(hof.halls[personality]) == 0 {
		return 0
	}
	return hof.halls[personality][0].Fitness
}

type hallEntryJSON struct {
	Group    uint32  `json:"group"`
	Fitness  float64 `json:"fitness"`
	PeakMass float64 `json:"peak_mass"`
	Kills    int     `json:"kills"`
	Survival float64 `json:"survival_sec"`
}

// MarshalNamed serializes the halls keyed by personality name.
func (hof *HallOfFame) MarshalNamed(personalities []config.PersonalityConfig) ([]byte, error) {
	export := make(map[string][]hallEntryJSON, len(hof.halls))
	for idx, hall := range hof.halls {
		name := "unknown"
		if idx < len(personalities) {
			name = personalities[idx].Name
		}
		entries := make([]hallEntryJSON, len(hall))
		for i, e := range hall {
			entries[i] = hallEntryJSON{
				Group:    e.Group,
				Fitness:  e.Fitness,
				PeakMass: e.PeakMass,
				Kills:    e.Kills,
				Survival: e.Survival,
			}
		}
		export[name] = entries
	}
	return json.MarshalIndent(export, "", "  ")
}
