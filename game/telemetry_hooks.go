package game

import (
	"log/slog"

	"github.com/pthm-cable/cellarena/components"
	"github.com/pthm-cable/cellarena/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sample())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		if err := g.outputManager.WriteLeaderboard(g.leaderboardRows()); err != nil {
			slog.Error("failed to write leaderboard", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
	}
}

// sample measures populations and the cell mass distribution. It also
// refreshes AI career peaks.
func (g *Game) sample() telemetry.Sample {
	s := telemetry.Sample{
		Food:    g.store.Count(components.KindFood),
		Viruses: g.store.Count(components.KindVirus),
		Ejected: g.store.Count(components.KindEjected),
		AI:      g.store.Count(components.KindAutonomous),
		Idle:    g.lastBehavior.Idle,
		Fleeing: g.lastBehavior.Fleeing,
		Hunting: g.lastBehavior.Hunting,
	}

	for _, e := range g.store.Live() {
		body := g.store.Body(e)
		if body.Alive && body.Kind.IsCell() {
			s.CellMasses = append(s.CellMasses, body.Mass)
		}
	}

	for _, id := range g.store.Groups() {
		mass := g.store.GroupMass(id)
		if mass > s.LargestGroupMass {
			s.LargestGroupMass = mass
		}
		if _, ok := g.ais[id]; ok {
			g.lifetimes.UpdateMass(uint32(id), mass)
		}
	}

	if !g.eliminated {
		s.PlayerMass = g.store.GroupMass(g.player.Group)
		s.Fragments = len(g.store.Members(g.player.Group))
	}
	s.PlayerLevel = g.player.progress.Level
	return s
}

func (g *Game) leaderboardRows() []telemetry.LeaderboardRow {
	rows := make([]telemetry.LeaderboardRow, len(g.leaderboard))
	for i, e := range g.leaderboard {
		rows[i] = telemetry.LeaderboardRow{
			Tick:  g.tick,
			Rank:  e.Rank,
			Name:  e.Name,
			Kind:  e.Kind,
			Group: e.Group,
			Mass:  e.Mass,
		}
	}
	return rows
}
