package game

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/cellarena/components"
)

// EntityView is a read-only copy of one live entity after a tick.
type EntityView struct {
	ID       uint64  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"r"`
	Mass     float64 `json:"m"`
	Group    uint32  `json:"g,omitempty"`
	Class    string  `json:"class,omitempty"`
	Behavior string  `json:"state,omitempty"`
}

// ProgressSnapshot reports the controlled actor's progression.
type ProgressSnapshot struct {
	TotalMass  float64 `json:"mass"`
	Level      int     `json:"level"`
	Experience float64 `json:"xp"`
	ToNext     float64 `json:"xp_to_next"`
	Fragments  int     `json:"fragments"`
	Eliminated bool    `json:"eliminated"`
}

// LeaderboardEntry ranks one actor by its summed fragment mass.
type LeaderboardEntry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Group uint32  `json:"group"`
	Kind  string  `json:"kind"`
	Mass  float64 `json:"mass"`
}

// Snapshot appends a copy of every live entity to dst and returns it.
func (g *Game) Snapshot(dst []EntityView) []EntityView {
	for _, e := range g.store.Live() {
		body := g.store.Body(e)
		if !body.Alive {
			continue
		}
		pos := g.store.Position(e)
		v := EntityView{
			ID:     body.Serial,
			Kind:   body.Kind.String(),
			X:      pos.X,
			Y:      pos.Y,
			Radius: body.Radius,
			Mass:   body.Mass,
			Group:  uint32(g.store.Owner(e)),
		}
		switch body.Kind {
		case components.KindControlled:
			v.Class = g.cfg.Classes[g.store.Profile(e).Class].Name
		case components.KindAutonomous:
			if brain := g.store.Brain(e); brain != nil {
				v.Behavior = brain.State.String()
			}
		}
		dst = append(dst, v)
	}
	return dst
}

// Progress returns the controlled actor's progression state.
func (g *Game) Progress() ProgressSnapshot {
	p := g.player
	return ProgressSnapshot{
		TotalMass:  g.store.GroupMass(p.Group),
		Level:      p.progress.Level,
		Experience: p.progress.XP,
		ToNext:     p.progress.Remaining(),
		Fragments:  len(g.store.Members(p.Group)),
		Eliminated: g.eliminated,
	}
}

// Leaderboard returns the ranking computed at the last refresh.
// The slice is replaced, never modified, on refresh.
func (g *Game) Leaderboard() []LeaderboardEntry {
	return g.leaderboard
}

// refreshLeaderboard ranks every actor group by summed mass.
func (g *Game) refreshLeaderboard() {
	entries := make([]LeaderboardEntry, 0, len(g.store.Groups()))
	for _, id := range g.store.Groups() {
		mass := g.store.GroupMass(id)
		if mass <= 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Name:  g.groupName(id),
			Group: uint32(id),
			Kind:  g.groupKind(id).String(),
			Mass:  mass,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Mass != entries[j].Mass {
			return entries[i].Mass > entries[j].Mass
		}
		return entries[i].Group < entries[j].Group
	})
	if n := g.cfg.Leaderboard.Size; n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	g.leaderboard = entries
}

func (g *Game) groupName(id components.GroupID) string {
	if id == g.player.Group {
		return g.player.Name
	}
	if a, ok := g.ais[id]; ok && a.personality < len(g.cfg.AI.Personalities) {
		return fmt.Sprintf("%s-%d", g.cfg.AI.Personalities[a.personality].Name, id)
	}
	return fmt.Sprintf("cell-%d", id)
}

func (g *Game) groupKind(id components.GroupID) components.Kind {
	if members := g.store.Members(id); len(members) > 0 {
		return g.store.Body(members[0]).Kind
	}
	return components.KindAutonomous
}
