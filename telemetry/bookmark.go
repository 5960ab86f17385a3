package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkGiantEmerged     BookmarkType = "giant_emerged"
	BookmarkAICollapse       BookmarkType = "ai_collapse"
	BookmarkPlayerLevelBurst BookmarkType = "player_level_burst"
	BookmarkFeedingFrenzy    BookmarkType = "feeding_frenzy"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments from consecutive windows.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	giantMass float64
	giantSeen bool // cleared once the largest group drops back below giantMass
}

// NewBookmarkDetector creates a detector with the given history size.
// giantMass is the group mass that counts as a giant.
func NewBookmarkDetector(historySize int, giantMass float64) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		giantMass:   giantMass,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkGiant(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkLevelBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkAICollapse(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkFeedingFrenzy(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkGiant fires once each time a group grows past the giant mass.
func (bd *BookmarkDetector) checkGiant(stats WindowStats) *Bookmark {
	if bd.giantMass <= 0 {
		return nil
	}
	if stats.LargestGroupMass < bd.giantMass {
		bd.giantSeen = false
		return nil
	}
	if bd.giantSeen {
		return nil
	}
	bd.giantSeen = true
	return &Bookmark{
		Type:        BookmarkGiantEmerged,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Group reached mass %.0f (threshold %.0f)", stats.LargestGroupMass, bd.giantMass),
	}
}

// checkLevelBurst fires when the player gains several levels in one window.
func (bd *BookmarkDetector) checkLevelBurst(stats WindowStats) *Bookmark {
	if stats.LevelUps < 3 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPlayerLevelBurst,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Player gained %d levels, now level %d", stats.LevelUps, stats.PlayerLevel),
	}
}

// checkAICollapse fires when the AI population falls below half its rolling average.
func (bd *BookmarkDetector) checkAICollapse(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var sum int
	for _, h := range history {
		sum += h.AICount
	}
	avg := float64(sum) / float64(len(history))
	if avg < 4 || float64(stats.AICount) >= avg*0.5 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkAICollapse,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("AI population fell to %d from average %.1f", stats.AICount, avg),
	}
}

// checkFeedingFrenzy fires when AI deaths exceed twice the rolling average.
func (bd *BookmarkDetector) checkFeedingFrenzy(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var sum int
	for _, h := range history {
		sum += h.AIDeaths
	}
	avg := float64(sum) / float64(len(history))
	if avg == 0 || stats.AIDeaths < 5 || float64(stats.AIDeaths) <= avg*2 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFeedingFrenzy,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d AI deaths is %.1fx average (%.1f)", stats.AIDeaths, float64(stats.AIDeaths)/avg, avg),
	}
}
