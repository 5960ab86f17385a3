package systems

// ProgressionTracker turns absorbed mass into experience and levels.
// After Settle, 0 <= XP < Threshold always holds.
type ProgressionTracker struct {
	Level     int
	XP        float64
	Threshold float64
	Total     float64 // Lifetime experience

	base   float64
	growth float64
}

// NewProgressionTracker starts at level 1 with the base threshold.
func NewProgressionTracker(base, growth float64) *ProgressionTracker {
	return &ProgressionTracker{
		Level:     1,
		Threshold: base,
		base:      base,
		growth:    growth,
	}
}

// Award adds experience. Non-positive amounts are ignored.
func (p *ProgressionTracker) Award(xp float64) {
	if xp <= 0 {
		return
	}
	p.XP += xp
	p.Total += xp
}

// Settle converts accumulated experience into levels and returns how many
// were gained.
func (p *ProgressionTracker) Settle() int {
	gained := 0
	for p.XP >= p.Threshold {
		p.XP -= p.Threshold
		p.Level++
		p.Threshold *= p.growth
		gained++
	}
	return gained
}

// Remaining returns the experience still needed for the next level.
func (p *ProgressionTracker) Remaining() float64 {
	return p.Threshold - p.XP
}

// Reset returns the tracker to level 1.
func (p *ProgressionTracker) Reset() {
	p.Level = 1
	p.XP = 0
	p.Total = 0
	p.Threshold = p.base
}
