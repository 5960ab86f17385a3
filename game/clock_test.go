package game

import (
	"math"
	"testing"
	"time"
)

func TestClockAdvance(t *testing.T) {
	const step = 10 * time.Millisecond
	tests := []struct {
		name        string
		frames      []time.Duration
		wantTicks   []int
		wantDropped int
		wantAlpha   float64
	}{
		{"exact step", []time.Duration{step}, []int{1}, 0, 0},
		{"sub-step accumulates", []time.Duration{4 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}, []int{0, 0, 1}, 0, 0.2},
		{"catch-up within bound", []time.Duration{35 * time.Millisecond}, []int{3}, 0, 0.5},
		{"backlog dropped", []time.Duration{95 * time.Millisecond}, []int{5}, 4, 0.5},
		{"hitch capped", []time.Duration{time.Second}, []int{5}, 5, 0},
		{"negative ignored", []time.Duration{-time.Second}, []int{0}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock(step, 100*time.Millisecond, 5)
			for i, f := range tt.frames {
				if got := c.Advance(f); got != tt.wantTicks[i] {
					t.Errorf("Advance(%v) = %d, want %d", f, got, tt.wantTicks[i])
				}
			}
			if dropped, _ := c.Dropped(); dropped != tt.wantDropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.wantDropped)
			}
			if math.Abs(c.Alpha()-tt.wantAlpha) > 1e-9 {
				t.Errorf("Alpha() = %v, want %v", c.Alpha(), tt.wantAlpha)
			}
		})
	}
}
