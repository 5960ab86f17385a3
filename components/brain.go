package components

import "github.com/mlange-42/ark/ecs"

// BehaviorState is the AI state machine state.
type BehaviorState uint8

const (
	StateIdle BehaviorState = iota
	StateFleeing
	StateHunting
)

// String returns the state name.
func (s BehaviorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFleeing:
		return "fleeing"
	case StateHunting:
		return "hunting"
	default:
		return "unknown"
	}
}

// DriftMode refines the Idle state.
type DriftMode uint8

const (
	DriftRandom DriftMode = iota
	DriftFood
)

// Personality weights an AI's decisions.
type Personality struct {
	Aggression   float64
	RiskAversion float64
	FleeRatio    float64
}

// Target is a cached reference to another entity.
// Serial guards against the slot having been reused.
type Target struct {
	Entity ecs.Entity
	Serial uint64
}

// Brain holds the cached decision of an autonomous cell.
// It is only rewritten on re-evaluation ticks.
type Brain struct {
	State       BehaviorState
	Drift       DriftMode
	Target      Target
	SteerX      float64 // Unit steering vector (or zero)
	SteerY      float64
	Personality Personality
	Cooldown    int32 // Ticks until next evaluation
}
