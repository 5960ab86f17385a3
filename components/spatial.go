package components

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Velocity represents an entity's ballistic velocity in world units per second.
// Only launched entities (split fragments, ejected mass, burst pieces) carry a
// non-zero velocity; it decays by friction every tick.
type Velocity struct {
	X, Y float64
}

// Zero reports whether the velocity is exactly zero.
func (v Velocity) Zero() bool {
	return v.X == 0 && v.Y == 0
}
