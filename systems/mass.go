package systems

import (
	"math"

	"github.com/pthm-cable/cellarena/components"
)

// Radius returns the radius of a body with the given mass.
func Radius(mass, radiusFactor float64) float64 {
	if mass <= 0 {
		return 0
	}
	return radiusFactor * math.Sqrt(mass)
}

// SetMass is the only way mass changes. Radius is recomputed so the two
// never disagree. Returns false when the body has no mass left and must be
// removed by the caller.
func SetMass(b *components.Body, mass, radiusFactor float64) bool {
	if mass <= 0 {
		b.Mass = 0
		b.Radius = 0
		return false
	}
	b.Mass = mass
	b.Radius = Radius(mass, radiusFactor)
	return true
}

// AddMass adds delta (possibly negative) to the body's mass.
func AddMass(b *components.Body, delta, radiusFactor float64) bool {
	return SetMass(b, b.Mass+delta, radiusFactor)
}

// Dominates reports whether a predator of mass a may absorb prey of mass b.
// The comparison is strict: a == b*ratio does not dominate.
func Dominates(a, b, ratio float64) bool {
	return a > b*ratio
}

// Speed returns the movement speed in world units per second for a cell of
// the given mass. Larger cells are slower.
func Speed(mass, classSpeed, baseSpeed, dampening float64) float64 {
	if dampening <= 0 {
		return classSpeed * baseSpeed
	}
	return classSpeed * baseSpeed / (1 + math.Sqrt(mass)/dampening)
}

// Normalize returns the unit vector of (x, y), or zero for a zero vector.
func Normalize(x, y float64) (float64, float64) {
	l := math.Hypot(x, y)
	if l == 0 {
		return 0, 0
	}
	return x / l, y / l
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
