package systems

import "github.com/pthm-cable/cellarena/config"

// Biome is a rectangular zone with passive effects on cells inside it.
type Biome struct {
	Name            string
	Effect          string
	MinX, MinY      float64
	MaxX, MaxY      float64
	MassRate        float64 // Mass per second; negative drains
	SpeedMultiplier float64
}

// Contains reports whether the point lies inside the zone.
func (b *Biome) Contains(x, y float64) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// BiomeMap holds the arena's zones. Overlapping zones stack: mass rates
// add and speed multipliers multiply.
type BiomeMap struct {
	zones []Biome
}

// NewBiomeMap builds zones from configuration.
func NewBiomeMap(cfgs []config.BiomeConfig) *BiomeMap {
	m := &BiomeMap{zones: make([]Biome, 0, len(cfgs))}
	for _, c := range cfgs {
		m.zones = append(m.zones, Biome{
			Name:            c.Name,
			Effect:          c.Effect,
			MinX:            c.X,
			MinY:            c.Y,
			MaxX:            c.X + c.Width,
			MaxY:            c.Y + c.Height,
			MassRate:        c.MassRate,
			SpeedMultiplier: c.SpeedMultiplier,
		})
	}
	return m
}

// At returns the combined mass rate and speed multiplier at a point.
func (m *BiomeMap) At(x, y float64) (massRate, speedMul float64) {
	speedMul = 1
	for i := range m.zones {
		z := &m.zones[i]
		if !z.Contains(x, y) {
			continue
		}
		massRate += z.MassRate
		speedMul *= z.SpeedMultiplier
	}
	return massRate, speedMul
}

// Zones returns the configured zones.
func (m *BiomeMap) Zones() []Biome {
	return m.zones
}
