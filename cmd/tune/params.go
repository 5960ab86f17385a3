package main

import (
	"fmt"

	"github.com/pthm-cable/cellarena/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name string  // Column name in the tune log
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector builds the tunable set from the personalities present in cfg.
// Every personality contributes its three knobs; the virus and AI globals follow.
func NewParamVector(cfg *config.Config) *ParamVector {
	pv := &ParamVector{}

	for i, p := range cfg.AI.Personalities {
		idx := i
		pv.Specs = append(pv.Specs,
			ParamSpec{
				Name: p.Name + "_aggression",
				Path: fmt.Sprintf("ai.personalities[%d].aggression", idx),
				Min:  0.2, Max: 2.5,
				get: func(c *config.Config) float64 { return c.AI.Personalities[idx].Aggression },
				set: func(c *config.Config, v float64) { c.AI.Personalities[idx].Aggression = v },
			},
			ParamSpec{
				Name: p.Name + "_risk_aversion",
				Path: fmt.Sprintf("ai.personalities[%d].risk_aversion", idx),
				Min:  0.3, Max: 3.0,
				get: func(c *config.Config) float64 { return c.AI.Personalities[idx].RiskAversion },
				set: func(c *config.Config, v float64) { c.AI.Personalities[idx].RiskAversion = v },
			},
			ParamSpec{
				Name: p.Name + "_flee_ratio",
				Path: fmt.Sprintf("ai.personalities[%d].flee_ratio", idx),
				Min:  0.9, Max: 2.0,
				get: func(c *config.Config) float64 { return c.AI.Personalities[idx].FleeRatio },
				set: func(c *config.Config, v float64) { c.AI.Personalities[idx].FleeRatio = v },
			},
		)
	}

	pv.Specs = append(pv.Specs,
		ParamSpec{
			Name: "hunt_threshold", Path: "ai.hunt_threshold", Min: 0.01, Max: 0.3,
			get: func(c *config.Config) float64 { return c.AI.HuntThreshold },
			set: func(c *config.Config, v float64) { c.AI.HuntThreshold = v },
		},
		ParamSpec{
			Name: "vision_radius", Path: "ai.vision_radius", Min: 200, Max: 900,
			get: func(c *config.Config) float64 { return c.AI.VisionRadius },
			set: func(c *config.Config, v float64) { c.AI.VisionRadius = v },
		},
		ParamSpec{
			Name: "virus_split_mass", Path: "virus.split_mass", Min: 120, Max: 400,
			get: func(c *config.Config) float64 { return c.Virus.SplitMass },
			set: func(c *config.Config, v float64) { c.Virus.SplitMass = v },
		},
		ParamSpec{
			Name: "virus_burst_ratio", Path: "virus.burst_ratio", Min: 1.0, Max: 2.0,
			get: func(c *config.Config) float64 { return c.Virus.BurstRatio },
			set: func(c *config.Config, v float64) { c.Virus.BurstRatio = v },
		},
		ParamSpec{
			Name: "decay_rate", Path: "mass.decay_rate", Min: 0, Max: 0.01,
			get: func(c *config.Config) float64 { return c.Mass.DecayRate },
			set: func(c *config.Config, v float64) { c.Mass.DecayRate = v },
		},
	)

	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Extract reads the current parameter values from cfg.
func (pv *ParamVector) Extract(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// Apply returns a clone of base with the clamped values written in.
func (pv *ParamVector) Apply(base *config.Config, values []float64) *config.Config {
	cfg := base.Clone()
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	return cfg
}
