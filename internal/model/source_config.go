package model

import "fmt"

// SourceConfig controls one signal source. Weights are intentionally not
// validated to sum to 1 across sources; aggregation confidence is relative
// to the enabled weight mass, not a probability.
type SourceConfig struct {
	ID         string
	Enabled    bool
	Weight     float64 // [0,1]
	Symbols    []string
	Timeframes []string
	Params     map[string]float64
}

// Matches reports whether the source is configured for the instrument.
// An empty allow-list matches everything.
func (c SourceConfig) Matches(symbol string) bool {
	if len(c.Symbols) == 0 {
		return true
	}
	for _, s := range c.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Param returns a numeric parameter, or def when unset.
func (c SourceConfig) Param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		return v
	}
	return def
}

// SourceConfigPatch is an explicit partial update. Nil fields are left
// untouched; there is no generic map merge.
type SourceConfigPatch struct {
	Enabled    *bool
	Weight     *float64
	Symbols    []string
	Timeframes []string
	Params     map[string]float64
}

// Validate checks patch fields before they are applied.
func (p SourceConfigPatch) Validate() error {
	if p.Weight != nil && (*p.Weight < 0 || *p.Weight > 1) {
		return fmt.Errorf("weight %v out of range [0,1]", *p.Weight)
	}
	return nil
}

// Apply merges the patch into a copy of the config.
func (p SourceConfigPatch) Apply(cfg SourceConfig) SourceConfig {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.Weight != nil {
		cfg.Weight = *p.Weight
	}
	if p.Symbols != nil {
		cfg.Symbols = append([]string(nil), p.Symbols...)
	}
	if p.Timeframes != nil {
		cfg.Timeframes = append([]string(nil), p.Timeframes...)
	}
	if p.Params != nil {
		merged := make(map[string]float64, len(cfg.Params)+len(p.Params))
		for k, v := range cfg.Params {
			merged[k] = v
		}
		for k, v := range p.Params {
			merged[k] = v
		}
		cfg.Params = merged
	}
	return cfg
}
