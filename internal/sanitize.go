// v2
// sanitize.go
package internal

import "math"

// domainRule is the per-metric validation table entry. Results are expressed
// as data so the policy reads straight off the table: below/above give the
// replacement when the value falls outside [min, max] (nil = no reading),
// missing gives the result for an absent, non-numeric, or fault value.
type domainRule struct {
	sentinel *float64 // raw value encoding a sensor fault, rejected outright
	min, max float64
	below    *float64
	above    *float64
	missing  *float64
}

func fp(v float64) *float64 { return &v }

// domainRules is part of the output contract: displayed values must match
// these clamp/default rules exactly. Battery never resolves to nil because
// downstream gauges require a number; 100 means "assume healthy".
var domainRules = map[Metric]domainRule{
	MetricTempInternal: {sentinel: fp(-127), min: -100, max: 100, below: fp(0)},
	MetricTempExternal: {sentinel: fp(-127), min: -100, max: 100, below: fp(0)},
	MetricHumInternal:  {min: -50, max: 150, below: fp(0)},
	MetricHumExternal:  {min: -50, max: 150, below: fp(0)},
	MetricWeight:       {min: 0, max: 500, below: fp(0)},
	MetricBattery:      {min: 0, max: 200, below: fp(100), above: fp(100), missing: fp(100)},
}

// sanitizeValue applies metric m's domain rule to a raw numeric value.
// nil means "no reading", which is distinct from a valid zero.
func sanitizeValue(m Metric, v float64) *float64 {
	rule := domainRules[m]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return clone(rule.missing)
	}
	if rule.sentinel != nil && v == *rule.sentinel {
		return clone(rule.missing)
	}
	if v < rule.min {
		return clone(rule.below)
	}
	if v > rule.max {
		return clone(rule.above)
	}
	return &v
}

// sanitizeAbsent is the result for a metric whose field is missing entirely.
func sanitizeAbsent(m Metric) *float64 {
	return clone(domainRules[m].missing)
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
