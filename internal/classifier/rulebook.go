package classifier

import (
	"context"
	"math"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Rulebook is a local classifier applying the household-income rules the
// eligibility model was trained on. It is used when no model endpoint is
// configured.
type Rulebook struct {
	BaseThreshold         float64 `json:"base_threshold" yaml:"base_threshold"`
	PerDependent          float64 `json:"per_dependent" yaml:"per_dependent"`
	PropertyCap           float64 `json:"property_cap" yaml:"property_cap"`
	MinAge                float64 `json:"min_age" yaml:"min_age"`
	DisabilityFactor      float64 `json:"disability_factor" yaml:"disability_factor"`
	DisabilityPropertyCap float64 `json:"disability_property_cap" yaml:"disability_property_cap"`
}

// DefaultRulebook returns the training rules: income below 12,000 plus 3,000
// per dependent, property below 1,000,000 and age 21 or over. A disability
// raises the income threshold by half and the property cap to 1,200,000.
func DefaultRulebook() Rulebook {
	return Rulebook{
		BaseThreshold:         12000,
		PerDependent:          3000,
		PropertyCap:           1000000,
		MinAge:                21,
		DisabilityFactor:      1.5,
		DisabilityPropertyCap: 1200000,
	}
}

// Predict implements Classifier. Confidence grows with the distance between
// income and the applicable threshold.
func (r Rulebook) Predict(_ context.Context, f types.FeatureVector) (types.Prediction, error) {
	threshold := r.BaseThreshold + f.Dependents*r.PerDependent

	eligible := f.MonthlyIncome < threshold && f.PropertyValue < r.PropertyCap && f.Age >= r.MinAge
	if f.Disabled() {
		raised := threshold * r.DisabilityFactor
		if f.MonthlyIncome < raised && f.PropertyValue < r.DisabilityPropertyCap {
			eligible = true
			threshold = raised
		}
	}

	p := types.Prediction{Confidence: margin(f.MonthlyIncome, threshold)}
	if eligible {
		p.Label = 1
	}
	return p, nil
}

// margin maps the relative distance from the threshold onto [0.5, 1].
func margin(income, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	d := math.Abs(threshold-income) / threshold
	return 0.5 + 0.5*math.Min(d, 1)
}
