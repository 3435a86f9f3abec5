package core

import (
	"math"
)

// RiskLevel is the discrete risk classification of a score
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Score bounds
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// RiskTier is a risk level with its display label and description
type RiskTier struct {
	Level       RiskLevel `json:"level"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

// tiers are ordered by lower bound; each covers [Lower, next Lower)
var tiers = []struct {
	lower float64
	tier  RiskTier
}{
	{0, RiskTier{Level: RiskSafe, Label: "SAFE/LOW RISK", Description: "Email appears safe"}},
	{20, RiskTier{Level: RiskLow, Label: "LOW-MEDIUM", Description: "Minor suspicious indicators"}},
	{40, RiskTier{Level: RiskMedium, Label: "MEDIUM", Description: "Several warning signs detected"}},
	{60, RiskTier{Level: RiskHigh, Label: "HIGH", Description: "Significant threat indicators"}},
	{80, RiskTier{Level: RiskCritical, Label: "CRITICAL", Description: "Likely malicious email"}},
}

// ClampScore limits a score to [0,100]. NaN maps to 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return MinScore
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	}
	return score
}

// Classify maps a score to its risk tier
func Classify(score float64) RiskTier {
	score = ClampScore(score)
	result := tiers[0].tier
	for _, t := range tiers {
		if score >= t.lower {
			result = t.tier
		}
	}
	return result
}

// ParseRiskLevel returns the level for a level name, reporting whether it is known
func ParseRiskLevel(s string) (RiskLevel, bool) {
	for _, t := range tiers {
		if string(t.tier.Level) == s {
			return t.tier.Level, true
		}
	}
	return "", false
}

// AtLeast reports whether l is as severe as other
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

func (l RiskLevel) rank() int {
	for i, t := range tiers {
		if t.tier.Level == l {
			return i
		}
	}
	return -1
}
