package entity

import "strings"

// RiskLevel is Pulsedive's ordinal risk classification.
// Only ordering comparisons are meaningful.
type RiskLevel int

const (
	RiskUnknown  RiskLevel = -1
	RiskNone     RiskLevel = 0
	RiskLow      RiskLevel = 1
	RiskMedium   RiskLevel = 2
	RiskHigh     RiskLevel = 3
	RiskCritical RiskLevel = 4
)

// RiskUnknownLabel is the literal Pulsedive reports for unscored indicators
const RiskUnknownLabel = "unknown"

var riskLevels = map[string]RiskLevel{
	"unknown":  RiskUnknown,
	"none":     RiskNone,
	"low":      RiskLow,
	"medium":   RiskMedium,
	"high":     RiskHigh,
	"critical": RiskCritical,
}

// ParseRiskLevel maps a Pulsedive risk label to its ordinal.
// ok is false for labels Pulsedive does not define.
func ParseRiskLevel(label string) (RiskLevel, bool) {
	level, ok := riskLevels[label]
	return level, ok
}

// String returns the Pulsedive label
func (r RiskLevel) String() string {
	for label, level := range riskLevels {
		if level == r {
			return label
		}
	}
	return "invalid"
}

// DisplayName returns the label shown in option pickers ("Medium", "Critical", ...)
func (r RiskLevel) DisplayName() string {
	s := r.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
