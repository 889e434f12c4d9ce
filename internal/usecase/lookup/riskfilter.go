package lookup

import "github.com/polarityio/pulsedive/internal/entity"

// ShouldInclude applies the display threshold to a successful response.
// Labels outside the Pulsedive scale never pass, except "unknown" when
// unknown risk display is enabled.
func ShouldInclude(risk string, opts entity.LookupOptions) bool {
	if risk == entity.RiskUnknownLabel && opts.ShowUnknownRisk {
		return true
	}

	resultLevel, ok := entity.ParseRiskLevel(risk)
	if !ok {
		return false
	}
	targetLevel, ok := entity.ParseRiskLevel(opts.RiskLevelDisplay.Value)
	if !ok {
		return false
	}

	return resultLevel >= targetLevel
}
