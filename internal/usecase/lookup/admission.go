package lookup

import (
	"log/slog"

	"github.com/polarityio/pulsedive/internal/entity"
)

// IsAdmitted reports whether an indicator should be sent to Pulsedive at all
func IsAdmitted(snap *BlocklistSnapshot, ind entity.Indicator) bool {
	if !IsEligible(ind) {
		return false
	}
	blocked, _ := snap.Blocked(ind)
	return !blocked
}

// admit filters a batch down to the indicators that will be queried.
// Skipped indicators are only logged.
func admit(logger *slog.Logger, snap *BlocklistSnapshot, entities []entity.Indicator) []entity.Indicator {
	admitted := make([]entity.Indicator, 0, len(entities))
	for _, ind := range entities {
		if !IsEligible(ind) {
			logger.Debug("Ignoring Entity", "entity", ind.Value, "reason", "reserved")
			entitiesIgnored.WithLabelValues("reserved").Inc()
			continue
		}
		if blocked, reason := snap.Blocked(ind); blocked {
			logger.Debug("Ignoring Entity", "entity", ind.Value, "reason", reason)
			entitiesIgnored.WithLabelValues(reason).Inc()
			continue
		}
		admitted = append(admitted, ind)
	}
	return admitted
}
