package lookup

import "github.com/polarityio/pulsedive/internal/entity"

// ignoredIPs are never looked up regardless of configuration
var ignoredIPs = map[string]struct{}{
	"127.0.0.1":       {},
	"255.255.255.255": {},
	"0.0.0.0":         {},
}

// IsEligible skips private/reserved addresses and the loopback, broadcast
// and unspecified literals.
func IsEligible(ind entity.Indicator) bool {
	if !ind.IsIP {
		return true
	}
	if ind.IsPrivateIP {
		return false
	}
	_, ignored := ignoredIPs[ind.Value]
	return !ignored
}
