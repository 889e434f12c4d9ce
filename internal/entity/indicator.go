package entity

import (
	"net/netip"
	"regexp"
	"strings"
)

// Indicator is an observable submitted for a Pulsedive lookup
type Indicator struct {
	Value       string `json:"value"`
	IsIP        bool   `json:"isIP"`
	IsIPv4      bool   `json:"isIPv4"`
	IsPrivateIP bool   `json:"isPrivateIP"`
	IsDomain    bool   `json:"isDomain"`
}

// domainRegex matches dotted hostnames ending in an alphabetic TLD
var domainRegex = regexp.MustCompile(`^(?i)([a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9_])?\.)+[a-z][a-z0-9-]{0,61}[a-z0-9]$`)

// reservedPrefixes are IPv4 ranges that are never routable on the public internet
// and are not covered by netip's own classification helpers.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

// NewIndicator classifies a raw value the same way the host platform does
// before handing entities to an integration.
func NewIndicator(raw string) Indicator {
	value := strings.TrimSpace(raw)
	ind := Indicator{Value: value}

	if addr, err := netip.ParseAddr(value); err == nil {
		ind.IsIP = true
		ind.IsIPv4 = addr.Is4()
		ind.IsPrivateIP = isReserved(addr)
		return ind
	}

	ind.IsDomain = domainRegex.MatchString(value)
	return ind
}

// NewIndicators classifies every raw value, dropping blanks
func NewIndicators(raw []string) []Indicator {
	out := make([]Indicator, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		out = append(out, NewIndicator(r))
	}
	return out
}

func isReserved(addr netip.Addr) bool {
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return true
	}
	if !addr.Is4() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
