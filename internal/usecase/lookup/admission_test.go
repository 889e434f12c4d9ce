package lookup

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarityio/pulsedive/internal/entity"
)

func refreshed(t *testing.T, opts entity.LookupOptions) *BlocklistSnapshot {
	t.Helper()
	snap, err := NewBlocklistCompiler(nil).Refresh(opts)
	require.NoError(t, err)
	return snap
}

func TestIsAdmitted(t *testing.T) {
	snap := refreshed(t, entity.LookupOptions{
		Blocklist:            "blocked.com, 9.9.9.9",
		DomainBlocklistRegex: `^evil\.`,
		IPBlocklistRegex:     `^5\.5\.`,
	})

	tests := []struct {
		name      string
		indicator entity.Indicator
		expected  bool
	}{
		{"public ip", entity.NewIndicator("1.2.3.4"), true},
		{"plain domain", entity.NewIndicator("example.com"), true},
		{"exact blocked domain", entity.NewIndicator("blocked.com"), false},
		{"exact blocked ip", entity.NewIndicator("9.9.9.9"), false},
		{"domain regex", entity.NewIndicator("evil.example.com"), false},
		{"domain regex is anchored", entity.NewIndicator("notevil.example.com"), true},
		{"ip regex", entity.NewIndicator("5.5.1.1"), false},
		{"ip regex ignores domains", entity.Indicator{Value: "5.5.example.com", IsDomain: true}, true},
		{"domain regex ignores ips", entity.Indicator{Value: "evil.1.2.3", IsIP: true, IsIPv4: true}, true},
		{"private ip", entity.NewIndicator("10.0.0.1"), false},
		{"ignored literal", entity.Indicator{Value: "255.255.255.255", IsIP: true, IsIPv4: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAdmitted(snap, tt.indicator))
		})
	}
}

func TestIsAdmitted_PrivateAlwaysRejected(t *testing.T) {
	configs := []entity.LookupOptions{
		{},
		{Blocklist: "nothing.com"},
		{IPBlocklistRegex: "^$"},
		{DomainBlocklistRegex: ".*"},
	}
	private := []string{"10.0.0.1", "172.16.5.4", "192.168.0.1", "127.0.0.1", "169.254.1.1"}

	for _, opts := range configs {
		snap := refreshed(t, opts)
		for _, ip := range private {
			assert.False(t, IsAdmitted(snap, entity.NewIndicator(ip)), ip)
		}
	}
}

func TestIsAdmitted_Idempotent(t *testing.T) {
	c := NewBlocklistCompiler(nil)
	opts := entity.LookupOptions{DomainBlocklistRegex: `^evil\.`}
	ind := entity.NewIndicator("evil.example.com")

	snap, err := c.Refresh(opts)
	require.NoError(t, err)
	first := IsAdmitted(snap, ind)

	snap, err = c.Refresh(opts)
	require.NoError(t, err)
	second := IsAdmitted(snap, ind)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), c.Compiles())
}

func TestAdmit_PreservesOrder(t *testing.T) {
	snap := refreshed(t, entity.LookupOptions{Blocklist: "b.com"})
	in := entity.NewIndicators([]string{"a.com", "b.com", "10.0.0.1", "c.com", "1.1.1.1"})

	out := admit(slog.Default(), snap, in)

	values := make([]string, 0, len(out))
	for _, ind := range out {
		values = append(values, ind.Value)
	}
	assert.Equal(t, []string{"a.com", "c.com", "1.1.1.1"}, values)
}
