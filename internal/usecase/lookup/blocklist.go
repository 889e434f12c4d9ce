package lookup

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/polarityio/pulsedive/internal/entity"
)

// BlocklistSnapshot is an immutable compiled view of the three block filters.
// Each filter keeps the source string it was compiled from.
type BlocklistSnapshot struct {
	blocklistSource string
	blocked         map[string]struct{}

	domainSource string
	domainRegex  *regexp.Regexp

	ipSource string
	ipRegex  *regexp.Regexp
}

var emptySnapshot = &BlocklistSnapshot{blocked: map[string]struct{}{}}

// BlockedValues returns the exact-match entries, sorted
func (s *BlocklistSnapshot) BlockedValues() []string {
	out := make([]string, 0, len(s.blocked))
	for v := range s.blocked {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DomainRegex returns the active domain pattern, or "" when none
func (s *BlocklistSnapshot) DomainRegex() string {
	if s.domainRegex == nil {
		return ""
	}
	return s.domainSource
}

// IPRegex returns the active IP pattern, or "" when none
func (s *BlocklistSnapshot) IPRegex() string {
	if s.ipRegex == nil {
		return ""
	}
	return s.ipSource
}

// Blocked reports whether an indicator matches any block filter, and which one
func (s *BlocklistSnapshot) Blocked(ind entity.Indicator) (bool, string) {
	if _, ok := s.blocked[ind.Value]; ok {
		return true, "blocklist"
	}

	if ind.IsIPv4 && !ind.IsPrivateIP && s.ipRegex != nil && s.ipRegex.MatchString(ind.Value) {
		return true, "ip_regex"
	}

	if ind.IsDomain && s.domainRegex != nil && s.domainRegex.MatchString(ind.Value) {
		return true, "domain_regex"
	}

	return false, ""
}

// BlocklistCompiler owns the process-lifetime block filter state and only
// recompiles a filter when its configuration string changes.
type BlocklistCompiler struct {
	mu       sync.Mutex
	current  atomic.Pointer[BlocklistSnapshot]
	compiles atomic.Int64
	logger   *slog.Logger
}

// NewBlocklistCompiler creates a compiler with every filter disabled
func NewBlocklistCompiler(logger *slog.Logger) *BlocklistCompiler {
	if logger == nil {
		logger = slog.Default()
	}
	c := &BlocklistCompiler{logger: logger}
	c.current.Store(emptySnapshot)
	return c
}

// Snapshot returns the state last published by Refresh
func (c *BlocklistCompiler) Snapshot() *BlocklistSnapshot {
	return c.current.Load()
}

// Compiles returns how many filters have been (re)built so far
func (c *BlocklistCompiler) Compiles() int64 {
	return c.compiles.Load()
}

// Refresh brings the compiled state in line with opts and returns the snapshot
// the caller must use for the rest of its batch. On a bad pattern nothing is
// published and the previous state stays in force.
func (c *BlocklistCompiler) Refresh(opts entity.LookupOptions) (*BlocklistSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	next := *prev
	changed := false
	var rebuilt []string

	switch {
	case opts.Blocklist == prev.blocklistSource:
	case opts.Blocklist == "":
		c.logger.Debug("Removing Domain Blocklist Filtering")
		next.blocklistSource = ""
		next.blocked = map[string]struct{}{}
		changed = true
	default:
		c.logger.Debug("Modifying Domain Blocklist", "blocklist", opts.Blocklist)
		next.blocklistSource = opts.Blocklist
		next.blocked = parseBlocklist(opts.Blocklist)
		rebuilt = append(rebuilt, "blocklist")
		changed = true
	}

	switch {
	case opts.DomainBlocklistRegex == prev.domainSource:
	case opts.DomainBlocklistRegex == "":
		c.logger.Debug("Removing Domain Blocklist Regex Filtering")
		next.domainSource = ""
		next.domainRegex = nil
		changed = true
	default:
		re, err := compileBlockRegex(opts.DomainBlocklistRegex)
		if err != nil {
			return prev, fmt.Errorf("domain blocklist regex: %w", err)
		}
		c.logger.Debug("Modifying Domain Blocklist Regex", "domain_blocklist_regex", opts.DomainBlocklistRegex)
		next.domainSource = opts.DomainBlocklistRegex
		next.domainRegex = re
		rebuilt = append(rebuilt, "domain_regex")
		changed = true
	}

	switch {
	case opts.IPBlocklistRegex == prev.ipSource:
	case opts.IPBlocklistRegex == "":
		c.logger.Debug("Removing IP Blocklist Regex Filtering")
		next.ipSource = ""
		next.ipRegex = nil
		changed = true
	default:
		re, err := compileBlockRegex(opts.IPBlocklistRegex)
		if err != nil {
			return prev, fmt.Errorf("ip blocklist regex: %w", err)
		}
		c.logger.Debug("Modifying IP Blocklist Regex", "ip_blocklist_regex", opts.IPBlocklistRegex)
		next.ipSource = opts.IPBlocklistRegex
		next.ipRegex = re
		rebuilt = append(rebuilt, "ip_regex")
		changed = true
	}

	if !changed {
		return prev, nil
	}

	snap := &next
	c.current.Store(snap)
	for _, filter := range rebuilt {
		c.compiles.Add(1)
		blocklistCompiles.WithLabelValues(filter).Inc()
	}
	return snap, nil
}

// parseBlocklist splits the comma delimited option, trimming each entry
func parseBlocklist(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

func compileBlockRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}
