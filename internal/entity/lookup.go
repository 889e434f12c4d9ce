package entity

import (
	"encoding/json"
	"fmt"
)

// LookupOptions are the resolved per-call integration settings.
// They are supplied fresh on every call and may differ between calls.
type LookupOptions struct {
	APIKey               string        `json:"apiKey" yaml:"apiKey"`
	RiskLevelDisplay     RiskSelection `json:"riskLevelDisplay" yaml:"riskLevelDisplay"`
	ShowUnknownRisk      bool          `json:"showUnknownRisk" yaml:"showUnknownRisk"`
	Blocklist            string        `json:"blocklist" yaml:"blocklist"`
	DomainBlocklistRegex string        `json:"domainBlocklistRegex" yaml:"domainBlocklistRegex"`
	IPBlocklistRegex     string        `json:"ipBlocklistRegex" yaml:"ipBlocklistRegex"`
}

// UnmarshalJSON accepts the legacy "blacklist" spellings of the regex options
func (o *LookupOptions) UnmarshalJSON(data []byte) error {
	type plain LookupOptions
	aux := struct {
		*plain
		DomainBlacklistRegex *string `json:"domainBlacklistRegex"`
		IPBlacklistRegex     *string `json:"ipBlacklistRegex"`
	}{plain: (*plain)(o)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if o.DomainBlocklistRegex == "" && aux.DomainBlacklistRegex != nil {
		o.DomainBlocklistRegex = *aux.DomainBlacklistRegex
	}
	if o.IPBlocklistRegex == "" && aux.IPBlacklistRegex != nil {
		o.IPBlocklistRegex = *aux.IPBlacklistRegex
	}
	return nil
}

// RiskSelection is the value of the "Minimum Risk Level to Display" select.
// It decodes from either a bare label or a {value, display} pair.
type RiskSelection struct {
	Value   string `json:"value" yaml:"value"`
	Display string `json:"display,omitempty" yaml:"display,omitempty"`
}

// NewRiskSelection builds a selection for a known level
func NewRiskSelection(level RiskLevel) RiskSelection {
	return RiskSelection{Value: level.String(), Display: level.DisplayName()}
}

func (s *RiskSelection) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		s.Value = label
		s.Display = ""
		return nil
	}

	type plain RiskSelection
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("riskLevelDisplay: %w", err)
	}
	*s = RiskSelection(p)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for option files
func (s *RiskSelection) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var label string
	if err := unmarshal(&label); err == nil {
		s.Value = label
		s.Display = ""
		return nil
	}

	type plain RiskSelection
	var p plain
	if err := unmarshal(&p); err != nil {
		return fmt.Errorf("riskLevelDisplay: %w", err)
	}
	*s = RiskSelection(p)
	return nil
}

// ResultData is what the presentation layer renders for a found indicator
type ResultData struct {
	Summary []string        `json:"summary"`
	Details json.RawMessage `json:"details"`
}

// LookupResult pairs an indicator with its data. Data is nil for a miss.
type LookupResult struct {
	Entity Indicator   `json:"entity"`
	Data   *ResultData `json:"data"`
}

// RawOption is a single option as delivered by the options UI
type RawOption struct {
	Value interface{} `json:"value" yaml:"value"`
}

// RawOptions is the unresolved option set keyed by option key
type RawOptions map[string]RawOption

// ValidationError reports a problem with a single option
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}
