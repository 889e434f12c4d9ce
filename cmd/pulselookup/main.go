// pulselookup runs one-off Pulsedive lookups through the same admission,
// dispatch and risk-filter pipeline the API uses.
//
//	pulselookup lookup 1.2.3.4 example.com
//	echo evil.example.com | pulselookup lookup --risk-level low
//	pulselookup validate --options options.yaml
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/polarityio/pulsedive/internal/config"
	"github.com/polarityio/pulsedive/internal/entity"
	"github.com/polarityio/pulsedive/internal/usecase/lookup"
)

var (
	optionsFile string
	apiKey      string
	riskLevel   string
	showUnknown bool
	blocklist   string
	domainRegex string
	ipRegex     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "pulselookup",
	Short:        "Look up IPv4 addresses and domains against Pulsedive",
	SilenceUsage: true,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [indicator...]",
	Short: "Enrich indicators; reads one per line from stdin when none are given",
	RunE:  runLookup,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the effective options are usable",
	RunE:  runValidate,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&optionsFile, "options", "", "YAML file with lookup options (apiKey, riskLevelDisplay, ...)")
	flags.StringVar(&apiKey, "api-key", "", "Pulsedive API key (overrides PULSEDIVE_API_KEY)")
	flags.StringVar(&riskLevel, "risk-level", "", "Minimum risk level to display: none, low, medium, high, critical")
	flags.BoolVar(&showUnknown, "show-unknown", false, "Show indicators with an unknown risk")
	flags.StringVar(&blocklist, "blocklist", "", "Comma delimited indicators to never look up")
	flags.StringVar(&domainRegex, "domain-regex", "", "Domains matching this regex are not looked up")
	flags.StringVar(&ipRegex, "ip-regex", "", "IPs matching this regex are not looked up")

	rootCmd.AddCommand(lookupCmd, validateCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries results, so logs go to stderr
	logger := config.NewTextLogger(os.Stderr, cfg.App.LogLevel)

	opts, err := resolveOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if errs := lookup.ValidateOptions(entity.RawOptions{"apiKey": {Value: opts.APIKey}}); len(errs) > 0 {
		return errors.New(errs[0].Message)
	}

	if len(args) == 0 {
		args, err = readIndicators(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}
	entities := entity.NewIndicators(args)
	if len(entities) == 0 {
		return errors.New("no indicators given")
	}

	service, err := lookup.NewServiceFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")

	results, err := service.Lookup(cmd.Context(), entities, opts)
	if err != nil {
		var lookupErr *lookup.LookupError
		if errors.As(err, &lookupErr) {
			out.Encode(lookupErr)
		}
		return err
	}
	return out.Encode(results)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := resolveOptions(cmd, cfg)
	if err != nil {
		return err
	}

	errs := lookup.ValidateOptions(entity.RawOptions{"apiKey": {Value: opts.APIKey}})
	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	if err := out.Encode(errs); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d invalid option(s)", len(errs))
	}
	return nil
}

// resolveOptions layers configuration, the options file, then explicit flags
func resolveOptions(cmd *cobra.Command, cfg *config.Config) (entity.LookupOptions, error) {
	opts := cfg.LookupOptions()

	if optionsFile != "" {
		data, err := os.ReadFile(optionsFile)
		if err != nil {
			return opts, fmt.Errorf("read options: %w", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("parse options: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("api-key") {
		opts.APIKey = apiKey
	}
	if flags.Changed("risk-level") {
		if _, ok := entity.ParseRiskLevel(riskLevel); !ok || riskLevel == entity.RiskUnknownLabel {
			return opts, fmt.Errorf("invalid risk level %q", riskLevel)
		}
		opts.RiskLevelDisplay = entity.RiskSelection{Value: riskLevel}
	}
	if flags.Changed("show-unknown") {
		opts.ShowUnknownRisk = showUnknown
	}
	if flags.Changed("blocklist") {
		opts.Blocklist = blocklist
	}
	if flags.Changed("domain-regex") {
		opts.DomainBlocklistRegex = domainRegex
	}
	if flags.Changed("ip-regex") {
		opts.IPBlocklistRegex = ipRegex
	}
	return opts, nil
}

func readIndicators(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read indicators: %w", err)
	}
	return out, nil
}
