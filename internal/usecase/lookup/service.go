package lookup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polarityio/pulsedive/internal/adapter/external/threatintel"
	"github.com/polarityio/pulsedive/internal/config"
	"github.com/polarityio/pulsedive/internal/entity"
)

// DefaultRiskLevelDisplay is the threshold used when a caller leaves it unset
const DefaultRiskLevelDisplay = entity.RiskMedium

// Service orchestrates a lookup batch: blocklist refresh, admission,
// bounded-concurrency fetches and risk filtering.
type Service struct {
	compiler   *BlocklistCompiler
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewService creates a new lookup service
func NewService(client InfoFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		compiler:   NewBlocklistCompiler(logger),
		dispatcher: NewDispatcher(client, logger),
		logger:     logger,
	}
}

// Compiler exposes the blocklist state owned by this service
func (s *Service) Compiler() *BlocklistCompiler {
	return s.compiler
}

// Lookup enriches a batch of indicators. Misses come back with nil Data,
// risk-filtered and non-admitted indicators are omitted, and any fatal
// error fails the whole batch.
func (s *Service) Lookup(ctx context.Context, entities []entity.Indicator, opts entity.LookupOptions) ([]entity.LookupResult, error) {
	logger := s.logger.With("batch_id", uuid.NewString())
	opts = withDefaults(opts)

	snap, err := s.compiler.Refresh(opts)
	if err != nil {
		lookupBatchesTotal.WithLabelValues("error").Inc()
		logger.Error("Invalid blocklist configuration", "error", err)
		return nil, &LookupError{Detail: DetailInvalidBlocklist, Err: err}
	}

	admitted := admit(logger, snap, entities)
	logger.Debug("Dispatching lookups", "entities", len(entities), "admitted", len(admitted))

	results, err := s.dispatcher.Dispatch(ctx, admitted, opts)
	if err != nil {
		lookupBatchesTotal.WithLabelValues("error").Inc()
		logger.Error("Lookup batch failed", "error", err)
		return nil, err
	}

	lookupBatchesTotal.WithLabelValues("success").Inc()
	logger.Info("Lookup batch complete",
		"entities", len(entities),
		"admitted", len(admitted),
		"results", len(results),
	)
	return results, nil
}

func withDefaults(opts entity.LookupOptions) entity.LookupOptions {
	if opts.RiskLevelDisplay.Value == "" {
		opts.RiskLevelDisplay = entity.NewRiskSelection(DefaultRiskLevelDisplay)
	}
	return opts
}

// NewServiceFromConfig builds the shared HTTP client from the transport
// settings and wires a service around a Pulsedive client.
func NewServiceFromConfig(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	httpClient, err := threatintel.NewHTTPClient(threatintel.TransportConfig{
		CertFile:           cfg.Request.Cert,
		KeyFile:            cfg.Request.Key,
		Passphrase:         cfg.Request.Passphrase,
		CAFile:             cfg.Request.CA,
		ProxyURL:           cfg.Request.Proxy,
		RejectUnauthorized: cfg.Request.RejectUnauthorized,
		Timeout:            cfg.Request.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}

	client := threatintel.NewPulsediveClient(threatintel.PulsediveConfig{
		BaseURL:    cfg.Pulsedive.BaseURL,
		HTTPClient: httpClient,
		RateLimit:  cfg.Pulsedive.RateLimit,
	})

	return NewService(client, logger), nil
}
