package lookup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polarityio/pulsedive/internal/adapter/external/threatintel"
	"github.com/polarityio/pulsedive/internal/config"
	"github.com/polarityio/pulsedive/internal/entity"
)

// MaxParallelLookups caps simultaneous in-flight Pulsedive requests per batch
const MaxParallelLookups = 10

// InfoFetcher is the Pulsedive client as seen by the dispatcher
type InfoFetcher interface {
	Info(ctx context.Context, indicator, apiKey string) (*threatintel.InfoResponse, error)
}

type outcomeKind int

const (
	outcomeSkip outcomeKind = iota
	outcomeMiss
	outcomeSuccess
)

type outcome struct {
	kind   outcomeKind
	entity entity.Indicator
	body   []byte
	info   *threatintel.PulsediveInfo
}

// Dispatcher fans admitted indicators out to Pulsedive with bounded concurrency
type Dispatcher struct {
	client InfoFetcher
	limit  int
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher limited to MaxParallelLookups
func NewDispatcher(client InfoFetcher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client: client,
		limit:  MaxParallelLookups,
		logger: logger,
	}
}

// Dispatch queries every admitted indicator and returns the results that
// survive risk filtering. The first fatal error aborts the batch and no
// partial results are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, entities []entity.Indicator, opts entity.LookupOptions) ([]entity.LookupResult, error) {
	outcomes := make([]outcome, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)

	launched := 0
	for i, ind := range entities {
		if gctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := d.lookup(gctx, ind, opts)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	err := g.Wait()
	if err == nil && launched < len(entities) {
		// the caller's context ended before every indicator was started
		err = ctx.Err()
	}
	if err != nil {
		var lookupErr *LookupError
		if errors.As(err, &lookupErr) {
			return nil, lookupErr
		}
		return nil, &LookupError{Detail: DetailHTTPRequest, Err: err}
	}

	results := make([]entity.LookupResult, 0, len(outcomes))
	for _, out := range outcomes {
		switch out.kind {
		case outcomeSkip:
			continue
		case outcomeMiss:
			results = append(results, entity.LookupResult{Entity: out.entity})
		case outcomeSuccess:
			results = append(results, entity.LookupResult{
				Entity: out.entity,
				Data: &entity.ResultData{
					Summary: summaryTags(out.info),
					Details: out.body,
				},
			})
		}
	}
	return results, nil
}

func (d *Dispatcher) lookup(ctx context.Context, ind entity.Indicator, opts entity.LookupOptions) (outcome, error) {
	start := time.Now()
	resp, err := d.client.Info(ctx, ind.Value, opts.APIKey)
	requestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		d.logger.Log(ctx, config.LevelTrace, "Result of Lookup",
			"entity", ind.Value, "status_code", "Not Available", "error", err)
		lookupOutcomesTotal.WithLabelValues("error").Inc()
		return outcome{}, &LookupError{Detail: DetailHTTPRequest, Entity: ind.Value, Err: err}
	}

	d.logger.Log(ctx, config.LevelTrace, "Result of Lookup",
		"entity", ind.Value, "status_code", resp.StatusCode, "body", string(resp.Body))

	out, err := classify(ind, resp, opts)
	if err != nil {
		lookupOutcomesTotal.WithLabelValues("error").Inc()
		return outcome{}, err
	}

	switch out.kind {
	case outcomeSkip:
		lookupOutcomesTotal.WithLabelValues("filtered").Inc()
		if out.info == nil {
			d.logger.Debug("Filtered out unparseable response", "entity", ind.Value, "error", resp.DecodeErr)
			break
		}
		d.logger.Debug("Filtered out by risk level", "entity", ind.Value, "risk", out.info.Risk)
	case outcomeMiss:
		lookupOutcomesTotal.WithLabelValues("miss").Inc()
	case outcomeSuccess:
		lookupOutcomesTotal.WithLabelValues("success").Inc()
	}
	return out, nil
}

// classify applies the response precedence: miss, HTTP status, provider
// error, then the risk threshold. Unparseable 200 bodies are filtered out.
func classify(ind entity.Indicator, resp *threatintel.InfoResponse, opts entity.LookupOptions) (outcome, error) {
	if resp.Info.IsMiss() {
		return outcome{kind: outcomeMiss, entity: ind}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return outcome{}, &LookupError{
			Detail:     DetailUnexpectedStatus,
			Entity:     ind.Value,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}
	}

	// a body without a readable risk can never meet the threshold
	if resp.Info == nil {
		return outcome{kind: outcomeSkip, entity: ind}, nil
	}

	if resp.Info.HasError() {
		return outcome{}, &LookupError{
			Detail:        DetailProviderError,
			Entity:        ind.Value,
			ProviderError: resp.Info.ErrorText(),
		}
	}

	if !ShouldInclude(resp.Info.Risk, opts) {
		return outcome{kind: outcomeSkip, entity: ind, info: resp.Info}, nil
	}

	return outcome{kind: outcomeSuccess, entity: ind, body: resp.Body, info: resp.Info}, nil
}

func summaryTags(info *threatintel.PulsediveInfo) []string {
	tags := []string{}
	if info == nil {
		return tags
	}
	if info.Risk != "" {
		tags = append(tags, "Risk: "+info.Risk)
	}
	if info.RiskRecommended != "" {
		tags = append(tags, "Risk Recommendation: "+info.RiskRecommended)
	}
	return tags
}
