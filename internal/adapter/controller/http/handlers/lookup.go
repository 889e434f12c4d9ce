package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polarityio/pulsedive/internal/entity"
	"github.com/polarityio/pulsedive/internal/usecase/lookup"
)

// LookupService is the lookup engine as used by the HTTP layer
type LookupService interface {
	Lookup(ctx context.Context, entities []entity.Indicator, opts entity.LookupOptions) ([]entity.LookupResult, error)
}

// LookupHandler handles indicator lookup HTTP requests
type LookupHandler struct {
	service  LookupService
	defaults entity.LookupOptions
}

// NewLookupHandler creates a new lookup handler. Request options are applied
// over defaults, which also fix the block filters.
func NewLookupHandler(service LookupService, defaults entity.LookupOptions) *LookupHandler {
	return &LookupHandler{service: service, defaults: defaults}
}

// EntityInput decodes either a bare indicator string or a classified entity
type EntityInput struct {
	entity.Indicator
}

func (e *EntityInput) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		e.Indicator = entity.NewIndicator(raw)
		return nil
	}
	return json.Unmarshal(data, &e.Indicator)
}

// LookupRequest is the body of POST /api/v1/lookup
type LookupRequest struct {
	Entities []EntityInput   `json:"entities"`
	Options  json.RawMessage `json:"options,omitempty"`
}

// LookupResponse wraps the result list
type LookupResponse struct {
	Results []entity.LookupResult `json:"results"`
}

// Lookup enriches a batch of indicators
// POST /api/v1/lookup
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Entities) == 0 {
		ErrorResponse(w, http.StatusBadRequest, "At least one entity is required", nil)
		return
	}

	entities := make([]entity.Indicator, 0, len(req.Entities))
	for _, e := range req.Entities {
		entities = append(entities, e.Indicator)
	}

	opts, err := h.resolveOptions(req.Options)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid options", err)
		return
	}

	h.run(w, r, entities, opts)
}

// LookupOne enriches a single indicator using the configured options
// GET /api/v1/lookup/{indicator}
func (h *LookupHandler) LookupOne(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "indicator")
	if value == "" {
		ErrorResponse(w, http.StatusBadRequest, "Indicator required", nil)
		return
	}

	h.run(w, r, []entity.Indicator{entity.NewIndicator(value)}, h.defaults)
}

// Validate checks raw integration options
// POST /api/v1/validate
func (h *LookupHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var raw entity.RawOptions
	if err := DecodeJSON(r, &raw); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"errors": lookup.ValidateOptions(raw),
	})
}

func (h *LookupHandler) run(w http.ResponseWriter, r *http.Request, entities []entity.Indicator, opts entity.LookupOptions) {
	if opts.APIKey == "" {
		ErrorResponse(w, http.StatusBadRequest, lookup.MissingAPIKeyMessage, nil)
		return
	}

	results, err := h.service.Lookup(r.Context(), entities, opts)
	if err != nil {
		var lookupErr *lookup.LookupError
		if errors.As(err, &lookupErr) {
			status := http.StatusBadGateway
			if lookupErr.Detail == lookup.DetailInvalidBlocklist {
				status = http.StatusBadRequest
			}
			JSONResponse(w, status, lookupErr)
			return
		}
		ErrorResponse(w, http.StatusInternalServerError, "Lookup failed", err)
		return
	}

	JSONResponse(w, http.StatusOK, LookupResponse{Results: results})
}

// resolveOptions layers request options over the configured defaults. The
// block filters are admin settings and always come from the defaults.
func (h *LookupHandler) resolveOptions(raw json.RawMessage) (entity.LookupOptions, error) {
	opts := h.defaults
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return h.defaults, err
		}
	}
	if opts.APIKey == "" {
		opts.APIKey = h.defaults.APIKey
	}
	opts.Blocklist = h.defaults.Blocklist
	opts.DomainBlocklistRegex = h.defaults.DomainBlocklistRegex
	opts.IPBlocklistRegex = h.defaults.IPBlocklistRegex
	return opts, nil
}
