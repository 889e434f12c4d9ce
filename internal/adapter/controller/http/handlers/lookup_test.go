package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/polarityio/pulsedive/internal/adapter/external/threatintel"
	"github.com/polarityio/pulsedive/internal/entity"
	"github.com/polarityio/pulsedive/internal/usecase/lookup"
)

// =============================================================================
// Mocks
// =============================================================================

// MockLookupService is a mock implementation of LookupService
type MockLookupService struct {
	mock.Mock
}

func (m *MockLookupService) Lookup(ctx context.Context, entities []entity.Indicator, opts entity.LookupOptions) ([]entity.LookupResult, error) {
	args := m.Called(ctx, entities, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LookupResult), args.Error(1)
}

func newTestRouter(svc LookupService, defaults entity.LookupOptions) http.Handler {
	h := NewLookupHandler(svc, defaults)
	r := chi.NewRouter()
	r.Post("/api/v1/lookup", h.Lookup)
	r.Get("/api/v1/lookup/{indicator}", h.LookupOne)
	r.Post("/api/v1/validate", h.Validate)
	return r
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var defaultOpts = entity.LookupOptions{
	APIKey:           "default-key",
	RiskLevelDisplay: entity.NewRiskSelection(entity.RiskMedium),
}

// =============================================================================
// Lookup
// =============================================================================

func TestLookupHandler_Lookup(t *testing.T) {
	svc := new(MockLookupService)
	svc.On("Lookup", mock.Anything, mock.MatchedBy(func(in []entity.Indicator) bool {
		return len(in) == 2 && in[0].Value == "evil.com" && in[0].IsDomain && in[1].Value == "8.8.8.8" && in[1].IsIPv4
	}), mock.MatchedBy(func(opts entity.LookupOptions) bool {
		return opts.APIKey == "default-key" && opts.RiskLevelDisplay.Value == "high"
	})).Return([]entity.LookupResult{
		{
			Entity: entity.NewIndicator("evil.com"),
			Data:   &entity.ResultData{Summary: []string{"Risk: high"}, Details: json.RawMessage(`{"risk":"high"}`)},
		},
	}, nil)

	rec := do(t, newTestRouter(svc, defaultOpts), http.MethodPost, "/api/v1/lookup",
		`{"entities":["evil.com",{"value":"8.8.8.8","isIP":true,"isIPv4":true}],"options":{"riskLevelDisplay":{"value":"high","display":"High"}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LookupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "evil.com", resp.Results[0].Entity.Value)
	assert.JSONEq(t, `{"risk":"high"}`, string(resp.Results[0].Data.Details))
	svc.AssertExpectations(t)
}

func TestLookupHandler_PartialOptionsKeepDefaults(t *testing.T) {
	defaults := defaultOpts
	defaults.ShowUnknownRisk = true
	defaults.Blocklist = "blocked.com"

	svc := new(MockLookupService)
	svc.On("Lookup", mock.Anything, mock.Anything, mock.MatchedBy(func(opts entity.LookupOptions) bool {
		return opts.APIKey == "default-key" &&
			opts.RiskLevelDisplay.Value == "low" &&
			opts.ShowUnknownRisk &&
			opts.Blocklist == "blocked.com"
	})).Return([]entity.LookupResult{}, nil)

	rec := do(t, newTestRouter(svc, defaults), http.MethodPost, "/api/v1/lookup",
		`{"entities":["a.com"],"options":{"riskLevelDisplay":"low","blocklist":"","domainBlocklistRegex":""}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestLookupHandler_BlocklistEnforced(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"risk":"critical"}`))
	}))
	defer upstream.Close()

	service := lookup.NewService(threatintel.NewPulsediveClient(threatintel.PulsediveConfig{BaseURL: upstream.URL}), nil)
	defaults := defaultOpts
	defaults.Blocklist = "blocked.com"

	rec := do(t, newTestRouter(service, defaults), http.MethodPost, "/api/v1/lookup",
		`{"entities":["blocked.com"],"options":{"riskLevelDisplay":"low"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
	assert.Zero(t, calls.Load())
}

func TestLookupHandler_LookupOne(t *testing.T) {
	svc := new(MockLookupService)
	svc.On("Lookup", mock.Anything, []entity.Indicator{entity.NewIndicator("unknown.com")}, defaultOpts).
		Return([]entity.LookupResult{{Entity: entity.NewIndicator("unknown.com")}}, nil)

	rec := do(t, newTestRouter(svc, defaultOpts), http.MethodGet, "/api/v1/lookup/unknown.com", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"results":[{"entity":{"value":"unknown.com","isIP":false,"isIPv4":false,"isPrivateIP":false,"isDomain":true},"data":null}]}`,
		rec.Body.String())
}

func TestLookupHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		defaults entity.LookupOptions
		body     string
	}{
		{"malformed body", defaultOpts, `{"entities":`},
		{"no entities", defaultOpts, `{"entities":[]}`},
		{"no api key anywhere", entity.LookupOptions{}, `{"entities":["a.com"]}`},
		{"malformed options", defaultOpts, `{"entities":["a.com"],"options":{"riskLevelDisplay":42}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLookupService)
			rec := do(t, newTestRouter(svc, tt.defaults), http.MethodPost, "/api/v1/lookup", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
			assert.NotContains(t, body, "success")
			svc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLookupHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "upstream failure",
			err:            &lookup.LookupError{Detail: lookup.DetailHTTPRequest, Err: errors.New("connection refused")},
			expectedStatus: http.StatusBadGateway,
			expectedDetail: lookup.DetailHTTPRequest,
		},
		{
			name:           "invalid blocklist",
			err:            &lookup.LookupError{Detail: lookup.DetailInvalidBlocklist, Err: errors.New("missing closing ]")},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: lookup.DetailInvalidBlocklist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLookupService)
			svc.On("Lookup", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newTestRouter(svc, defaultOpts), http.MethodPost, "/api/v1/lookup", `{"entities":["a.com"]}`)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedDetail, body["detail"])
			assert.NotEmpty(t, body["error"])
		})
	}

	t.Run("unexpected error", func(t *testing.T) {
		svc := new(MockLookupService)
		svc.On("Lookup", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		rec := do(t, newTestRouter(svc, defaultOpts), http.MethodPost, "/api/v1/lookup", `{"entities":["a.com"]}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"detail":"Lookup failed","error":"boom"}`, rec.Body.String())
	})
}

// =============================================================================
// Validate
// =============================================================================

func TestLookupHandler_Validate(t *testing.T) {
	router := newTestRouter(new(MockLookupService), defaultOpts)

	rec := do(t, router, http.MethodPost, "/api/v1/validate", `{"apiKey":{"value":""}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"errors":[{"key":"apiKey","message":"You must provide a PulseDive API key"}]}`, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/v1/validate", `{"apiKey":{"value":"abc"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"errors":[]}`, rec.Body.String())
}
