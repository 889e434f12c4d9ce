package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/polarityio/pulsedive/internal/config"
)

var startTime = time.Now()

// Version is stamped at build time
var Version = "dev"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Uptime      string            `json:"uptime"`
	Environment string            `json:"environment"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks"`
	System      SystemInfo        `json:"system"`
}

// SystemInfo represents system information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
}

// HealthCheck returns a handler for health check endpoint
func HealthCheck(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		checks := map[string]string{
			"api":               "ok",
			"pulsedive_api_key": "ok",
		}
		if cfg.Pulsedive.APIKey == "" {
			checks["pulsedive_api_key"] = "missing"
		}

		status := "healthy"
		for _, check := range checks {
			if check != "ok" {
				status = "degraded"
				break
			}
		}

		JSONResponse(w, http.StatusOK, HealthResponse{
			Status:      status,
			Version:     Version,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Environment: cfg.App.Env,
			Timestamp:   time.Now().UTC(),
			Checks:      checks,
			System: SystemInfo{
				GoVersion:    runtime.Version(),
				NumCPU:       runtime.NumCPU(),
				NumGoroutine: runtime.NumGoroutine(),
				MemAllocMB:   m.Alloc / 1024 / 1024,
			},
		})
	}
}
