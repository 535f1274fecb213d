// Package handler provides HTTP handlers for the tripmap API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tripmap/tripmap/internal/api/models"
	"github.com/tripmap/tripmap/internal/api/response"
	"github.com/tripmap/tripmap/internal/provider/resilience"
	"github.com/tripmap/tripmap/internal/session"
)

// Pinger checks a dependency.
type Pinger func(ctx context.Context) error

// OpsConfig holds the dependencies reported by the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Subsystems are pinged on readiness checks, keyed by name. A failing
	// subsystem fails readiness.
	Subsystems map[string]Pinger

	// Providers reports upstream circuit state. Optional.
	Providers *resilience.Registry

	// Sessions reports viewer session usage. Optional.
	Sessions *session.Manager
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	subsystems map[string]Pinger
	providers  *resilience.Registry
	sessions   *session.Manager
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:    cfg.Version,
		buildTime:  cfg.BuildTime,
		subsystems: cfg.Subsystems,
		providers:  cfg.Providers,
		sessions:   cfg.Sessions,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - dependency checks.
// A failing subsystem returns 503; an open provider circuit only degrades.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := models.Readiness{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	for name, ping := range h.subsystems {
		status := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := ping(ctx); err != nil {
			detail := err.Error()
			status.Status = models.HealthStatusFail
			status.Detail = &detail
			ready.Status = models.HealthStatusFail
		}
		ready.Subsystems = append(ready.Subsystems, status)
	}

	if h.providers != nil {
		for _, p := range h.providers.All() {
			status := providerStatus(p)
			if status.Status != models.HealthStatusOK && ready.Status == models.HealthStatusOK {
				ready.Status = models.HealthStatusDegraded
			}
			ready.Providers = append(ready.Providers, status)
		}
	}

	if h.sessions != nil {
		stats := h.sessions.Stats()
		ready.Sessions = models.SessionStats{Active: stats.Active, Max: stats.MaxSessions}
	}

	code := http.StatusOK
	if ready.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, ready)
}

func providerStatus(h resilience.Health) models.ProviderStatus {
	status := models.ProviderStatus{
		Provider:     h.Name,
		Status:       models.HealthStatusOK,
		CircuitState: h.CircuitState.String(),
	}
	switch {
	case h.IsUnhealthy():
		status.Status = models.HealthStatusFail
	case h.IsDegraded():
		status.Status = models.HealthStatusDegraded
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		status.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		status.LastFailureAt = &ts
	}
	if h.LastError != "" {
		msg := h.LastError
		status.Message = &msg
	}
	return status
}
