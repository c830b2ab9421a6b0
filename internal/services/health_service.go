package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"spiroexport/internal/population"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// PopulationStats reports what the population store holds.
type PopulationStats interface {
	Stats() population.Stats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     PopulationStats
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. store may be nil when the
// process serves caller-supplied datasets only.
func NewHealthService(version string, store PopulationStats, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports ready once the configured population is loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"population": hs.checkPopulation(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != StatusReady {
			status.Status = StatusNotReady
			break
		}
	}

	if status.Status != StatusReady {
		hs.logger.WarnContext(ctx, "service not ready", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkPopulation() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: StatusReady, Message: "no population configured"}
	}

	stats := hs.store.Stats()
	if !stats.Loaded {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("population not loaded from %s", stats.Path),
		}
	}
	return ServiceHealth{Status: StatusReady, Details: stats}
}
