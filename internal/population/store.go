package population

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"spiroexport/internal/metrics"
	"spiroexport/pkg/contracts/domain"
)

// ErrNotLoaded is returned by queries made before the first successful load.
var ErrNotLoaded = errors.New("population not loaded")

// Stats summarizes the loaded population.
type Stats struct {
	Path     string    `json:"path"`
	Loaded   bool      `json:"loaded"`
	Subjects int       `json:"subjects"`
	Complete int       `json:"complete"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Store holds the current population. Reload swaps the whole slice, so
// readers never see a partially loaded table.
type Store struct {
	path    string
	logger  *slog.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	subjects []domain.Subject
	complete int
	loadedAt time.Time
	loaded   bool
}

// NewStore creates an empty store for the file at path. collector may be nil.
func NewStore(path string, logger *slog.Logger, collector *metrics.Collector) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:    path,
		logger:  logger.With(slog.String("component", "population_store")),
		metrics: collector,
	}
}

// Path returns the population file the store reads.
func (s *Store) Path() string {
	return s.path
}

// Reload reads the population file and replaces the current data. On failure
// the previous data stays in place.
func (s *Store) Reload(ctx context.Context) error {
	start := time.Now()

	ctx, span := otel.Tracer("spiroexport/internal/population").Start(ctx, "Store.Reload",
		trace.WithAttributes(attribute.String("population.path", s.path)))
	defer span.End()

	subjects, err := Load(s.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "population load failed")
		s.metrics.RecordReload(metrics.OutcomeError)
		s.logger.ErrorContext(ctx, "population load failed",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return err
	}

	complete := 0
	for i := range subjects {
		if subjects[i].Complete {
			complete++
		}
	}

	s.mu.Lock()
	s.subjects = subjects
	s.complete = complete
	s.loadedAt = time.Now()
	s.loaded = true
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("population.subjects", len(subjects)),
		attribute.Int("population.complete", complete),
	)
	s.metrics.RecordReload(metrics.OutcomeSuccess)
	s.metrics.SetPopulationSize(len(subjects))
	s.logger.InfoContext(ctx, "population loaded",
		slog.String("path", s.path),
		slog.Int("subjects", len(subjects)),
		slog.Int("complete", complete),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Filter returns the subjects that pass f, in file order.
func (s *Store) Filter(f domain.PopulationFilter) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}

	matched := make([]domain.Subject, 0, s.complete)
	for _, subject := range s.subjects {
		if f.Matches(subject) {
			matched = append(matched, subject)
		}
	}
	return matched, nil
}

// Stats reports what is currently loaded.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Path:     s.path,
		Loaded:   s.loaded,
		Subjects: len(s.subjects),
		Complete: s.complete,
		LoadedAt: s.loadedAt,
	}
}
