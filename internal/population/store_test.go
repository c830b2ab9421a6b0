package population

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"spiroexport/internal/metrics"
	"spiroexport/internal/shared/testutil"
	"spiroexport/pkg/contracts/domain"
)

func seqns(subjects []domain.Subject) []any {
	out := make([]any, len(subjects))
	for i, s := range subjects {
		out[i] = s.Values[0]
	}
	return out
}

func newLoadedStore(t *testing.T) (*Store, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	path := testutil.WriteFile(t, t.TempDir(), "population.csv", testutil.PopulationCSV(t, testutil.DefaultSubjects()...))
	store := NewStore(path, logger, nil)
	require.NoError(t, store.Reload(context.Background()))
	return store, path
}

func TestStore_FilterBeforeLoad(t *testing.T) {
	store := NewStore("unused.csv", nil, nil)

	_, err := store.Filter(domain.DefaultPopulationFilter())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, store.Stats().Loaded)
}

func TestStore_Filter(t *testing.T) {
	store, _ := newLoadedStore(t)

	tests := []struct {
		name   string
		mutate func(*domain.PopulationFilter)
		want   []any
	}{
		{
			name:   "default ranges drop out of range and incomplete subjects",
			mutate: func(f *domain.PopulationFilter) {},
			want:   []any{int64(101), int64(102)},
		},
		{
			name:   "gender",
			mutate: func(f *domain.PopulationFilter) { f.Gender = domain.GenderFemale },
			want:   []any{int64(102)},
		},
		{
			name:   "empty gender means all",
			mutate: func(f *domain.PopulationFilter) { f.Gender = "" },
			want:   []any{int64(101), int64(102)},
		},
		{
			name:   "bounds are inclusive",
			mutate: func(f *domain.PopulationFilter) { f.AgeMin, f.AgeMax = 20, 20 },
			want:   []any{int64(102)},
		},
		{
			name:   "widened age range",
			mutate: func(f *domain.PopulationFilter) { f.AgeMax = 50 },
			want:   []any{int64(101), int64(102), int64(103)},
		},
		{
			name:   "nothing matches",
			mutate: func(f *domain.PopulationFilter) { f.BMIMin, f.BMIMax = 59, 60 },
			want:   []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := domain.DefaultPopulationFilter()
			tt.mutate(&f)

			got, err := store.Filter(f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqns(got))
		})
	}
}

func TestStore_Stats(t *testing.T) {
	store, path := newLoadedStore(t)

	stats := store.Stats()
	assert.Equal(t, path, stats.Path)
	assert.True(t, stats.Loaded)
	assert.Equal(t, 4, stats.Subjects)
	assert.Equal(t, 3, stats.Complete)
	assert.False(t, stats.LoadedAt.IsZero())
}

func TestStore_FailedReloadKeepsData(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	logger, logs := testutil.NewTestLogger(t)

	path := testutil.WriteFile(t, t.TempDir(), "population.csv", testutil.PopulationCSV(t, testutil.DefaultSubjects()...))
	store := NewStore(path, logger, collector)
	require.NoError(t, store.Reload(context.Background()))

	testutil.WriteFile(t, filepath.Dir(path), "population.csv", []byte("SEQN\n1\n"))
	err := store.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, logs.ContainsMessage("population load failed"))

	got, err := store.Filter(domain.DefaultPopulationFilter())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	expected := `
# HELP spiroexport_population_reloads_total Population file loads by outcome
# TYPE spiroexport_population_reloads_total counter
spiroexport_population_reloads_total{outcome="error"} 1
spiroexport_population_reloads_total{outcome="success"} 1
# HELP spiroexport_population_subjects Subjects in the currently loaded population
# TYPE spiroexport_population_subjects gauge
spiroexport_population_subjects 4
`
	assert.NoError(t, promtest.GatherAndCompare(registry, strings.NewReader(expected),
		"spiroexport_population_reloads_total", "spiroexport_population_subjects"))
}

func TestStore_ReloadSpan(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		sr := testutil.RecordSpans(t)
		store, path := newLoadedStore(t)

		span := testutil.SpanNamed(sr, "Store.Reload")
		require.NotNil(t, span)
		stats := store.Stats()
		assert.Equal(t, codes.Unset, span.Status().Code)
		assert.Contains(t, span.Attributes(), attribute.String("population.path", path))
		assert.Contains(t, span.Attributes(), attribute.Int("population.subjects", stats.Subjects))
		assert.Contains(t, span.Attributes(), attribute.Int("population.complete", stats.Complete))
	})

	t.Run("missing file", func(t *testing.T) {
		sr := testutil.RecordSpans(t)
		store := NewStore(filepath.Join(t.TempDir(), "absent.csv"), nil, nil)

		require.Error(t, store.Reload(context.Background()))

		span := testutil.SpanNamed(sr, "Store.Reload")
		require.NotNil(t, span)
		assert.Equal(t, codes.Error, span.Status().Code)
	})
}
