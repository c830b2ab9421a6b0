package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "spiroexport/internal/errors"
	"spiroexport/internal/exporter"
	"spiroexport/internal/metrics"
	"spiroexport/internal/population"
	"spiroexport/pkg/contracts/domain"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const tracerName = "spiroexport/internal/services"

// PopulationSource provides filtered subjects.
type PopulationSource interface {
	Filter(f domain.PopulationFilter) ([]domain.Subject, error)
	Stats() population.Stats
}

// Summary is the preview table of a filtered population.
type Summary struct {
	Columns []SummaryColumn         `json:"columns"`
	Rows    []domain.SummaryRow     `json:"rows"`
	Count   int                     `json:"count"`
	Total   int                     `json:"total"`
	Filter  domain.PopulationFilter `json:"filter"`
}

// SummaryColumn names one preview column and its display title.
type SummaryColumn struct {
	Field string `json:"field"`
	Title string `json:"title"`
}

// ExportService turns datasets and population selections into downloads.
type ExportService struct {
	source  PopulationSource
	writer  *exporter.CSVWriter
	options exporter.Options
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewExportService creates an export service. source may be nil when only
// caller-supplied datasets are exported; collector may be nil.
func NewExportService(source PopulationSource, writer *exporter.CSVWriter, opts exporter.Options, collector *metrics.Collector, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		source:  source,
		writer:  writer,
		options: opts,
		metrics: collector,
		logger:  logger.With(slog.String("service", "export")),
	}
}

// ExportDataset renders ds in the requested format.
func (s *ExportService) ExportDataset(ctx context.Context, ds domain.Dataset, format string) (*exporter.Download, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = FormatCSV
	}
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ExportService.ExportDataset",
		trace.WithAttributes(
			attribute.String("export.format", format),
			attribute.Int("export.records", ds.Len()),
		))
	defer span.End()

	var (
		download *exporter.Download
		err      error
	)
	switch format {
	case FormatCSV:
		download, err = exporter.NewDownload(ds, s.options)
	case FormatXLSX:
		download, err = exporter.NewXLSXDownload(ds)
	default:
		err = apierrors.UnsupportedFormat(format)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported format")
		return nil, err
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		outcome := metrics.OutcomeError
		if errors.Is(err, exporter.ErrInvalidDataset) {
			outcome = metrics.OutcomeInvalid
		}
		s.metrics.RecordExport(format, outcome, 0)
		s.logger.WarnContext(ctx, "export rejected",
			slog.String("format", format),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("export.bytes", len(download.Body)))
	s.metrics.RecordExport(format, metrics.OutcomeSuccess, download.Records)
	s.logger.InfoContext(ctx, "export generated",
		slog.String("format", format),
		slog.String("filename", download.Filename),
		slog.Int("records", download.Records),
		slog.Int("bytes", len(download.Body)),
		slog.Duration("duration", time.Since(start)),
	)
	return download, nil
}

// ExportPopulation exports the subjects selected by f.
func (s *ExportService) ExportPopulation(ctx context.Context, f domain.PopulationFilter, format string) (*exporter.Download, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ExportService.ExportPopulation",
		trace.WithAttributes(attribute.String("population.gender", f.Gender)))
	defer span.End()

	subjects, err := s.filter(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "population filter failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("population.matched", len(subjects)))
	return s.ExportDataset(ctx, BuildDataset(subjects), format)
}

// Summary returns the preview table of the subjects selected by f.
func (s *ExportService) Summary(ctx context.Context, f domain.PopulationFilter) (*Summary, error) {
	subjects, err := s.filter(ctx, f)
	if err != nil {
		return nil, err
	}

	columns := make([]SummaryColumn, len(domain.SummaryColumns))
	for i, c := range domain.SummaryColumns {
		columns[i] = SummaryColumn{Field: c.Field, Title: c.Title}
	}

	rows := make([]domain.SummaryRow, len(subjects))
	for i, subject := range subjects {
		rows[i] = SummaryRowOf(subject)
	}

	return &Summary{
		Columns: columns,
		Rows:    rows,
		Count:   len(rows),
		Total:   s.source.Stats().Subjects,
		Filter:  f,
	}, nil
}

// SaveDataset writes ds as CSV to path below the export directory and
// returns the resolved file path.
func (s *ExportService) SaveDataset(ctx context.Context, ds domain.Dataset, path string) (string, error) {
	fullPath, err := s.writer.WriteDataset(path, ds, s.options)
	if err != nil {
		if errors.Is(err, exporter.ErrInvalidDataset) {
			s.metrics.RecordExport(FormatCSV, metrics.OutcomeInvalid, 0)
			return "", err
		}
		s.metrics.RecordExport(FormatCSV, metrics.OutcomeError, 0)
		return "", apierrors.NewStorageError("failed to save export", err).WithContext("path", path)
	}

	s.metrics.RecordExport(FormatCSV, metrics.OutcomeSuccess, ds.Len())
	s.logger.InfoContext(ctx, "export saved",
		slog.String("path", fullPath),
		slog.Int("records", ds.Len()),
	)
	return fullPath, nil
}

// SavePopulation writes the subjects selected by f as CSV to path.
func (s *ExportService) SavePopulation(ctx context.Context, f domain.PopulationFilter, path string) (string, error) {
	subjects, err := s.filter(ctx, f)
	if err != nil {
		return "", err
	}
	return s.SaveDataset(ctx, BuildDataset(subjects), path)
}

func (s *ExportService) filter(ctx context.Context, f domain.PopulationFilter) ([]domain.Subject, error) {
	if s.source == nil {
		return nil, apierrors.ErrPopulationUnavailable
	}

	subjects, err := s.source.Filter(f)
	if errors.Is(err, population.ErrNotLoaded) {
		return nil, apierrors.ErrPopulationUnavailable
	}
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "population filtered",
		slog.String("gender", f.Gender),
		slog.Int("matched", len(subjects)),
	)
	return subjects, nil
}

// BuildDataset converts subjects into an export dataset, one record per
// subject in the given order.
func BuildDataset(subjects []domain.Subject) domain.Dataset {
	ds := domain.NewDataset()
	for _, subject := range subjects {
		ds.Append(subject.Values)
	}
	return ds
}

// SummaryRowOf picks the preview columns of subject.
func SummaryRowOf(subject domain.Subject) domain.SummaryRow {
	value := func(col string) any {
		for i, c := range domain.Columns {
			if c == col {
				return subject.Values[i]
			}
		}
		return nil
	}
	return domain.SummaryRow{
		SEQN:        value(domain.ColSEQN),
		FVCMax:      value(domain.ColFVCMax),
		Age:         value(domain.ColAge),
		Gender:      value(domain.ColGender2),
		Height:      value(domain.ColHeight),
		BMI:         value(domain.ColBMI),
		SessionBest: value(domain.ColSessionBest),
	}
}
