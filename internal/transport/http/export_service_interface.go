package http

import (
	"context"

	"spiroexport/internal/exporter"
	"spiroexport/internal/services"
	"spiroexport/pkg/contracts/domain"
)

// ExportServiceInterface defines the export operations the handlers need
type ExportServiceInterface interface {
	ExportDataset(ctx context.Context, ds domain.Dataset, format string) (*exporter.Download, error)
	ExportPopulation(ctx context.Context, f domain.PopulationFilter, format string) (*exporter.Download, error)
	Summary(ctx context.Context, f domain.PopulationFilter) (*services.Summary, error)
}
