// Package services implements the business logic between the HTTP handlers
// and the exporter: selecting subjects from the population, turning them into
// an export dataset, producing CSV or XLSX downloads and reporting health.
//
// # Service Pattern
//
//	type ServiceName struct {
//	    source PopulationSource
//	    logger *slog.Logger
//	}
//
//	func (s *ServiceName) Operation(ctx context.Context, input Input) (*Output, error)
//
// Services take their collaborators as interfaces so tests can substitute
// testify mocks, log through an injected *slog.Logger with the request
// context, and return errors that the transport maps to problem details:
//
//   - *exporter.ValidationError for datasets that cannot be exported
//   - population.ErrNotLoaded when no population is available
//   - *errors.APIError for unsupported formats
//   - *errors.AppError for storage failures
//
// # Available Services
//
//   - ExportService: dataset and population exports, summary table
//   - HealthService: liveness, readiness and version information
package services
