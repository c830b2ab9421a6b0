package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "spiroexport/internal/errors"
	appmw "spiroexport/internal/middleware"
)

// PopulationHandler serves the summary table
type PopulationHandler struct {
	service      ExportServiceInterface
	validator    *appmw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPopulationHandler creates a new population handler
func NewPopulationHandler(service ExportServiceInterface, validator *appmw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PopulationHandler {
	return &PopulationHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "population_handler")),
		errorHandler: errorHandler,
	}
}

// Summary handles GET /api/population
func (h *PopulationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "summary served", slog.Int("count", summary.Count))
	render.JSON(w, r, summary)
}
