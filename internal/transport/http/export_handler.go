package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "spiroexport/internal/errors"
	"spiroexport/internal/exporter"
	appmw "spiroexport/internal/middleware"
	"spiroexport/pkg/contracts/domain"
)

// RecordsHeader reports how many records a download holds.
const RecordsHeader = "X-Export-Records"

// ExportHandler serves CSV and XLSX downloads
type ExportHandler struct {
	service      ExportServiceInterface
	validator    *appmw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ExportServiceInterface, validator *appmw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes, mounted at /api/export
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(appmw.ContentType(h.errorHandler, "application/json")).Post("/{format}", h.ExportDataset)
	r.Get("/{format}", h.ExportPopulation)

	return r
}

// ExportDataset handles POST /api/export/{format}
func (h *ExportHandler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")

	ds, err := decodeDataset(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "malformed dataset",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	download, err := h.service.ExportDataset(r.Context(), ds, format)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeDownload(w, r, download)
}

// ExportPopulation handles GET /api/export/{format}
func (h *ExportHandler) ExportPopulation(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")

	f, err := parseFilter(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	download, err := h.service.ExportPopulation(r.Context(), f, format)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeDownload(w, r, download)
}

// decodeDataset reads a JSON object of column arrays. Numbers are kept as
// json.Number so integers and decimals keep their written form.
func decodeDataset(body io.Reader) (domain.Dataset, error) {
	var ds domain.Dataset

	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&ds); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierrors.ErrPayloadTooLarge
		}
		if errors.Is(err, io.EOF) {
			return nil, apierrors.InvalidRequestWithError(fmt.Errorf("request body is empty"))
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	if ds == nil {
		return nil, apierrors.InvalidRequestWithError(fmt.Errorf("request body must be a JSON object"))
	}
	if dec.More() {
		return nil, apierrors.InvalidRequestWithError(fmt.Errorf("request body must hold a single JSON object"))
	}
	return ds, nil
}

func (h *ExportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *exporter.ValidationError
	if errors.As(err, &verr) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidDataset(verr))
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

func (h *ExportHandler) writeDownload(w http.ResponseWriter, r *http.Request, d *exporter.Download) {
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.Header().Set(RecordsHeader, strconv.Itoa(d.Records))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(d.Body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write download",
			slog.String("filename", d.Filename),
			slog.String("error", err.Error()),
		)
	}
}
