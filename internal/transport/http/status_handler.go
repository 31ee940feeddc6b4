package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "zipcsv/internal/errors"
	"zipcsv/internal/operations"
)

// StatusSource reports the progress of the running job
type StatusSource interface {
	Snapshot() operations.ProgressSnapshot
}

// StatusHandler serves the progress of the current run
type StatusHandler struct {
	source StatusSource
	errs   *apierrors.ErrorHandler
	logger *slog.Logger
}

// NewStatusHandler creates a status handler. A nil source makes /status
// answer 503 until a run is attached.
func NewStatusHandler(source StatusSource, errs *apierrors.ErrorHandler, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		source: source,
		errs:   errs,
		logger: logger.With(slog.String("handler", "status")),
	}
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.errs.ServiceUnavailable(w, r, "no run attached")
		return
	}
	render.JSON(w, r, h.source.Snapshot())
}
