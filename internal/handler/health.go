package handler

import (
	"net/http"
	"strconv"

	"github.com/birthapp/birthapp-go/internal/service"
)

type HealthHandler struct {
	service *service.HealthService
}

func NewHealthHandler(svc *service.HealthService) *HealthHandler {
	return &HealthHandler{service: svc}
}

// HandleLiveness handles GET /health.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleDiagnostics handles GET /api/v1/health. ?probe=1 also reads the store.
func (h *HealthHandler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	probe, _ := strconv.ParseBool(r.URL.Query().Get("probe"))
	report := h.service.Report(r.Context(), probe)

	status := http.StatusOK
	if !report.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
