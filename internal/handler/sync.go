package handler

import (
	"net/http"

	"github.com/birthapp/birthapp-go/internal/service"
)

// SyncHandler exposes the maintenance copy from the repository into the store.
type SyncHandler struct {
	service *service.SyncService
}

func NewSyncHandler(svc *service.SyncService) *SyncHandler {
	return &SyncHandler{service: svc}
}

// HandleStatus handles GET /api/v1/sync (dry run).
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleSync handles POST /api/v1/sync.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Sync(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
