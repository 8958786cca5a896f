package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/service"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

// PeopleHandler serves the birthday collection.
type PeopleHandler struct {
	service *service.PeopleService
}

func NewPeopleHandler(svc *service.PeopleService) *PeopleHandler {
	return &PeopleHandler{service: svc}
}

// HandleList handles GET /api/v1/people.
func (h *PeopleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.RecordsResponse{Data: records, Count: len(records)})
}

// HandleExportCSV handles GET /api/v1/people.csv.
func (h *PeopleHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := snapshot.EncodeCSV(records)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="birthdays.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleGet handles GET /api/v1/people/{index}.
func (h *PeopleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.RecordResponse{Index: index, Data: rec})
}

// HandleCreate handles POST /api/v1/people.
func (h *PeopleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rec model.Record
	if !decodeJSON(w, r, &rec) {
		return
	}

	res, err := h.service.Add(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse(res))
}

// HandleUpdate handles PUT /api/v1/people/{index}.
func (h *PeopleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var rec model.Record
	if !decodeJSON(w, r, &rec) {
		return
	}

	res, err := h.service.Update(r.Context(), index, rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse(res))
}

// HandleDelete handles DELETE /api/v1/people/{index}.
func (h *PeopleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	res, err := h.service.Delete(r.Context(), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse(res))
}

// HandleReplace handles PUT /api/v1/people. The body is a JSON array, a
// {"data": [...]} object, or CSV when sent as text/csv.
func (h *PeopleHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	format := snapshot.JSON
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "text/csv" {
		format = snapshot.CSV
	}

	records, err := snapshot.Decode(data, format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	res, err := h.service.Replace(r.Context(), records)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse(res))
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("index must be an integer"))
		return 0, false
	}
	return index, true
}

func mutationResponse(res *service.MutationResult) model.MutationResponse {
	resp := model.MutationResponse{
		Data:    res.Records,
		Count:   len(res.Records),
		Warning: res.Warning,
	}
	if res.PullRequest != nil {
		resp.PRURL = res.PullRequest.URL
		resp.PRNumber = res.PullRequest.Number
	}
	return resp
}
