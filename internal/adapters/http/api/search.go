package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/seisnear/internal/app"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/types"
)

const searchesPath = "/searches/"

// SearchHandler handles synchronous and queued searches.
type SearchHandler struct {
	deps Dependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps Dependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch handles POST /search: the search runs within the request.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := readSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	report := h.deps.Search(r.Context(), req)
	status := http.StatusOK
	if report.Status == model.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, types.FromReport(&report))
}

// HandleSubmit handles POST /searches: the search is queued and its id returned.
func (h *SearchHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := readSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, NewKind(op, ErrBackpressure))
		return
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, WrapKind(op, ErrUnavailable, err))
		return
	default:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	location := searchesPath + id
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusAccepted, types.Accepted{Status: "accepted", ID: id, Location: location})
}

// HandleGetSearch handles GET /searches/{id}.
func (h *SearchHandler) HandleGetSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_search"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, searchesPath)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, NewKind(op, ErrBadRequest))
		return
	}

	report, err := h.deps.Report(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.FromReport(report))
	case errors.Is(err, service.ErrReportNotFound):
		writeError(w, http.StatusNotFound, WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// readSearchRequest decodes and validates a search body.
func readSearchRequest(w http.ResponseWriter, r *http.Request) (model.SearchRequest, error) {
	var body types.SearchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return model.SearchRequest{}, err
	}
	req, err := body.ToModel()
	if err != nil {
		return model.SearchRequest{}, err
	}
	if err := service.ValidateRequest(req); err != nil {
		return model.SearchRequest{}, err
	}
	return req, nil
}
