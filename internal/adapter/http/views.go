package http

import (
	"net/http"

	"github.com/couchcryptid/turbine-dashboard/internal/dashboard"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/reconcile"
	"github.com/gorilla/mux"
)

type tableResponse struct {
	Status   dashboard.Status       `json:"status"`
	Turbines []domain.TurbineRecord `json:"turbines"`
}

type markersResponse struct {
	Status  dashboard.Status   `json:"status"`
	Markers []reconcile.Marker `json:"markers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Dashboard.Status())
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Dashboard.Table(r.Context())
	if err != nil {
		writeError(w, err, "Failed to load turbines.")
		return
	}
	if records == nil {
		records = []domain.TurbineRecord{}
	}
	writeJSON(w, http.StatusOK, tableResponse{Status: s.deps.Dashboard.Status(), Turbines: records})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.deps.Dashboard.Markers(r.Context())
	if err != nil {
		writeError(w, err, "Failed to load map markers.")
		return
	}
	if markers == nil {
		markers = []reconcile.Marker{}
	}
	writeJSON(w, http.StatusOK, markersResponse{Status: s.deps.Dashboard.Status(), Markers: markers})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Dashboard.Detail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to load turbine.")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Dashboard.Refresh(r.Context()); err != nil {
		writeError(w, err, "Failed to refresh turbines.")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Dashboard.Status())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Dashboard.Summary(r.Context())
	if err != nil {
		s.logger.Error("summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to fetch data from backend",
			Message: domain.ErrorMessage(err, "One or more data sources are unavailable"),
			Class:   domain.Classify(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
