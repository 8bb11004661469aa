package http

import (
	"net/http"

	"github.com/couchcryptid/turbine-dashboard/internal/auth"
	"github.com/couchcryptid/turbine-dashboard/internal/editor"
	"github.com/gorilla/mux"
)

func (s *Server) handleCreateTurbine(w http.ResponseWriter, r *http.Request) {
	var f editor.Form
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, err, "Invalid turbine.")
		return
	}
	f.ID = ""
	s.save(w, r, f, http.StatusCreated)
}

func (s *Server) handleUpdateTurbine(w http.ResponseWriter, r *http.Request) {
	var f editor.Form
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, err, "Invalid turbine.")
		return
	}
	f.ID = mux.Vars(r)["id"]
	s.save(w, r, f, http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, f editor.Form, status int) {
	res, err := s.deps.Editor.Save(r.Context(), f)
	if err != nil {
		s.logger.Warn("turbine save failed", "error", err, "id", f.ID, "actor", auth.FromContext(r.Context()).Subject)
		writeError(w, err, "Failed to save turbine.")
		return
	}
	s.logger.Info("turbine saved", "id", res.ID, "created", res.Created, "actor", auth.FromContext(r.Context()).Subject)
	writeJSON(w, status, res)
}

func (s *Server) handleDeleteTurbine(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Editor.Delete(r.Context(), id); err != nil {
		s.logger.Warn("turbine delete failed", "error", err, "id", id)
		writeError(w, err, "Failed to delete turbine.")
		return
	}
	s.logger.Info("turbine deleted", "id", id, "actor", auth.FromContext(r.Context()).Subject)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Overrides.Clear(r.Context(), id); err != nil {
		writeError(w, err, "Failed to clear override.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
