package server

import (
	"net/http"

	"notification-service/internal/models"
	"notification-service/internal/service"
)

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTemplateRequest
	if !decodeValidated(w, r, createTemplateSchema, &req) {
		return
	}

	tmpl, err := s.templates.Create(r.Context(), req)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, "Template created", tmpl)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, "Invalid template id", nil)
		return
	}

	tmpl, err := s.templates.Get(r.Context(), id)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Template retrieved", tmpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Templates retrieved", templates)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, "Invalid template id", nil)
		return
	}

	var patch models.TemplatePatch
	if !decodeValidated(w, r, updateTemplateSchema, &patch) {
		return
	}

	tmpl, err := s.templates.Update(r.Context(), id, patch)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Template updated", tmpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, "Invalid template id", nil)
		return
	}

	if err := s.templates.Delete(r.Context(), id); err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Template deleted", nil)
}
