package server

import (
	"net/http"

	"notification-service/internal/models"
	"notification-service/internal/service"
)

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterTokenRequest
	if !decodeValidated(w, r, registerTokenSchema, &req) {
		return
	}

	dt, err := s.tokens.Register(r.Context(), req)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, "Device token registered", dt)
}

type updateTokenRequest struct {
	AuthUserID string `json:"auth_user_id"`
	Token      string `json:"token"`
	IsActive   *bool  `json:"is_active"`
}

func (s *Server) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	var req updateTokenRequest
	if !decodeValidated(w, r, updateTokenSchema, &req) {
		return
	}

	dt, err := s.tokens.Update(r.Context(), req.Token, req.AuthUserID, models.DeviceTokenPatch{IsActive: req.IsActive})
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Device token updated", dt)
}

type deleteTokenRequest struct {
	AuthUserID string `json:"auth_user_id"`
	Token      string `json:"token"`
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	var req deleteTokenRequest
	if !decodeValidated(w, r, deleteTokenSchema, &req) {
		return
	}

	if err := s.tokens.Delete(r.Context(), req.Token, req.AuthUserID); err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Device token deleted", nil)
}
