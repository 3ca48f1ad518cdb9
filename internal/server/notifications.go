package server

import (
	"net/http"
	"strconv"

	"notification-service/internal/service"
)

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if !decodeValidated(w, r, sendNotificationSchema, &req) {
		return
	}

	n, err := s.notifications.Send(r.Context(), req)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, "Notification sent", n)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req service.BroadcastRequest
	if !decodeValidated(w, r, broadcastSchema, &req) {
		return
	}

	result, err := s.notifications.Broadcast(r.Context(), req)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Broadcast dispatched", map[string]interface{}{
		"status":        result.Status,
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
		"errors":        result.Errors,
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	authUserID := q.Get("auth_user_id")
	unreadOnly := q.Get("unread_only") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notifications, err := s.notifications.List(r.Context(), authUserID, unreadOnly, limit, offset)
	if err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Notifications retrieved", notifications)
}

type notificationRef struct {
	NotificationID int64  `json:"notification_id"`
	AuthUserID     string `json:"auth_user_id"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req notificationRef
	if !decodeValidated(w, r, markReadSchema, &req) {
		return
	}

	if err := s.notifications.MarkRead(r.Context(), req.NotificationID, req.AuthUserID); err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Notification marked as read", nil)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRef
	if !decodeValidated(w, r, deleteNotificationSchema, &req) {
		return
	}

	if err := s.notifications.Delete(r.Context(), req.NotificationID, req.AuthUserID); err != nil {
		respondError(w, s.log, err)
		return
	}

	respondJSON(w, http.StatusOK, "Notification deleted", nil)
}
