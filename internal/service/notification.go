// Package service holds the application services between the HTTP
// handlers and the stores/channels.
package service

import (
	"context"
	"errors"
	"strings"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/delivery"
	"notification-service/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NotificationRepo is the persistence surface the service needs.
type NotificationRepo interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, authUserID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	Update(ctx context.Context, id int64, authUserID string, patch models.NotificationPatch) error
	UpdateStatus(ctx context.Context, id int64, status models.DeliveryStatus) error
	SetDeliveryOutcome(ctx context.Context, id int64, title, content string, status models.DeliveryStatus) error
	Delete(ctx context.Context, id int64, authUserID string) error
}

// Dispatcher is the delivery orchestrator surface.
type Dispatcher interface {
	Deliver(ctx context.Context, n *models.Notification, templateID int64, data map[string]string) (delivery.Result, error)
	Broadcast(ctx context.Context, userIDs []string, templateID int64, data map[string]string, opts delivery.BroadcastOptions) (delivery.Result, error)
}

// SendRequest is the validated input for a single notification send.
type SendRequest struct {
	AuthUserID string            `json:"auth_user_id"`
	Type       string            `json:"type"`
	TemplateID int64             `json:"template_id"`
	Email      string            `json:"email,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// BroadcastRequest is the validated input for a push broadcast.
type BroadcastRequest struct {
	UserIDs          []string          `json:"user_ids"`
	TemplateID       int64             `json:"template_id"`
	Data             map[string]string `json:"data,omitempty"`
	NotificationType string            `json:"notification_type,omitempty"`
	AdditionalData   map[string]string `json:"additional_data,omitempty"`
	Priority         string            `json:"priority,omitempty"`
}

type NotificationService struct {
	repo       NotificationRepo
	dispatcher Dispatcher
	log        logger.Logger
}

func NewNotificationService(repo NotificationRepo, dispatcher Dispatcher, log logger.Logger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		log:        log.WithFields(map[string]interface{}{"service": "notification"}),
	}
}

// Send creates a pending notification row, dispatches it, and records
// the outcome. The rendered title and content are backfilled onto the
// row once the template has been resolved. A provider failure still
// persists the failed row and surfaces the provider message.
func (s *NotificationService) Send(ctx context.Context, req SendRequest) (*models.Notification, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	n := &models.Notification{
		AuthUserID:     req.AuthUserID,
		Type:           models.NotificationType(req.Type),
		DeliveryStatus: models.StatusPending,
	}
	if req.Type == string(models.TypeEmail) {
		email := strings.TrimSpace(req.Email)
		n.Email = &email
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	result, err := s.dispatcher.Deliver(ctx, n, req.TemplateID, req.Data)
	if err != nil {
		s.markFailed(ctx, n.ID)
		return nil, err
	}

	if updErr := s.repo.SetDeliveryOutcome(ctx, n.ID, result.RenderedTitle, result.RenderedContent, result.Status); updErr != nil {
		s.log.Error("failed to record delivery outcome", map[string]interface{}{
			"notificationId": n.ID,
			"error":          updErr.Error(),
		})
	}
	n.Title = result.RenderedTitle
	n.Content = result.RenderedContent
	n.DeliveryStatus = result.Status

	if !result.Success {
		return n, deliveryError(n.Type, result)
	}
	return n, nil
}

// Broadcast pushes one rendered template to every active device of the
// given users. No notification rows are created.
func (s *NotificationService) Broadcast(ctx context.Context, req BroadcastRequest) (delivery.Result, error) {
	if len(req.UserIDs) == 0 {
		return delivery.Result{}, apperrors.NewValidationError("user_ids is required")
	}
	if req.TemplateID <= 0 {
		return delivery.Result{}, apperrors.NewValidationError("template_id is required")
	}

	return s.dispatcher.Broadcast(ctx, req.UserIDs, req.TemplateID, req.Data, delivery.BroadcastOptions{
		NotificationType: req.NotificationType,
		AdditionalData:   req.AdditionalData,
		Priority:         req.Priority,
	})
}

// List returns a page of a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, authUserID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if authUserID == "" {
		return nil, apperrors.NewValidationError("auth_user_id is required")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, authUserID, unreadOnly, limit, offset)
}

// MarkRead flips is_read on a notification owned by the user.
func (s *NotificationService) MarkRead(ctx context.Context, id int64, authUserID string) error {
	if authUserID == "" {
		return apperrors.NewValidationError("auth_user_id is required")
	}
	isRead := true
	return s.repo.Update(ctx, id, authUserID, models.NotificationPatch{IsRead: &isRead})
}

// Delete removes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, id int64, authUserID string) error {
	if authUserID == "" {
		return apperrors.NewValidationError("auth_user_id is required")
	}
	return s.repo.Delete(ctx, id, authUserID)
}

// markFailed is best-effort; a pending row that cannot be marked is
// logged and left for inspection.
func (s *NotificationService) markFailed(ctx context.Context, id int64) {
	if err := s.repo.UpdateStatus(ctx, id, models.StatusFailed); err != nil {
		s.log.Error("failed to mark notification failed", map[string]interface{}{
			"notificationId": id,
			"error":          err.Error(),
		})
	}
}

func validateSendRequest(req SendRequest) error {
	if strings.TrimSpace(req.AuthUserID) == "" {
		return apperrors.NewValidationError("auth_user_id is required")
	}
	if !models.NotificationType(req.Type).Valid() {
		return apperrors.NewValidationError("type must be one of: email, push")
	}
	if req.TemplateID <= 0 {
		return apperrors.NewValidationError("template_id is required")
	}
	if req.Type == string(models.TypeEmail) && strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("Email is required for email notifications")
	}
	return nil
}

func deliveryError(typ models.NotificationType, result delivery.Result) error {
	if typ == models.TypeEmail {
		return apperrors.NewEmailSendFailedError(errors.New(result.Error))
	}
	return apperrors.NewPushSendFailedError(result.Error)
}
