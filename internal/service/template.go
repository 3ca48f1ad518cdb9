package service

import (
	"context"
	"strings"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

// TemplateRepo is the template persistence surface. The cached store
// satisfies it, so reads go through Redis transparently.
type TemplateRepo interface {
	Create(ctx context.Context, t *models.NotificationTemplate) error
	GetByID(ctx context.Context, id int64) (*models.NotificationTemplate, error)
	GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error)
	List(ctx context.Context, typ models.NotificationType) ([]models.NotificationTemplate, error)
	Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error)
	Delete(ctx context.Context, id int64) error
}

// CreateTemplateRequest is the validated input for a new template.
type CreateTemplateRequest struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Subject  string            `json:"subject"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type TemplateService struct {
	repo TemplateRepo
	log  logger.Logger
}

func NewTemplateService(repo TemplateRepo, log logger.Logger) *TemplateService {
	return &TemplateService{
		repo: repo,
		log:  log.WithFields(map[string]interface{}{"service": "template"}),
	}
}

func (s *TemplateService) Create(ctx context.Context, req CreateTemplateRequest) (*models.NotificationTemplate, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if !models.NotificationType(req.Type).Valid() {
		return nil, apperrors.NewValidationError("type must be one of: email, push")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.NewValidationError("content is required")
	}

	tmpl := &models.NotificationTemplate{
		Name:     strings.TrimSpace(req.Name),
		Type:     models.NotificationType(req.Type),
		Subject:  req.Subject,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	s.log.Info("template created", map[string]interface{}{
		"templateId": tmpl.ID,
		"name":       tmpl.Name,
	})
	return tmpl, nil
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns templates, optionally filtered by type. An unknown type
// filter is rejected rather than silently matching nothing.
func (s *TemplateService) List(ctx context.Context, typ string) ([]models.NotificationTemplate, error) {
	if typ != "" && !models.NotificationType(typ).Valid() {
		return nil, apperrors.NewValidationError("type must be one of: email, push")
	}
	return s.repo.List(ctx, models.NotificationType(typ))
}

func (s *TemplateService) Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, apperrors.NewValidationError("type must be one of: email, push")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty")
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
