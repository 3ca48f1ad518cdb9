package service

import (
	"context"
	"strings"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

// DeviceTokenRepo is the token persistence surface.
type DeviceTokenRepo interface {
	Create(ctx context.Context, dt *models.DeviceToken) error
	FindByToken(ctx context.Context, token string) (*models.DeviceToken, error)
	Reactivate(ctx context.Context, id int64, deviceType models.DeviceType) (*models.DeviceToken, error)
	SetActive(ctx context.Context, token, authUserID string, isActive bool) (*models.DeviceToken, error)
	Delete(ctx context.Context, token, authUserID string) error
}

// RegisterTokenRequest is the validated input for a token registration.
type RegisterTokenRequest struct {
	AuthUserID string `json:"auth_user_id"`
	DeviceType string `json:"device_type"`
	Token      string `json:"token"`
}

type DeviceTokenService struct {
	repo DeviceTokenRepo
	log  logger.Logger
}

func NewDeviceTokenService(repo DeviceTokenRepo, log logger.Logger) *DeviceTokenService {
	return &DeviceTokenService{
		repo: repo,
		log:  log.WithFields(map[string]interface{}{"service": "device_token"}),
	}
}

// Register stores a push token for a user. Re-registering an existing
// token by its owner reactivates it and refreshes the device type;
// registering a token owned by a different user is a conflict.
func (s *DeviceTokenService) Register(ctx context.Context, req RegisterTokenRequest) (*models.DeviceToken, error) {
	if strings.TrimSpace(req.AuthUserID) == "" {
		return nil, apperrors.NewValidationError("auth_user_id is required")
	}
	if !models.DeviceType(req.DeviceType).Valid() {
		return nil, apperrors.NewValidationError("device_type must be one of: ios, android, web")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, apperrors.NewValidationError("token is required")
	}

	existing, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.AuthUserID != req.AuthUserID {
			return nil, apperrors.NewTokenOwnershipConflictError()
		}
		return s.repo.Reactivate(ctx, existing.ID, models.DeviceType(req.DeviceType))
	}

	dt := &models.DeviceToken{
		AuthUserID: req.AuthUserID,
		DeviceType: models.DeviceType(req.DeviceType),
		Token:      token,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, dt); err != nil {
		return nil, err
	}

	s.log.Info("device token registered", map[string]interface{}{
		"authUserId": dt.AuthUserID,
		"deviceType": string(dt.DeviceType),
	})
	return dt, nil
}

// Update applies a patch to the user's token. Only is_active is
// mutable.
func (s *DeviceTokenService) Update(ctx context.Context, token, authUserID string, patch models.DeviceTokenPatch) (*models.DeviceToken, error) {
	if strings.TrimSpace(authUserID) == "" {
		return nil, apperrors.NewValidationError("auth_user_id is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewValidationError("token is required")
	}
	if patch.IsActive == nil {
		return nil, apperrors.NewValidationError("is_active is required")
	}
	return s.repo.SetActive(ctx, strings.TrimSpace(token), authUserID, *patch.IsActive)
}

// Delete removes the user's token registration entirely.
func (s *DeviceTokenService) Delete(ctx context.Context, token, authUserID string) error {
	if strings.TrimSpace(authUserID) == "" {
		return apperrors.NewValidationError("auth_user_id is required")
	}
	if strings.TrimSpace(token) == "" {
		return apperrors.NewValidationError("token is required")
	}
	return s.repo.Delete(ctx, strings.TrimSpace(token), authUserID)
}
