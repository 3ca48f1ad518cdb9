package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/metrics"
	"notification-service/internal/models"
)

type DeviceTokenStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewDeviceTokenStore(db *sql.DB, log logger.Logger) *DeviceTokenStore {
	return &DeviceTokenStore{db: db, log: log}
}

const deviceTokenColumns = `id, auth_user_id, device_type, token, is_active, created_at, updated_at`

// Create inserts a new device token registration.
func (s *DeviceTokenStore) Create(ctx context.Context, dt *models.DeviceToken) error {
	query := `INSERT INTO device_tokens (auth_user_id, device_type, token, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		dt.AuthUserID, dt.DeviceType, dt.Token, dt.IsActive,
	).Scan(&dt.ID, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return apperrors.NewTokenOwnershipConflictError()
		}
		return apperrors.NewQueryExecutionFailedError("insert device token", err)
	}
	return nil
}

// FindByToken returns the registration holding a token, or nil when
// the token is unknown.
func (s *DeviceTokenStore) FindByToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	query := `SELECT ` + deviceTokenColumns + ` FROM device_tokens WHERE token = $1`

	var dt models.DeviceToken
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&dt.ID, &dt.AuthUserID, &dt.DeviceType, &dt.Token, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("find device token", err)
	}
	return &dt, nil
}

// Reactivate updates an existing registration in place (same owner
// re-registering, possibly from a new device type).
func (s *DeviceTokenStore) Reactivate(ctx context.Context, id int64, deviceType models.DeviceType) (*models.DeviceToken, error) {
	query := `UPDATE device_tokens
		SET device_type = $1, is_active = true, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING ` + deviceTokenColumns

	var dt models.DeviceToken
	err := s.db.QueryRowContext(ctx, query, deviceType, id).Scan(
		&dt.ID, &dt.AuthUserID, &dt.DeviceType, &dt.Token, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDeviceTokenNotFoundError()
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("reactivate device token", err)
	}
	return &dt, nil
}

// ActiveTokensForUser returns the user's tokens with is_active = true.
// Ordering is not significant.
func (s *DeviceTokenStore) ActiveTokensForUser(ctx context.Context, authUserID string) ([]models.DeviceToken, error) {
	query := `SELECT ` + deviceTokenColumns + ` FROM device_tokens WHERE auth_user_id = $1 AND is_active = true`

	rows, err := s.db.QueryContext(ctx, query, authUserID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list active device tokens", err)
	}
	defer rows.Close()

	tokens := []models.DeviceToken{}
	for rows.Next() {
		var dt models.DeviceToken
		if err := rows.Scan(
			&dt.ID, &dt.AuthUserID, &dt.DeviceType, &dt.Token, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan device token", err)
		}
		tokens = append(tokens, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list active device tokens", err)
	}
	return tokens, nil
}

// Deactivate marks the given tokens inactive. Idempotent; failures are
// logged and swallowed because deactivation is best-effort cleanup
// after a provider rejection, not part of the originating send's
// correctness.
func (s *DeviceTokenStore) Deactivate(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}

	query := `UPDATE device_tokens SET is_active = false, updated_at = CURRENT_TIMESTAMP WHERE id = ANY($1)`

	result, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		s.log.Warn("failed to deactivate device tokens", map[string]interface{}{
			"tokenIds": ids,
			"error":    err.Error(),
		})
		return
	}

	if affected, err := result.RowsAffected(); err == nil {
		metrics.DeviceTokensDeactivated.Add(float64(affected))
	}
}

// SetActive flips is_active for a token owned by the given user.
func (s *DeviceTokenStore) SetActive(ctx context.Context, token, authUserID string, isActive bool) (*models.DeviceToken, error) {
	query := `UPDATE device_tokens
		SET is_active = $1, updated_at = CURRENT_TIMESTAMP
		WHERE token = $2 AND auth_user_id = $3
		RETURNING ` + deviceTokenColumns

	var dt models.DeviceToken
	err := s.db.QueryRowContext(ctx, query, isActive, token, authUserID).Scan(
		&dt.ID, &dt.AuthUserID, &dt.DeviceType, &dt.Token, &dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDeviceTokenNotFoundError()
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update device token", err)
	}
	return &dt, nil
}

// Delete removes a token registration owned by the given user.
func (s *DeviceTokenStore) Delete(ctx context.Context, token, authUserID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM device_tokens WHERE token = $1 AND auth_user_id = $2`, token, authUserID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete device token", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete device token", err)
	}
	if affected == 0 {
		return apperrors.NewDeviceTokenNotFoundError()
	}
	return nil
}
