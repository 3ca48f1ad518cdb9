// Package store holds the raw-SQL repositories over the relational
// schema (notifications, device_tokens, notification_templates).
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

type NotificationStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewNotificationStore(db *sql.DB, log logger.Logger) *NotificationStore {
	return &NotificationStore{db: db, log: log}
}

// Create inserts a notification in pending state and fills the
// generated id and timestamps.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (auth_user_id, type, title, content, email, is_read, delivery_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		n.AuthUserID, n.Type, n.Title, n.Content, n.Email, n.IsRead, n.DeliveryStatus,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("insert notification", err)
	}
	return nil
}

// GetByID fetches a notification owned by the given user.
func (s *NotificationStore) GetByID(ctx context.Context, id int64, authUserID string) (*models.Notification, error) {
	query := `SELECT id, auth_user_id, type, title, content, email, is_read, delivery_status, created_at, updated_at
		FROM notifications WHERE id = $1 AND auth_user_id = $2`

	var n models.Notification
	err := s.db.QueryRowContext(ctx, query, id, authUserID).Scan(
		&n.ID, &n.AuthUserID, &n.Type, &n.Title, &n.Content, &n.Email,
		&n.IsRead, &n.DeliveryStatus, &n.CreatedAt, &n.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotificationNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get notification", err)
	}
	return &n, nil
}

// ListByUser returns a user's notifications, newest first.
func (s *NotificationStore) ListByUser(ctx context.Context, authUserID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `SELECT id, auth_user_id, type, title, content, email, is_read, delivery_status, created_at, updated_at
		FROM notifications WHERE auth_user_id = $1`
	args := []interface{}{authUserID}

	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list notifications", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.AuthUserID, &n.Type, &n.Title, &n.Content, &n.Email,
			&n.IsRead, &n.DeliveryStatus, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan notification", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list notifications", err)
	}
	return notifications, nil
}

// Update applies the non-nil fields of patch to a notification. Only
// the orchestrator's caller sets delivery_status; clients can only
// flip is_read.
func (s *NotificationStore) Update(ctx context.Context, id int64, authUserID string, patch models.NotificationPatch) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}
	idx := 1

	if patch.IsRead != nil {
		sets = append(sets, "is_read = $"+itoa(idx))
		args = append(args, *patch.IsRead)
		idx++
	}
	if patch.DeliveryStatus != nil {
		sets = append(sets, "delivery_status = $"+itoa(idx))
		args = append(args, *patch.DeliveryStatus)
		idx++
	}

	query := `UPDATE notifications SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + itoa(idx) + ` AND auth_user_id = $` + itoa(idx+1)
	args = append(args, id, authUserID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update notification", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update notification", err)
	}
	if affected == 0 {
		return apperrors.NewNotificationNotFoundError(id)
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

// UpdateStatus records the delivery outcome for a notification without
// an ownership check; it is only called from the send path that just
// created the row.
func (s *NotificationStore) UpdateStatus(ctx context.Context, id int64, status models.DeliveryStatus) error {
	query := `UPDATE notifications SET delivery_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update notification status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("update notification status", err)
	}
	if affected == 0 {
		return apperrors.NewNotificationNotFoundError(id)
	}
	return nil
}

// SetDeliveryOutcome backfills the rendered title and content and
// records the final delivery status in one write. Send-path only, no
// ownership check.
func (s *NotificationStore) SetDeliveryOutcome(ctx context.Context, id int64, title, content string, status models.DeliveryStatus) error {
	query := `UPDATE notifications SET title = $1, content = $2, delivery_status = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query, title, content, status, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set delivery outcome", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set delivery outcome", err)
	}
	if affected == 0 {
		return apperrors.NewNotificationNotFoundError(id)
	}
	return nil
}

// Delete removes a notification owned by the given user.
func (s *NotificationStore) Delete(ctx context.Context, id int64, authUserID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND auth_user_id = $2`, id, authUserID)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete notification", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete notification", err)
	}
	if affected == 0 {
		return apperrors.NewNotificationNotFoundError(id)
	}
	return nil
}
