package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/lib/pq"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

type TemplateStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewTemplateStore(db *sql.DB, log logger.Logger) *TemplateStore {
	return &TemplateStore{db: db, log: log}
}

// Create inserts a template. Name uniqueness is enforced here: the
// unique index is the authority, the pq error is translated to a
// conflict.
func (s *TemplateStore) Create(ctx context.Context, t *models.NotificationTemplate) error {
	metadata, err := marshalMetadata(t.Metadata)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("marshal template metadata", err)
	}

	query := `INSERT INTO notification_templates (name, type, subject, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err = s.db.QueryRowContext(ctx, query,
		t.Name, t.Type, t.Subject, t.Content, metadata,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return apperrors.NewDuplicateTemplateNameError(t.Name)
		}
		return apperrors.NewQueryExecutionFailedError("insert template", err)
	}
	return nil
}

const templateColumns = `id, name, type, subject, content, metadata, created_at, updated_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	var metadata []byte
	if err := row.Scan(
		&t.ID, &t.Name, &t.Type, &t.Subject, &t.Content, &metadata, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// GetByID fetches a template by primary key.
func (s *TemplateStore) GetByID(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get template", err)
	}
	return t, nil
}

// GetByName fetches a template by its unique name, or nil when absent.
func (s *TemplateStore) GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE name = $1`, name)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get template by name", err)
	}
	return t, nil
}

// List returns templates, optionally filtered by type.
func (s *TemplateStore) List(ctx context.Context, typ models.NotificationType) ([]models.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates`
	args := []interface{}{}
	if typ != "" {
		query += ` WHERE type = $1`
		args = append(args, typ)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list templates", err)
	}
	defer rows.Close()

	templates := []models.NotificationTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan template", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list templates", err)
	}
	return templates, nil
}

// Update applies the non-nil fields of patch and returns the updated
// template.
func (s *TemplateStore) Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}
	idx := 1

	if patch.Name != nil {
		sets = append(sets, "name = $"+itoa(idx))
		args = append(args, *patch.Name)
		idx++
	}
	if patch.Type != nil {
		sets = append(sets, "type = $"+itoa(idx))
		args = append(args, *patch.Type)
		idx++
	}
	if patch.Subject != nil {
		sets = append(sets, "subject = $"+itoa(idx))
		args = append(args, *patch.Subject)
		idx++
	}
	if patch.Content != nil {
		sets = append(sets, "content = $"+itoa(idx))
		args = append(args, *patch.Content)
		idx++
	}
	if patch.Metadata != nil {
		metadata, err := marshalMetadata(patch.Metadata)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("marshal template metadata", err)
		}
		sets = append(sets, "metadata = $"+itoa(idx))
		args = append(args, metadata)
		idx++
	}

	query := `UPDATE notification_templates SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + itoa(idx) + ` RETURNING ` + templateColumns
	args = append(args, id)

	row := s.db.QueryRowContext(ctx, query, args...)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(id)
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apperrors.NewDuplicateTemplateNameError(stringOrEmpty(patch.Name))
		}
		return nil, apperrors.NewQueryExecutionFailedError("update template", err)
	}
	return t, nil
}

// Delete removes a template.
func (s *TemplateStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notification_templates WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete template", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete template", err)
	}
	if affected == 0 {
		return apperrors.NewTemplateNotFoundError(id)
	}
	return nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
