package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

// templateKeyPrefix namespaces cached templates in Redis.
const templateKeyPrefix = "template:"

// CachedTemplateStore decorates TemplateStore with a read-through
// Redis cache on GetByID. Every write path invalidates the entry, so a
// stale template survives at most one TTL window on a missed
// invalidation.
type CachedTemplateStore struct {
	*TemplateStore
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewCachedTemplateStore(inner *TemplateStore, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedTemplateStore {
	return &CachedTemplateStore{
		TemplateStore: inner,
		rdb:           rdb,
		ttl:           ttl,
		log:           log,
	}
}

func templateKey(id int64) string {
	return templateKeyPrefix + strconv.FormatInt(id, 10)
}

// GetByID checks Redis first and falls back to the database. Cache
// failures degrade to a plain database read.
func (s *CachedTemplateStore) GetByID(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	key := templateKey(id)

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var t models.NotificationTemplate
		if err := json.Unmarshal([]byte(cached), &t); err == nil {
			return &t, nil
		}
		// Corrupt entry: drop it and fall through to the database.
		s.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		s.log.Warn("template cache read failed", map[string]interface{}{
			"templateId": id,
			"error":      err.Error(),
		})
	}

	t, err := s.TemplateStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(t); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.log.Warn("template cache write failed", map[string]interface{}{
				"templateId": id,
				"error":      err.Error(),
			})
		}
	}
	return t, nil
}

// Update invalidates the cached entry after a successful write.
func (s *CachedTemplateStore) Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error) {
	t, err := s.TemplateStore.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

// Delete invalidates the cached entry after a successful delete.
func (s *CachedTemplateStore) Delete(ctx context.Context, id int64) error {
	if err := s.TemplateStore.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedTemplateStore) invalidate(ctx context.Context, id int64) {
	if err := s.rdb.Del(ctx, templateKey(id)).Err(); err != nil {
		s.log.Warn("template cache invalidation failed", map[string]interface{}{
			"templateId": id,
			"error":      err.Error(),
		})
	}
}
