package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	cache "gigpulse/internal/infrastructure/cache/adapter"
	cacheport "gigpulse/internal/infrastructure/cache/port"
	notification "gigpulse/internal/pkg/notification/application/domain"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// TemplateResolver finds the active template for a (trigger, channel).
// A nil template with a nil error means none is configured.
type TemplateResolver interface {
	Resolve(ctx context.Context, triggerKey string, channel schema.Channel) (*schema.NotificationTemplate, error)
}

// CachedTemplateResolver reads through a cache in front of the template store.
// Misses are cached too, so a trigger without templates costs one lookup per TTL.
type CachedTemplateResolver struct {
	Repo   repository.TemplateRepository
	Cache  cacheport.Cache
	TTL    time.Duration
	Logger *zap.Logger
}

func NewCachedTemplateResolver(repo repository.TemplateRepository, c cacheport.Cache, ttl time.Duration, logger *zap.Logger) *CachedTemplateResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedTemplateResolver{Repo: repo, Cache: c, TTL: ttl, Logger: logger}
}

type cachedTemplate struct {
	Found    bool                        `json:"found"`
	Template schema.NotificationTemplate `json:"template"`
}

// TemplateCacheKey names the cache entry for one (trigger, channel).
func TemplateCacheKey(triggerKey string, channel schema.Channel) string {
	return "ntpl:" + triggerKey + ":" + string(channel)
}

func (r *CachedTemplateResolver) Resolve(ctx context.Context, triggerKey string, channel schema.Channel) (*schema.NotificationTemplate, error) {
	key := TemplateCacheKey(triggerKey, channel)
	if r.Cache != nil && r.TTL > 0 {
		var hit cachedTemplate
		err := cache.GetJSON(ctx, r.Cache, key, &hit)
		switch {
		case err == nil:
			if !hit.Found {
				return nil, nil
			}
			return &hit.Template, nil
		case !errors.Is(err, cacheport.ErrMiss):
			r.Logger.Debug("template cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	rows, err := r.Repo.ListActive(ctx, triggerKey, channel)
	if err != nil {
		return nil, persistence(err)
	}
	tpl, ok, ambiguous := notification.PickTemplate(rows)
	if ambiguous {
		r.Logger.Warn("multiple active templates, using the most recently updated",
			zap.String("trigger", triggerKey),
			zap.String("channel", string(channel)),
			zap.Int("active", len(rows)),
			zap.String("template_id", tpl.ID))
	}

	if r.Cache != nil && r.TTL > 0 {
		if err := cache.SetJSON(ctx, r.Cache, key, cachedTemplate{Found: ok, Template: tpl}, r.TTL); err != nil {
			r.Logger.Debug("template cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	if !ok {
		return nil, nil
	}
	return &tpl, nil
}

// Invalidate drops the cached entry after a template change.
func (r *CachedTemplateResolver) Invalidate(ctx context.Context, triggerKey string, channel schema.Channel) error {
	if r.Cache == nil {
		return nil
	}
	_, err := r.Cache.Del(ctx, TemplateCacheKey(triggerKey, channel))
	return err
}
