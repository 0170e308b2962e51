package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/config"
)

// NewNotifier creates a notifier based on configuration
func NewNotifier(ctx context.Context, logger *zap.Logger, cfg *config.NotifierConfig) (Notifier, error) {
	role := config.NotifierRole(cfg.Role)
	switch cfg.Type {
	case "memory":
		return NewMemoryNotifier(logger), nil
	case "redis":
		return NewRedisNotifier(logger, cfg.Redis, role)
	case "composite":
		redisNotifier, err := NewRedisNotifier(logger, cfg.Redis, role)
		if err != nil {
			return nil, err
		}
		return NewCompositeNotifier(ctx, logger, NewMemoryNotifier(logger), redisNotifier), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}
