package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
	"github.com/stevedao0/newcm-sub000/internal/common/config"
)

// RedisNotifier implements Notifier using Redis streams, so that every
// process attached to the same remote backend observes every write.
type RedisNotifier struct {
	logger     *zap.Logger
	client     redis.UniversalClient
	streamName string
	role       config.NotifierRole
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a new Redis-based notifier
func NewRedisNotifier(logger *zap.Logger, cfg config.RedisConfig, role config.NotifierRole) (*RedisNotifier, error) {
	redisOptions := &redis.UniversalOptions{
		Addrs:    strings.Split(cfg.Addr, ","),
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		redisOptions.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// can not set db in cluster mode
		redisOptions.DB = cfg.DB
	}
	client := redis.NewUniversalClient(redisOptions)

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisNotifier{
		logger:     logger.Named("notifier.redis"),
		client:     client,
		streamName: cfg.StreamName,
		role:       role,
	}, nil
}

// Watch implements Notifier.Watch
func (r *RedisNotifier) Watch(ctx context.Context) (<-chan *ChangeEvent, error) {
	if !r.CanReceive() {
		return nil, cnst.ErrNotReceiver
	}

	ch := make(chan *ChangeEvent, 10)

	go func() {
		defer close(ch)

		// Start from the latest message ($ means read only new messages)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
				streams, err := r.client.XRead(ctx, &redis.XReadArgs{
					Streams: []string{r.streamName, lastID},
					Count:   16,
					Block:   1 * time.Second,
				}).Result()

				if err != nil {
					if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
						r.logger.Error("failed to read from stream", zap.Error(err))
					}
					continue
				}

				for _, stream := range streams {
					for _, message := range stream.Messages {
						lastID = message.ID

						eventData, exists := message.Values["event"]
						if !exists {
							continue
						}
						var event ChangeEvent
						if err := json.Unmarshal([]byte(eventData.(string)), &event); err != nil {
							r.logger.Error("failed to unmarshal change event", zap.Error(err))
							continue
						}
						select {
						case ch <- &event:
							r.logger.Debug("change notification delivered",
								zap.String("collection", event.Collection),
								zap.String("messageID", message.ID))
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return ch, nil
}

// NotifyUpdate implements Notifier.NotifyUpdate
func (r *RedisNotifier) NotifyUpdate(ctx context.Context, event *ChangeEvent) error {
	if !r.CanSend() {
		return cnst.ErrNotSender
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	// Keep a short tail of events; subscribers re-fetch, so losing old
	// entries only costs a redundant reload.
	_, err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.streamName,
		MaxLen: 128,
		Approx: true,
		Values: map[string]interface{}{
			"event": string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to add message to stream: %w", err)
	}

	return nil
}

// Close releases the underlying redis client.
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}

// CanReceive returns true if the notifier can receive updates
func (r *RedisNotifier) CanReceive() bool {
	return r.role == config.RoleReceiver || r.role == config.RoleBoth
}

// CanSend returns true if the notifier can send updates
func (r *RedisNotifier) CanSend() bool {
	return r.role == config.RoleSender || r.role == config.RoleBoth
}
