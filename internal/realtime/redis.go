package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

const notificationPrefix = "notifications:"

// Relay carries hub pushes between api instances over redis channels
// notifications:<userID>.
type Relay struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRelay(rdb *redis.Client, logger *zap.Logger) *Relay {
	return &Relay{rdb: rdb, log: logger}
}

func (r *Relay) Publish(ctx context.Context, userID string, payload []byte) error {
	return r.rdb.Publish(ctx, notificationPrefix+userID, payload).Err()
}

// Listen feeds every relayed notification into hub until ctx ends.
func (r *Relay) Listen(ctx context.Context, hub *Hub) error {
	ps := r.rdb.PSubscribe(ctx, notificationPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = ps.Close()
	}()
	go func() {
		for msg := range ps.Channel() {
			userID := strings.TrimPrefix(msg.Channel, notificationPrefix)
			hub.deliver(userID, []byte(msg.Payload))
		}
		r.log.Debug("notification relay stopped")
	}()
	return nil
}
