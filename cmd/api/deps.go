package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/auth"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/kv"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/scheduler"
)

// services is everything the commands share.
type services struct {
	db      *gorm.DB
	rdb     *redis.Client // nil when redis is unreachable
	client  *backend.GormBackend
	kv      kv.Store
	hub     *realtime.Hub
	relay   *realtime.Relay // nil without redis
	auth    *auth.Service
	profile *profile.Service
	catalog *catalog.Service
	orders  *orders.Service
	cart    *cart.Service
	chat    *chat.Service
}

// connectRedis pings redis once. Without it the api runs single-instance:
// in-process events, in-memory session storage, no notification relay.
func connectRedis(ctx context.Context, c config.Config, log *zap.Logger) *redis.Client {
	rdb := realtime.NewRedis(c.RedisAddr, c.RedisPassword, c.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis not reachable, running single-instance", zap.String("addr", c.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	log.Info("redis connected", zap.String("addr", c.RedisAddr))
	return rdb
}

func openDB(c config.Config) (*gorm.DB, error) {
	db, err := backend.Connect(c.DBDriver, c.DBDSN)
	if err != nil {
		return nil, err
	}
	if c.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func buildServices(ctx context.Context, c config.Config, log *zap.Logger) (*services, error) {
	db, err := openDB(c)
	if err != nil {
		return nil, err
	}

	s := &services{db: db, rdb: connectRedis(ctx, c, log)}

	var bus backend.Bus
	if s.rdb != nil {
		bus = backend.NewRedisBus(s.rdb)
		s.kv = kv.NewRedisStore(s.rdb, "handloom:")
	} else {
		bus = backend.NewLocalBus()
		s.kv = kv.NewMemoryStore()
	}

	baseURL := c.AppBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + c.AppPort
	}
	s.client = backend.NewGormBackend(db, bus, backend.DiskObjects{Root: c.UploadDir, BaseURL: baseURL}, log.Named("backend"))

	s.hub = realtime.NewHub(log.Named("hub"))
	if s.rdb != nil {
		s.relay = realtime.NewRelay(s.rdb, log.Named("relay"))
		s.hub.UseRelay(s.relay)
	}

	s.auth = auth.NewService(s.client, log.Named("auth"))
	s.profile = profile.NewService(s.client, c.Chat.MaxAvatarSize, log.Named("profile"))
	s.catalog = catalog.NewService(s.client, log.Named("catalog"))
	s.orders = orders.NewService(s.client, c.Checkout, log.Named("orders"))

	var store cart.Store
	switch c.CartStore {
	case "session":
		store = cart.NewSessionStore(s.kv, log.Named("cart"))
	default:
		store = cart.NewRemoteStore(s.client, log.Named("cart"))
	}
	s.cart = cart.NewService(store, s.catalog, s.orders, c.Checkout, log.Named("cart"))

	s.chat = chat.NewService(
		chat.NewMessageLog(s.kv, log.Named("chat")),
		s.profile,
		scheduler.Timers{},
		chat.Settings{
			ReplyDelay:        c.Chat.ReplyDelay,
			UploadDelay:       c.Chat.UploadDelay,
			MaxAttachmentSize: c.Chat.MaxAttachmentSize,
		},
		log.Named("chat"),
	)
	return s, nil
}

func (s *services) close() {
	if s.chat != nil {
		s.chat.Shutdown()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
