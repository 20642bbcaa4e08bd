package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/config"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/logging"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
)

const bodyLimit = 8 << 20

type chatEvent struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	if err := migrate(s.db); err != nil {
		return err
	}

	go s.hub.Run(ctx)
	if s.relay != nil {
		if err := s.relay.Listen(ctx, s.hub); err != nil {
			return err
		}
	}

	// both sides of a conversation see each new message live
	s.chat.SetNotifier(chat.NotifierFunc(func(msg chat.Message) {
		s.hub.SendToUsers(ctx, chatEvent{Type: "chat_message", Message: msg}, msg.SenderID, msg.ReceiverID)
	}))

	stopWatch, err := orders.WatchNewOrders(ctx, s.client, s.hub, logger.Named("orders"))
	if err != nil {
		return fmt.Errorf("watch new orders: %w", err)
	}
	defer stopWatch()

	app := newApp(cfg, s, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.AppPort))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func newApp(c config.Config, s *services, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{BodyLimit: bodyLimit})

	app.Use(logging.Middleware(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     c.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Static("/uploads", c.UploadDir)

	authH := &handlers.AuthHandler{
		Auth:      s.auth,
		Profiles:  s.profile,
		Cart:      s.cart,
		Chat:      s.chat,
		JWTSecret: c.JWTSecret,
		Expires:   c.JWTExpiresMin,
		Log:       log.Named("http"),
	}
	var googleH *handlers.GoogleOAuthHandler
	if c.GoogleClientID != "" {
		googleH = &handlers.GoogleOAuthHandler{
			Auth:            s.auth,
			Session:         authH,
			JWTSecret:       c.JWTSecret,
			GoogleClientID:  c.GoogleClientID,
			GoogleSecret:    c.GoogleSecret,
			GoogleRedirect:  c.GoogleRedirect,
			FrontendBaseURL: strings.TrimRight(c.FrontendBaseURL, "/"),
			Log:             log.Named("http"),
		}
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, google sign in disabled")
	}
	handlers.Routes{
		JWTSecret:  c.JWTSecret,
		Auth:       authH,
		Google:     googleH,
		Categories: handlers.NewCategoryHandler(s.catalog, log.Named("http")),
		Products:   handlers.NewProductHandler(s.catalog, log.Named("http")),
		Profile:    handlers.NewProfileHandler(s.profile, c.Chat.MaxAvatarSize, log.Named("http")),
		Cart:       handlers.NewCartHandler(s.cart, log.Named("http")),
		Chat:       handlers.NewChatHandler(s.chat, s.profile, s.hub, c.Chat.MaxAttachmentSize, log.Named("http")),
		Orders:     handlers.NewOrderHandler(s.orders, log.Named("http")),
		Dashboard:  handlers.NewDashboardHandler(s.orders, s.chat, log.Named("http")),
	}.Mount(app)

	return app
}
