package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
)

type DashboardHandler struct {
	Orders *orders.Service
	Chat   *chat.Service
	Log    *zap.Logger
}

func NewDashboardHandler(o *orders.Service, c *chat.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{Orders: o, Chat: c, Log: logger}
}

func (h *DashboardHandler) unread() orders.UnreadCounter {
	if h.Chat == nil {
		return nil
	}
	return h.Chat
}

func (h *DashboardHandler) Customer(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	d, err := h.Orders.CustomerDashboard(c.UserContext(), uid, h.unread())
	if err != nil {
		return fail500(c, h.Log, "Could not load dashboard", err)
	}
	return ok(c, d)
}

func (h *DashboardHandler) Weaver(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	d, err := h.Orders.WeaverDashboard(c.UserContext(), uid, h.unread())
	if err != nil {
		return fail500(c, h.Log, "Could not load dashboard", err)
	}
	return ok(c, d)
}
