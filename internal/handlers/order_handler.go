package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
)

type OrderHandler struct {
	Orders *orders.Service
	Log    *zap.Logger
}

func NewOrderHandler(svc *orders.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{Orders: svc, Log: logger}
}

func (h *OrderHandler) CustomerOrders(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Orders.CustomerOrders(c.UserContext(), uid)
	if err != nil {
		return fail500(c, h.Log, "Could not load orders", err)
	}
	return ok(c, list)
}

func (h *OrderHandler) WeaverOrders(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Orders.WeaverOrders(c.UserContext(), uid)
	if err != nil {
		return fail500(c, h.Log, "Could not load orders", err)
	}
	return ok(c, list)
}

type statusReq struct {
	Status models.OrderStatus `json:"status"`
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Status == "" {
		errs := FieldErrors{}
		errs.Add("status", "Status is required")
		return validationFail(c, errs)
	}

	o, err := h.Orders.UpdateStatus(c.UserContext(), uid, c.Params("id"), req.Status)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		return failStatus(c, fiber.StatusNotFound, "Order not found")
	case errors.Is(err, orders.ErrBadTransition):
		return fail200(c, "Order cannot move to that status")
	case errors.Is(err, orders.ErrStatusConflict):
		return failStatus(c, fiber.StatusConflict, "Order status changed meanwhile, reload and retry")
	case err != nil:
		return fail500(c, h.Log, "Could not update order", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order updated",
		"data":    o,
	})
}
