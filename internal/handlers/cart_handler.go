package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/orders"
)

type CartHandler struct {
	Cart *cart.Service
	Log  *zap.Logger
}

func NewCartHandler(svc *cart.Service, logger *zap.Logger) *CartHandler {
	return &CartHandler{Cart: svc, Log: logger}
}

func (h *CartHandler) Routes(r fiber.Router, mw ...fiber.Handler) {
	cg := r.Group("/cart", mw...)
	cg.Get("/", h.View)
	cg.Post("/items", h.AddItem)
	cg.Patch("/items/:productId", h.SetQuantity)
	cg.Delete("/items/:productId", h.RemoveItem)

	co := r.Group("/checkout", mw...)
	co.Get("/", h.View)
	co.Post("/next", h.Next)
	co.Post("/back", h.Back)
	co.Put("/address", h.SetAddress)
	co.Put("/payment", h.SelectPayment)
	co.Post("/place", h.Place)
}

// ruleMessages are checkout rule violations shown to the shopper as is.
var ruleMessages = []struct {
	err error
	msg string
}{
	{cart.ErrAlreadyInCart, "Product is already in your cart"},
	{cart.ErrOutOfStock, "Product is out of stock"},
	{cart.ErrNotInCart, "Product is not in your cart"},
	{cart.ErrEmptyCart, "Your cart is empty"},
	{cart.ErrInvalidPayment, "Payment method must be card, upi or cod"},
	{cart.ErrPaymentRequired, "Select a payment method"},
	{cart.ErrWrongStep, "This action is not allowed at the current checkout step"},
	{cart.ErrSubmitting, "Your order is already being placed"},
	{orders.ErrInsufficientStock, "Not enough stock for one of the items"},
	{orders.ErrProductGone, "A product in your cart is no longer available"},
	{orders.ErrEmptyOrder, "Your cart is empty"},
}

func (h *CartHandler) respond(c *fiber.Ctx, snap cart.Snapshot, err error, what string) error {
	if err == nil {
		return ok(c, snap)
	}

	var addrErr *cart.AddressError
	if errors.As(err, &addrErr) {
		errs := FieldErrors{}
		for _, f := range addrErr.Missing {
			errs.Add(f, "This field is required")
		}
		return validationFail(c, errs)
	}
	if errors.Is(err, catalog.ErrProductNotFound) {
		return failStatus(c, fiber.StatusNotFound, "Product not found")
	}
	for _, rm := range ruleMessages {
		if errors.Is(err, rm.err) {
			return fail200(c, rm.msg, fiber.Map{"data": snap})
		}
	}
	return fail500(c, h.Log, what, err)
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	snap, err := h.Cart.View(c.UserContext(), uid)
	return h.respond(c, snap, err, "Could not load cart")
}

type addItemReq struct {
	ProductID string `json:"product_id"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req addItemReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.ProductID == "" {
		errs := FieldErrors{}
		errs.Add("product_id", "Product is required")
		return validationFail(c, errs)
	}
	snap, err := h.Cart.Add(c.UserContext(), uid, req.ProductID)
	return h.respond(c, snap, err, "Could not update cart")
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req quantityReq
	if err := c.BodyParser(&req); err != nil || req.Quantity == nil {
		errs := FieldErrors{}
		errs.Add("quantity", "Quantity is required")
		return validationFail(c, errs)
	}
	snap, err := h.Cart.SetQuantity(c.UserContext(), uid, c.Params("productId"), *req.Quantity)
	return h.respond(c, snap, err, "Could not update cart")
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	snap, err := h.Cart.Remove(c.UserContext(), uid, c.Params("productId"))
	return h.respond(c, snap, err, "Could not update cart")
}

func (h *CartHandler) Next(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	snap, err := h.Cart.Next(c.UserContext(), uid)
	return h.respond(c, snap, err, "Could not continue checkout")
}

func (h *CartHandler) Back(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	snap, err := h.Cart.Back(c.UserContext(), uid)
	return h.respond(c, snap, err, "Could not go back")
}

func (h *CartHandler) SetAddress(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req cart.Address
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	snap, err := h.Cart.SetAddress(c.UserContext(), uid, req)
	return h.respond(c, snap, err, "Could not save address")
}

type paymentReq struct {
	Method models.PaymentMethod `json:"method"`
}

func (h *CartHandler) SelectPayment(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req paymentReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	snap, err := h.Cart.SelectPayment(c.UserContext(), uid, req.Method)
	return h.respond(c, snap, err, "Could not select payment")
}

func (h *CartHandler) Place(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	placed, snap, err := h.Cart.Place(c.UserContext(), uid)
	if err != nil {
		return h.respond(c, snap, err, "Could not place order")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order placed",
		"data": fiber.Map{
			"order":    placed,
			"checkout": snap,
		},
	})
}
