package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
)

type CategoryHandler struct {
	Catalog *catalog.Service
	Log     *zap.Logger
}

func NewCategoryHandler(svc *catalog.Service, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{Catalog: svc, Log: logger}
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return fail500(c, h.Log, "Could not load categories", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}
