package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
)

const productImageLimit = 5 << 20

type ProductHandler struct {
	Catalog *catalog.Service
	Log     *zap.Logger
}

func NewProductHandler(svc *catalog.Service, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{Catalog: svc, Log: logger}
}

// Routes mounts the weaver's product management under /weaver/products.
func (h *ProductHandler) Routes(r fiber.Router, mw ...fiber.Handler) {
	g := r.Group("/weaver/products", mw...)
	g.Get("/", h.ListMine)
	g.Post("/", h.Create)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Patch("/:id/visibility", h.SetVisibility)
	g.Post("/:id/images", h.UploadImage)
}

func (h *ProductHandler) catalogError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return failStatus(c, fiber.StatusNotFound, "Product not found")
	case errors.Is(err, catalog.ErrWeaverNotFound):
		return failStatus(c, fiber.StatusNotFound, "Weaver not found")
	case errors.Is(err, catalog.ErrInvalidProduct):
		return fail200(c, "Product data is invalid")
	case errors.Is(err, catalog.ErrImageType):
		return fail200(c, "Image must be jpg, jpeg, png or webp")
	case errors.Is(err, catalog.ErrImageTooLarge):
		return fail200(c, "Image is too large")
	}
	return fail500(c, h.Log, what, err)
}

// ===== public =====

func (h *ProductHandler) ListPublic(c *fiber.Ctx) error {
	page, err := h.Catalog.ListProducts(c.UserContext(), catalog.ProductFilter{
		Category: c.Query("cat"),
		WeaverID: c.Query("weaver"),
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
	})
	if err != nil {
		return h.catalogError(c, err, "Could not load products")
	}
	return ok(c, page)
}

func (h *ProductHandler) GetDetail(c *fiber.Ctx) error {
	detail, err := h.Catalog.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.catalogError(c, err, "Could not load product")
	}
	return ok(c, detail)
}

func (h *ProductHandler) ListWeavers(c *fiber.Ctx) error {
	weavers, err := h.Catalog.ListWeavers(c.UserContext(), c.Query("q"))
	if err != nil {
		return h.catalogError(c, err, "Could not load weavers")
	}
	return ok(c, weavers)
}

func (h *ProductHandler) GetWeaver(c *fiber.Ctx) error {
	w, err := h.Catalog.GetWeaver(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.catalogError(c, err, "Could not load weaver")
	}
	return ok(c, w)
}

// ===== weaver =====

func (h *ProductHandler) ListMine(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Catalog.MyProducts(c.UserContext(), uid)
	if err != nil {
		return h.catalogError(c, err, "Could not load products")
	}
	return ok(c, items)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req catalog.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if problems := req.Problems(); len(problems) > 0 {
		return validationFail(c, fieldErrorsOf(problems))
	}

	p, err := h.Catalog.CreateProduct(c.UserContext(), uid, req)
	if err != nil {
		return h.catalogError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Product created",
		"data":    p,
	})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req catalog.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if problems := req.Problems(); len(problems) > 0 {
		return validationFail(c, fieldErrorsOf(problems))
	}

	p, err := h.Catalog.UpdateProduct(c.UserContext(), uid, c.Params("id"), req)
	if err != nil {
		return h.catalogError(c, err, "Could not update product")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product updated",
		"data":    p,
	})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), uid, c.Params("id")); err != nil {
		return h.catalogError(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product deleted",
	})
}

type visibilityReq struct {
	IsVisible *bool `json:"is_visible"`
}

// SetVisibility answers with the stored value so the dashboard toggle can
// roll back when the write fails.
func (h *ProductHandler) SetVisibility(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req visibilityReq
	if err := c.BodyParser(&req); err != nil || req.IsVisible == nil {
		errs := FieldErrors{}
		errs.Add("is_visible", "is_visible is required")
		return validationFail(c, errs)
	}

	visible, err := h.Catalog.SetVisibility(c.UserContext(), uid, c.Params("id"), *req.IsVisible)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return failStatus(c, fiber.StatusNotFound, "Product not found")
		}
		if h.Log != nil {
			h.Log.Warn("visibility update failed", zap.String("product", c.Params("id")), zap.Error(err))
		}
		return fail200(c, "Could not update visibility", fiber.Map{"data": fiber.Map{"is_visible": visible}})
	}
	return ok(c, fiber.Map{"is_visible": visible})
}

func (h *ProductHandler) UploadImage(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	name, data, err := readUpload(c, "image", productImageLimit)
	switch {
	case errors.Is(err, errNoFile):
		return failStatus(c, fiber.StatusBadRequest, "Image file not found")
	case errors.Is(err, errFileSize):
		return fail200(c, "Image is empty or too large")
	case err != nil:
		return fail500(c, h.Log, "Could not read image", err)
	}

	url, err := h.Catalog.UploadImage(c.UserContext(), uid, c.Params("id"), name, data)
	if err != nil {
		return h.catalogError(c, err, "Could not save image")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"url":     url,
	})
}
