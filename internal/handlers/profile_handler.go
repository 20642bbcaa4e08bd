package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
)

type ProfileHandler struct {
	Profiles      *profile.Service
	MaxAvatarSize int64
	Log           *zap.Logger
}

func NewProfileHandler(svc *profile.Service, maxAvatarSize int64, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: svc, MaxAvatarSize: maxAvatarSize, Log: logger}
}

func (h *ProfileHandler) Routes(r fiber.Router, mw ...fiber.Handler) {
	g := r.Group("/profile", mw...)
	g.Get("/", h.Get)
	g.Patch("/", h.Update)
	g.Post("/avatar", h.UploadAvatar)
}

func (h *ProfileHandler) profileError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return failStatus(c, fiber.StatusNotFound, "Profile not found")
	case errors.Is(err, profile.ErrNameRequired):
		errs := FieldErrors{}
		errs.Add("name", "Name is required")
		return validationFail(c, errs)
	case errors.Is(err, profile.ErrAvatarType):
		return fail200(c, "Avatar must be jpg, jpeg, png or webp")
	case errors.Is(err, profile.ErrAvatarTooLarge):
		return fail200(c, "Avatar is too large")
	}
	return fail500(c, h.Log, what, err)
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	p, err := h.Profiles.Get(c.UserContext(), uid)
	if err != nil {
		return h.profileError(c, err, "Could not load profile")
	}
	return ok(c, p)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req profile.Update
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Phone != nil && *req.Phone != "" && len(*req.Phone) < 8 {
		errs := FieldErrors{}
		errs.Add("phone", "Phone number is invalid")
		return validationFail(c, errs)
	}

	p, err := h.Profiles.Update(c.UserContext(), uid, req)
	if err != nil {
		return h.profileError(c, err, "Could not update profile")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"data":    p,
	})
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	name, data, err := readUpload(c, "avatar", h.MaxAvatarSize)
	switch {
	case errors.Is(err, errNoFile):
		return failStatus(c, fiber.StatusBadRequest, "Avatar file not found")
	case errors.Is(err, errFileSize):
		return fail200(c, "Avatar is empty or too large")
	case err != nil:
		return fail500(c, h.Log, "Could not read avatar", err)
	}

	url, err := h.Profiles.UploadAvatar(c.UserContext(), uid, name, data)
	if err != nil {
		return h.profileError(c, err, "Could not save avatar")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"url":     url,
	})
}
