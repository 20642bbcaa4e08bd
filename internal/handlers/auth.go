package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/auth"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/utils"
)

type AuthHandler struct {
	Auth      *auth.Service
	Profiles  *profile.Service
	Cart      *cart.Service
	Chat      *chat.Service
	JWTSecret string
	Expires   int
	Log       *zap.Logger
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func userJSON(u models.Profile) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"phone":      u.Phone,
		"role":       u.Role,
		"avatar_url": u.AvatarURL,
	}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, u models.Profile) error {
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     utils.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
	return nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req auth.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if problems := req.Problems(); len(problems) > 0 {
		return validationFail(c, fieldErrorsOf(problems))
	}

	u, err := h.Auth.Register(c.UserContext(), req)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		errs := FieldErrors{}
		errs.Add("email", "Email is already registered")
		return validationFail(c, errs)
	case errors.Is(err, auth.ErrPhoneTaken):
		errs := FieldErrors{}
		errs.Add("phone", "Phone number is already registered")
		return validationFail(c, errs)
	case err != nil:
		return fail500(c, h.Log, "Registration failed", err)
	}

	if err := h.setSession(c, u); err != nil {
		return fail500(c, h.Log, "Could not create token", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"data":    fiber.Map{"user": userJSON(u)},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail200(c, "Invalid body")
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", "Email is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		errs.Add("password", "Password is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	// wrong credentials stay 200 so the form can show the message
	u, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail200(c, "Wrong email or password")
	case errors.Is(err, auth.ErrInactive):
		return fail200(c, "Account is not active")
	case err != nil:
		return fail500(c, h.Log, "Login failed", err)
	}

	if err := h.setSession(c, u); err != nil {
		return fail500(c, h.Log, "Could not create token", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data":    fiber.Map{"user": userJSON(u)},
	})
}

// Logout drops the cookie and the per-user session state: the in-memory
// checkout and any open chat thread with its pending replies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if tok := c.Cookies(utils.TokenCookie); tok != "" {
		if t, err := utils.ParseJWT(h.JWTSecret, tok); err == nil {
			if claims, isClaims := t.Claims.(*utils.Claims); isClaims && claims.UserID != "" {
				if h.Cart != nil {
					h.Cart.Forget(claims.UserID)
				}
				if h.Chat != nil {
					h.Chat.Close(claims.UserID)
				}
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     utils.TokenCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   -1,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	u, err := h.Profiles.Get(c.UserContext(), uid)
	if errors.Is(err, profile.ErrNotFound) {
		return failStatus(c, fiber.StatusUnauthorized, "User not found")
	}
	if err != nil {
		return fail500(c, h.Log, "Could not load user", err)
	}
	return ok(c, userJSON(u))
}
