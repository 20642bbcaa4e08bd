package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func fieldErrorsOf(problems map[string][]string) FieldErrors {
	errs := FieldErrors{}
	for f, msgs := range problems {
		for _, m := range msgs {
			errs.Add(f, m)
		}
	}
	return errs
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

// fail200 reports a rule violation the frontend shows inline.
func fail200(c *fiber.Ctx, message string, extra ...fiber.Map) error {
	resp := fiber.Map{
		"success": false,
		"message": message,
	}
	if len(extra) > 0 {
		for k, v := range extra[0] {
			resp[k] = v
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func failStatus(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func fail500(c *fiber.Ctx, log *zap.Logger, message string, err error) error {
	if log != nil {
		log.Error(message, zap.String("path", c.Path()), zap.Error(err))
	}
	return failStatus(c, fiber.StatusInternalServerError, message)
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func badBody(c *fiber.Ctx) error {
	return failStatus(c, fiber.StatusBadRequest, "invalid body")
}

// getAuth reads the authenticated user id placed by AttachJWTLocals.
func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	rawID, isStr := c.Locals("userId").(string)
	if !isStr || rawID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	uID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}
	return uID, nil
}

func userID(c *fiber.Ctx) (string, error) {
	id, err := getAuth(c)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func unauthorized(c *fiber.Ctx) error {
	return failStatus(c, fiber.StatusUnauthorized, "Unauthorized")
}
