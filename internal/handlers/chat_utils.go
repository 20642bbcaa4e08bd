package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
)

type threadView struct {
	User        chat.Participant `json:"user"`
	Counterpart chat.Participant `json:"counterpart"`
	Messages    []chat.Message   `json:"messages"`
	Pending     int              `json:"pending"`
}

func viewOf(t *chat.Thread) threadView {
	return threadView{
		User:        t.User(),
		Counterpart: t.Counterpart(),
		Messages:    t.Messages(),
		Pending:     t.Pending(),
	}
}

func (h *ChatHandler) chatError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, chat.ErrUnknownUser):
		return failStatus(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, chat.ErrThreadNotOpen), errors.Is(err, chat.ErrThreadClosed):
		return failStatus(c, fiber.StatusConflict, "Conversation is not open")
	case errors.Is(err, chat.ErrEmptyMessage):
		errs := FieldErrors{}
		errs.Add("content", "Message is empty")
		return validationFail(c, errs)
	case errors.Is(err, chat.ErrInvalidLink):
		errs := FieldErrors{}
		errs.Add("url", "Link must be a valid http(s) URL")
		return validationFail(c, errs)
	case errors.Is(err, chat.ErrNoCounterpart), errors.Is(err, chat.ErrSelfConversation):
		return fail200(c, err.Error())
	case errors.Is(err, chat.ErrAttachmentTooLarge):
		return fail200(c, "Attachment is too large")
	case errors.Is(err, chat.ErrAttachmentType):
		return fail200(c, "Attachment type is not supported")
	}
	return fail500(c, h.Log, what, err)
}
