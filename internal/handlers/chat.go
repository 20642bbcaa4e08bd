package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/realtime"
)

type ChatHandler struct {
	Chat              *chat.Service
	Profiles          *profile.Service
	Hub               *realtime.Hub
	MaxAttachmentSize int64
	Log               *zap.Logger
}

func NewChatHandler(svc *chat.Service, profiles *profile.Service, hub *realtime.Hub, maxAttachment int64, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{Chat: svc, Profiles: profiles, Hub: hub, MaxAttachmentSize: maxAttachment, Log: logger}
}

func (h *ChatHandler) Routes(r fiber.Router, mw ...fiber.Handler) {
	g := r.Group("/chat", mw...)
	g.Get("/conversations", h.GetConversations)
	g.Get("/unread", h.GetUnreadTotal)
	g.Post("/threads/:counterpartId", h.OpenThread)
	g.Get("/threads/:counterpartId", h.GetThread)
	g.Delete("/threads/:counterpartId", h.CloseThread)
	g.Post("/threads/:counterpartId/messages", h.SendMessage)
	g.Post("/threads/:counterpartId/links", h.ShareLink)
	g.Post("/threads/:counterpartId/attachments", h.SendAttachment)
}

// me resolves the signed-in user as a chat participant.
func (h *ChatHandler) me(c *fiber.Ctx) (chat.Participant, error) {
	uid, err := userID(c)
	if err != nil {
		return chat.Participant{}, err
	}
	return h.Profiles.Participant(c.UserContext(), uid)
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	user, err := h.me(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Chat.Conversations(c.UserContext(), user, c.Query("q"))
	if err != nil {
		return h.chatError(c, err, "Could not load conversations")
	}
	return ok(c, list)
}

func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	return ok(c, fiber.Map{"unread": h.Chat.UnreadTotal(c.UserContext(), uid)})
}

func (h *ChatHandler) OpenThread(c *fiber.Ctx) error {
	user, err := h.me(c)
	if err != nil {
		return unauthorized(c)
	}
	t, err := h.Chat.Open(c.UserContext(), user, c.Params("counterpartId"))
	if err != nil {
		return h.chatError(c, err, "Could not open conversation")
	}
	return ok(c, viewOf(t))
}

func (h *ChatHandler) GetThread(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	t, err := h.Chat.Active(uid, c.Params("counterpartId"))
	if err != nil {
		return h.chatError(c, err, "Could not load conversation")
	}
	t.MarkRead(c.UserContext())
	return ok(c, viewOf(t))
}

func (h *ChatHandler) CloseThread(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	if _, err := h.Chat.Active(uid, c.Params("counterpartId")); err != nil {
		return h.chatError(c, err, "Could not close conversation")
	}
	h.Chat.Close(uid)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Conversation closed",
	})
}

type sendReq struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req sendReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	msg, err := h.Chat.Send(c.UserContext(), uid, c.Params("counterpartId"), req.Content)
	if err != nil {
		return h.chatError(c, err, "Could not send message")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

type linkReq struct {
	URL string `json:"url"`
}

func (h *ChatHandler) ShareLink(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req linkReq
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	msg, err := h.Chat.ShareLink(c.UserContext(), uid, c.Params("counterpartId"), req.URL)
	if err != nil {
		return h.chatError(c, err, "Could not share link")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    msg,
	})
}

// SendAttachment accepts the file and answers right away; the message
// appears in the thread once the upload settles.
func (h *ChatHandler) SendAttachment(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return unauthorized(c)
	}
	name, data, err := readUpload(c, "file", h.MaxAttachmentSize)
	switch {
	case errors.Is(err, errNoFile):
		return failStatus(c, fiber.StatusBadRequest, "Attachment file not found")
	case errors.Is(err, errFileSize):
		return fail200(c, "Attachment is empty or too large")
	case err != nil:
		return fail500(c, h.Log, "Could not read attachment", err)
	}

	if err := h.Chat.SendAttachment(uid, c.Params("counterpartId"), name, data); err != nil {
		return h.chatError(c, err, "Could not send attachment")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Uploading attachment",
	})
}

// WebSocketHandler streams chat and order notifications to the signed-in
// user. The user id comes from the JWT locals, never from the query.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	uid, isStr := c.Locals("userId").(string)
	if !isStr || uid == "" {
		_ = c.Close()
		return
	}
	h.Log.Debug("ws connected", zap.String("user", uid))
	h.Hub.Serve(c, uid)
	h.Log.Debug("ws disconnected", zap.String("user", uid))
}
