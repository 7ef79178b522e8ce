package chatapi

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/Abraxas-365/parley/pkg/chat"
	"github.com/Abraxas-365/parley/pkg/chat/chatsrv"
	"github.com/Abraxas-365/parley/pkg/errx"
	"github.com/Abraxas-365/parley/pkg/logx"
)

type ChatHandlers struct {
	service *chatsrv.Service
}

func NewChatHandlers(service *chatsrv.Service) *ChatHandlers {
	return &ChatHandlers{service: service}
}

func (h *ChatHandlers) RegisterRoutes(router fiber.Router) {
	router.Post("/chat", h.Chat)
	router.Post("/chat/stream", h.ChatStream)

	conversations := router.Group("/conversations")
	conversations.Get("/:id", h.GetConversation)
	conversations.Delete("/:id", h.DeleteConversation)
}

// Chat runs one conversation turn
func (h *ChatHandlers) Chat(c *fiber.Ctx) error {
	var req chat.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	response, err := h.service.Turn(c.Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

// ChatStream runs one conversation turn, streaming the reply as
// server-sent events. Each chunk is a data event with a JSON `delta`; the
// stream ends with a `done` event carrying the full turn response, or an
// `error` event when the turn fails.
func (h *ChatHandlers) ChatStream(c *fiber.Ctx) error {
	var req chat.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	ctx := c.Context()
	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		resp, err := h.service.TurnStream(ctx, req, func(delta string) error {
			payload, err := json.Marshal(fiber.Map{"delta": delta})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			writeStreamError(w, err)
			return
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			writeStreamError(w, err)
			return
		}
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
		w.Flush()
	}))

	return nil
}

// writeStreamError reports a failure inside an already-started event stream,
// where the HTTP status line is long gone
func writeStreamError(w *bufio.Writer, err error) {
	logx.Errorf("Streaming turn failed: %v", err)

	body := fiber.Map{"error": err.Error()}
	if e, ok := err.(*errx.Error); ok {
		body = fiber.Map{"error": e.Message, "code": e.Code, "status": e.HTTPStatus}
	}
	payload, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return
	}
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
	w.Flush()
}

// GetConversation returns the full transcript of a stored conversation
func (h *ChatHandlers) GetConversation(c *fiber.Ctx) error {
	id := c.Params("id")

	conv, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":           conv.ID,
		"messages":     conv.Transcript(),
		"total_tokens": conv.TotalTokens(),
		"created_at":   conv.CreatedAt,
		"updated_at":   conv.UpdatedAt,
	})
}

// DeleteConversation removes a stored conversation
func (h *ChatHandlers) DeleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
