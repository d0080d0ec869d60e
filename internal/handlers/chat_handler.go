package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

const defaultKeepAlive = 15 * time.Second

type ChatHandler struct {
	BaseHandler
	service   services.ChatService
	keepAlive time.Duration
}

func NewChatHandler(service services.ChatService, logger utils.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		keepAlive:   defaultKeepAlive,
	}
}

// sseChunk is the OpenAI-style frame the portal chat client reads
type sseChunk struct {
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

// Chat proxies a conversation to the AI gateway and re-emits the reply as SSE
// @Summary Stream a chat reply
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param request body models.ChatRequest true "Conversation so far"
// @Success 200 {string} string "SSE stream of delta frames ending with [DONE]"
// @Failure 400 {object} ErrorResponse "Invalid conversation"
// @Failure 402 {object} ErrorResponse "Payment required"
// @Failure 429 {object} ErrorResponse "Rate limited"
// @Failure 500 {object} ErrorResponse "AI gateway error"
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	h.LogRequest(c, "Chat request")

	if h.service == nil {
		h.respondError(c, http.StatusServiceUnavailable, "chat_disabled", "AI gateway is not configured", nil)
		return
	}

	var req models.ChatRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	deltas := make(chan string)
	errc := make(chan error, 1)
	go func() {
		errc <- h.service.Stream(ctx, req.Messages, func(delta string) error {
			select {
			case deltas <- delta:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	started := false
	for {
		select {
		case delta := <-deltas:
			if !started {
				startEventStream(c)
				started = true
			}
			if err := writeDeltaFrame(c, delta); err != nil {
				cancel()
				<-errc
				return
			}

		case <-ticker.C:
			// Pings only once the stream is committed, so early errors can still be JSON
			if started {
				fmt.Fprint(c.Writer, ": ping\n\n")
				c.Writer.Flush()
			}

		case err := <-errc:
			if err != nil {
				if !started {
					h.handleServiceError(c, err)
					return
				}
				utils.GetLogger(c, h.logger).Warn("Chat stream ended early", "error", err)
				return
			}
			if !started {
				startEventStream(c)
			}
			fmt.Fprint(c.Writer, "data: [DONE]\n\n")
			c.Writer.Flush()
			return
		}
	}
}

func startEventStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
}

func writeDeltaFrame(c *gin.Context, delta string) error {
	chunk := sseChunk{Choices: make([]sseChoice, 1)}
	chunk.Choices[0].Delta.Content = delta

	raw, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", raw); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
