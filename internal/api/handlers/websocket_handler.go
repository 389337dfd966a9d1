package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/query"
	"github.com/docuqa/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *query.Engine
}

func NewWebSocketHandler(engine *query.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

type wsQuestion struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

type wsEvent struct {
	Stage string      `json:"stage"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// HandleAsk serves a persistent question/answer session over one
// websocket. Each incoming message is a question; the client gets an
// acknowledgement stage followed by the answer or an error event.
func (h *WebSocketHandler) HandleAsk(conn *websocket.Conn) {
	defer conn.Close()

	for {
		var req wsQuestion
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req.Question == "" || req.DocumentID == "" {
			conn.WriteJSON(wsEvent{Stage: "error", Error: "question and document_id are required"})
			continue
		}

		if err := conn.WriteJSON(wsEvent{Stage: "processing"}); err != nil {
			return
		}

		response, err := h.engine.Ask(context.Background(), req.Question, req.DocumentID, req.UserID)
		if err != nil {
			logger.Warn("WebSocket ask failed", zap.Error(err))
			conn.WriteJSON(wsEvent{Stage: "error", Error: err.Error()})
			continue
		}

		if err := conn.WriteJSON(wsEvent{Stage: "answer", Data: response}); err != nil {
			return
		}
	}
}
