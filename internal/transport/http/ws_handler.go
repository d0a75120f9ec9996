package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

// Inbound command types.
const (
	cmdHostJoin     = "host-join"
	cmdPlayerJoin   = "player-join"
	cmdStartGame    = "start-game"
	cmdSubmitAnswer = "submit-answer"
	cmdNextQuestion = "next-question"
)

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type hostJoinPayload struct {
	Quiz   *domain.Quiz `json:"quiz"`
	QuizID string       `json:"quizId"`
}

type playerJoinPayload struct {
	Pin  string `json:"pin"`
	Name string `json:"name"`
}

type answerPayload struct {
	Answer json.RawMessage     `json:"answer"`
	Type   domain.QuestionType `json:"type"`
}

// conn is the per-connection state; only the read loop touches it.
type conn struct {
	id  string
	pin string
}

// ServeWS upgrades HTTP requests to websockets and dispatches game commands.
// Each connection is either one game's host or one game's player.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	defer ws.Close()

	c := &conn{id: uuid.NewString()}
	out := h.hub.Register(c.id)
	writerDone := make(chan struct{})

	// single writer; the hub owns the queue
	go func() {
		defer close(writerDone)
		writeLoop(ws, c.id, out)
		// unblocks the read loop, then drain until Unregister closes the queue
		ws.Close()
		for range out.send {
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	if c.pin != "" {
		h.service.Disconnect(ctx, c.pin, c.id)
	}
	h.hub.Unregister(c.id)
	<-writerDone
}

func writeLoop(ws *websocket.Conn, connID string, out *client) {
	for {
		select {
		case frame, ok := <-out.send:
			if !ok {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("ws write error", "conn", connID, "err", err)
				return
			}
		case <-out.kicked:
			return
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, c *conn, msg inboundMessage) {
	switch msg.Type {
	case cmdHostJoin:
		if c.pin != "" {
			h.hub.sendError(c.id, errAlreadyJoined)
			return
		}
		var p hostJoinPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			h.hub.sendError(c.id, err)
			return
		}
		pin, err := h.service.HostJoin(ctx, c.id, app.HostJoinRequest{Quiz: p.Quiz, QuizID: p.QuizID})
		if err != nil {
			h.replyError(c, err)
			return
		}
		c.pin = pin

	case cmdPlayerJoin:
		if c.pin != "" {
			h.hub.sendError(c.id, errAlreadyJoined)
			return
		}
		var p playerJoinPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			h.hub.sendError(c.id, err)
			return
		}
		if err := h.service.PlayerJoin(ctx, p.Pin, c.id, p.Name); err != nil {
			h.replyError(c, err)
			return
		}
		c.pin = p.Pin

	case cmdStartGame:
		if err := h.service.StartGame(ctx, c.pin, c.id); err != nil {
			h.replyError(c, err)
		}

	case cmdSubmitAnswer:
		var p answerPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return
		}
		h.service.SubmitAnswer(ctx, c.pin, c.id, p.Answer, p.Type)

	case cmdNextQuestion:
		if err := h.service.NextQuestion(ctx, c.pin, c.id); err != nil {
			h.replyError(c, err)
		}

	default:
		h.hub.sendError(c.id, errUnsupported)
	}
}

var (
	errAlreadyJoined = errors.New("connection already joined a game")
	errUnsupported   = errors.New("unsupported message type")
	errBadPayload    = errors.New("invalid payload")
)

// replyError reports validation errors. Commands from a non-host connection
// are dropped without a reply.
func (h *WSHandler) replyError(c *conn, err error) {
	if errors.Is(err, domain.ErrNotHost) {
		slog.Debug("ignoring host command", "conn", c.id, "pin", c.pin)
		return
	}
	h.hub.sendError(c.id, err)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}
