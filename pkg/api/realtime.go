package api

import (
	"encoding/json"

	"github.com/gobwas/ws"
	"github.com/kritgpt/matstat/pkg/broadcast"
	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/kritgpt/matstat/pkg/training"
	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"
)

// realtimeEventHandler handles a client event. Failures are reported back to
// the originating connection only.
type realtimeEventHandler func(connectionID string, data json.RawMessage)

func (h *Handler) realtimeEventHandlers() map[string]realtimeEventHandler {
	return map[string]realtimeEventHandler{
		message.EventSessionStart: h.onSessionStart,
		message.EventSessionEnd:   h.onSessionEnd,
	}
}

func (h *Handler) realtimeHandler() echo.HandlerFunc {
	handlers := h.realtimeEventHandlers()

	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}

		sub := broadcast.NewWebSocketConn(conn)
		sub.Start()
		defer sub.Close()

		h.hub.Register(sub)
		defer h.hub.Unregister(sub.ID())

		for {
			select {
			case data := <-sub.Inbox:
				h.dispatch(handlers, sub.ID(), data)
			case <-sub.Done():
				return nil
			}
		}
	}
}

func (h *Handler) dispatch(handlers map[string]realtimeEventHandler, connectionID string, data []byte) {
	env := message.Envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		h.replyError(connectionID, "Invalid message format")
		return
	}

	fn, ok := handlers[env.Event]
	if !ok {
		log.WithField("connection_id", connectionID).Warnf("api: unknown realtime event '%s'", env.Event)
		h.replyError(connectionID, "Unknown event: "+env.Event)
		return
	}

	fn(connectionID, env.Data)
}

func (h *Handler) onSessionStart(connectionID string, data json.RawMessage) {
	req := message.SessionStart{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			log.WithField("connection_id", connectionID).Warnf("api: ignoring malformed session_start data: %v", err)
		}
	}

	// session_started is broadcast by the manager
	if _, err := h.mgr.StartSession(req.TrainingType); err != nil {
		h.replyError(connectionID, training.MessageOf(err))
	}
}

func (h *Handler) onSessionEnd(connectionID string, _ json.RawMessage) {
	// session_ended is broadcast by the manager
	if _, err := h.mgr.EndSession(); err != nil {
		h.replyError(connectionID, training.MessageOf(err))
	}
}

func (h *Handler) replyError(connectionID, msg string) {
	h.hub.PublishTo(connectionID, message.EventSessionError, &message.SessionError{Message: msg})
}
