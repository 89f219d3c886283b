package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/vocabtutor/internal/conversation"
	"github.com/antoniostano/vocabtutor/internal/protocol"
	"github.com/antoniostano/vocabtutor/internal/reliability"
)

const (
	wsReadLimit    = 64 << 10
	wsIdleTimeout  = 10 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

// handleConversationWS carries the text turn loop over a websocket. Turns are
// processed one at a time in read order, so a connection never has more than
// one model call in flight.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("conversationId"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "query parameter conversationId is required")
		return
	}
	if _, err := s.service.History(id); err != nil {
		respondServiceError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	conn.SetReadLimit(wsReadLimit)
	if err := s.writeWS(conn, protocol.SystemEvent{
		Type:           protocol.TypeSystemEvent,
		ConversationID: id,
		Code:           "ready",
	}); err != nil {
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if s.writeWS(conn, protocol.ErrorEvent{
				Type:           protocol.TypeErrorEvent,
				ConversationID: id,
				Code:           "invalid_client_message",
				Detail:         err.Error(),
			}) != nil {
				return
			}
			continue
		}

		switch msg := parsed.(type) {
		case protocol.UserText:
			s.metrics.WSMessages.WithLabelValues("inbound", string(msg.Type)).Inc()
			reply, err := s.service.Message(r.Context(), id, msg.Text)
			if err != nil {
				_, code, detail := classifyError(err)
				if s.writeWS(conn, protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: id,
					Seq:            msg.Seq,
					Code:           code,
					Retryable:      retryable(err),
					Detail:         detail,
				}) != nil {
					return
				}
				if errors.Is(err, conversation.ErrSessionNotFound) {
					closeWS(conn, "conversation ended")
					return
				}
				continue
			}
			if s.writeWS(conn, protocol.AssistantText{
				Type:           protocol.TypeAssistantText,
				ConversationID: id,
				Seq:            msg.Seq,
				Text:           reply,
			}) != nil {
				return
			}
		case protocol.ClientControl:
			s.metrics.WSMessages.WithLabelValues("inbound", string(msg.Type)).Inc()
			s.service.End(id)
			_ = s.writeWS(conn, protocol.SystemEvent{
				Type:           protocol.TypeSystemEvent,
				ConversationID: id,
				Code:           "ended",
			})
			closeWS(conn, "conversation ended")
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	if t, ok := messageTypeOf(msg); ok {
		s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
	}
	return nil
}

// retryable is true only for upstream failures worth retrying: throttling,
// 5xx, timeouts and transport errors.
func retryable(err error) bool {
	return errors.Is(err, conversation.ErrUpstream) && reliability.Retryable(err)
}

func closeWS(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), deadline)
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.AssistantText:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
