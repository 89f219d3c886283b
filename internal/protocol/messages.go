package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants of the turn channel.
type MessageType string

const (
	TypeUserText      MessageType = "user_text"
	TypeClientControl MessageType = "client_control"
	TypeAssistantText MessageType = "assistant_text"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// ActionEnd asks the server to end the conversation and close the socket.
const ActionEnd = "end"

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type UserText struct {
	Type MessageType `json:"type"`
	Seq  int         `json:"seq"`
	Text string      `json:"text"`
}

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

type AssistantText struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Seq            int         `json:"seq"`
	Text           string      `json:"text"`
}

type SystemEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Seq            int         `json:"seq,omitempty"`
	Code           string      `json:"code"`
	Retryable      bool        `json:"retryable"`
	Detail         string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserText:
		var msg UserText
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid user_text: empty text")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Action != ActionEnd {
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
