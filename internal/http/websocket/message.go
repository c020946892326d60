package websocket

import (
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

type SocketMessageType int

const (
	Update SocketMessageType = iota
	Command
	Response
	ErrorResponse
	Welcome
)

// SocketMessage is the envelope exchanged with activity-feed clients.
// The Id field can be used when replying to a message so the receiving
// client knows which command the reply is for. Origin and Target carry
// the client UUID the message arrived from / should be delivered to.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Id     int                    `json:"id"`
	Type   SocketMessageType      `json:"type"`
	Origin *uuid.UUID             `json:"-"`
	Target *uuid.UUID             `json:"-"`
}

// DecodeArgumentsInto unmarshals the messages argument body in to the
// provided struct, allowing command handlers to work with typed
// arguments rather than poking at the raw map.
func (message *SocketMessage) DecodeArgumentsInto(target interface{}) error {
	return mapstructure.Decode(message.Body, target)
}

// FormReply returns a NEW message that has the same origin/id as the
// original message, but with a new (caller provided) title, body and type.
func (message *SocketMessage) FormReply(replyTitle string, replyBody map[string]interface{}, replyType SocketMessageType) *SocketMessage {
	return &SocketMessage{
		Title:  replyTitle,
		Body:   replyBody,
		Type:   replyType,
		Id:     message.Id,
		Target: message.Origin,
	}
}
