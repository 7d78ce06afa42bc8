package server

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/zeusync/eca/internal/core/events/bus"
)

// Client actions
const (
	ActionPropose = "propose"
	ActionSpawn   = "spawn"
	ActionGet     = "get"
)

// Reply types that are not bus event types.
const (
	TypeReply = "reply"
	TypeError = "error"
)

// Request is a client message.
//
//	{"action":"spawn","id":"1"}
//	{"action":"propose","id":"2","entity":"<uuid>","component":"position","attribute":"x","value":3}
//	{"action":"get","id":"3","entity":"<uuid>"}
type Request struct {
	Action    string `json:"action"`
	ID        string `json:"id,omitempty"`
	Entity    string `json:"entity,omitempty"`
	Component string `json:"component,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Value     any    `json:"value,omitempty"`
}

// Message is a server message: a bus event, or a reply to a Request.
type Message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Entity string `json:"entity,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// EntitySnapshot is the reply data of a get request.
type EntitySnapshot struct {
	Entity     string                    `json:"entity"`
	Owner      string                    `json:"owner"`
	Components map[string]map[string]any `json:"components"`
}

func decodeRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if r.Action == "" {
		return Request{}, fmt.Errorf("%w: action is required", ErrInvalidMessage)
	}
	return r, nil
}

func eventMessage(e bus.Event) Message {
	return Message{
		Type:   e.Type(),
		Entity: bus.EntityID(e.Data()),
		Data:   e.Data(),
	}
}

func replyMessage(id, entity string, data any) Message {
	return Message{Type: TypeReply, ID: id, Entity: entity, Data: data}
}

func errorMessage(id string, err error) Message {
	return Message{Type: TypeError, ID: id, Error: err.Error()}
}

// Health is the /healthz body.
type Health struct {
	Status  string          `json:"status"`
	Clients int             `json:"clients"`
	Dropped uint64          `json:"dropped"`
	Bus     bus.Metrics     `json:"bus"`
	Topics  []bus.TopicInfo `json:"topics"`
}
