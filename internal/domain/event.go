package domain

// EventTypeMessage is the only inbound event type the dispatcher acts on.
const EventTypeMessage = "message"

// MessageTypeText is the only message type the dispatcher acts on.
const MessageTypeText = "text"

// EventSource identifies the sender of an inbound event.
type EventSource struct {
	Type   string `json:"type,omitempty"` // user | group | room
	UserID string `json:"userId,omitempty"`
}

// EventMessage is the message payload of an inbound event.
type EventMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// InboundEvent is one messaging-platform event as delivered by the webhook.
// It lives for exactly one dispatch and is never persisted.
type InboundEvent struct {
	Type       string       `json:"type"`
	Message    EventMessage `json:"message"`
	ReplyToken string       `json:"replyToken"`
	Source     EventSource  `json:"source"`
	Timestamp  int64        `json:"timestamp,omitempty"`
}

// IsTextMessage reports whether the event should be processed at all.
// Everything else (stickers, follows, joins, ...) is skipped silently.
func (e InboundEvent) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message.Type == MessageTypeText
}

// OutboundReply carries the final text for one processed event. The reply
// token is single-use by platform contract.
type OutboundReply struct {
	ReplyToken string
	Text       string
}
