package llm

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation. Messages are constructed once and
// treated as read-only afterwards; adapters return new Messages rather than
// mutating existing ones.
//
// Raw holds the verbatim backend response payload for messages produced by
// an adapter. It is owned by the Message and never modified after
// assignment.
type Message struct {
	Role     Role            `json:"role"`
	Text     string          `json:"text"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Model    string          `json:"llm_model,omitempty"`
	Provider string          `json:"llm_provider,omitempty"`
}

// Conversation is an ordered, append-only sequence of messages. The caller
// owns it; adapters read it and return the assistant reply for the caller
// to append.
//
// Model, when set, overrides the adapter's default model for every request
// made with this conversation. It never influences which adapter is
// selected.
type Conversation struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"llm_model,omitempty"`
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Add appends a message.
func (c *Conversation) Add(msg Message) *Conversation {
	c.Messages = append(c.Messages, msg)
	return c
}

// AddText appends a message with the given role and text.
func (c *Conversation) AddText(role Role, text string) *Conversation {
	return c.Add(Message{Role: role, Text: text})
}

// Last returns the most recent message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.Messages) }

// Validate checks the preconditions every adapter requires before touching
// its transport: the conversation is non-nil, non-empty, and every turn
// carries a known role and is not missing its text field entirely.
func (c *Conversation) Validate() error {
	if c == nil || len(c.Messages) == 0 {
		return NewInvalidInputError("conversation must contain at least one message")
	}
	for i, msg := range c.Messages {
		if !msg.Role.Valid() {
			return NewInvalidInputError("message %d has unknown role %q", i, msg.Role)
		}
	}
	return nil
}
