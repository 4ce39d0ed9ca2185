package model

import "encoding/json"

// Conversation status values reported by the helpdesk. Any other value is
// passed through untouched.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusPending  = "pending"
)

// Sender roles for a Message. An empty SenderType means the helpdesk did not
// report one, in which case MessageType is the only signal.
const (
	SenderContact = "Contact"
	SenderAgent   = "Agent"
	SenderBot     = "AgentBot"
)

// Legacy message_type values that carry text written by a person: 0 is an
// incoming contact message, 1 an outgoing agent reply.
const (
	MessageTypeIncoming = 0
	MessageTypeOutgoing = 1
)

// Conversation is a helpdesk conversation as returned by the conversations
// endpoint. Every field may be absent; pointer fields are nil when the
// helpdesk omitted them or sent null, value fields default to their zero value.
type Conversation struct {
	ID                     int64             `json:"id"`
	UUID                   string            `json:"uuid"`
	AccountID              int64             `json:"account_id"`
	InboxID                int64             `json:"inbox_id"`
	Status                 string            `json:"status"`
	UnreadCount            int               `json:"unread_count"`
	LastActivityAt         int64             `json:"last_activity_at"`
	FirstReplyCreatedAt    *int64            `json:"first_reply_created_at"`
	Labels                 []string          `json:"labels"`
	CustomAttributes       map[string]any    `json:"custom_attributes"`
	Meta                   *ConversationMeta `json:"meta"`
	LastNonActivityMessage *Message          `json:"last_non_activity_message"`
	Messages               []Message         `json:"messages"`
}

// ConversationMeta holds the sender, team and assignee references.
type ConversationMeta struct {
	Sender   *Sender   `json:"sender"`
	Team     *TeamRef  `json:"team"`
	Assignee *Assignee `json:"assignee"`
}

// Sender is the contact who opened the conversation.
type Sender struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

// TeamRef is the team a conversation is routed to.
type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Assignee is the agent a conversation is assigned to.
type Assignee struct {
	ID            int64   `json:"id"`
	Name          *string `json:"name"`
	AvailableName *string `json:"available_name"`
	Email         *string `json:"email"`
}

// Message is a single message inside a conversation.
type Message struct {
	ID               int64                `json:"id"`
	ConversationID   int64                `json:"conversation_id"`
	MessageType      *int                 `json:"message_type"`
	SenderType       string               `json:"sender_type"`
	ContentType      string               `json:"content_type"`
	Content          *string              `json:"content"`
	ProcessedContent *string              `json:"processed_message_content"`
	CreatedAt        int64                `json:"created_at"`
	SourceID         *string              `json:"source_id"`
	Conversation     *MessageConversation `json:"conversation"`

	hasCreatedAt bool
}

// UnmarshalJSON records whether created_at was present so an explicit 0 can
// be told apart from a missing timestamp.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	aux := struct {
		*plain
		CreatedAt *int64 `json:"created_at"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.CreatedAt = 0
	m.hasCreatedAt = aux.CreatedAt != nil
	if aux.CreatedAt != nil {
		m.CreatedAt = *aux.CreatedAt
	}
	return nil
}

// CreatedAtPtr returns the timestamp, or nil when the helpdesk sent none.
func (m *Message) CreatedAtPtr() *int64 {
	if m == nil || (!m.hasCreatedAt && m.CreatedAt == 0) {
		return nil
	}
	ts := m.CreatedAt
	return &ts
}

// MessageConversation is the slim conversation reference embedded in
// last_non_activity_message.
type MessageConversation struct {
	ContactInbox *ContactInbox `json:"contact_inbox"`
}

// ContactInbox links a contact to an inbox; SourceID is usually the phone
// number for messaging channels.
type ContactInbox struct {
	SourceID *string `json:"source_id"`
}

// Text returns the processed content when present, otherwise the raw
// content, otherwise "". A present but empty processed content wins over raw.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	if m.ProcessedContent != nil {
		return *m.ProcessedContent
	}
	if m.Content != nil {
		return *m.Content
	}
	return ""
}

// TextPtr is like Text but returns nil when neither content field is set.
func (m *Message) TextPtr() *string {
	if m == nil {
		return nil
	}
	if m.ProcessedContent != nil {
		return m.ProcessedContent
	}
	return m.Content
}

// IsHuman reports whether the message was written by a contact or an agent.
// Without a sender role, the legacy message type decides.
func (m *Message) IsHuman() bool {
	if m == nil {
		return false
	}
	switch m.SenderType {
	case SenderContact, SenderAgent:
		return true
	case "":
		if m.MessageType == nil {
			return false
		}
		return *m.MessageType == MessageTypeIncoming || *m.MessageType == MessageTypeOutgoing
	default:
		return false
	}
}

// IsBot reports whether the automated bot authored the message.
func (m *Message) IsBot() bool {
	return m != nil && m.SenderType == SenderBot
}

// TeamID returns the team id from the conversation meta, or nil.
func (c *Conversation) TeamID() *int64 {
	if c.Meta == nil || c.Meta.Team == nil {
		return nil
	}
	id := c.Meta.Team.ID
	return &id
}
