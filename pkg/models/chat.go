package models

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// RoleAssistant is the message role produced by a model.
const RoleAssistant = "assistant"

// ChatRow is a chat record as stored by the upstream chat application.
// Payload holds the raw JSON document of the chat column.
type ChatRow struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Payload   string    `json:"-" db:"chat"`
	CreatedAt Timestamp `json:"created_at" db:"created_at"`
	UpdatedAt Timestamp `json:"updated_at" db:"updated_at"`
}

// Message is one entry of a chat's message list.
type Message struct {
	Role       string
	Content    string
	HasContent bool
}

// ChatPayload is the decoded form of the chat JSON column.
// Anything that is not a JSON array where an array is expected decodes as empty.
type ChatPayload struct {
	Models   []string
	Messages []Message
}

// DecodeChatPayload decodes a raw chat document. It never fails: malformed
// documents yield an empty payload so that aggregates count them as zero.
func DecodeChatPayload(raw []byte) ChatPayload {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ChatPayload{}
	}

	var p ChatPayload
	for _, elem := range jsonArray(doc["models"]) {
		if id, ok := JSONText(elem); ok {
			p.Models = append(p.Models, id)
		}
	}
	for _, elem := range jsonArray(doc["messages"]) {
		p.Messages = append(p.Messages, decodeMessage(elem))
	}
	return p
}

func decodeMessage(raw json.RawMessage) Message {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Message{}
	}
	var m Message
	m.Role, _ = JSONText(obj["role"])
	m.Content, m.HasContent = JSONText(obj["content"])
	return m
}

// MessageCount is the length of the message array.
func (p ChatPayload) MessageCount() int64 {
	return int64(len(p.Messages))
}

// AssistantContentLengths returns the character length of every
// assistant-authored message that carries content.
func (p ChatPayload) AssistantContentLengths() []int64 {
	var lengths []int64
	for _, m := range p.Messages {
		if m.Role != RoleAssistant || !m.HasContent {
			continue
		}
		lengths = append(lengths, int64(utf8.RuneCountInString(m.Content)))
	}
	return lengths
}

// RecentChat is a row of the recent-chats listing.
type RecentChat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Models       []string  `json:"models"`
	MessageCount int64     `json:"message_count"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// NewRecentChat shapes a stored chat row for the recent-chats listing.
func NewRecentChat(row ChatRow) RecentChat {
	p := DecodeChatPayload([]byte(row.Payload))
	models := p.Models
	if models == nil {
		models = []string{}
	}
	return RecentChat{
		ID:           row.ID,
		Title:        row.Title,
		Models:       models,
		MessageCount: p.MessageCount(),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// JSONText extracts a JSON value as text the way Postgres' ->> operator does:
// strings are unquoted, null or missing values report false, and any other
// value is returned as its compact JSON text.
func JSONText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

func jsonArray(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	return elems
}

// ChatRecord is the snapshot form of a chat row, carrying the chat
// document as embedded JSON instead of text.
type ChatRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Chat      json.RawMessage `json:"chat"`
	CreatedAt Timestamp       `json:"created_at"`
	UpdatedAt Timestamp       `json:"updated_at"`
}

// Row converts the record to its stored representation.
func (c ChatRecord) Row() ChatRow {
	return ChatRow{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Payload:   string(c.Chat),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
