package notify

import (
	"encoding/json"
	"time"

	"famledger/internal/models"
)

// Message is the wire form of a persisted notification handed to the
// delivery side.
type Message struct {
	NotificationID string    `json:"notification_id"`
	FamilyID       *string   `json:"family_id,omitempty"`
	UserID         *string   `json:"user_id,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Type           string    `json:"type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromNotification builds the message for a stored notification.
func FromNotification(n *models.Notification) *Message {
	return &Message{
		NotificationID: n.ID,
		FamilyID:       n.FamilyID,
		UserID:         n.UserID,
		Title:          n.Title,
		Body:           n.Message,
		Type:           n.Type,
		CreatedAt:      n.CreatedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes a message published by ToJSON.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
