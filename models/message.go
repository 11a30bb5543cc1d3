package models

import "time"

type Message struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	ReceiverID string    `json:"receiverId" bson:"receiverId"`
	Text       string    `json:"text" bson:"text"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Between reports whether m belongs to the conversation of a and b, in
// either direction.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// ConversationKey identifies the unordered pair (a, b).
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
