package models

import (
	"strconv"
	"time"
)

// Message is a direct message between two accounts
type Message struct {
	ID         int64     `db:"id" json:"id"`
	SenderID   int64     `db:"sender_id" json:"sender_id"`
	ReceiverID int64     `db:"receiver_id" json:"receiver_id"`
	Body       string    `db:"body" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageGroup is the broadcast group a receiver listens on
func MessageGroup(receiverID int64) string {
	return "messages_" + strconv.FormatInt(receiverID, 10)
}
