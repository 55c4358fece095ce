// Package domain contains core concepts of the roster and chat state.
// This file defines chat messages.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// CurrentUserName is the sender name carried by messages sent from this client.
const CurrentUserName = "You"

// ChatMessage represents an immutable chat message.
type ChatMessage struct {
	ID              uuid.UUID // unique identifier
	Text            string
	Timestamp       time.Time
	FromCurrentUser bool
	SenderName      string
}

func NewOutgoingMessage(text string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:              uuid.New(),
		Text:            text,
		Timestamp:       at,
		FromCurrentUser: true,
		SenderName:      CurrentUserName,
	}
}

func NewIncomingMessage(text, senderName string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         uuid.New(),
		Text:       text,
		Timestamp:  at,
		SenderName: senderName,
	}
}
