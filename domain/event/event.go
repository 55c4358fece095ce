package event

import (
	"stroll-lab/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ConnectionChangedType Type = "CONNECTION_CHANGED"
	MessageReceivedType   Type = "MESSAGE_RECEIVED"
	StatusUpdatedType     Type = "STATUS_UPDATED"
)

// Event is the envelope flowing through one-way channels into the controller.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type ConnectionChanged struct {
	Status domain.ConnectionStatus
	// Err is only set when Status is domain.ConnectionError.
	Err error
}

type MessageReceived struct {
	Message domain.ChatMessage
}

type StatusUpdated struct {
	UserID uuid.UUID
	Online bool
}

func NewConnectionChanged(status domain.ConnectionStatus, err error, at time.Time) Event {
	return Event{Type: ConnectionChangedType, CreatedAt: at, Payload: ConnectionChanged{Status: status, Err: err}}
}

func NewMessageReceived(message domain.ChatMessage, at time.Time) Event {
	return Event{Type: MessageReceivedType, CreatedAt: at, Payload: MessageReceived{Message: message}}
}

func NewStatusUpdated(userID uuid.UUID, online bool, at time.Time) Event {
	return Event{Type: StatusUpdatedType, CreatedAt: at, Payload: StatusUpdated{UserID: userID, Online: online}}
}
