package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type InteractionType string

const (
	ProfileView  InteractionType = "profile_view"
	MessagesSent InteractionType = "messages_sent"
	SwipeLeft    InteractionType = "swipe_left"
	SwipeRight   InteractionType = "swipe_right"
	Search       InteractionType = "search"
)

// Interaction is one analytics event. UserID is nil for interactions
// that are not about a specific user (search).
type Interaction struct {
	ID     uuid.UUID
	Type   InteractionType
	UserID *uuid.UUID
	At     time.Time
}

func NewInteraction(kind InteractionType, at time.Time) Interaction {
	return Interaction{ID: uuid.New(), Type: kind, At: at}
}

func NewUserInteraction(kind InteractionType, userID uuid.UUID, at time.Time) Interaction {
	return Interaction{ID: uuid.New(), Type: kind, UserID: lo.ToPtr(userID), At: at}
}

type SwipeDirection string

const (
	SwipeDirectionLeft  SwipeDirection = "left"
	SwipeDirectionRight SwipeDirection = "right"
)

func (d SwipeDirection) Interaction() InteractionType {
	if d == SwipeDirectionLeft {
		return SwipeLeft
	}
	return SwipeRight
}
