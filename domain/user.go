// Package domain contains core concepts of the roster and chat state.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a roster member.
// ID never changes after creation. Online and LastSeen are the only fields
// that mutate, and LastSeen is the moment Online last became true.
type User struct {
	ID           uuid.UUID
	Name         string
	Age          int
	ProfileImage string
	Bio          string
	Online       bool
	LastSeen     time.Time
}

// WithStatus returns a copy of u carrying the new online flag.
// LastSeen moves to at only on an offline to online transition.
func (u User) WithStatus(online bool, at time.Time) User {
	if online && !u.Online {
		u.LastSeen = at
	}
	u.Online = online
	return u
}
