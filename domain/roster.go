package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Roster holds the known users in display order.
// It is not synchronized: a single owner (the controller loop) mutates it.
type Roster struct {
	users []User
	index map[uuid.UUID]int
}

func NewRoster(users []User) *Roster {
	r := &Roster{}
	r.Replace(users)
	return r
}

// Replace swaps the whole collection, keeping the order of users.
// When the same ID appears twice only the first occurrence is kept.
func (r *Roster) Replace(users []User) {
	r.users = lo.UniqBy(users, func(u User) uuid.UUID { return u.ID })
	r.reindex()
}

// ApplyStatusUpdate sets the online flag of a user in place.
// LastSeen moves to at only when the user goes from offline to online.
// An unknown id is a deliberate no-op: the roster is left untouched and false is returned.
func (r *Roster) ApplyStatusUpdate(id uuid.UUID, online bool, at time.Time) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.users[i] = r.users[i].WithStatus(online, at)
	return true
}

// Remove drops a user and keeps the relative order of the others.
func (r *Roster) Remove(id uuid.UUID) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.users = append(r.users[:i:i], r.users[i+1:]...)
	r.reindex()
	return true
}

func (r *Roster) Get(id uuid.UUID) (User, bool) {
	i, ok := r.index[id]
	if !ok {
		return User{}, false
	}
	return r.users[i], true
}

// Snapshot returns a copy safe to hand over to other goroutines.
func (r *Roster) Snapshot() []User {
	out := make([]User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *Roster) Len() int { return len(r.users) }

func (r *Roster) OnlineCount() int {
	return lo.CountBy(r.users, func(u User) bool { return u.Online })
}

func (r *Roster) reindex() {
	r.index = make(map[uuid.UUID]int, len(r.users))
	for i, u := range r.users {
		r.index[u.ID] = i
	}
}
