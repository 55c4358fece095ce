package domain

import "time"

// SessionMetrics aggregates what happened during the current session.
// Counters never decrease. TimeSpent is recomputed on each tick and never decreases either.
type SessionMetrics struct {
	SessionStart  time.Time
	ProfileViews  int
	MessagesSent  int
	SearchQueries int
	TimeSpent     time.Duration
}

func NewSessionMetrics(start time.Time) SessionMetrics {
	return SessionMetrics{SessionStart: start}
}

// Record increments the counter matching the interaction type.
// Swipes are tracked by analytics but have no session counter.
func (m *SessionMetrics) Record(kind InteractionType) {
	switch kind {
	case ProfileView:
		m.ProfileViews++
	case MessagesSent:
		m.MessagesSent++
	case Search:
		m.SearchQueries++
	}
}

func (m *SessionMetrics) Tick(now time.Time) {
	if spent := now.Sub(m.SessionStart); spent > m.TimeSpent {
		m.TimeSpent = spent
	}
}
