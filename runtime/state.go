package runtime

import (
	"stroll-lab/domain"
)

// State is an immutable snapshot of everything the presentation shows.
// Slices are never mutated once published.
type State struct {
	Version uint64

	Users         []domain.User
	FilteredUsers []domain.User
	SearchText    string
	SelectedUser  *domain.User

	IsLoading    bool
	IsRefreshing bool
	ErrorMessage string

	ConnectionStatus domain.ConnectionStatus
	ConnectionError  string

	Messages        []domain.ChatMessage
	UnreadCount     int
	OnlineCount     int
	LastSentMessage *domain.ChatMessage
	Metrics         domain.SessionMetrics
}
