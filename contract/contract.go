//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"stroll-lab/domain"
	"stroll-lab/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events from one-way producers (the connection state machine).
// Implementations must not call back into the producer synchronously.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// AnalyticsSink is an append-only destination for interactions.
type AnalyticsSink interface {
	Consume(ctx context.Context, interaction domain.Interaction) error
}

// DataSource is the backend of the roster.
// Every call may take time; a result arriving late can be discarded by the caller.
type DataSource interface {
	FetchUsers(ctx context.Context) ([]domain.User, error)
	UpdateUserStatus(ctx context.Context, userID uuid.UUID, online bool) (domain.User, error)
	SendMessage(ctx context.Context, text string, userID uuid.UUID) (domain.ChatMessage, error)
}

// Connection is the live link mirrored by the controller.
type Connection interface {
	Start()
	Disconnect() bool
	Reconnect()
}

// TextModerator rewrites outgoing text and reports the words it hid.
type TextModerator interface {
	Censor(text string) (string, []string)
}
