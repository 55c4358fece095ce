package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"stroll-lab/domain"
	"stroll-lab/domain/event"
	"stroll-lab/errors"
	"stroll-lab/mocks"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type harness struct {
	t            *testing.T
	c            *Controller
	source       *mocks.MockDataSource
	moderator    *mocks.MockTextModerator
	connection   *mocks.MockConnection
	clock        *clock.Mock
	interactions chan domain.Interaction
	telemetry    chan event.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		t:            t,
		source:       mocks.NewMockDataSource(ctrl),
		moderator:    mocks.NewMockTextModerator(ctrl),
		connection:   mocks.NewMockConnection(ctrl),
		clock:        clock.NewMock(),
		interactions: make(chan domain.Interaction, 16),
		telemetry:    make(chan event.Event, 16),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	h.c = NewController(log, h.clock, h.source, h.moderator, h.interactions,
		ControllerConfig{MaxInboundMessages: 3, Telemetry: h.telemetry})
	h.c.Attach(h.connection)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		h.c.Close()
		cancel()
		<-done
	})
	return h
}

// barrier returns once every closure queued before it ran.
func (h *harness) barrier() {
	h.t.Helper()
	done := make(chan struct{})
	require.NoError(h.t, h.c.submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(h.t, "controller loop is stuck")
	}
}

// flush runs queued intents, waits for their background operations and applies the results.
func (h *harness) flush() {
	h.barrier()
	h.c.pending.Wait()
	h.barrier()
}

func (h *harness) drainInteractions() []domain.Interaction {
	var out []domain.Interaction
	for {
		select {
		case i := <-h.interactions:
			out = append(out, i)
		default:
			return out
		}
	}
}

func (h *harness) loadRoster(users []domain.User) {
	h.source.EXPECT().FetchUsers(gomock.Any()).Return(users, nil).Times(1)
	h.c.LoadUsers()
	h.flush()
}

func roster(at time.Time) []domain.User {
	return []domain.User{
		{ID: uuid.New(), Name: "Amanda", Age: 22, Bio: "Love hiking and coffee", Online: true, LastSeen: at},
		{ID: uuid.New(), Name: "Malte", Age: 25, Bio: "Photographer", Online: false, LastSeen: at.Add(-time.Hour)},
		{ID: uuid.New(), Name: "Jessica", Age: 24, Bio: "Foodie", Online: true, LastSeen: at},
	}
}

func TestController_LoadUsers(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())

	// When users are loaded
	h.loadRoster(users)

	// Then the roster and derived values are published
	state := h.c.State()
	req.Equal(users, state.Users)
	req.Equal(users, state.FilteredUsers)
	req.False(state.IsLoading)
	req.Empty(state.ErrorMessage)
	req.Equal(2, state.OnlineCount)
}

func TestController_LoadUsers_LoadingFlag(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	gate := make(chan struct{})
	h.source.EXPECT().FetchUsers(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.User, error) {
			<-gate
			return nil, nil
		}).Times(1)

	// When a load is in flight
	h.c.LoadUsers()
	h.barrier()

	// Then loading is set until the result arrives
	req.True(h.c.State().IsLoading)
	close(gate)
	h.flush()
	req.False(h.c.State().IsLoading)
}

func TestController_LoadUsers_Failure(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Given the data source is unreachable
	h.source.EXPECT().FetchUsers(gomock.Any()).Return(nil, errors.Transport(fmt.Errorf("offline"))).Times(1)
	h.c.LoadUsers()
	h.flush()

	// Then the error surfaces and loading is cleared
	state := h.c.State()
	req.Equal("transport failure: offline", state.ErrorMessage)
	req.False(state.IsLoading)
	req.Equal(domain.Disconnected, state.ConnectionStatus)

	// When the user retries successfully
	h.loadRoster(roster(h.clock.Now()))

	// Then the error is cleared
	req.Empty(h.c.State().ErrorMessage)
	req.Len(h.c.State().Users, 3)
}

func TestController_LoadUsers_LastIssuedWins(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	rosterA := roster(h.clock.Now())[:1]
	rosterB := roster(h.clock.Now())[1:]
	gateA, gateB := make(chan struct{}), make(chan struct{})
	called := make(chan struct{}, 2)

	h.source.EXPECT().FetchUsers(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.User, error) {
			called <- struct{}{}
			<-gateA
			return rosterA, nil
		}).Times(1)
	h.c.LoadUsers()
	h.barrier()
	<-called

	h.source.EXPECT().FetchUsers(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.User, error) {
			called <- struct{}{}
			<-gateB
			return rosterB, nil
		}).Times(1)
	h.c.LoadUsers()
	h.barrier()
	<-called

	// When the second fetch resolves first
	close(gateB)
	req.Eventually(func() bool { return !h.c.State().IsLoading }, time.Second, 5*time.Millisecond)
	req.Equal(rosterB, h.c.State().Users)

	// Then the late first fetch is discarded
	close(gateA)
	h.flush()
	req.Equal(rosterB, h.c.State().Users)
	req.False(h.c.State().IsLoading)
}

func TestController_Refresh_SkippedWhileLoading(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	gate := make(chan struct{})
	users := roster(h.clock.Now())

	// Given a load in flight, only one fetch ever happens
	h.source.EXPECT().FetchUsers(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.User, error) {
			<-gate
			return users, nil
		}).Times(1)
	h.c.LoadUsers()

	// When a refresh fires
	h.c.RefreshInBackground()
	h.barrier()

	// Then it is a no-op
	req.False(h.c.State().IsRefreshing)
	close(gate)
	h.flush()
	req.Equal(users, h.c.State().Users)
}

func TestController_Refresh_FailureSwallowed(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// Given a failed load
	h.source.EXPECT().FetchUsers(gomock.Any()).Return(nil, fmt.Errorf("%w: offline", errors.ErrTransport)).Times(1)
	h.c.LoadUsers()
	h.flush()
	message := h.c.State().ErrorMessage
	req.NotEmpty(message)

	// When a background refresh fails too
	gate := make(chan struct{})
	h.source.EXPECT().FetchUsers(gomock.Any()).
		DoAndReturn(func(context.Context) ([]domain.User, error) {
			<-gate
			return nil, fmt.Errorf("%w: timeout", errors.ErrTransport)
		}).Times(1)
	h.c.RefreshInBackground()
	h.barrier()
	req.True(h.c.State().IsRefreshing)
	req.False(h.c.State().IsLoading)
	close(gate)
	h.flush()

	// Then the refreshing flag is cleared and the primary error kept
	req.False(h.c.State().IsRefreshing)
	req.Equal(message, h.c.State().ErrorMessage)
}

func TestController_Refresh_ReplacesRoster(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users[:1])

	h.source.EXPECT().FetchUsers(gomock.Any()).Return(users, nil).Times(1)
	h.c.RefreshInBackground()
	h.flush()

	req.Equal(users, h.c.State().Users)
	req.False(h.c.State().IsRefreshing)
}

func TestController_SelectUser(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)

	// When a user is selected
	h.c.SelectUser(users[1])
	h.flush()

	// Then one profile view is recorded for that user
	state := h.c.State()
	req.NotNil(state.SelectedUser)
	req.Equal(users[1].ID, state.SelectedUser.ID)
	req.Equal(1, state.Metrics.ProfileViews)
	interactions := h.drainInteractions()
	req.Len(interactions, 1)
	req.Equal(domain.ProfileView, interactions[0].Type)
	req.Equal(users[1].ID, *interactions[0].UserID)
}

func TestController_SendMessage(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	sent := domain.NewOutgoingMessage("you *****", h.clock.Now())

	// Given the text goes through moderation first
	h.moderator.EXPECT().Censor("you idiot").Return("you *****", []string{"idiot"}).Times(1)
	h.source.EXPECT().SendMessage(gomock.Any(), "you *****", users[0].ID).Return(sent, nil).Times(1)

	// When the message is sent
	h.c.SendMessage("you idiot", users[0])
	h.flush()

	// Then the sent message is recorded with one analytics event
	state := h.c.State()
	req.NotNil(state.LastSentMessage)
	req.Equal(sent, *state.LastSentMessage)
	req.Equal(1, state.Metrics.MessagesSent)
	interactions := h.drainInteractions()
	req.Len(interactions, 1)
	req.Equal(domain.MessagesSent, interactions[0].Type)

	// And the masked word is reported
	req.Len(h.telemetry, 1)
	censored, ok := (<-h.telemetry).Payload.(event.Censored)
	req.True(ok)
	req.Equal("idiot", censored.Word)
}

func TestController_SendMessage_Failure(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)

	h.moderator.EXPECT().Censor("   ").Return("   ", nil).Times(1)
	h.source.EXPECT().SendMessage(gomock.Any(), "   ", users[0].ID).
		Return(domain.ChatMessage{}, fmt.Errorf("%w: blank", errors.ErrInvalidInput)).Times(1)

	h.c.SendMessage("   ", users[0])
	h.flush()

	state := h.c.State()
	req.Equal("invalid input: blank", state.ErrorMessage)
	req.Nil(state.LastSentMessage)
	req.Empty(h.drainInteractions())
}

func TestController_ToggleOnlineStatus(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	malte := users[1]
	h.clock.Add(time.Minute)
	toggledAt := h.clock.Now()
	updated := malte
	updated.Online, updated.LastSeen = true, toggledAt

	// Given the negated current flag is requested
	h.source.EXPECT().UpdateUserStatus(gomock.Any(), malte.ID, true).Return(updated, nil).Times(1)

	// When the status is toggled
	h.c.ToggleOnlineStatus(malte)
	h.flush()

	// Then exactly that entry changed, in place
	state := h.c.State()
	req.Len(state.Users, 3)
	req.Equal(users[0], state.Users[0])
	req.Equal(users[2], state.Users[2])
	req.Equal(updated, state.Users[1])
	req.Equal(3, state.OnlineCount)
}

func TestController_ToggleOnlineStatus_StampsLocalTimeWhenBackendDrifted(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	start := h.clock.Now()
	users := roster(start)
	h.loadRoster(users)
	jessica := users[2]

	// Given a realtime update took Jessica offline locally only
	req.NoError(h.c.Consume(context.Background(), event.NewStatusUpdated(jessica.ID, false, start.Add(time.Hour))))
	h.flush()
	h.clock.Add(2 * time.Hour)

	// And the backend still has her online with her original last-seen
	stale := jessica
	h.source.EXPECT().UpdateUserStatus(gomock.Any(), jessica.ID, true).Return(stale, nil).Times(1)

	// When she is toggled back online
	h.c.ToggleOnlineStatus(h.c.State().Users[2])
	h.flush()

	// Then last-seen is the moment she went online here
	updated := h.c.State().Users[2]
	req.True(updated.Online)
	req.Equal(start.Add(2*time.Hour), updated.LastSeen)
}

func TestController_ToggleOnlineStatus_Failure(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	stranger := domain.User{ID: uuid.New(), Name: "Ghost", Online: true}

	h.source.EXPECT().UpdateUserStatus(gomock.Any(), stranger.ID, false).
		Return(domain.User{}, fmt.Errorf("%w: %s", errors.ErrNotFound, stranger.ID)).Times(1)

	h.c.ToggleOnlineStatus(stranger)
	h.flush()

	req.Contains(h.c.State().ErrorMessage, "user not found")
	req.Equal(users, h.c.State().Users)
}

func TestController_Swipe(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	h.c.SelectUser(users[0])
	h.flush()
	h.drainInteractions()

	// When the selected user is swiped left
	h.c.Swipe(users[0], domain.SwipeDirectionLeft)
	h.flush()

	// Then the user leaves the roster and the selection
	state := h.c.State()
	req.Equal(users[1:], state.Users)
	req.Equal(users[1:], state.FilteredUsers)
	req.Nil(state.SelectedUser)
	interactions := h.drainInteractions()
	req.Len(interactions, 1)
	req.Equal(domain.SwipeLeft, interactions[0].Type)
	req.Equal(users[0].ID, *interactions[0].UserID)
}

func TestController_Search_Debounced(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	before := h.c.State().Version

	// When five edits happen within the debounce window
	for _, q := range []string{"m", "ma", "mal", "malt", "MALTE"} {
		h.c.SetSearchText(q)
		h.clock.Add(50 * time.Millisecond)
	}
	h.flush()
	req.Equal(before, h.c.State().Version)
	h.clock.Add(300 * time.Millisecond)

	// Then a single query is applied and recorded
	req.Eventually(func() bool { return h.c.State().SearchText == "MALTE" }, time.Second, 5*time.Millisecond)
	h.flush()
	state := h.c.State()
	req.Equal(before+1, state.Version)
	req.Equal([]domain.User{users[1]}, state.FilteredUsers)
	req.Equal(users, state.Users)
	req.Equal(1, state.Metrics.SearchQueries)
	interactions := h.drainInteractions()
	req.Len(interactions, 1)
	req.Equal(domain.Search, interactions[0].Type)
	req.Nil(interactions[0].UserID)

	// When the query is cleared
	h.c.SetSearchText("")
	h.clock.Add(300 * time.Millisecond)

	// Then the full roster is back without a search event
	req.Eventually(func() bool { return h.c.State().SearchText == "" }, time.Second, 5*time.Millisecond)
	h.flush()
	req.Equal(users, h.c.State().FilteredUsers)
	req.Empty(h.drainInteractions())
}

func TestController_RosterChangeKeepsQuery(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	h.c.SetSearchText("foodie")
	h.clock.Add(300 * time.Millisecond)
	req.Eventually(func() bool { return h.c.State().SearchText == "foodie" }, time.Second, 5*time.Millisecond)

	// When Jessica goes offline
	req.NoError(h.c.Consume(context.Background(), event.NewStatusUpdated(users[2].ID, false, h.clock.Now())))
	h.flush()

	// Then the filtered view follows the roster
	state := h.c.State()
	req.Len(state.FilteredUsers, 1)
	req.False(state.FilteredUsers[0].Online)
}

func TestController_InboundMessages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	// When four messages arrive with a buffer of three
	for i := 1; i <= 4; i++ {
		msg := domain.NewIncomingMessage(fmt.Sprintf("msg %d", i), "Amanda", h.clock.Now())
		req.NoError(h.c.Consume(context.Background(), event.NewMessageReceived(msg, h.clock.Now())))
	}
	h.flush()

	// Then the oldest is dropped and every message counts as unread
	state := h.c.State()
	req.Len(state.Messages, 3)
	req.Equal("msg 2", state.Messages[0].Text)
	req.Equal(4, state.UnreadCount)

	// When unread is cleared
	h.c.ClearUnread()
	h.flush()

	// Then messages are kept
	req.Equal(0, h.c.State().UnreadCount)
	req.Len(h.c.State().Messages, 3)
}

func TestController_StatusUpdate(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	users := roster(h.clock.Now())
	h.loadRoster(users)
	before := h.c.State()

	// When an update targets an unknown user
	req.NoError(h.c.Consume(context.Background(), event.NewStatusUpdated(uuid.New(), true, h.clock.Now())))
	h.flush()

	// Then nothing changes
	req.Equal(before, h.c.State())

	// When Malte comes online
	at := h.clock.Now().Add(time.Second)
	req.NoError(h.c.Consume(context.Background(), event.NewStatusUpdated(users[1].ID, true, at)))
	h.flush()

	// Then his last seen moves to the event time
	malte := h.c.State().Users[1]
	req.True(malte.Online)
	req.Equal(at, malte.LastSeen)
	req.Equal(3, h.c.State().OnlineCount)
}

func TestController_ConnectionChanged(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	req.NoError(h.c.Consume(context.Background(), event.NewConnectionChanged(domain.Connected, nil, h.clock.Now())))
	h.flush()
	req.Equal(domain.Connected, h.c.State().ConnectionStatus)

	// When the connection fails
	err := fmt.Errorf("socket closed")
	req.NoError(h.c.Consume(context.Background(), event.NewConnectionChanged(domain.ConnectionError, err, h.clock.Now())))
	h.flush()

	// Then the failure is a status, not the generic error message
	state := h.c.State()
	req.Equal(domain.ConnectionError, state.ConnectionStatus)
	req.Equal("socket closed", state.ConnectionError)
	req.Empty(state.ErrorMessage)
}

func TestController_Reconnect(t *testing.T) {
	h := newHarness(t)
	h.connection.EXPECT().Reconnect().Times(1)

	h.c.Reconnect()
}

func TestController_Tick(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	h.clock.Add(5 * time.Second)
	h.c.Tick()
	h.flush()

	req.Equal(5*time.Second, h.c.State().Metrics.TimeSpent)
}

func TestController_Subscribe(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	sub := h.c.Subscribe()
	first := <-sub.Updates()
	req.Equal(domain.Disconnected, first.ConnectionStatus)

	// When the state changes
	h.c.ClearUnread()
	h.flush()

	// Then the subscriber gets the new snapshot
	req.Equal(first.Version+1, (<-sub.Updates()).Version)

	// When the controller closes
	h.c.Close()

	// Then the subscription ends and events are refused
	_, open := <-sub.Updates()
	req.False(open)
	req.ErrorIs(h.c.Consume(context.Background(), event.NewConnectionChanged(domain.Connected, nil, h.clock.Now())), errors.ErrControllerClosed)
}
