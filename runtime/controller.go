package runtime

import (
	"context"
	"log/slog"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"stroll-lab/domain/event"
	"stroll-lab/domain/search"
	"stroll-lab/errors"
	"stroll-lab/moderation"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultBufferSize         = 64
	DefaultMaxInboundMessages = 100
)

type ControllerConfig struct {
	BufferSize         int
	MaxInboundMessages int
	SearchDebounce     time.Duration

	// Telemetry receives censorship hits when set.
	Telemetry chan<- event.Event
}

// Controller is the single owner of the application state.
// Every mutation is a closure executed by Run, one at a time. Intents, realtime
// events and background results only enqueue closures into the mailbox.
type Controller struct {
	log          *slog.Logger
	clock        clock.Clock
	source       contract.DataSource
	moderator    contract.TextModerator
	connection   contract.Connection
	interactions chan<- domain.Interaction
	telemetry    chan<- event.Event
	maxInbound   int

	mailbox   chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	pending   sync.WaitGroup
	search    *search.Engine
	registry  *Registry

	// Owned by the loop.
	roster     *domain.Roster
	filtered   []domain.User
	query      string
	selected   *uuid.UUID
	loading    bool
	refreshing bool
	fetchSeq   uint64
	errMessage string
	status     domain.ConnectionStatus
	connErr    string
	inbound    []domain.ChatMessage
	unread     int
	lastSent   *domain.ChatMessage
	metrics    domain.SessionMetrics
	version    uint64
}

var _ contract.EventSink = (*Controller)(nil)

// NewController builds a controller. moderator may be nil.
func NewController(log *slog.Logger, clk clock.Clock, source contract.DataSource,
	moderator contract.TextModerator, interactions chan<- domain.Interaction, cfg ControllerConfig) *Controller {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.MaxInboundMessages <= 0 {
		cfg.MaxInboundMessages = DefaultMaxInboundMessages
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = search.DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		log:          log,
		clock:        clk,
		source:       source,
		moderator:    moderator,
		interactions: interactions,
		telemetry:    cfg.Telemetry,
		maxInbound:   cfg.MaxInboundMessages,
		mailbox:      make(chan func(), cfg.BufferSize),
		ctx:          ctx,
		cancel:       cancel,
		roster:       domain.NewRoster(nil),
		status:       domain.Disconnected,
		metrics:      domain.NewSessionMetrics(clk.Now()),
	}
	c.search = search.NewEngine(clk, cfg.SearchDebounce, func(query string) {
		c.enqueue("apply search", func() { c.applyQuery(query) })
	})
	c.registry = NewRegistry(c.snapshot())
	return c
}

// Attach sets the connection forwarded to by Reconnect. It must be called before Run.
func (c *Controller) Attach(connection contract.Connection) {
	c.connection = connection
}

func (c *Controller) Name() string { return "controller" }

// Run executes mailbox closures until ctx is done or the controller is closed.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.ctx.Done():
			return nil
		case fn := <-c.mailbox:
			fn()
		}
	}
}

// Close stops the search engine, cancels background operations and ends subscriptions.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.search.Stop()
		c.cancel()
		c.pending.Wait()
		c.registry.Close()
	})
}

func (c *Controller) Subscribe() *Subscription { return c.registry.Subscribe() }

// State returns the latest published snapshot.
func (c *Controller) State() State { return c.registry.Latest() }

// Users is what the realtime generators pick from.
func (c *Controller) Users() []domain.User { return c.registry.Latest().Users }

// Consume receives realtime events.
func (c *Controller) Consume(_ context.Context, e event.Event) error {
	return c.submit(func() { c.handle(e) })
}

func (c *Controller) LoadUsers() { c.enqueue("load users", c.loadUsers) }

func (c *Controller) RefreshInBackground() { c.enqueue("refresh", c.refresh) }

func (c *Controller) SelectUser(user domain.User) {
	c.enqueue("select user", func() { c.selectUser(user) })
}

func (c *Controller) SendMessage(text string, user domain.User) {
	c.enqueue("send message", func() { c.sendMessage(text, user) })
}

func (c *Controller) ToggleOnlineStatus(user domain.User) {
	c.enqueue("toggle status", func() { c.toggleOnlineStatus(user) })
}

func (c *Controller) Swipe(user domain.User, direction domain.SwipeDirection) {
	c.enqueue("swipe", func() { c.swipe(user, direction) })
}

// SetSearchText restarts the debounce window; the query applies once settled.
func (c *Controller) SetSearchText(text string) { c.search.Edit(text) }

func (c *Controller) ClearUnread() {
	c.enqueue("clear unread", func() {
		c.unread = 0
		c.publish()
	})
}

// Tick refreshes the time spent in session.
func (c *Controller) Tick() {
	c.enqueue("session tick", func() {
		c.metrics.Tick(c.clock.Now())
		c.publish()
	})
}

// Reconnect is called outside the loop: the connection publishes back into it.
func (c *Controller) Reconnect() {
	if c.connection == nil {
		c.log.Warn("No connection attached")
		return
	}
	c.connection.Reconnect()
}

func (c *Controller) submit(fn func()) error {
	select {
	case <-c.ctx.Done():
		return errors.ErrControllerClosed
	default:
	}
	select {
	case <-c.ctx.Done():
		return errors.ErrControllerClosed
	case c.mailbox <- fn:
		return nil
	}
}

func (c *Controller) enqueue(what string, fn func()) {
	if err := c.submit(fn); err != nil {
		c.log.Debug("Intent dropped", "intent", what, "error", err)
	}
}

// background runs op outside the loop. op must hand its result back with enqueue.
func (c *Controller) background(op func(ctx context.Context)) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		op(c.ctx)
	}()
}

func (c *Controller) loadUsers() {
	c.fetchSeq++
	seq := c.fetchSeq
	c.loading = true
	c.errMessage = ""
	c.publish()

	c.background(func(ctx context.Context) {
		users, err := c.source.FetchUsers(ctx)
		c.enqueue("users loaded", func() { c.onLoaded(seq, users, err) })
	})
}

func (c *Controller) onLoaded(seq uint64, users []domain.User, err error) {
	if seq != c.fetchSeq {
		c.log.Debug("Discarding stale fetch result", "seq", seq, "latest", c.fetchSeq)
		return
	}
	c.loading = false
	if err != nil {
		c.errMessage = err.Error()
		c.log.Warn("Loading users failed", "error", err)
		c.publish()
		return
	}
	c.replaceRoster(users)
	c.publish()
}

func (c *Controller) refresh() {
	if c.loading || c.refreshing {
		c.log.Debug("Refresh skipped, a fetch is in flight")
		return
	}
	c.fetchSeq++
	seq := c.fetchSeq
	c.refreshing = true
	c.publish()

	c.background(func(ctx context.Context) {
		users, err := c.source.FetchUsers(ctx)
		c.enqueue("users refreshed", func() { c.onRefreshed(seq, users, err) })
	})
}

func (c *Controller) onRefreshed(seq uint64, users []domain.User, err error) {
	c.refreshing = false
	switch {
	case seq != c.fetchSeq:
		c.log.Debug("Discarding stale refresh result", "seq", seq, "latest", c.fetchSeq)
	case err != nil:
		c.log.Debug("Background refresh failed", "error", err)
	default:
		c.replaceRoster(users)
	}
	c.publish()
}

func (c *Controller) replaceRoster(users []domain.User) {
	c.roster.Replace(users)
	c.errMessage = ""
	c.refilter()
}

func (c *Controller) selectUser(user domain.User) {
	c.selected = lo.ToPtr(user.ID)
	c.record(domain.NewUserInteraction(domain.ProfileView, user.ID, c.clock.Now()))
	c.publish()
}

func (c *Controller) sendMessage(text string, user domain.User) {
	if c.moderator != nil {
		censored, words := c.moderator.Censor(text)
		if len(words) > 0 {
			c.log.Debug("Outgoing message censored", "words", len(words))
		}
		if len(words) > 0 {
			language := moderation.DetectLanguage(text)
			for _, word := range words {
				c.report(event.NewCensored(word, language, c.clock.Now()))
			}
		}
		text = censored
	}
	c.background(func(ctx context.Context) {
		msg, err := c.source.SendMessage(ctx, text, user.ID)
		c.enqueue("message sent", func() { c.onSent(user.ID, msg, err) })
	})
}

func (c *Controller) report(e event.Event) {
	if c.telemetry == nil {
		return
	}
	select {
	case c.telemetry <- e:
	default:
		c.log.Debug("Telemetry channel full, event dropped", "type", e.Type)
	}
}

func (c *Controller) onSent(userID uuid.UUID, msg domain.ChatMessage, err error) {
	if err != nil {
		c.errMessage = err.Error()
		c.publish()
		return
	}
	c.lastSent = &msg
	c.record(domain.NewUserInteraction(domain.MessagesSent, userID, c.clock.Now()))
	c.publish()
}

func (c *Controller) toggleOnlineStatus(user domain.User) {
	online := user.Online
	if current, ok := c.roster.Get(user.ID); ok {
		online = current.Online
	}
	c.background(func(ctx context.Context) {
		updated, err := c.source.UpdateUserStatus(ctx, user.ID, !online)
		c.enqueue("status toggled", func() { c.onToggled(updated, err) })
	})
}

func (c *Controller) onToggled(updated domain.User, err error) {
	if err != nil {
		c.errMessage = err.Error()
		c.publish()
		return
	}
	// The backend copy drifts from the roster under realtime updates: going
	// online is stamped with the local time, never with the backend's last-seen.
	if c.roster.ApplyStatusUpdate(updated.ID, updated.Online, c.clock.Now()) {
		c.refilter()
	}
	c.publish()
}

func (c *Controller) swipe(user domain.User, direction domain.SwipeDirection) {
	c.record(domain.NewUserInteraction(direction.Interaction(), user.ID, c.clock.Now()))
	if c.roster.Remove(user.ID) {
		c.refilter()
	}
	if c.selected != nil && *c.selected == user.ID {
		c.selected = nil
	}
	c.publish()
}

func (c *Controller) applyQuery(query string) {
	c.query = query
	c.refilter()
	if query != "" {
		c.record(domain.NewInteraction(domain.Search, c.clock.Now()))
	}
	c.publish()
}

func (c *Controller) handle(e event.Event) {
	switch payload := e.Payload.(type) {
	case event.ConnectionChanged:
		c.status = payload.Status
		c.connErr = ""
		if payload.Err != nil {
			c.connErr = payload.Err.Error()
		}
	case event.MessageReceived:
		c.inbound = append(c.inbound, payload.Message)
		if overflow := len(c.inbound) - c.maxInbound; overflow > 0 {
			c.inbound = append([]domain.ChatMessage(nil), c.inbound[overflow:]...)
		}
		c.unread++
	case event.StatusUpdated:
		if !c.roster.ApplyStatusUpdate(payload.UserID, payload.Online, e.CreatedAt) {
			c.log.Debug("Status update for unknown user", "user", payload.UserID)
			return
		}
		c.refilter()
	default:
		c.log.Error(errors.ErrInvalidPayload.Error(), "type", e.Type)
		return
	}
	c.publish()
}

func (c *Controller) refilter() {
	c.filtered = search.Filter(c.roster.Snapshot(), c.query)
}

// record counts the interaction and hands it to analytics without blocking.
func (c *Controller) record(interaction domain.Interaction) {
	c.metrics.Record(interaction.Type)
	select {
	case c.interactions <- interaction:
	default:
		c.log.Debug("Analytics interaction lost", "type", interaction.Type)
	}
}

func (c *Controller) publish() {
	c.registry.Publish(c.snapshot())
}

func (c *Controller) snapshot() State {
	c.version++
	users := c.roster.Snapshot()
	state := State{
		Version:          c.version,
		Users:            users,
		FilteredUsers:    c.filtered,
		SearchText:       c.query,
		IsLoading:        c.loading,
		IsRefreshing:     c.refreshing,
		ErrorMessage:     c.errMessage,
		ConnectionStatus: c.status,
		ConnectionError:  c.connErr,
		Messages:         append([]domain.ChatMessage(nil), c.inbound...),
		UnreadCount:      c.unread,
		OnlineCount:      c.roster.OnlineCount(),
		Metrics:          c.metrics,
	}
	if state.FilteredUsers == nil {
		state.FilteredUsers = []domain.User{}
	}
	if c.selected != nil {
		if user, ok := c.roster.Get(*c.selected); ok {
			state.SelectedUser = &user
		}
	}
	if c.lastSent != nil {
		msg := *c.lastSent
		state.LastSentMessage = &msg
	}
	return state
}
