// Package presentation drives the controller from a terminal.
package presentation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"stroll-lab/domain"
	"stroll-lab/errors"
	"stroll-lab/runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Intents is what the console can ask the controller to do.
type Intents interface {
	StateSource
	State() runtime.State
	LoadUsers()
	SetSearchText(text string)
	SelectUser(user domain.User)
	SendMessage(text string, user domain.User)
	ToggleOnlineStatus(user domain.User)
	Swipe(user domain.User, direction domain.SwipeDirection)
	ClearUnread()
	Reconnect()
}

const help = `commands:
  search [text]              filter by name or bio (empty clears)
  select <#|name>            open a profile
  send <#|name> <text>       send a message
  toggle <#|name>            flip the online flag
  swipe <left|right> <#|name>
  retry                      reload the roster
  reconnect                  restart the connection
  clear                      mark messages as read
  state                      print the roster
  quit`

// Console reads one command per line and prints what changed.
type Console struct {
	log     *slog.Logger
	clock   clock.Clock
	intents Intents
	in      io.Reader
	out     io.Writer
	colours bool
}

func NewConsole(log *slog.Logger, clk clock.Clock, intents Intents, in io.Reader, out io.Writer, colours bool) *Console {
	return &Console{log: log, clock: clk, intents: intents, in: in, out: out, colours: colours}
}

func (c *Console) Name() string { return "console" }

// Run returns nil on quit, on end of input, or when ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub := c.intents.Subscribe()
	defer sub.Cancel()

	// The reader exits on the next line or at EOF once ctx is done. A Read on
	// stdin cannot be interrupted, so it may outlive Run until the process exits.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, help)
	var last runtime.State
	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			c.notify(last, state)
			last = state
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.Execute(line)
			if err != nil {
				c.log.Debug("Command rejected", "line", line, "error", err)
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Execute runs a single command line and reports whether the user asked to quit.
func (c *Console) Execute(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]
	state := c.intents.State()

	switch command {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(c.out, help)
	case "search":
		c.intents.SetSearchText(strings.Join(args, " "))
	case "select":
		user, err := c.resolveOne(state, args)
		if err != nil {
			return false, err
		}
		c.intents.SelectUser(user)
	case "send":
		if len(args) < 2 {
			return false, fmt.Errorf("%w: send <#|name> <text>", errors.ErrInvalidInput)
		}
		user, err := resolveUser(state, args[0])
		if err != nil {
			return false, err
		}
		c.intents.SendMessage(strings.Join(args[1:], " "), user)
	case "toggle":
		user, err := c.resolveOne(state, args)
		if err != nil {
			return false, err
		}
		c.intents.ToggleOnlineStatus(user)
	case "swipe":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: swipe <left|right> <#|name>", errors.ErrInvalidInput)
		}
		direction := domain.SwipeDirection(strings.ToLower(args[0]))
		if direction != domain.SwipeDirectionLeft && direction != domain.SwipeDirectionRight {
			return false, fmt.Errorf("%w: unknown direction %q", errors.ErrInvalidInput, args[0])
		}
		user, err := resolveUser(state, args[1])
		if err != nil {
			return false, err
		}
		c.intents.Swipe(user, direction)
	case "retry":
		c.intents.LoadUsers()
	case "reconnect":
		c.intents.Reconnect()
	case "clear":
		c.intents.ClearUnread()
	case "state":
		c.Render(state)
	default:
		return false, fmt.Errorf("%w: unknown command %q", errors.ErrInvalidInput, command)
	}
	return false, nil
}

func (c *Console) resolveOne(state runtime.State, args []string) (domain.User, error) {
	if len(args) != 1 {
		return domain.User{}, fmt.Errorf("%w: expected one user", errors.ErrInvalidInput)
	}
	return resolveUser(state, args[0])
}

// resolveUser accepts a 1-based position in the filtered roster or a name.
func resolveUser(state runtime.State, ref string) (domain.User, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(state.FilteredUsers) {
			return domain.User{}, fmt.Errorf("%w: no user #%d", errors.ErrNotFound, n)
		}
		return state.FilteredUsers[n-1], nil
	}
	user, ok := lo.Find(state.Users, func(u domain.User) bool { return strings.EqualFold(u.Name, ref) })
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrNotFound, ref)
	}
	return user, nil
}

// Render prints the status line and the filtered roster.
func (c *Console) Render(state runtime.State) {
	fmt.Fprintf(c.out, "%s  online: %d  unread: %d%s\n",
		c.status(state.ConnectionStatus), state.OnlineCount, state.UnreadCount, flags(state))
	if state.SearchText != "" {
		fmt.Fprintf(c.out, "search: %q\n", state.SearchText)
	}

	now := c.clock.Now()
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"#", "Name", "Age", "Status", "Bio"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, u := range state.FilteredUsers {
		presence := "online"
		if !u.Online {
			presence = "seen " + humanize.RelTime(u.LastSeen, now, "ago", "from now")
		}
		table.Append([]string{strconv.Itoa(i + 1), u.Name, strconv.Itoa(u.Age), presence, u.Bio})
	}
	table.Render()

	if state.SelectedUser != nil {
		fmt.Fprintf(c.out, "selected: %s\n", state.SelectedUser.Name)
	}
	m := state.Metrics
	fmt.Fprintf(c.out, "session: %s, %d views, %d sent, %d searches\n",
		m.TimeSpent.Truncate(time.Second), m.ProfileViews, m.MessagesSent, m.SearchQueries)
}

// notify prints what the user did not ask for: connection changes, new messages and errors.
func (c *Console) notify(previous, current runtime.State) {
	if current.ConnectionStatus != previous.ConnectionStatus {
		line := c.status(current.ConnectionStatus)
		if current.ConnectionError != "" {
			line += ": " + current.ConnectionError
		}
		fmt.Fprintln(c.out, line)
	}
	if len(current.Messages) > 0 && current.UnreadCount > previous.UnreadCount {
		msg := current.Messages[len(current.Messages)-1]
		fmt.Fprintf(c.out, "%s: %s\n", msg.SenderName, msg.Text)
	}
	if current.LastSentMessage != nil &&
		(previous.LastSentMessage == nil || previous.LastSentMessage.ID != current.LastSentMessage.ID) {
		fmt.Fprintf(c.out, "%s: %s\n", current.LastSentMessage.SenderName, current.LastSentMessage.Text)
	}
	if current.ErrorMessage != "" && current.ErrorMessage != previous.ErrorMessage {
		fmt.Fprintf(c.out, "error: %s\n", current.ErrorMessage)
	}
	if previous.IsLoading && !current.IsLoading && current.ErrorMessage == "" {
		c.Render(current)
	}
}

func (c *Console) status(status domain.ConnectionStatus) string {
	text := "● " + status.String()
	if !c.colours {
		return text
	}
	switch status {
	case domain.Connected:
		return color.New(color.FgGreen, color.OpBold).Render(text)
	case domain.Connecting:
		return color.New(color.FgYellow).Render(text)
	case domain.ConnectionError:
		return color.New(color.FgRed, color.OpBold).Render(text)
	default:
		return color.New(color.FgGray).Render(text)
	}
}

func flags(state runtime.State) string {
	var out []string
	if state.IsLoading {
		out = append(out, "loading")
	}
	if state.IsRefreshing {
		out = append(out, "refreshing")
	}
	if state.ErrorMessage != "" {
		out = append(out, "error: "+state.ErrorMessage)
	}
	if len(out) == 0 {
		return ""
	}
	return "  [" + strings.Join(out, ", ") + "]"
}
