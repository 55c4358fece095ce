package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"stroll-lab/errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ contract.DataSource = (*SimulatedDataSource)(nil)

// Latency holds the artificial delays of the simulated backend.
type Latency struct {
	FetchMin time.Duration
	FetchMax time.Duration
	Update   time.Duration
	Send     time.Duration
}

func DefaultLatency() Latency {
	return Latency{
		FetchMin: 500 * time.Millisecond,
		FetchMax: 2 * time.Second,
		Update:   500 * time.Millisecond,
		Send:     300 * time.Millisecond,
	}
}

type sendMessageRequest struct {
	Text string `validate:"required,max=1000"`
}

// SimulatedDataSource serves an in-memory roster with artificial latency.
// Delays always run to completion unless ctx is cancelled; superseding a
// request is the caller's business.
type SimulatedDataSource struct {
	log     *slog.Logger
	clock   clock.Clock
	latency Latency

	mu    sync.Mutex
	rand  *rand.Rand
	users []domain.User
}

func NewSimulatedDataSource(log *slog.Logger, clk clock.Clock, latency Latency,
	users []domain.User, rnd *rand.Rand) *SimulatedDataSource {
	return &SimulatedDataSource{
		log:     log,
		clock:   clk,
		latency: latency,
		rand:    rnd,
		users:   append([]domain.User(nil), users...),
	}
}

// FetchUsers returns the whole roster after a latency drawn uniformly from [FetchMin, FetchMax].
func (s *SimulatedDataSource) FetchUsers(ctx context.Context) ([]domain.User, error) {
	if err := s.wait(ctx, s.fetchLatency()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.User(nil), s.users...), nil
}

// UpdateUserStatus flips the online flag of a user in the backing roster.
func (s *SimulatedDataSource) UpdateUserStatus(ctx context.Context, userID uuid.UUID, online bool) (domain.User, error) {
	if err := s.wait(ctx, s.latency.Update); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, i, ok := lo.FindIndexOf(s.users, func(u domain.User) bool { return u.ID == userID })
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrNotFound, userID)
	}
	s.users[i] = s.users[i].WithStatus(online, s.clock.Now())
	return s.users[i], nil
}

// SendMessage builds the outgoing message stamped at call time. Nothing is stored.
func (s *SimulatedDataSource) SendMessage(ctx context.Context, text string, userID uuid.UUID) (domain.ChatMessage, error) {
	sentAt := s.clock.Now()
	if err := validate.Struct(sendMessageRequest{Text: strings.TrimSpace(text)}); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if err := s.wait(ctx, s.latency.Send); err != nil {
		return domain.ChatMessage{}, err
	}
	s.log.Debug("Message sent", "to", userID, "length", len(text))
	return domain.NewOutgoingMessage(text, sentAt), nil
}

func (s *SimulatedDataSource) fetchLatency() time.Duration {
	spread := s.latency.FetchMax - s.latency.FetchMin
	if spread <= 0 {
		return s.latency.FetchMin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latency.FetchMin + time.Duration(s.rand.Int64N(int64(spread)+1))
}

func (s *SimulatedDataSource) wait(ctx context.Context, d time.Duration) error {
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Transport(ctx.Err())
	}
}
