package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-escalation-service/internal/config"
	"github.com/spec-kit/sla-escalation-service/internal/domain"
	"github.com/spec-kit/sla-escalation-service/internal/repository"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory ticket store whose unit of work restores a snapshot on failure.
type memStore struct {
	mu        sync.Mutex
	tickets   map[int64]domain.Ticket
	history   []domain.TicketHistory
	nextHist  int64
	inserts   int
	levelSets int

	failInsertAt int
	failSetLevel map[int64]error
	failList     error
	commits      int
	rollbacks    int
}

func newMemStore(tickets ...domain.Ticket) *memStore {
	s := &memStore{tickets: map[int64]domain.Ticket{}, failSetLevel: map[int64]error{}}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *memStore) ticket(id int64) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	return t, ok
}

func (s *memStore) historyFor(id int64) []domain.TicketHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range s.history {
		if h.TicketID == id {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) UnitOfWork() repository.UnitOfWork { return &memUnitOfWork{store: s} }

type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Repositories() repository.Repositories {
	return repository.Repositories{Tickets: &memTickets{s: u.store}, History: &memHistory{s: u.store}}
}

func (u *memUnitOfWork) Do(_ context.Context, fn func(repository.Repositories) error) error {
	s := u.store
	s.mu.Lock()
	tickets := make(map[int64]domain.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		tickets[k] = v
	}
	history := append([]domain.TicketHistory(nil), s.history...)
	s.mu.Unlock()

	if err := fn(u.Repositories()); err != nil {
		s.mu.Lock()
		s.tickets = tickets
		s.history = history
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return nil
}

type memTickets struct {
	s *memStore
}

func (r *memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *memTickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if t.Status == domain.TicketStatusOpen {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTickets) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.inserts++
	if r.s.failInsertAt != 0 && r.s.inserts == r.s.failInsertAt {
		return errStoreDown
	}
	if _, exists := r.s.tickets[ticket.ID]; exists {
		return errors.New("duplicate key")
	}
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTickets) UpdateState(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	current.Priority = ticket.Priority
	current.CustomerTier = ticket.CustomerTier
	current.Status = ticket.Status
	current.CreatedAt = ticket.CreatedAt
	current.UpdatedAt = ticket.UpdatedAt
	r.s.tickets[ticket.ID] = current
	return nil
}

func (r *memTickets) SetEscalationLevel(_ context.Context, id int64, level domain.EscalationLevel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failSetLevel[id]; err != nil {
		return err
	}
	current, ok := r.s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	current.EscalationLevel = &level
	r.s.tickets[id] = current
	r.s.levelSets++
	return nil
}

func (r *memTickets) Paginate(_ context.Context, status *domain.TicketStatus, page, pageSize int) ([]domain.Ticket, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Ticket
	for _, t := range r.s.tickets {
		if status == nil || t.Status == *status {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.Ticket{}, len(all), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

type memHistory struct {
	s *memStore
}

func (r *memHistory) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextHist++
	entry.ID = r.s.nextHist
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *memHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type staticThresholds float64

func (s staticThresholds) Current() config.SLAThresholds {
	return config.SLAThresholds{AlertThresholdPercent: float64(s)}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.EscalationEvent
	err    error
	onCall func(domain.EscalationEvent)
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.EscalationEvent) error {
	if n.onCall != nil {
		n.onCall(event)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) received() []domain.EscalationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.EscalationEvent(nil), n.events...)
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }
