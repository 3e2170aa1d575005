package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/notify"
	redisclient "github.com/hackgods/vet-scheduling/internal/redis"
)

// memStore serialises every transaction on one mutex and restores a snapshot when fn fails,
// which is the contract the postgres store gives per (professional, date).
type memStore struct {
	mu sync.Mutex

	active   map[uuid.UUID]bool
	windows  map[uuid.UUID][]availability.Window
	blocked  map[uuid.UUID]map[time.Time]bool
	ledgers  map[uuid.UUID]*credit.Ledger
	appts    map[uuid.UUID]*Appointment
	events   []StatusEvent
	lost     []LostAppointment
	consumed int

	// insertErr makes Insert fail after the in-transaction checks passed, as the
	// appointments_no_overlap constraint does when it fires
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		active:  make(map[uuid.UUID]bool),
		windows: make(map[uuid.UUID][]availability.Window),
		blocked: make(map[uuid.UUID]map[time.Time]bool),
		ledgers: make(map[uuid.UUID]*credit.Ledger),
		appts:   make(map[uuid.UUID]*Appointment),
	}
}

func (s *memStore) snapshot() func() {
	appts := make(map[uuid.UUID]Appointment, len(s.appts))
	for id, a := range s.appts {
		appts[id] = *a
	}
	ledgers := make(map[uuid.UUID]credit.Ledger, len(s.ledgers))
	for id, l := range s.ledgers {
		ledgers[id] = *l
	}
	events, consumed := len(s.events), s.consumed

	return func() {
		s.appts = make(map[uuid.UUID]*Appointment, len(appts))
		for id, a := range appts {
			a := a
			s.appts[id] = &a
		}
		for id, l := range ledgers {
			l := l
			s.ledgers[id] = &l
		}
		s.events = s.events[:events]
		s.consumed = consumed
	}
}

func (s *memStore) run(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	restore := s.snapshot()
	if err := fn(memTx{s}); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *memStore) InDayTx(_ context.Context, _ uuid.UUID, _ time.Time, fn func(tx Tx) error) error {
	return s.run(fn)
}

func (s *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	return s.run(fn)
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) InsertLost(_ context.Context, l LostAppointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost = append(s.lost, l)
	return nil
}

func (s *memStore) ListStalePending(_ context.Context, createdBefore, startsBefore time.Time, limit int) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appts {
		if len(out) == limit {
			break
		}
		if a.Status != StatusPending {
			continue
		}
		if a.CreatedAt.Before(createdBefore) || a.StartsAt(startsBefore.Location()).Before(startsBefore) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) ListDueReminders(_ context.Context, from, to time.Time, limit int) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appts {
		if len(out) == limit {
			break
		}
		start := a.StartsAt(from.Location())
		if a.Status == StatusConfirmed && a.ReminderSentAt == nil && !start.Before(from) && start.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.ReminderSentAt != nil || a.Status != StatusConfirmed {
		return false, nil
	}
	a.ReminderSentAt = &at
	return true, nil
}

func (s *memStore) put(a Appointment) *Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appts[a.ID] = &a
	return &a
}

func (s *memStore) get(id uuid.UUID) Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.appts[id]
}

// memTx runs with memStore.mu held.
type memTx struct {
	s *memStore
}

func (t memTx) ProfessionalActive(_ context.Context, id uuid.UUID) (bool, error) {
	active, ok := t.s.active[id]
	if !ok {
		return false, ErrProfessionalNotFound
	}
	return active, nil
}

func (t memTx) IsBlocked(_ context.Context, id uuid.UUID, date time.Time) (bool, error) {
	return t.s.blocked[id][date], nil
}

func (t memTx) ListWindows(_ context.Context, id uuid.UUID) ([]availability.Window, error) {
	return t.s.windows[id], nil
}

func (t memTx) ListActiveIntervals(_ context.Context, id uuid.UUID, date time.Time) ([]availability.Interval, error) {
	var out []availability.Interval
	for _, a := range t.s.appts {
		if a.ProfessionalID == id && a.Date.Equal(date) && a.Status.Active() {
			out = append(out, availability.Interval{Start: a.StartTime, End: a.EndTime})
		}
	}
	return out, nil
}

func (t memTx) ConsumeCredit(_ context.Context, id uuid.UUID, _ string) (bool, error) {
	l, ok := t.s.ledgers[id]
	if !ok || l.UsedCredits >= l.TotalCredits {
		return false, nil
	}
	l.UsedCredits++
	t.s.consumed++
	return true, nil
}

func (t memTx) Insert(_ context.Context, a *Appointment) error {
	if t.s.insertErr != nil {
		return t.s.insertErr
	}
	cp := *a
	t.s.appts[a.ID] = &cp
	return nil
}

func (t memTx) GetForUpdate(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := t.s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (t memTx) UpdateStatus(_ context.Context, a *Appointment, from Status) error {
	stored, ok := t.s.appts[a.ID]
	if !ok || stored.Status != from {
		return ErrStatusChanged
	}
	cp := *a
	t.s.appts[a.ID] = &cp
	return nil
}

func (t memTx) InsertEvent(_ context.Context, ev StatusEvent) error {
	t.s.events = append(t.s.events, ev)
	return nil
}

type passLocker struct{}

func (passLocker) WithDayLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) WithDayLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type downLocker struct{}

func (downLocker) WithDayLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return redisclient.ErrLockUnavailable
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) recipients() map[uuid.UUID]notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[uuid.UUID]notify.EventType, len(n.events))
	for _, ev := range n.events {
		out[ev.RecipientID] = ev.Type
	}
	return out
}
