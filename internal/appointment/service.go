package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/config"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/notify"
	redisclient "github.com/hackgods/vet-scheduling/internal/redis"
)

var (
	ErrInvalidRequest       = errors.New("invalid appointment request")
	ErrSlotUnavailable      = errors.New("slot unavailable")
	ErrNoCredits            = errors.New("no credits available")
	ErrProfessionalInactive = errors.New("professional is not active")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotAuthorized        = errors.New("not authorized for this appointment")
	ErrAgendaBusy           = errors.New("agenda is busy, please retry")
)

const sweepBatchSize = 200

type CreateRequest struct {
	TutorID         uuid.UUID
	ProfessionalID  uuid.UUID
	ServiceID       *uuid.UUID
	PetID           uuid.UUID
	Date            time.Time
	StartTime       availability.TimeOfDay
	EndTime         availability.TimeOfDay
	LocationType    availability.LocationType
	LocationAddress *string
	Notes           *string
	Price           *float64
}

func (r CreateRequest) validate() error {
	switch {
	case r.TutorID == uuid.Nil:
		return fmt.Errorf("%w: tutor is required", ErrInvalidRequest)
	case r.ProfessionalID == uuid.Nil:
		return fmt.Errorf("%w: professional is required", ErrInvalidRequest)
	case r.PetID == uuid.Nil:
		return fmt.Errorf("%w: pet is required", ErrInvalidRequest)
	case r.StartTime < 0 || r.EndTime > availability.NewTimeOfDay(24, 0) || r.StartTime >= r.EndTime:
		return fmt.Errorf("%w: start must be before end within one day", ErrInvalidRequest)
	case r.LocationType != availability.LocationClinic && r.LocationType != availability.LocationHomeVisit:
		return fmt.Errorf("%w: location must be clinic or home_visit", ErrInvalidRequest)
	case r.Price != nil && *r.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	}
	return nil
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	log      *logger.Logger
	cfg      config.Config
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, log *logger.Logger, cfg config.Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}
}

// Create admits a booking. Professional activity, the slot and the credit are checked and the
// credit consumed inside one transaction that is serialised per (professional, date): first by
// the redis day lock, then by a transaction-scoped advisory lock.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	date := availability.DateOnly(req.Date)
	now := s.now()

	startsAt := req.StartTime.On(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc))
	if !startsAt.After(now) {
		return nil, fmt.Errorf("%w: appointment must start in the future", ErrInvalidRequest)
	}

	var created *Appointment

	book := func(lockCtx context.Context) error {
		return s.repo.InDayTx(lockCtx, req.ProfessionalID, date, func(tx Tx) error {
			active, err := tx.ProfessionalActive(lockCtx, req.ProfessionalID)
			if err != nil {
				return err
			}
			if !active {
				return ErrProfessionalInactive
			}

			if err := checkSlot(lockCtx, tx, req, date); err != nil {
				return err
			}

			ok, err := tx.ConsumeCredit(lockCtx, req.ProfessionalID, fmt.Sprintf("appointment on %s %s", date.Format(time.DateOnly), req.StartTime))
			if err != nil {
				return fmt.Errorf("consume credit: %w", err)
			}
			if !ok {
				return ErrNoCredits
			}

			appt := &Appointment{
				ID:              uuid.New(),
				TutorID:         req.TutorID,
				ProfessionalID:  req.ProfessionalID,
				ServiceID:       req.ServiceID,
				PetID:           req.PetID,
				Date:            date,
				StartTime:       req.StartTime,
				EndTime:         req.EndTime,
				LocationType:    req.LocationType,
				LocationAddress: req.LocationAddress,
				Status:          StatusPending,
				TutorNotes:      req.Notes,
				Price:           req.Price,
				CreatedAt:       now.UTC(),
				UpdatedAt:       now.UTC(),
			}
			if err := tx.Insert(lockCtx, appt); err != nil {
				return err
			}

			if err := tx.InsertEvent(lockCtx, StatusEvent{
				ID:            uuid.New(),
				AppointmentID: appt.ID,
				NewStatus:     StatusPending,
				ActorID:       req.TutorID,
				ActorRole:     string(auth.RoleTutor),
				Notes:         req.Notes,
				CreatedAt:     now.UTC(),
			}); err != nil {
				return err
			}

			created = appt
			return nil
		})
	}

	err := s.locker.WithDayLock(ctx, req.ProfessionalID, date, book)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		s.log.Warn("agenda lock unavailable, relying on the database lock",
			"professional_id", req.ProfessionalID,
			"error", err,
		)
		err = book(ctx)
	}

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, ErrAgendaBusy
		case errors.Is(err, ErrNoCredits):
			s.recordLost(ctx, req, LostNoCredits)
		case errors.Is(err, ErrProfessionalInactive):
			s.recordLost(ctx, req, LostProfessionalInactive)
		}
		s.log.Info("appointment rejected",
			"professional_id", req.ProfessionalID,
			"tutor_id", req.TutorID,
			"date", date.Format(time.DateOnly),
			"start", req.StartTime.String(),
			"reason", err.Error(),
		)
		return nil, err
	}

	s.log.Info("appointment created",
		"appointment_id", created.ID,
		"professional_id", created.ProfessionalID,
		"tutor_id", created.TutorID,
		"date", date.Format(time.DateOnly),
		"start", created.StartTime.String(),
	)

	s.notifier.Notify(notify.Event{
		RecipientID: created.ProfessionalID,
		Type:        notify.EventAppointmentCreated,
		Payload:     payloadOf(created),
	})

	return created, nil
}

// checkSlot re-validates at write time what GetAvailableSlots showed at read time.
func checkSlot(ctx context.Context, tx Tx, req CreateRequest, date time.Time) error {
	blocked, err := tx.IsBlocked(ctx, req.ProfessionalID, date)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: date is blocked", ErrSlotUnavailable)
	}

	windows, err := tx.ListWindows(ctx, req.ProfessionalID)
	if err != nil {
		return err
	}
	if !availability.Covers(windows, date, req.StartTime, req.EndTime, req.LocationType) {
		return fmt.Errorf("%w: outside the professional's availability", ErrSlotUnavailable)
	}

	booked, err := tx.ListActiveIntervals(ctx, req.ProfessionalID, date)
	if err != nil {
		return err
	}
	for _, b := range booked {
		if availability.Overlaps(req.StartTime, req.EndTime, b.Start, b.End) {
			return fmt.Errorf("%w: overlaps an active appointment", ErrSlotUnavailable)
		}
	}
	return nil
}

// recordLost runs after the booking transaction rolled back; a failure here is only logged.
func (s *Service) recordLost(ctx context.Context, req CreateRequest, reason LostReason) {
	lost := LostAppointment{
		ID:             uuid.New(),
		TutorID:        req.TutorID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		AttemptedDate:  availability.DateOnly(req.Date),
		Reason:         reason,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.InsertLost(context.WithoutCancel(ctx), lost); err != nil {
		s.log.Error("failed to record lost appointment",
			"professional_id", req.ProfessionalID,
			"reason", reason,
			"error", err,
		)
	}
}

// ChangeStatus applies one guarded lifecycle transition on behalf of actor.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status, actor auth.Actor, notes *string) (*Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, to)
	}

	var (
		updated *Appointment
		from    Status
	)

	err := s.repo.InTx(ctx, func(tx Tx) error {
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !mayActOn(actor, appt) {
			return ErrNotAuthorized
		}
		if !CanTransition(appt.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		if !mayMoveTo(actor, appt, to) {
			return fmt.Errorf("%w: %s may not set %s", ErrNotAuthorized, actor.Role, to)
		}

		from = appt.Status
		now := s.now().UTC()
		applyTransition(appt, to, notes, now)

		if err := tx.UpdateStatus(ctx, appt, from); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
			}
			return err
		}

		if err := tx.InsertEvent(ctx, StatusEvent{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			OldStatus:     from,
			NewStatus:     to,
			ActorID:       actor.ID,
			ActorRole:     string(actor.Role),
			Notes:         notes,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		updated = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment status changed",
		"appointment_id", updated.ID,
		"from", from,
		"to", to,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)

	payload := payloadOf(updated)
	payload["old_status"] = string(from)
	if to == StatusCancelled && notes != nil {
		payload["cancellation_reason"] = *notes
	}
	for _, recipient := range counterparts(actor, updated) {
		s.notifier.Notify(notify.Event{
			RecipientID: recipient,
			Type:        eventFor(to),
			Payload:     payload,
		})
	}

	return updated, nil
}

// applyTransition sets the lifecycle side effects of moving a to status to.
func applyTransition(a *Appointment, to Status, notes *string, at time.Time) {
	a.Status = to
	a.UpdatedAt = at

	switch to {
	case StatusConfirmed:
		a.ConfirmedAt = &at
	case StatusCancelled:
		a.CancelledAt = &at
		a.CancellationReason = notes
	case StatusPending, StatusCompleted, StatusNoShow:
	}
}

func eventFor(s Status) notify.EventType {
	switch s {
	case StatusPending:
		return notify.EventAppointmentCreated
	case StatusConfirmed:
		return notify.EventAppointmentConfirmed
	case StatusCancelled:
		return notify.EventAppointmentCancelled
	case StatusCompleted:
		return notify.EventAppointmentCompleted
	case StatusNoShow:
		return notify.EventAppointmentNoShow
	}
	return notify.EventType("appointment_" + string(s))
}

func mayActOn(actor auth.Actor, a *Appointment) bool {
	if actor.IsSystem() || actor.IsAdmin() {
		return true
	}
	return actor.ID == a.TutorID || actor.ID == a.ProfessionalID
}

// mayMoveTo keeps confirming and closing an appointment on the professional's side; the tutor
// can only withdraw.
func mayMoveTo(actor auth.Actor, a *Appointment, to Status) bool {
	if actor.IsSystem() || actor.IsAdmin() || actor.ID == a.ProfessionalID {
		return true
	}
	return to == StatusCancelled
}

// counterparts are the parties to tell about a transition: the other side, or both when
// neither side made the change.
func counterparts(actor auth.Actor, a *Appointment) []uuid.UUID {
	switch {
	case actor.ID == a.TutorID && actor.Role == auth.RoleTutor:
		return []uuid.UUID{a.ProfessionalID}
	case actor.ID == a.ProfessionalID && actor.Role == auth.RoleProfessional:
		return []uuid.UUID{a.TutorID}
	}
	return []uuid.UUID{a.TutorID, a.ProfessionalID}
}

func payloadOf(a *Appointment) map[string]any {
	return map[string]any{
		"appointment_id":  a.ID.String(),
		"tutor_id":        a.TutorID.String(),
		"professional_id": a.ProfessionalID.String(),
		"pet_id":          a.PetID.String(),
		"date":            a.Date.Format(time.DateOnly),
		"start_time":      a.StartTime.String(),
		"end_time":        a.EndTime.String(),
		"location_type":   string(a.LocationType),
		"status":          string(a.Status),
	}
}

// GetAppointment returns one appointment to a party of it or to an admin.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mayActOn(actor, appt) {
		return nil, ErrNotAuthorized
	}
	return appt, nil
}

const autoCancelReason = "confirmation deadline exceeded"

// AutoCancelStalePending cancels pending appointments older than the confirmation deadline, or
// whose start already passed, as the system actor. Re-running it is a no-op.
func (s *Service) AutoCancelStalePending(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.repo.ListStalePending(ctx, now.Add(-s.cfg.ConfirmationDeadline), now.In(s.loc), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find stale pending appointments: %w", err)
	}

	reason := autoCancelReason
	cancelled := 0
	for _, appt := range stale {
		_, err := s.ChangeStatus(ctx, appt.ID, StatusCancelled, auth.System, &reason)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				// confirmed or cancelled since it was listed
				continue
			}
			s.log.Error("auto-cancel failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		cancelled++
	}

	return cancelled, nil
}

// SendReminders notifies the tutor once per confirmed appointment starting within the lead time.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	from := now.In(s.loc)
	due, err := s.repo.ListDueReminders(ctx, from, from.Add(s.cfg.ReminderLeadTime), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		appt := &due[i]
		marked, err := s.repo.MarkReminderSent(ctx, appt.ID, now.UTC())
		if err != nil {
			s.log.Error("mark reminder failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		if !marked {
			continue
		}

		s.notifier.Notify(notify.Event{
			RecipientID: appt.TutorID,
			Type:        notify.EventAppointmentReminder,
			Payload:     payloadOf(appt),
		})
		sent++
	}

	return sent, nil
}
