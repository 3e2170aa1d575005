package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/db"
	redisclient "github.com/hackgods/vet-scheduling/internal/redis"
)

// exclusion_violation: the appointments_no_overlap constraint caught a double booking.
const pgExclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, tutor_id, professional_id, service_id, pet_id, appointment_date, start_time, end_time,
	location_type, location_address, status, tutor_notes, professional_notes, price,
	confirmed_at, cancelled_at, cancellation_reason, reminder_sent_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.TutorID,
		&a.ProfessionalID,
		&a.ServiceID,
		&a.PetID,
		&a.Date,
		&start,
		&end,
		&a.LocationType,
		&a.LocationAddress,
		&a.Status,
		&a.TutorNotes,
		&a.ProfessionalNotes,
		&a.Price,
		&a.ConfirmedAt,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = availability.DateOnly(a.Date)
	a.StartTime = availability.TimeFromPg(start)
	a.EndTime = availability.TimeFromPg(end)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InDayTx(ctx context.Context, professionalID uuid.UUID, date time.Time, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// also taken without redis, so the database alone keeps the check+insert serial
		if err := db.AdvisoryXactLock(ctx, tx, redisclient.DayLockKey(professionalID, date)); err != nil {
			return err
		}
		return fn(newPgTx(tx))
	})
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(newPgTx(tx))
	})
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) InsertLost(ctx context.Context, l LostAppointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lost_appointments (id, tutor_id, professional_id, service_id, attempted_date, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.TutorID, l.ProfessionalID, l.ServiceID, availability.DateOnly(l.AttemptedDate), l.Reason, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lost appointment: %w", err)
	}
	return nil
}

// startsBefore and the reminder bounds are agenda wall-clock instants; the timestamp codec
// drops their zone, which is what appointment_date + start_time compares against.

func (r *PgRepository) ListStalePending(ctx context.Context, createdBefore, startsBefore time.Time, limit int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND (created_at < $1 OR appointment_date + start_time < $2::timestamp)
		ORDER BY created_at
		LIMIT $3
	`, createdBefore, startsBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListDueReminders(ctx context.Context, from, to time.Time, limit int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND reminder_sent_at IS NULL
		  AND appointment_date + start_time >= $1::timestamp
		  AND appointment_date + start_time < $2::timestamp
		ORDER BY appointment_date, start_time
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent_at = $2
		WHERE id = $1
		  AND reminder_sent_at IS NULL
		  AND status = 'confirmed'
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// pgTx binds the appointment, availability and credit queries to one pgx.Tx.
type pgTx struct {
	*availability.PgRepository
	tx      pgx.Tx
	credits *credit.PgRepository
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		PgRepository: availability.NewPgRepository(tx),
		tx:           tx,
		credits:      credit.NewPgRepository(tx),
	}
}

func (t *pgTx) ProfessionalActive(ctx context.Context, professionalID uuid.UUID) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT is_active FROM professional_profiles WHERE id = $1`, professionalID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrProfessionalNotFound
		}
		return false, fmt.Errorf("load professional: %w", err)
	}
	return active, nil
}

func (t *pgTx) ConsumeCredit(ctx context.Context, professionalID uuid.UUID, description string) (bool, error) {
	return t.credits.ConsumeOne(ctx, professionalID, description)
}

func (t *pgTx) Insert(ctx context.Context, a *Appointment) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, tutor_id, professional_id, service_id, pet_id, appointment_date, start_time, end_time,
			location_type, location_address, status, tutor_notes, price, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING `+appointmentColumns,
		a.ID, a.TutorID, a.ProfessionalID, a.ServiceID, a.PetID, availability.DateOnly(a.Date),
		availability.TimeToPg(a.StartTime), availability.TimeToPg(a.EndTime),
		a.LocationType, a.LocationAddress, a.Status, a.TutorNotes, a.Price, a.CreatedAt,
	)

	stored, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return fmt.Errorf("%w: overlaps an active appointment", ErrSlotUnavailable)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	*a = *stored
	return nil
}

func (t *pgTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	return scanAppointment(row)
}

func (t *pgTx) UpdateStatus(ctx context.Context, a *Appointment, from Status) error {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    confirmed_at = $3,
		    cancelled_at = $4,
		    cancellation_reason = $5,
		    updated_at = $6
		WHERE id = $1
		  AND status = $7
		RETURNING `+appointmentColumns,
		a.ID, a.Status, a.ConfirmedAt, a.CancelledAt, a.CancellationReason, a.UpdatedAt, from,
	)

	stored, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrStatusChanged
		}
		return fmt.Errorf("update appointment status: %w", err)
	}

	*a = *stored
	return nil
}

func (t *pgTx) InsertEvent(ctx context.Context, ev StatusEvent) error {
	var old *Status
	if ev.OldStatus != "" {
		old = &ev.OldStatus
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointment_events (id, appointment_id, old_status, new_status, actor_id, actor_role, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.ID, ev.AppointmentID, old, ev.NewStatus, ev.ActorID, ev.ActorRole, ev.Notes, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}
