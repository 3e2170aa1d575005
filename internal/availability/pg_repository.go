package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/vet-scheduling/internal/db"
)

type PgRepository struct {
	db db.DBTX
}

// NewPgRepository binds the repository to a pool or to a running transaction.
func NewPgRepository(q db.DBTX) *PgRepository {
	return &PgRepository{db: q}
}

// TimeFromPg converts a postgres TIME to a TimeOfDay.
func TimeFromPg(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// TimeToPg converts a TimeOfDay to a postgres TIME parameter.
func TimeToPg(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var dow int16
	var start, end pgtype.Time

	err := row.Scan(
		&w.ID,
		&w.ProfessionalID,
		&dow,
		&start,
		&end,
		&w.LocationType,
		&w.SlotDurationMinutes,
	)
	if err != nil {
		return nil, err
	}

	w.DayOfWeek = time.Weekday(dow)
	w.Start = TimeFromPg(start)
	w.End = TimeFromPg(end)
	return &w, nil
}

func (r *PgRepository) ListWindows(ctx context.Context, professionalID uuid.UUID) ([]Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, professional_id, day_of_week, start_time, end_time, location_type, slot_duration_minutes
		FROM availability_windows
		WHERE professional_id = $1
		ORDER BY day_of_week, start_time
	`, professionalID)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) IsBlocked(ctx context.Context, professionalID uuid.UUID, date time.Time) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_dates
			WHERE professional_id = $1 AND blocked_date = $2
		)
	`, professionalID, DateOnly(date)).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("check blocked date: %w", err)
	}
	return blocked, nil
}

func (r *PgRepository) ListBlockedDates(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]BlockedDate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, professional_id, blocked_date, reason
		FROM blocked_dates
		WHERE professional_id = $1
		  AND blocked_date BETWEEN $2 AND $3
		ORDER BY blocked_date
	`, professionalID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("query blocked dates: %w", err)
	}
	defer rows.Close()

	var result []BlockedDate
	for rows.Next() {
		var b BlockedDate
		if err := rows.Scan(&b.ID, &b.ProfessionalID, &b.Date, &b.Reason); err != nil {
			return nil, fmt.Errorf("scan blocked date: %w", err)
		}
		b.Date = DateOnly(b.Date)
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE professional_id = $1
		  AND appointment_date = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_time
	`, professionalID, DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("query active appointments: %w", err)
	}
	defer rows.Close()

	var result []Interval
	for rows.Next() {
		var start, end pgtype.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("scan active appointment: %w", err)
		}
		result = append(result, Interval{Start: TimeFromPg(start), End: TimeFromPg(end)})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
