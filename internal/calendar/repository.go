package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/db"
)

// Repository reads the whole calendar range in three queries.
type Repository interface {
	ListWindows(ctx context.Context, professionalID uuid.UUID) ([]availability.Window, error)
	ListBlockedDates(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]availability.BlockedDate, error)
	CountActiveByDate(ctx context.Context, professionalID uuid.UUID, from, to time.Time) (map[time.Time]int, error)
}

// PgRepository reuses the availability queries and adds the per-day count.
type PgRepository struct {
	*availability.PgRepository
	db db.DBTX
}

func NewPgRepository(q db.DBTX) *PgRepository {
	return &PgRepository{PgRepository: availability.NewPgRepository(q), db: q}
}

func (r *PgRepository) CountActiveByDate(ctx context.Context, professionalID uuid.UUID, from, to time.Time) (map[time.Time]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_date, COUNT(*)
		FROM appointments
		WHERE professional_id = $1
		  AND appointment_date BETWEEN $2 AND $3
		  AND status IN ('pending', 'confirmed')
		GROUP BY appointment_date
	`, professionalID, availability.DateOnly(from), availability.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	defer rows.Close()

	counts := make(map[time.Time]int)
	for rows.Next() {
		var date time.Time
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan appointment count: %w", err)
		}
		counts[availability.DateOnly(date)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
