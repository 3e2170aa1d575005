package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/config"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/db/dbtest"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

// newPgProfessional seeds an active professional with a Monday 09:00-12:00 window and credits.
func newPgProfessional(t *testing.T, pool *pgxpool.Pool, credits int) uuid.UUID {
	t.Helper()

	prof := dbtest.NewProfessional(t, pool)
	dbtest.Exec(t, pool, `
		INSERT INTO availability_windows (id, professional_id, day_of_week, start_time, end_time, location_type, slot_duration_minutes)
		VALUES ($1, $2, 1, '09:00', '12:00', 'both', 30)
	`, uuid.New(), prof)

	if credits > 0 {
		if _, err := credit.NewPgRepository(pool).Grant(context.Background(), prof, credits, "integration"); err != nil {
			t.Fatalf("Grant: %v", err)
		}
	}
	return prof
}

func pgAppointment(prof uuid.UUID, start, end string) *Appointment {
	return &Appointment{
		ID:             uuid.New(),
		TutorID:        uuid.New(),
		ProfessionalID: prof,
		PetID:          uuid.New(),
		Date:           monday,
		StartTime:      clock(start),
		EndTime:        clock(end),
		LocationType:   availability.LocationClinic,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func usedCredits(t *testing.T, pool *pgxpool.Pool, prof uuid.UUID) int {
	t.Helper()

	l, err := credit.NewPgRepository(pool).GetLedger(context.Background(), prof)
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	return l.UsedCredits
}

func countAppointments(t *testing.T, pool *pgxpool.Pool, prof uuid.UUID) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(),
		`SELECT count(*) FROM appointments WHERE professional_id = $1`, prof).Scan(&n); err != nil {
		t.Fatalf("count appointments: %v", err)
	}
	return n
}

func TestPgInsertOverlapMapsToSlotUnavailable(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	repo := NewPgRepository(pool)
	prof := newPgProfessional(t, pool, 0)

	insert := func(a *Appointment) error {
		return repo.InTx(ctx, func(tx Tx) error { return tx.Insert(ctx, a) })
	}

	if err := insert(pgAppointment(prof, "09:00", "10:00")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	tests := []struct {
		name    string
		start   string
		end     string
		status  Status
		wantErr error
	}{
		{name: "same interval", start: "09:00", end: "10:00", status: StatusPending, wantErr: ErrSlotUnavailable},
		{name: "partial overlap", start: "09:30", end: "10:30", status: StatusConfirmed, wantErr: ErrSlotUnavailable},
		{name: "touching end", start: "10:00", end: "10:30", status: StatusPending},
		{name: "overlap with inactive status", start: "09:00", end: "09:30", status: StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := pgAppointment(prof, tt.start, tt.end)
			a.Status = tt.status

			err := insert(a)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPgOverlapRollsBackConsumedCredit(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	repo := NewPgRepository(pool)
	prof := newPgProfessional(t, pool, 3)

	if err := repo.InTx(ctx, func(tx Tx) error {
		return tx.Insert(ctx, pgAppointment(prof, "09:00", "10:00"))
	}); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	err := repo.InDayTx(ctx, prof, monday, func(tx Tx) error {
		ok, err := tx.ConsumeCredit(ctx, prof, "overlapping booking")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected a credit to be available")
		}
		return tx.Insert(ctx, pgAppointment(prof, "09:30", "10:00"))
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	if got := usedCredits(t, pool, prof); got != 0 {
		t.Fatalf("credit consumption survived the rollback: used %d", got)
	}
	if got := countAppointments(t, pool, prof); got != 1 {
		t.Fatalf("expected only the seeded appointment, got %d", got)
	}
}

func TestPgConcurrentCreateBooksOnce(t *testing.T) {
	pool := dbtest.Pool(t)
	prof := newPgProfessional(t, pool, 5)

	n := &recordingNotifier{}
	cfg := config.Config{
		ConfirmationDeadline: 24 * time.Hour,
		ReminderLeadTime:     24 * time.Hour,
		Location:             time.UTC,
	}
	// no redis: the advisory lock alone has to serialise the bookings
	svc := NewService(NewPgRepository(pool), passLocker{}, n, logger.Nop(), cfg)
	svc.now = func() time.Time { return now }

	// every interval contains 09:45-10:00
	intervals := [][2]string{
		{"09:00", "10:00"},
		{"09:30", "10:30"},
		{"09:30", "10:00"},
		{"09:45", "10:15"},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		start   = make(chan struct{})
	)
	for _, iv := range intervals {
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			<-start
			_, err := svc.Create(context.Background(), CreateRequest{
				TutorID:        uuid.New(),
				ProfessionalID: prof,
				PetID:          uuid.New(),
				Date:           monday,
				StartTime:      clock(from),
				EndTime:        clock(to),
				LocationType:   availability.LocationClinic,
			})
			switch {
			case err == nil:
				mu.Lock()
				created++
				mu.Unlock()
			case errors.Is(err, ErrSlotUnavailable):
			default:
				t.Errorf("Create %s-%s: %v", from, to, err)
			}
		}(iv[0], iv[1])
	}
	close(start)
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one booking among overlapping requests, got %d", created)
	}
	if got := usedCredits(t, pool, prof); got != 1 {
		t.Fatalf("expected one consumed credit, got %d", got)
	}
	if got := countAppointments(t, pool, prof); got != 1 {
		t.Fatalf("expected one stored appointment, got %d", got)
	}
}
