package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/db"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

type windowTemplate struct {
	start, end availability.TimeOfDay
	location   availability.LocationType
	slot       int
}

// every seeded professional works Monday to Friday on these shifts
var weekTemplate = []windowTemplate{
	{availability.NewTimeOfDay(9, 0), availability.NewTimeOfDay(12, 0), availability.LocationClinic, 30},
	{availability.NewTimeOfDay(14, 0), availability.NewTimeOfDay(18, 0), availability.LocationBoth, 60},
}

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Service: "seed", Format: logger.TEXT})
	log.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	count := 20
	if v := os.Getenv("SEED_PROFESSIONALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatal("invalid SEED_PROFESSIONALS", "value", v)
		}
		count = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolConfig{})
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	for i := 0; i < count; i++ {
		id, err := seedProfessional(context.Background(), pool, faker)
		if err != nil {
			log.Fatal("seed professional", "error", err)
		}
		log.Info("professional seeded", "professional_id", id, "n", i+1, "of", count)
	}

	log.Info("seed complete", "professionals", count)
}

// seedProfessional writes one profile with its week, a few blocked dates, documents and credits
// in a single transaction.
func seedProfessional(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker) (uuid.UUID, error) {
	id := uuid.New()

	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO professional_profiles (id, display_name, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, "Dr. "+faker.Name(), faker.Float32Range(0, 1) > 0.1)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}

		for dow := time.Monday; dow <= time.Friday; dow++ {
			for _, w := range weekTemplate {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_windows
						(id, professional_id, day_of_week, start_time, end_time, location_type, slot_duration_minutes)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
				`, uuid.New(), id, int(dow), availability.TimeToPg(w.start), availability.TimeToPg(w.end), w.location, w.slot)
				if err != nil {
					return fmt.Errorf("insert window: %w", err)
				}
			}
		}

		today := availability.DateOnly(time.Now())
		blockedCount := faker.Number(0, 3)
		for i := 0; i < blockedCount; i++ {
			blocked := today.AddDate(0, 0, faker.Number(1, 90))
			_, err := tx.Exec(ctx, `
				INSERT INTO blocked_dates (id, professional_id, blocked_date, reason)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (professional_id, blocked_date) DO NOTHING
			`, uuid.New(), id, blocked, faker.RandomString([]string{"vacation", "conference", "personal"}))
			if err != nil {
				return fmt.Errorf("insert blocked date: %w", err)
			}
		}

		docTypes := []verification.DocumentType{
			verification.DocumentCRMV, verification.DocumentRG, verification.DocumentCNH, verification.DocumentCNPJCard,
		}
		for _, dt := range docTypes {
			if faker.Bool() {
				continue
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO professional_documents (id, profile_id, document_type, file_url, is_verified, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, uuid.New(), id, dt, faker.URL(), faker.Bool())
			if err != nil {
				return fmt.Errorf("insert document: %w", err)
			}
		}

		if _, err := credit.NewPgRepository(tx).Grant(ctx, id, faker.Number(5, 100), "initial plan"); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
