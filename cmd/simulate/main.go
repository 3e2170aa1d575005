package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/config"
	"github.com/hackgods/vet-scheduling/internal/db"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

// The simulator points many tutors at one professional's day and then checks from the database
// that no two active bookings overlap and that the credit ledger matches the bookings made.

type SimConfig struct {
	APIBaseURL     string
	Tutors         int
	Rounds         int
	ProfessionalID uuid.UUID // zero means pick one with credits left
	Date           time.Time // zero means next Monday
}

type outcome string

const (
	outcomeBooked      outcome = "booked"
	outcomeSlotTaken   outcome = "SLOT_UNAVAILABLE"
	outcomeNoCredits   outcome = "NO_CREDITS"
	outcomeAgendaBusy  outcome = "AGENDA_BUSY"
	outcomeOtherReject outcome = "other_rejection"
	outcomeError       outcome = "transport_error"
)

type Metrics struct {
	mu        sync.Mutex
	counts    map[outcome]int
	latencies []time.Duration
}

func (m *Metrics) Record(o outcome, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[outcome]int)
	}
	m.counts[o]++
	m.latencies = append(m.latencies, latency)
}

func (m *Metrics) Stats() (avg, p50, p95, worst time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)*50/100]
	p95 = sorted[min(len(sorted)*95/100, len(sorted)-1)]
	worst = sorted[len(sorted)-1]
	return avg, p50, p95, worst
}

type Simulator struct {
	cfg     SimConfig
	log     *logger.Logger
	client  *http.Client
	tokens  *auth.TokenParser
	metrics Metrics
}

type slotView struct {
	Start    availability.TimeOfDay    `json:"slot_start"`
	End      availability.TimeOfDay    `json:"slot_end"`
	Location availability.LocationType `json:"location_type"`
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Service: "simulate"}).Fatal("config load error", "error", err)
	}
	log := logger.New(logger.Config{Level: baseCfg.LogLevel, Service: "simulate", Format: logger.TEXT})

	if baseCfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required to sign tutor tokens")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("invalid simulator config", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, db.PoolConfig{})
	if err != nil {
		log.Fatal("connect postgres", "error", err)
	}
	defer pool.Close()

	if cfg.ProfessionalID == uuid.Nil {
		cfg.ProfessionalID, err = pickProfessional(ctx, pool)
		if err != nil {
			log.Fatal("pick professional", "error", err)
		}
	}

	sim := &Simulator{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
		tokens: auth.NewTokenParser(baseCfg.JWTSecret),
	}

	usedBefore, err := usedCredits(ctx, pool, cfg.ProfessionalID)
	if err != nil {
		log.Fatal("read ledger", "error", err)
	}

	for round := 0; round < cfg.Rounds; round++ {
		if err := sim.runRound(context.Background(), round); err != nil {
			log.Fatal("round failed", "round", round, "error", err)
		}
	}

	sim.PrintReport()

	if err := sim.verify(context.Background(), pool, usedBefore); err != nil {
		log.Fatal("consistency check failed", "error", err)
	}
	log.Info("consistency check passed")
}

func loadConfig() (SimConfig, error) {
	cfg := SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Tutors:     getInt("SIM_TUTORS", 50),
		Rounds:     getInt("SIM_ROUNDS", 3),
	}
	if cfg.Tutors <= 0 || cfg.Rounds <= 0 {
		return cfg, errors.New("SIM_TUTORS and SIM_ROUNDS must be > 0")
	}

	if raw := os.Getenv("SIM_PROFESSIONAL_ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cfg, fmt.Errorf("SIM_PROFESSIONAL_ID: %w", err)
		}
		cfg.ProfessionalID = id
	}

	if raw := os.Getenv("SIM_DATE"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return cfg, fmt.Errorf("SIM_DATE: %w", err)
		}
		cfg.Date = d
	} else {
		cfg.Date = nextMonday(time.Now())
	}
	return cfg, nil
}

func pickProfessional(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	var id uuid.UUID
	err := pool.QueryRow(ctx, `
		SELECT p.id
		FROM professional_profiles p
		JOIN professional_credits c ON c.professional_id = p.id
		WHERE p.is_active AND c.used_credits < c.total_credits
		ORDER BY c.total_credits - c.used_credits DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errors.New("no active professional with credits; run cmd/seed first")
	}
	return id, err
}

// runRound fetches the free slots, then every tutor races for a random one of them at once.
func (s *Simulator) runRound(ctx context.Context, round int) error {
	slots, err := s.fetchSlots(ctx)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		s.log.Info("no free slots left", "round", round)
		return nil
	}
	s.log.Info("round starting", "round", round, "free_slots", len(slots), "tutors", s.cfg.Tutors)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Tutors; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			slot := slots[rng.Intn(len(slots))]
			<-start
			s.book(ctx, slot)
		}(time.Now().UnixNano() + int64(i))
	}
	close(start)
	wg.Wait()
	return nil
}

func (s *Simulator) fetchSlots(ctx context.Context) ([]slotView, error) {
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	token, err := s.tokens.Sign(admin, time.Minute)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/professionals/%s/slots?date=%s", s.cfg.APIBaseURL, s.cfg.ProfessionalID, s.cfg.Date.Format(time.DateOnly))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get slots: status %d", resp.StatusCode)
	}

	var body struct {
		Slots []slotView `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return body.Slots, nil
}

func (s *Simulator) book(ctx context.Context, slot slotView) {
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}
	token, err := s.tokens.Sign(tutor, time.Minute)
	if err != nil {
		s.metrics.Record(outcomeError, 0)
		return
	}

	location := slot.Location
	if location == availability.LocationBoth {
		location = availability.LocationClinic
	}

	body, _ := json.Marshal(map[string]any{
		"professional_id": s.cfg.ProfessionalID,
		"pet_id":          uuid.New(),
		"date":            s.cfg.Date.Format(time.DateOnly),
		"start_time":      slot.Start.String(),
		"end_time":        slot.End.String(),
		"location_type":   location,
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Record(outcomeError, latency)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		s.metrics.Record(outcomeBooked, latency)
		return
	}

	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	switch outcome(e.Error) {
	case outcomeSlotTaken, outcomeNoCredits, outcomeAgendaBusy:
		s.metrics.Record(outcome(e.Error), latency)
	default:
		s.log.Warn("unexpected rejection", "status", resp.StatusCode, "error", e.Error)
		s.metrics.Record(outcomeOtherReject, latency)
	}
}

// verify re-reads the day from postgres. Any overlap or ledger drift is a failure.
func (s *Simulator) verify(ctx context.Context, pool *pgxpool.Pool, usedBefore int) error {
	rows, err := pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE professional_id = $1 AND appointment_date = $2 AND status IN ('pending', 'confirmed')
		ORDER BY start_time
	`, s.cfg.ProfessionalID, s.cfg.Date)
	if err != nil {
		return err
	}
	var intervals []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		var start, end pgtype.Time
		if err := rows.Scan(&start, &end); err != nil {
			rows.Close()
			return err
		}
		iv.Start, iv.End = availability.TimeFromPg(start), availability.TimeFromPg(end)
		intervals = append(intervals, iv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i := 1; i < len(intervals); i++ {
		if intervals[i].Start < intervals[i-1].End {
			return fmt.Errorf("overlap: %s-%s and %s-%s",
				intervals[i-1].Start, intervals[i-1].End, intervals[i].Start, intervals[i].End)
		}
	}

	usedAfter, err := usedCredits(ctx, pool, s.cfg.ProfessionalID)
	if err != nil {
		return err
	}

	s.metrics.mu.Lock()
	booked := s.metrics.counts[outcomeBooked]
	s.metrics.mu.Unlock()

	if usedAfter-usedBefore != booked {
		return fmt.Errorf("ledger drift: %d bookings but %d credits consumed", booked, usedAfter-usedBefore)
	}
	return nil
}

func usedCredits(ctx context.Context, pool *pgxpool.Pool, professionalID uuid.UUID) (int, error) {
	var used int
	err := pool.QueryRow(ctx, `SELECT used_credits FROM professional_credits WHERE professional_id = $1`, professionalID).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return used, err
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("BOOKING RACE REPORT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Professional: %s\n", s.cfg.ProfessionalID)
	fmt.Printf("Date: %s\n", s.cfg.Date.Format(time.DateOnly))
	fmt.Printf("Tutors per round: %d, rounds: %d\n\n", s.cfg.Tutors, s.cfg.Rounds)

	s.metrics.mu.Lock()
	total := 0
	for _, n := range s.metrics.counts {
		total += n
	}
	for _, o := range []outcome{outcomeBooked, outcomeSlotTaken, outcomeNoCredits, outcomeAgendaBusy, outcomeOtherReject, outcomeError} {
		if n := s.metrics.counts[o]; n > 0 {
			fmt.Printf("  %-18s %5d (%.1f%%)\n", o, n, float64(n)/float64(total)*100)
		}
	}
	s.metrics.mu.Unlock()

	avg, p50, p95, worst := s.metrics.Stats()
	fmt.Printf("\n  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond), worst.Round(time.Millisecond))
}

func nextMonday(now time.Time) time.Time {
	d := availability.DateOnly(now).AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
