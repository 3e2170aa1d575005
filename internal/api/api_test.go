package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/calendar"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

const testSecret = "test-secret"

type stubSlots struct {
	got availability.SlotRequest
}

func (s *stubSlots) GetAvailableSlots(_ context.Context, req availability.SlotRequest) ([]availability.Slot, error) {
	s.got = req
	return []availability.Slot{{
		Start:        availability.NewTimeOfDay(9, 0),
		End:          availability.NewTimeOfDay(9, 30),
		LocationType: availability.LocationClinic,
	}}, nil
}

type stubCalendar struct{}

func (stubCalendar) GetCalendarAvailability(_ context.Context, _ uuid.UUID, start time.Time, _ int) (map[time.Time]calendar.Day, error) {
	return map[time.Time]calendar.Day{
		availability.DateOnly(start): {Status: calendar.StatusPartial, RemainingSlots: 3},
	}, nil
}

type stubAppointments struct {
	createErr error
	got       appointment.CreateRequest
}

func (s *stubAppointments) Create(_ context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	s.got = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &appointment.Appointment{
		ID:             uuid.New(),
		TutorID:        req.TutorID,
		ProfessionalID: req.ProfessionalID,
		PetID:          req.PetID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		LocationType:   req.LocationType,
		Status:         appointment.StatusPending,
	}, nil
}

func (s *stubAppointments) ChangeStatus(_ context.Context, _ uuid.UUID, _ appointment.Status, _ auth.Actor, _ *string) (*appointment.Appointment, error) {
	return nil, appointment.ErrInvalidTransition
}

func (s *stubAppointments) GetAppointment(_ context.Context, _ uuid.UUID, _ auth.Actor) (*appointment.Appointment, error) {
	return nil, appointment.ErrAppointmentNotFound
}

type stubCredits struct {
	added int
}

func (s *stubCredits) CheckCredits(_ context.Context, _ uuid.UUID) (credit.Balance, error) {
	return credit.Balance{HasCredits: true, Remaining: 4 + s.added, Status: credit.StatusActive}, nil
}

func (s *stubCredits) AddCredits(_ context.Context, _ uuid.UUID, amount int) (bool, error) {
	s.added += amount
	return true, nil
}

func (s *stubCredits) ListCreditTransactions(_ context.Context, _ uuid.UUID, _ int) ([]credit.Transaction, error) {
	return nil, nil
}

type stubVerification struct {
	changeErr error
}

func (s *stubVerification) GetState(_ context.Context, id uuid.UUID) (*verification.State, error) {
	return &verification.State{ProfileID: id, Status: verification.StatusUnderReview}, nil
}

func (s *stubVerification) CanVerify(_ context.Context, _ uuid.UUID) (verification.Eligibility, error) {
	return verification.Eligibility{CanVerify: false, MissingDocuments: []string{verification.LabelCRMV}}, nil
}

func (s *stubVerification) ChangeStatus(_ context.Context, _ uuid.UUID, _ verification.Status, _ auth.Actor, _ *string) (bool, error) {
	if s.changeErr != nil {
		return false, s.changeErr
	}
	return true, nil
}

type fixture struct {
	router       http.Handler
	tokens       *auth.TokenParser
	slots        *stubSlots
	appointments *stubAppointments
	credits      *stubCredits
	verification *stubVerification
}

func newFixture() *fixture {
	f := &fixture{
		tokens:       auth.NewTokenParser(testSecret),
		slots:        &stubSlots{},
		appointments: &stubAppointments{},
		credits:      &stubCredits{},
		verification: &stubVerification{},
	}
	f.router = NewRouter(RouterConfig{
		Slots:        f.slots,
		Calendar:     stubCalendar{},
		Appointments: f.appointments,
		Credits:      f.credits,
		Verification: f.verification,
		Tokens:       f.tokens,
		Health:       NewHealthHandler(nil, nil, "test", "v0"),
		Log:          logger.Nop(),
	})
	return f
}

func (f *fixture) do(t *testing.T, actor *auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if actor != nil {
		token, err := f.tokens.Sign(*actor, time.Minute)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func createBody(professionalID uuid.UUID) string {
	return `{
		"professional_id": "` + professionalID.String() + `",
		"pet_id": "` + uuid.NewString() + `",
		"date": "2026-10-26",
		"start_time": "09:00",
		"end_time": "09:30",
		"location_type": "clinic"
	}`
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := f.do(t, nil, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, nil, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readiness without postgres: expected 503, got %d", rec.Code)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	f := newFixture()

	rec := f.do(t, nil, http.MethodGet, "/appointments/"+uuid.NewString(), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestCreateAppointmentBooksForCallingTutor(t *testing.T) {
	f := newFixture()
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}
	prof := uuid.New()

	rec := f.do(t, &tutor, http.MethodPost, "/appointments", createBody(prof))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	got := f.appointments.got
	if got.TutorID != tutor.ID || got.ProfessionalID != prof {
		t.Fatalf("unexpected create request: %+v", got)
	}
	if got.StartTime != availability.NewTimeOfDay(9, 0) || got.EndTime != availability.NewTimeOfDay(9, 30) {
		t.Fatalf("times not parsed: %s-%s", got.StartTime, got.EndTime)
	}

	var resp AppointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "pending" || resp.Date != "2026-10-26" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateAppointmentErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"slot taken", appointment.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
		{"no credits", appointment.ErrNoCredits, http.StatusConflict, "NO_CREDITS"},
		{"inactive", appointment.ErrProfessionalInactive, http.StatusConflict, "PROFESSIONAL_INACTIVE"},
		{"busy", appointment.ErrAgendaBusy, http.StatusServiceUnavailable, "AGENDA_BUSY"},
		{"unknown professional", appointment.ErrProfessionalNotFound, http.StatusNotFound, "PROFESSIONAL_NOT_FOUND"},
		{"bad request", appointment.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.appointments.createErr = tt.err
			tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}

			rec := f.do(t, &tutor, http.MethodPost, "/appointments", createBody(uuid.New()))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, code)
			}
		})
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture()
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}

	bodies := map[string]string{
		"missing pet": `{"professional_id":"` + uuid.NewString() + `","date":"2026-10-26","start_time":"09:00","end_time":"09:30","location_type":"clinic"}`,
		"bad clock":   `{"professional_id":"` + uuid.NewString() + `","pet_id":"` + uuid.NewString() + `","date":"2026-10-26","start_time":"25:00","end_time":"09:30","location_type":"clinic"}`,
		"bad place":   `{"professional_id":"` + uuid.NewString() + `","pet_id":"` + uuid.NewString() + `","date":"2026-10-26","start_time":"09:00","end_time":"09:30","location_type":"both"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, &tutor, http.MethodPost, "/appointments", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
				t.Fatalf("expected VALIDATION_ERROR, got %s", code)
			}
		})
	}
}

func TestCreateAppointmentRoles(t *testing.T) {
	f := newFixture()

	prof := auth.Actor{ID: uuid.New(), Role: auth.RoleProfessional}
	rec := f.do(t, &prof, http.MethodPost, "/appointments", createBody(prof.ID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("professional booking: expected 403, got %d", rec.Code)
	}

	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	rec = f.do(t, &admin, http.MethodPost, "/appointments", createBody(uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("admin without tutor_id: expected 400, got %d", rec.Code)
	}
}

func TestChangeStatusConflict(t *testing.T) {
	f := newFixture()
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}

	rec := f.do(t, &tutor, http.MethodPatch, "/appointments/"+uuid.NewString()+"/status", `{"status":"completed"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %s", code)
	}
}

func TestGetSlotsParsesQuery(t *testing.T) {
	f := newFixture()
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}
	prof := uuid.New()

	rec := f.do(t, &tutor, http.MethodGet, "/professionals/"+prof.String()+"/slots?date=2026-10-26&duration=45&location=home_visit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := f.slots.got
	if got.ProfessionalID != prof || got.DurationMinutes != 45 || got.Location != availability.LocationHomeVisit {
		t.Fatalf("unexpected slot request %+v", got)
	}

	var resp struct {
		Slots []struct {
			Start string `json:"slot_start"`
		} `json:"slots"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].Start != "09:00" {
		t.Fatalf("unexpected slots %+v", resp.Slots)
	}

	rec = f.do(t, &tutor, http.MethodGet, "/professionals/"+prof.String()+"/slots", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: expected 400, got %d", rec.Code)
	}
}

func TestGetCalendarKeysByDate(t *testing.T) {
	f := newFixture()
	tutor := auth.Actor{ID: uuid.New(), Role: auth.RoleTutor}

	rec := f.do(t, &tutor, http.MethodGet, "/professionals/"+uuid.NewString()+"/calendar?start=2026-10-01&months=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Days map[string]calendar.Day `json:"days"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	day, ok := resp.Days["2026-10-01"]
	if !ok || day.Status != calendar.StatusPartial || day.RemainingSlots != 3 {
		t.Fatalf("unexpected days %+v", resp.Days)
	}
}

func TestCreditsAccess(t *testing.T) {
	f := newFixture()
	prof := auth.Actor{ID: uuid.New(), Role: auth.RoleProfessional}
	other := auth.Actor{ID: uuid.New(), Role: auth.RoleProfessional}
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	path := "/professionals/" + prof.ID.String() + "/credits"

	if rec := f.do(t, &prof, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("own balance: expected 200, got %d", rec.Code)
	}
	if rec := f.do(t, &other, http.MethodGet, path, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign balance: expected 403, got %d", rec.Code)
	}
	if rec := f.do(t, &prof, http.MethodPost, path, `{"amount":10}`); rec.Code != http.StatusForbidden {
		t.Fatalf("self top-up: expected 403, got %d", rec.Code)
	}

	rec := f.do(t, &admin, http.MethodPost, path, `{"amount":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin top-up: expected 200, got %d", rec.Code)
	}
	var balance credit.Balance
	if err := json.NewDecoder(rec.Body).Decode(&balance); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if balance.Remaining != 14 {
		t.Fatalf("expected 14 remaining, got %d", balance.Remaining)
	}

	if rec := f.do(t, &admin, http.MethodPost, path, `{"amount":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount: expected 400, got %d", rec.Code)
	}
}

func TestVerificationMissingDocuments(t *testing.T) {
	f := newFixture()
	f.verification.changeErr = &verification.MissingDocumentsError{
		Missing: []string{verification.LabelCRMV, verification.LabelIdentity},
	}
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}

	rec := f.do(t, &admin, http.MethodPut, "/professionals/"+uuid.NewString()+"/verification", `{"status":"verified"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var body struct {
		Error   string `json:"error"`
		Details struct {
			Missing []string `json:"missing_documents"`
		} `json:"details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "MISSING_DOCUMENTS" || len(body.Details.Missing) != 2 || body.Details.Missing[0] != "CRMV" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestVerificationNonAdminRejected(t *testing.T) {
	f := newFixture()
	f.verification.changeErr = verification.ErrNotAuthorized
	prof := auth.Actor{ID: uuid.New(), Role: auth.RoleProfessional}

	rec := f.do(t, &prof, http.MethodPut, "/professionals/"+prof.ID.String()+"/verification", `{"status":"verified"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_AUTHORIZED" {
		t.Fatalf("expected NOT_AUTHORIZED, got %s", code)
	}
}
