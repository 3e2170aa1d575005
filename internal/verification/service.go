package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/notify"
)

var (
	ErrNotAuthorized = errors.New("only administrators may change verification status")
	ErrInvalidStatus = errors.New("unknown verification status")
)

type Service struct {
	repo        Repository
	cooldown    notify.Cooldown
	notifier    notify.Notifier
	log         *logger.Logger
	cooldownTTL time.Duration
	now         func() time.Time
}

// NewService wires the workflow. cooldown is shared between instances when backed by redis.
func NewService(repo Repository, cooldown notify.Cooldown, notifier notify.Notifier, log *logger.Logger, cooldownTTL time.Duration) *Service {
	return &Service{
		repo:        repo,
		cooldown:    cooldown,
		notifier:    notifier,
		log:         log,
		cooldownTTL: cooldownTTL,
		now:         time.Now,
	}
}

func (s *Service) CanVerify(ctx context.Context, profileID uuid.UUID) (Eligibility, error) {
	docs, err := s.repo.ListDocuments(ctx, profileID)
	if err != nil {
		return Eligibility{}, err
	}
	return Evaluate(docs), nil
}

// GetState is the read side used by the admin screens.
func (s *Service) GetState(ctx context.Context, profileID uuid.UUID) (*State, error) {
	return s.repo.GetState(ctx, profileID)
}

// ChangeStatus moves a profile to status to on behalf of an administrator. Every check runs
// before or inside the single write, so a refused call leaves no trace.
func (s *Service) ChangeStatus(ctx context.Context, profileID uuid.UUID, to Status, actor auth.Actor, notes *string) (bool, error) {
	if !actor.IsAdmin() {
		return false, ErrNotAuthorized
	}
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	current, err := s.repo.GetState(ctx, profileID)
	if err != nil {
		return false, err
	}

	if to == StatusVerified {
		elig, err := s.CanVerify(ctx, profileID)
		if err != nil {
			return false, err
		}
		if !elig.CanVerify {
			return false, &MissingDocumentsError{Missing: elig.MissingDocuments}
		}
	}

	now := s.now().UTC()
	next := *current
	next.Status = to
	next.IsVerified = to == StatusVerified
	if next.IsVerified {
		next.VerifiedAt = &now
		next.VerifiedBy = &actor.ID
	} else {
		next.VerifiedAt = nil
		next.VerifiedBy = nil
	}
	if notes != nil {
		next.Notes = notes
	}

	entry := Log{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Action:      ActionFor(to),
		OldStatus:   current.Status,
		NewStatus:   to,
		Notes:       notes,
		PerformedBy: actor.ID,
		CreatedAt:   now,
	}
	if err := s.repo.ApplyTransition(ctx, next, current.Status, entry); err != nil {
		return false, err
	}

	s.log.Info("verification status changed",
		"profile_id", profileID,
		"action", entry.Action,
		"from", current.Status,
		"to", to,
		"admin_id", actor.ID,
	)

	s.notifyOnce(ctx, profileID, entry)
	return true, nil
}

// notifyOnce drops repeats of the same (profile, status) inside the cooldown. A cooldown
// store failure lets the notification through.
func (s *Service) notifyOnce(ctx context.Context, profileID uuid.UUID, entry Log) {
	key := fmt.Sprintf("verification:%s:%s", profileID, entry.NewStatus)

	first, err := s.cooldown.Acquire(ctx, key, s.cooldownTTL)
	if err != nil {
		s.log.Warn("notification cooldown unavailable", "key", key, "error", err)
		first = true
	}
	if !first {
		s.log.Debug("verification notification suppressed", "profile_id", profileID, "status", entry.NewStatus)
		return
	}

	payload := map[string]any{
		"action":     entry.Action,
		"old_status": string(entry.OldStatus),
		"new_status": string(entry.NewStatus),
	}
	if entry.Notes != nil {
		payload["notes"] = *entry.Notes
	}

	s.notifier.Notify(notify.Event{
		RecipientID: profileID,
		Type:        notify.EventVerificationChanged,
		Payload:     payload,
	})
}
