package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/logger"
)

var ErrInvalidAmount = errors.New("credit amount must be positive")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CheckCredits is a pure read. A professional without a ledger is reported as suspended.
func (s *Service) CheckCredits(ctx context.Context, professionalID uuid.UUID) (Balance, error) {
	l, err := s.repo.GetLedger(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrLedgerNotFound) {
			return BalanceOf(nil), nil
		}
		return Balance{}, fmt.Errorf("load ledger: %w", err)
	}
	return BalanceOf(l), nil
}

// ConsumeCredit spends one credit outside any booking. Create uses the repository directly
// inside its own transaction.
func (s *Service) ConsumeCredit(ctx context.Context, professionalID uuid.UUID) (bool, error) {
	ok, err := s.repo.ConsumeOne(ctx, professionalID, "manual consumption")
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Info("credit consumption refused", "professional_id", professionalID)
	}
	return ok, nil
}

func (s *Service) AddCredits(ctx context.Context, professionalID uuid.UUID, amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	l, err := s.repo.Grant(ctx, professionalID, amount, fmt.Sprintf("grant of %d credits", amount))
	if err != nil {
		return false, err
	}

	s.log.Info("credits granted",
		"professional_id", professionalID,
		"amount", amount,
		"total", l.TotalCredits,
		"remaining", l.Remaining(),
	)
	return true, nil
}

func (s *Service) ListCreditTransactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	txs, err := s.repo.ListTransactions(ctx, professionalID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	return txs, nil
}
