package credit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrLedgerNotFound = errors.New("credit ledger not found")

type Repository interface {
	GetLedger(ctx context.Context, professionalID uuid.UUID) (*Ledger, error)

	// ConsumeOne spends one credit and appends its transaction in a single statement.
	// It reports false, without writing anything, when nothing is left.
	ConsumeOne(ctx context.Context, professionalID uuid.UUID, description string) (bool, error)

	// Grant adds amount to the total (creating the ledger if needed) and appends its transaction.
	Grant(ctx context.Context, professionalID uuid.UUID, amount int, description string) (*Ledger, error)

	ListTransactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]Transaction, error)
}
