package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/vet-scheduling/internal/db"
)

type PgRepository struct {
	db db.DBTX
}

// NewPgRepository works on the pool or inside a booking transaction.
func NewPgRepository(q db.DBTX) *PgRepository {
	return &PgRepository{db: q}
}

func scanLedger(row pgx.Row) (*Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ProfessionalID, &l.TotalCredits, &l.UsedCredits, &l.LastCreditUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *PgRepository) GetLedger(ctx context.Context, professionalID uuid.UUID) (*Ledger, error) {
	row := r.db.QueryRow(ctx, `
		SELECT professional_id, total_credits, used_credits, last_credit_update
		FROM professional_credits
		WHERE professional_id = $1
	`, professionalID)
	return scanLedger(row)
}

func (r *PgRepository) ConsumeOne(ctx context.Context, professionalID uuid.UUID, description string) (bool, error) {
	// The WHERE clause is re-checked after a concurrent writer commits, so the last credit
	// goes to exactly one caller.
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		WITH consumed AS (
			UPDATE professional_credits
			SET used_credits = used_credits + 1,
			    last_credit_update = now()
			WHERE professional_id = $1
			  AND used_credits < total_credits
			RETURNING professional_id
		)
		INSERT INTO credit_transactions (id, professional_id, amount, type, description, created_at)
		SELECT $2, professional_id, -1, 'consumption', $3, now()
		FROM consumed
		RETURNING id
	`, professionalID, uuid.New(), description).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("consume credit: %w", err)
	}
	return true, nil
}

func (r *PgRepository) Grant(ctx context.Context, professionalID uuid.UUID, amount int, description string) (*Ledger, error) {
	row := r.db.QueryRow(ctx, `
		WITH granted AS (
			INSERT INTO professional_credits (professional_id, total_credits, used_credits, last_credit_update)
			VALUES ($1, $2, 0, now())
			ON CONFLICT (professional_id) DO UPDATE
			SET total_credits = professional_credits.total_credits + EXCLUDED.total_credits,
			    last_credit_update = now()
			RETURNING professional_id, total_credits, used_credits, last_credit_update
		), logged AS (
			INSERT INTO credit_transactions (id, professional_id, amount, type, description, created_at)
			SELECT $3, professional_id, $2, 'grant', $4, now()
			FROM granted
		)
		SELECT professional_id, total_credits, used_credits, last_credit_update FROM granted
	`, professionalID, amount, uuid.New(), description)

	l, err := scanLedger(row)
	if err != nil {
		return nil, fmt.Errorf("grant credits: %w", err)
	}
	return l, nil
}

func (r *PgRepository) ListTransactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, professional_id, amount, type, description, created_at
		FROM credit_transactions
		WHERE professional_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`, professionalID, limit)
	if err != nil {
		return nil, fmt.Errorf("query credit transactions: %w", err)
	}
	defer rows.Close()

	result := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ProfessionalID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
