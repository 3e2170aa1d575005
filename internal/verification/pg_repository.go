package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-scheduling/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetState(ctx context.Context, profileID uuid.UUID) (*State, error) {
	var s State
	err := r.pool.QueryRow(ctx, `
		SELECT id, verification_status, is_verified, verified_at, verified_by, verification_notes
		FROM professional_profiles
		WHERE id = $1
	`, profileID).Scan(&s.ProfileID, &s.Status, &s.IsVerified, &s.VerifiedAt, &s.VerifiedBy, &s.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load verification state: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) ListDocuments(ctx context.Context, profileID uuid.UUID) ([]Document, error) {
	return listDocuments(ctx, r.pool, profileID, "")
}

// listDocuments reads a profile's documents; suffix is appended to the query (e.g. FOR SHARE).
func listDocuments(ctx context.Context, q db.DBTX, profileID uuid.UUID, suffix string) ([]Document, error) {
	rows, err := q.Query(ctx, `
		SELECT id, profile_id, document_type, is_verified
		FROM professional_documents
		WHERE profile_id = $1
	`+suffix, profileID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.ProfileID, &d.Type, &d.IsVerified); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *PgRepository) ApplyTransition(ctx context.Context, next State, from Status, entry Log) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if next.Status == StatusVerified {
			// the rows stay locked until commit, so a document cannot lose its
			// verification between this check and the status write
			docs, err := listDocuments(ctx, tx, next.ProfileID, " FOR SHARE")
			if err != nil {
				return err
			}
			if elig := Evaluate(docs); !elig.CanVerify {
				return &MissingDocumentsError{Missing: elig.MissingDocuments}
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE professional_profiles
			SET verification_status = $2,
			    is_verified = $3,
			    verified_at = $4,
			    verified_by = $5,
			    verification_notes = $6,
			    updated_at = now()
			WHERE id = $1
			  AND verification_status = $7
		`, next.ProfileID, next.Status, next.IsVerified, next.VerifiedAt, next.VerifiedBy, next.Notes, from)
		if err != nil {
			return fmt.Errorf("update verification status: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrStatusChanged
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO verification_logs (id, profile_id, action, old_status, new_status, notes, performed_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, entry.ProfileID, entry.Action, entry.OldStatus, entry.NewStatus, entry.Notes, entry.PerformedBy, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert verification log: %w", err)
		}
		return nil
	})
}
