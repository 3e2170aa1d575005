package verification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrStatusChanged   = errors.New("verification status changed concurrently")
)

type Repository interface {
	GetState(ctx context.Context, profileID uuid.UUID) (*State, error)
	ListDocuments(ctx context.Context, profileID uuid.UUID) ([]Document, error)

	// ApplyTransition writes next and appends entry atomically, provided the profile is still
	// in from. Otherwise it returns ErrStatusChanged and writes nothing. A transition to verified
	// re-evaluates the documents inside the same transaction and fails with
	// *MissingDocumentsError when they no longer qualify.
	ApplyTransition(ctx context.Context, next State, from Status, entry Log) error
}
