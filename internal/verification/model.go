package verification

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNotVerified Status = "not_verified"
	StatusUnderReview Status = "under_review"
	StatusVerified    Status = "verified"
	StatusRejected    Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotVerified, StatusUnderReview, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// ActionFor labels the log row of a transition into s.
func ActionFor(s Status) string {
	switch s {
	case StatusVerified:
		return "verify"
	case StatusRejected:
		return "reject"
	case StatusNotVerified:
		return "reset"
	case StatusUnderReview:
		return "review"
	}
	return "change"
}

type DocumentType string

const (
	DocumentRG       DocumentType = "rg"
	DocumentCNH      DocumentType = "cnh"
	DocumentCRMV     DocumentType = "crmv"
	DocumentCNPJCard DocumentType = "cnpj_card"
)

type Document struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	Type       DocumentType
	IsVerified bool
}

// State is the verification part of a professional profile. IsVerified mirrors
// Status == StatusVerified and is only written together with it.
type State struct {
	ProfileID  uuid.UUID  `json:"profile_id"`
	Status     Status     `json:"verification_status"`
	IsVerified bool       `json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
	Notes      *string    `json:"verification_notes,omitempty"`
}

type Log struct {
	ID          uuid.UUID
	ProfileID   uuid.UUID
	Action      string
	OldStatus   Status
	NewStatus   Status
	Notes       *string
	PerformedBy uuid.UUID
	CreatedAt   time.Time
}

const (
	LabelCRMV     = "CRMV"
	LabelIdentity = "RG ou CNH"
)

type Eligibility struct {
	CanVerify        bool     `json:"can_verify"`
	MissingDocuments []string `json:"missing_documents"`
}

// Evaluate needs a verified CRMV and a verified RG or CNH.
func Evaluate(docs []Document) Eligibility {
	var crmv, identity bool
	for _, d := range docs {
		if !d.IsVerified {
			continue
		}
		switch d.Type {
		case DocumentCRMV:
			crmv = true
		case DocumentRG, DocumentCNH:
			identity = true
		case DocumentCNPJCard:
		}
	}

	missing := make([]string, 0, 2)
	if !crmv {
		missing = append(missing, LabelCRMV)
	}
	if !identity {
		missing = append(missing, LabelIdentity)
	}

	return Eligibility{CanVerify: len(missing) == 0, MissingDocuments: missing}
}

var ErrMissingDocuments = errors.New("missing documents")

// MissingDocumentsError lists what blocks a verification.
type MissingDocumentsError struct {
	Missing []string
}

func (e *MissingDocumentsError) Error() string {
	return "missing documents: " + strings.Join(e.Missing, ", ")
}

func (e *MissingDocumentsError) Is(target error) bool {
	return target == ErrMissingDocuments
}
