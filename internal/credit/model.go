package credit

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusDepleted  Status = "depleted"
	StatusSuspended Status = "suspended"
)

type TransactionType string

const (
	TypeConsumption TransactionType = "consumption"
	TypeGrant       TransactionType = "grant"
)

// Ledger is one professional's booking capacity. UsedCredits never exceeds TotalCredits.
type Ledger struct {
	ProfessionalID   uuid.UUID `json:"professional_id"`
	TotalCredits     int       `json:"total_credits"`
	UsedCredits      int       `json:"used_credits"`
	LastCreditUpdate time.Time `json:"last_credit_update"`
}

func (l Ledger) Remaining() int {
	if r := l.TotalCredits - l.UsedCredits; r > 0 {
		return r
	}
	return 0
}

// Status is derived on every read, never stored.
func (l Ledger) Status() Status {
	if l.Remaining() > 0 {
		return StatusActive
	}
	return StatusDepleted
}

type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	ProfessionalID uuid.UUID       `json:"professional_id"`
	Amount         int             `json:"amount"`
	Type           TransactionType `json:"type"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Balance struct {
	HasCredits bool   `json:"has_credits"`
	Remaining  int    `json:"remaining"`
	Status     Status `json:"status"`
}

// BalanceOf reports a missing ledger as suspended with nothing to spend.
func BalanceOf(l *Ledger) Balance {
	if l == nil {
		return Balance{Status: StatusSuspended}
	}
	return Balance{
		HasCredits: l.Remaining() > 0,
		Remaining:  l.Remaining(),
		Status:     l.Status(),
	}
}
