package domain

import (
	"time"

	"github.com/google/uuid"
)

// Troop is the tenant every money-bearing row is scoped to.
type Troop struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// MemberRole is a user's role inside one troop.
type MemberRole string

const (
	RoleAdmin     MemberRole = "ADMIN"
	RoleFinancier MemberRole = "FINANCIER"
	RoleLeader    MemberRole = "LEADER"
	RoleParent    MemberRole = "PARENT"
	RoleScout     MemberRole = "SCOUT"
)

// Privileged reports whether the role may move troop money without approval.
func (r MemberRole) Privileged() bool {
	switch r {
	case RoleAdmin, RoleFinancier, RoleLeader:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	return r.Privileged() || r == RoleParent || r == RoleScout
}

// TroopMember links a user to a troop with a role.
type TroopMember struct {
	TroopID uuid.UUID  `json:"troop_id"`
	UserID  uuid.UUID  `json:"user_id"`
	Name    string     `json:"name"`
	Email   string     `json:"email,omitempty"`
	Role    MemberRole `json:"role"`
}

// ScoutStatus marks whether a scout is still active in the troop.
type ScoutStatus string

const (
	ScoutActive   ScoutStatus = "ACTIVE"
	ScoutInactive ScoutStatus = "INACTIVE"
)

// Scout is a youth member with an individual benefit account (IBA).
// IBABalance is a cache of the APPROVED balance-affecting transactions referencing the scout.
type Scout struct {
	ID         uuid.UUID   `json:"id"`
	TroopID    uuid.UUID   `json:"troop_id"`
	Name       string      `json:"name"`
	IBABalance Money       `json:"iba_balance"`
	Status     ScoutStatus `json:"status"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ParentScout links an adult to a scout whose IBA may fund the adult's campout share.
type ParentScout struct {
	ParentID uuid.UUID `json:"parent_id"`
	ScoutID  uuid.UUID `json:"scout_id"`
}

// ScoutLedger is a scout's current balance plus the transactions that reference it.
type ScoutLedger struct {
	Scout        *Scout        `json:"scout"`
	Transactions []Transaction `json:"transactions"`
}

// TroopFinanceSummary is the troop-level view of where money sits.
type TroopFinanceSummary struct {
	TroopIncome     Money `json:"troop_income"`
	TroopExpenses   Money `json:"troop_expenses"`
	TroopFunds      Money `json:"troop_funds"`
	OrganizerCash   Money `json:"organizer_cash"`
	IBAReserve      Money `json:"iba_reserve"`
	IBADepositTotal Money `json:"iba_deposit_total"`
}

// BalanceDrift records a scout whose cached balance disagrees with its history.
type BalanceDrift struct {
	ScoutID  uuid.UUID `json:"scout_id"`
	Name     string    `json:"name"`
	Cached   Money     `json:"cached"`
	Computed Money     `json:"computed"`
	Repaired bool      `json:"repaired"`
}

// Difference is computed minus cached.
func (d BalanceDrift) Difference() Money { return d.Computed.Sub(d.Cached) }

// ReconcileReport is the outcome of recomputing every scout balance in a troop.
type ReconcileReport struct {
	TroopID       uuid.UUID      `json:"troop_id"`
	ScoutsChecked int            `json:"scouts_checked"`
	Drifts        []BalanceDrift `json:"drifts"`
}
