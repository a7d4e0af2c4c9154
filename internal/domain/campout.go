/**
 * @description
 * Campout models: the campout itself with its one-way lifecycle, its roster of scouts and adults,
 * adult out-of-pocket expenses, and the typed requests for every campout operation.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampoutStatus is a step in the one-directional campout lifecycle.
type CampoutStatus string

const (
	CampoutDraft           CampoutStatus = "DRAFT"
	CampoutOpen            CampoutStatus = "OPEN"
	CampoutReadyForPayment CampoutStatus = "READY_FOR_PAYMENT"
	CampoutClosed          CampoutStatus = "CLOSED"
)

// Campout is a troop event whose costs are split among attendees.
type Campout struct {
	ID            uuid.UUID      `json:"id"`
	TroopID       uuid.UUID      `json:"troop_id"`
	Name          string         `json:"name"`
	Location      string         `json:"location,omitempty"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	EstimatedCost Money          `json:"estimated_cost"`
	Status        CampoutStatus  `json:"status"`
	Scouts        []CampoutScout `json:"scouts"`
	Adults        []CampoutAdult `json:"adults"`
	CreatedAt     time.Time      `json:"created_at"`
}

// IsClosed reports whether the campout refuses new money movement.
func (c *Campout) IsClosed() bool { return c.Status == CampoutClosed }

// HasScout reports whether the scout is on the roster.
func (c *Campout) HasScout(scoutID uuid.UUID) bool {
	for _, s := range c.Scouts {
		if s.ScoutID == scoutID {
			return true
		}
	}
	return false
}

// HasAdult reports whether the adult holds the given role on the roster.
func (c *Campout) HasAdult(adultID uuid.UUID, role AdultRole) bool {
	for _, a := range c.Adults {
		if a.AdultID == adultID && a.Role == role {
			return true
		}
	}
	return false
}

// IsParticipant reports whether the adult holds any role on the roster.
func (c *Campout) IsParticipant(adultID uuid.UUID) bool {
	for _, a := range c.Adults {
		if a.AdultID == adultID {
			return true
		}
	}
	return false
}

// Attendees returns the distinct adults who hold the ATTENDEE role.
func (c *Campout) Attendees() []CampoutAdult {
	seen := make(map[uuid.UUID]bool)
	out := make([]CampoutAdult, 0, len(c.Adults))
	for _, a := range c.Adults {
		if a.Role != RoleAttendee || seen[a.AdultID] {
			continue
		}
		seen[a.AdultID] = true
		out = append(out, a)
	}
	return out
}

// CampoutScout is a scout registered for a campout.
type CampoutScout struct {
	ScoutID uuid.UUID `json:"scout_id"`
	Name    string    `json:"name"`
}

// AdultRole is how an adult takes part in a campout. An adult can hold both roles.
type AdultRole string

const (
	RoleOrganizer AdultRole = "ORGANIZER"
	RoleAttendee  AdultRole = "ATTENDEE"
)

func (r AdultRole) Valid() bool { return r == RoleOrganizer || r == RoleAttendee }

// CampoutAdult is one (adult, role) row on a campout roster.
type CampoutAdult struct {
	AdultID uuid.UUID `json:"adult_id"`
	Name    string    `json:"name"`
	Role    AdultRole `json:"role"`
}

// AdultExpense is money an adult spent out of pocket for a campout.
type AdultExpense struct {
	ID           uuid.UUID `json:"id"`
	CampoutID    uuid.UUID `json:"campout_id"`
	AdultID      uuid.UUID `json:"adult_id"`
	Amount       Money     `json:"amount"`
	Description  string    `json:"description"`
	IsReimbursed bool      `json:"is_reimbursed"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateCampoutRequest is the input for a new DRAFT campout.
type CreateCampoutRequest struct {
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	EstimatedCost Money      `json:"estimated_cost"`
}

func (r CreateCampoutRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if r.EstimatedCost.IsNegative() {
		return NewValidationError("estimated_cost", "cannot be negative")
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}

// CampoutExpenseRequest logs a campout cost. A nil PaidByAdultID means the troop paid.
type CampoutExpenseRequest struct {
	Amount        Money      `json:"amount"`
	Description   string     `json:"description"`
	PaidByAdultID *uuid.UUID `json:"paid_by_adult_id,omitempty"`
}

func (r CampoutExpenseRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	return nil
}

// UpdateAdultExpenseRequest corrects an unreimbursed adult expense.
type UpdateAdultExpenseRequest struct {
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
}

func (r UpdateAdultExpenseRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	return nil
}

// PaymentSource is where a recorded campout payment came from.
type PaymentSource string

const (
	SourceCash          PaymentSource = "CASH"
	SourceCashDeposit   PaymentSource = "CASH_DEPOSIT"
	SourceCashReimburse PaymentSource = "CASH_REIMBURSE"
	SourceBank          PaymentSource = "BANK"
	SourceBankDirect    PaymentSource = "BANK_DIRECT"
	SourceTroop         PaymentSource = "TROOP"
)

func (s PaymentSource) Valid() bool {
	switch s {
	case SourceCash, SourceCashDeposit, SourceCashReimburse, SourceBank, SourceBankDirect, SourceTroop:
		return true
	}
	return false
}

// CampoutPaymentRequest records money received for exactly one participant.
type CampoutPaymentRequest struct {
	ScoutID *uuid.UUID    `json:"scout_id,omitempty"`
	AdultID *uuid.UUID    `json:"adult_id,omitempty"`
	Amount  Money         `json:"amount"`
	Source  PaymentSource `json:"source"`
}

func (r CampoutPaymentRequest) Validate() error {
	if (r.ScoutID == nil) == (r.AdultID == nil) {
		return NewValidationError("scout_id", "exactly one of scout_id or adult_id is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if r.Source == "" {
		return nil
	}
	if !r.Source.Valid() {
		return NewValidationError("source", "unknown payment source %q", r.Source)
	}
	return nil
}

// IBATransferRequest moves money from a scout's IBA into a campout, optionally paying an adult's share.
type IBATransferRequest struct {
	ScoutID            uuid.UUID  `json:"scout_id"`
	Amount             Money      `json:"amount"`
	BeneficiaryAdultID *uuid.UUID `json:"beneficiary_adult_id,omitempty"`
}

func (r IBATransferRequest) Validate() error {
	if r.ScoutID == uuid.Nil {
		return NewValidationError("scout_id", "is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	return nil
}

// RefundMethod is how an overpayment or orphaned payment is returned.
type RefundMethod string

const (
	RefundCash      RefundMethod = "CASH"
	RefundIBACredit RefundMethod = "IBA_CREDIT"
)

// RefundRequest returns money to one participant. For an adult refunded by IBA credit,
// TargetScoutID names the linked scout that receives the credit.
type RefundRequest struct {
	ScoutID       *uuid.UUID   `json:"scout_id,omitempty"`
	AdultID       *uuid.UUID   `json:"adult_id,omitempty"`
	Amount        Money        `json:"amount"`
	Method        RefundMethod `json:"method"`
	TargetScoutID *uuid.UUID   `json:"target_scout_id,omitempty"`
}

func (r RefundRequest) Validate() error {
	if (r.ScoutID == nil) == (r.AdultID == nil) {
		return NewValidationError("scout_id", "exactly one of scout_id or adult_id is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	switch r.Method {
	case RefundCash:
	case RefundIBACredit:
		if r.AdultID != nil && r.TargetScoutID == nil {
			return NewValidationError("target_scout_id", "is required to credit an adult's refund to an IBA")
		}
	default:
		return NewValidationError("method", "unknown refund method %q", r.Method)
	}
	return nil
}

// OrganizerPayout is one adult's entry in a payout map.
// FromCashHeld credits cash the organizer already collected instead of paying from the bank.
type OrganizerPayout struct {
	AdultID      uuid.UUID `json:"adult_id"`
	Amount       Money     `json:"amount"`
	FromCashHeld bool      `json:"from_cash_held"`
}

// PayoutOrganizersRequest carries the organizer payout map.
type PayoutOrganizersRequest struct {
	Payouts []OrganizerPayout `json:"payouts"`
}

func (r PayoutOrganizersRequest) Validate() error {
	seen := make(map[uuid.UUID]bool, len(r.Payouts))
	for _, p := range r.Payouts {
		if p.AdultID == uuid.Nil {
			return NewValidationError("payouts", "adult_id is required")
		}
		if p.Amount.IsNegative() {
			return NewValidationError("payouts", "amount for %s cannot be negative", p.AdultID)
		}
		if seen[p.AdultID] {
			return NewValidationError("payouts", "adult %s listed more than once", p.AdultID)
		}
		seen[p.AdultID] = true
	}
	return nil
}

// PayoutItem is one completed step of a payout batch.
type PayoutItem struct {
	ParticipantID   uuid.UUID `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	FundedByScoutID uuid.UUID `json:"funded_by_scout_id,omitempty"`
	Amount          Money     `json:"amount"`
	TransactionID   uuid.UUID `json:"transaction_id"`
}

// Summary renders the item for a human-readable result list.
func (p PayoutItem) Summary() string {
	return p.ParticipantName + ": $" + p.Amount.String()
}

// PayoutResult lists what a batch completed, whether or not it finished.
type PayoutResult struct {
	Items []PayoutItem `json:"items"`
	Total Money        `json:"total"`
}

// Details renders one line per completed item.
func (r *PayoutResult) Details() []string {
	out := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.Summary())
	}
	return out
}

// RosterChange is returned by roster removals so orphaned payments surface immediately.
type RosterChange struct {
	OrphanedPayments []OrphanedPayment `json:"orphaned_payments"`
}

// PayoutRequest is an organizer asking leadership to be reimbursed.
type PayoutRequest struct {
	Amount Money `json:"amount"`
}

func (r PayoutRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	return nil
}

// CampoutExpenseResult is what logging a campout expense produced: a troop EXPENSE when the
// troop paid, or an AdultExpense awaiting reimbursement when an adult paid.
type CampoutExpenseResult struct {
	Transaction  *Transaction  `json:"transaction,omitempty"`
	AdultExpense *AdultExpense `json:"adult_expense,omitempty"`
}

// CloseCampoutRequest optionally settles organizers as part of closing.
type CloseCampoutRequest struct {
	Payouts []OrganizerPayout `json:"payouts,omitempty"`
}
