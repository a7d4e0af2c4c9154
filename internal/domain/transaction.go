/**
 * @description
 * This file defines the ledger's central record, the Transaction, together with the rules that
 * classify each transaction type by its effect on a scout's IBA balance and on a campout
 * participant's paid total.
 *
 * @notes
 * - Amounts are always positive; direction is implied by Type.
 * - IsRefund and HoldingParty are set when a row is created and are never inferred from text.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies money movement.
type TransactionType string

const (
	TxExpense            TransactionType = "EXPENSE"
	TxIBADeposit         TransactionType = "IBA_DEPOSIT"
	TxCampTransfer       TransactionType = "CAMP_TRANSFER"
	TxRegistrationIncome TransactionType = "REGISTRATION_INCOME"
	TxEventPayment       TransactionType = "EVENT_PAYMENT"
	TxReimbursement      TransactionType = "REIMBURSEMENT"
	TxDonationIn         TransactionType = "DONATION_IN"
	TxFundraisingIncome  TransactionType = "FUNDRAISING_INCOME"
	TxDues               TransactionType = "DUES"
	TxTroopPayment       TransactionType = "TROOP_PAYMENT"
)

var knownTransactionTypes = map[TransactionType]bool{
	TxExpense:            true,
	TxIBADeposit:         true,
	TxCampTransfer:       true,
	TxRegistrationIncome: true,
	TxEventPayment:       true,
	TxReimbursement:      true,
	TxDonationIn:         true,
	TxFundraisingIncome:  true,
	TxDues:               true,
	TxTroopPayment:       true,
}

// Valid reports whether t is a known type. Any TROOP_* type is accepted.
func (t TransactionType) Valid() bool {
	return knownTransactionTypes[t] || t.IsTroopType()
}

// IsTroopType reports whether the type carries the TROOP prefix (subsidies, incentives).
func (t TransactionType) IsTroopType() bool {
	return strings.HasPrefix(string(t), "TROOP")
}

// IsIncomingPayment reports whether the type counts toward a participant's paid total.
func (t TransactionType) IsIncomingPayment() bool {
	switch t {
	case TxCampTransfer, TxRegistrationIncome, TxEventPayment:
		return true
	}
	return t.IsTroopType()
}

// TransactionStatus is the approval state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusRejected TransactionStatus = "REJECTED"
)

// HoldingParty records who physically holds the money a transaction represents.
type HoldingParty string

const (
	HoldingNone      HoldingParty = "NONE"
	HoldingTroopBank HoldingParty = "TROOP_BANK"
	HoldingOrganizer HoldingParty = "ORGANIZER"
)

// TransactionOrigin records which operation created a transaction.
type TransactionOrigin string

const (
	OriginManual          TransactionOrigin = "MANUAL"
	OriginBatchPayout     TransactionOrigin = "BATCH_PAYOUT"
	OriginOrganizerPayout TransactionOrigin = "ORGANIZER_PAYOUT"
	OriginDistribution    TransactionOrigin = "DISTRIBUTION"
	OriginRefund          TransactionOrigin = "REFUND"
)

// Transaction is the ledger record for any money movement in a troop.
// This struct maps directly to the `transactions` table.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	TroopID               uuid.UUID         `json:"troop_id"`
	Amount                Money             `json:"amount"`
	Type                  TransactionType   `json:"type"`
	Description           string            `json:"description"`
	Status                TransactionStatus `json:"status"`
	ScoutID               *uuid.UUID        `json:"scout_id,omitempty"`
	UserID                *uuid.UUID        `json:"user_id,omitempty"`
	CampoutID             *uuid.UUID        `json:"campout_id,omitempty"`
	BudgetCategoryID      *uuid.UUID        `json:"budget_category_id,omitempty"`
	FundraisingCampaignID *uuid.UUID        `json:"fundraising_campaign_id,omitempty"`
	ApprovedBy            *uuid.UUID        `json:"approved_by,omitempty"`
	IsRefund              bool              `json:"is_refund"`
	HoldingParty          HoldingParty      `json:"holding_party"`
	PaidFromIBA           bool              `json:"paid_from_iba"`
	Origin                TransactionOrigin `json:"origin"`
	CreatedAt             time.Time         `json:"created_at"`
}

// BalanceEffect returns the signed change this transaction makes to its scout's IBA balance.
// Only APPROVED transactions that reference a scout move a balance.
func (t *Transaction) BalanceEffect() Money {
	if t.ScoutID == nil || t.Status != StatusApproved {
		return Zero
	}
	switch t.Type {
	case TxIBADeposit, TxFundraisingIncome:
		return t.Amount
	case TxCampTransfer:
		return t.Amount.Neg()
	case TxDues:
		if t.PaidFromIBA {
			return t.Amount.Neg()
		}
	}
	return Zero
}

// PaymentContribution returns the signed amount this transaction adds to a campout
// participant's net paid total: incoming payments count positive, refunds negative.
func (t *Transaction) PaymentContribution() Money {
	if t.Status != StatusApproved {
		return Zero
	}
	if t.IsRefund {
		if t.Type == TxExpense || t.Type == TxIBADeposit {
			return t.Amount.Neg()
		}
		return Zero
	}
	if t.Type.IsIncomingPayment() {
		return t.Amount
	}
	return Zero
}

// AttributableToScout reports whether the transaction pays for the scout itself rather than
// for an adult funded from that scout's IBA.
func (t *Transaction) AttributableToScout(scoutID uuid.UUID) bool {
	return t.ScoutID != nil && *t.ScoutID == scoutID && t.UserID == nil
}

// AttributableToAdult reports whether the transaction is earmarked for the adult.
func (t *Transaction) AttributableToAdult(adultID uuid.UUID) bool {
	return t.UserID != nil && *t.UserID == adultID
}

// IsCashCollectionCredit reports whether a reimbursement only credits an organizer for cash
// they already hold, so no bank money moved.
func (t *Transaction) IsCashCollectionCredit() bool {
	return t.Type == TxReimbursement && t.HoldingParty == HoldingOrganizer
}

// RecordTransactionRequest is the typed input for a generic ledger entry.
type RecordTransactionRequest struct {
	TroopID               uuid.UUID       `json:"-"`
	ActorID               uuid.UUID       `json:"-"`
	ActorPrivileged       bool            `json:"-"`
	Type                  TransactionType `json:"type"`
	Amount                Money           `json:"amount"`
	Description           string          `json:"description"`
	ScoutID               *uuid.UUID      `json:"scout_id,omitempty"`
	UserID                *uuid.UUID      `json:"user_id,omitempty"`
	CampoutID             *uuid.UUID      `json:"campout_id,omitempty"`
	BudgetCategoryID      *uuid.UUID      `json:"budget_category_id,omitempty"`
	FundraisingCampaignID *uuid.UUID      `json:"fundraising_campaign_id,omitempty"`
	PaidFromIBA           bool            `json:"paid_from_iba"`
}

// Validate checks shape only; existence and troop scoping are checked by the service.
func (r RecordTransactionRequest) Validate() error {
	if !r.Type.Valid() {
		return NewValidationError("type", "unknown transaction type %q", r.Type)
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	if r.PaidFromIBA {
		if r.Type != TxDues {
			return NewValidationError("paid_from_iba", "only dues can be paid from an IBA")
		}
		if r.ScoutID == nil {
			return NewValidationError("scout_id", "is required when paying from an IBA")
		}
	}
	return nil
}

// UpdateTransactionRequest corrects the amount or description of an existing entry.
type UpdateTransactionRequest struct {
	Amount      *Money  `json:"amount,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r UpdateTransactionRequest) Validate() error {
	if r.Amount == nil && r.Description == nil {
		return NewValidationError("", "nothing to update")
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) == "" {
		return NewValidationError("description", "cannot be blank")
	}
	return nil
}

// IBADepositItem is one line of a bulk deposit.
type IBADepositItem struct {
	ScoutID     uuid.UUID `json:"scout_id"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
}

// BulkIBADepositRequest credits many scouts at once.
type BulkIBADepositRequest struct {
	Deposits []IBADepositItem `json:"deposits"`
}

func (r BulkIBADepositRequest) Validate() error {
	if len(r.Deposits) == 0 {
		return NewValidationError("deposits", "at least one deposit is required")
	}
	for i, d := range r.Deposits {
		if d.ScoutID == uuid.Nil {
			return NewValidationError("deposits", "item %d has no scout", i)
		}
		if !d.Amount.IsPositive() {
			return NewValidationError("deposits", "item %d amount must be greater than zero", i)
		}
	}
	return nil
}

// BulkIBADepositResult mirrors the batch result shape used for bulk transfers.
type BulkIBADepositResult struct {
	Successful []*Transaction    `json:"successful"`
	Skipped    []BulkItemFailure `json:"skipped"`
}

// BulkItemFailure captures a batch line that did not go through and why.
type BulkItemFailure struct {
	ScoutID uuid.UUID `json:"scout_id"`
	Amount  Money     `json:"amount"`
	Error   string    `json:"error"`
}
