package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind names the event a notification announces. It is also the routing key suffix.
type NotificationKind string

const (
	NotifyCampoutPublished      NotificationKind = "campout.published"
	NotifyCampoutPaymentsOpen   NotificationKind = "campout.payments_open"
	NotifyCampoutClosed         NotificationKind = "campout.closed"
	NotifyPayoutRequested       NotificationKind = "campout.payout_requested"
	NotifyAdultExpenseApproved  NotificationKind = "campout.expense_approved"
	NotifyCampaignPublished     NotificationKind = "fundraising.published"
	NotifyDistributionCommitted NotificationKind = "fundraising.distribution_committed"
	NotifyTransactionPending    NotificationKind = "ledger.transaction_pending"
	NotifyBalanceDriftDetected  NotificationKind = "ledger.balance_drift"
)

// Audience is who a notification is addressed to.
type Audience string

const (
	AudienceTroop      Audience = "TROOP"
	AudienceLeadership Audience = "LEADERSHIP"
	AudienceUser       Audience = "USER"
)

// Notification is a fire-and-forget message about something that happened in a troop.
type Notification struct {
	ID         uuid.UUID        `json:"id"`
	Kind       NotificationKind `json:"kind"`
	TroopID    uuid.UUID        `json:"troop_id"`
	Audience   Audience         `json:"audience"`
	UserID     *uuid.UUID       `json:"user_id,omitempty"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Link       string           `json:"link,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
