package domain

import "github.com/google/uuid"

// ParticipantKind tells scouts and adults apart in campout reports.
type ParticipantKind string

const (
	ParticipantScout ParticipantKind = "SCOUT"
	ParticipantAdult ParticipantKind = "ADULT"
)

// ParticipantStatus is one attendee's cost and payment position.
// Exactly one of IsPaid-with-no-overpay, RemainingDue > 0 or Overpaid > 0 describes a participant.
type ParticipantStatus struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Kind         ParticipantKind `json:"kind"`
	Cost         Money           `json:"cost"`
	NetPaid      Money           `json:"net_paid"`
	RemainingDue Money           `json:"remaining_due"`
	Overpaid     Money           `json:"overpaid"`
	IsPaid       bool            `json:"is_paid"`
}

// OrphanedPayment is money still attributed to someone no longer on the roster.
type OrphanedPayment struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Kind    ParticipantKind `json:"kind"`
	NetPaid Money           `json:"net_paid"`
}

// OrganizerBalance is what the troop owes one adult for out-of-pocket spending.
type OrganizerBalance struct {
	AdultID      uuid.UUID `json:"adult_id"`
	Name         string    `json:"name"`
	Spent        Money     `json:"spent"`
	Unreimbursed Money     `json:"unreimbursed"`
}

// CashSplit is how a cash payment is divided between the troop bank and the collecting organizer.
type CashSplit struct {
	Deposit       Money `json:"deposit"`
	OrganizerHeld Money `json:"organizer_held"`
}

// CampoutFinancials is the cost-split read model of one campout.
type CampoutFinancials struct {
	Campout          *Campout            `json:"campout"`
	TroopExpenses    Money               `json:"troop_expenses"`
	AdultExpenses    Money               `json:"adult_expenses"`
	TotalCost        Money               `json:"total_cost"`
	ParticipantCount int                 `json:"participant_count"`
	CostPerPerson    Money               `json:"cost_per_person"`
	Participants     []ParticipantStatus `json:"participants"`
	TotalCollected   Money               `json:"total_collected"`
	OrganizerHeld    Money               `json:"organizer_held"`
	BankCollected    Money               `json:"bank_collected"`
	TroopDeficit     Money               `json:"troop_deficit"`
	Organizers       []OrganizerBalance  `json:"organizers"`
	OrphanedPayments []OrphanedPayment   `json:"orphaned_payments"`
	Expenses         []AdultExpense      `json:"expenses"`
	Transactions     []Transaction       `json:"transactions"`
}

// Participant finds a participant's status by id.
func (f *CampoutFinancials) Participant(id uuid.UUID) (ParticipantStatus, bool) {
	for _, p := range f.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantStatus{}, false
}
