package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

func m(raw string) domain.Money { return domain.MustParseMoney(raw) }

func approved(t domain.TransactionType, amount string) domain.Transaction {
	return domain.Transaction{ID: uuid.New(), Type: t, Amount: m(amount), Status: domain.StatusApproved}
}

func forScout(tx domain.Transaction, scoutID uuid.UUID) domain.Transaction {
	tx.ScoutID = uuidPtr(scoutID)
	return tx
}

func forAdult(tx domain.Transaction, adultID uuid.UUID) domain.Transaction {
	tx.UserID = uuidPtr(adultID)
	return tx
}

func TestSplitCashPayment(t *testing.T) {
	tests := []struct {
		name        string
		deficit     string
		amount      string
		wantDeposit string
		wantHeld    string
	}{
		{name: "deficit smaller than payment", deficit: "40", amount: "100", wantDeposit: "40", wantHeld: "60"},
		{name: "bank ahead keeps everything with organizer", deficit: "-10", amount: "50", wantDeposit: "0", wantHeld: "50"},
		{name: "zero deficit", deficit: "0", amount: "25", wantDeposit: "0", wantHeld: "25"},
		{name: "deficit larger than payment", deficit: "300", amount: "75.50", wantDeposit: "75.50", wantHeld: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCashPayment(m(tt.deficit), m(tt.amount))
			if !got.Deposit.Equal(m(tt.wantDeposit)) {
				t.Fatalf("expected deposit %s, got %s", tt.wantDeposit, got.Deposit)
			}
			if !got.OrganizerHeld.Equal(m(tt.wantHeld)) {
				t.Fatalf("expected organizer held %s, got %s", tt.wantHeld, got.OrganizerHeld)
			}
			if !got.Deposit.Add(got.OrganizerHeld).Equal(m(tt.amount)) {
				t.Fatalf("expected split to add up to %s", tt.amount)
			}
		})
	}
}

func TestCalculateCampoutFinancials(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	parent := uuid.New()
	organizer := uuid.New()
	campout := &domain.Campout{
		ID:     uuid.New(),
		Name:   "Fall Camp",
		Scouts: []domain.CampoutScout{{ScoutID: alice, Name: "Alice"}, {ScoutID: bob, Name: "Bob"}},
		Adults: []domain.CampoutAdult{
			{AdultID: parent, Name: "Pat", Role: domain.RoleAttendee},
			{AdultID: organizer, Name: "Olga", Role: domain.RoleOrganizer},
		},
	}

	refund := forScout(approved(domain.TxExpense, "10"), bob)
	refund.IsRefund = true
	pending := forScout(approved(domain.TxCampTransfer, "500"), alice)
	pending.Status = domain.StatusPending
	parentFromIBA := forAdult(forScout(approved(domain.TxCampTransfer, "30"), alice), parent)
	cashCredit := forAdult(approved(domain.TxReimbursement, "20"), organizer)
	cashCredit.HoldingParty = domain.HoldingOrganizer

	txs := []domain.Transaction{
		approved(domain.TxExpense, "200"),
		forScout(approved(domain.TxCampTransfer, "75"), alice),
		forScout(approved(domain.TxRegistrationIncome, "40"), bob),
		refund,
		pending,
		parentFromIBA,
		cashCredit,
	}
	expenses := []domain.AdultExpense{
		{ID: uuid.New(), AdultID: organizer, Amount: m("100"), IsReimbursed: false},
		{ID: uuid.New(), AdultID: organizer, Amount: m("25"), IsReimbursed: true},
	}

	f := calculateCampoutFinancials(campout, txs, expenses, nil)

	if !f.TotalCost.Equal(m("325")) {
		t.Fatalf("expected total cost 325, got %s", f.TotalCost)
	}
	if f.ParticipantCount != 3 {
		t.Fatalf("expected 3 participants (organizer excluded), got %d", f.ParticipantCount)
	}
	if !f.CostPerPerson.Equal(m("108.33")) {
		t.Fatalf("expected cost per person 108.33, got %s", f.CostPerPerson)
	}

	a, _ := f.Participant(alice)
	if !a.NetPaid.Equal(m("75")) || !a.RemainingDue.Equal(m("33.33")) {
		t.Fatalf("expected alice paid 75 due 33.33, got paid %s due %s", a.NetPaid, a.RemainingDue)
	}
	b, _ := f.Participant(bob)
	if !b.NetPaid.Equal(m("30")) {
		t.Fatalf("expected bob's refund to reduce net paid to 30, got %s", b.NetPaid)
	}
	p, _ := f.Participant(parent)
	if !p.NetPaid.Equal(m("30")) || p.Kind != domain.ParticipantAdult {
		t.Fatalf("expected parent funded 30 from a linked IBA, got %s", p.NetPaid)
	}

	if !f.OrganizerHeld.Equal(m("20")) {
		t.Fatalf("expected organizer held 20, got %s", f.OrganizerHeld)
	}
	if !f.TotalCollected.Equal(m("135")) {
		t.Fatalf("expected total collected 135, got %s", f.TotalCollected)
	}
	if !f.BankCollected.Equal(m("115")) {
		t.Fatalf("expected bank collected 115, got %s", f.BankCollected)
	}
	if !f.TroopDeficit.Equal(m("170")) {
		t.Fatalf("expected troop deficit 170, got %s", f.TroopDeficit)
	}
	if len(f.Organizers) != 1 || !f.Organizers[0].Unreimbursed.Equal(m("100")) || !f.Organizers[0].Spent.Equal(m("125")) {
		t.Fatalf("unexpected organizer balances: %+v", f.Organizers)
	}
}

func TestCalculateCampoutFinancials_PaidAndDueAreComplementary(t *testing.T) {
	scouts := []domain.CampoutScout{}
	var txs []domain.Transaction
	payments := []string{"0", "10", "33.33", "33.34", "50", "120"}
	for _, p := range payments {
		id := uuid.New()
		scouts = append(scouts, domain.CampoutScout{ScoutID: id, Name: p})
		if p != "0" {
			txs = append(txs, forScout(approved(domain.TxRegistrationIncome, p), id))
		}
	}
	txs = append(txs, approved(domain.TxExpense, "200"))
	campout := &domain.Campout{ID: uuid.New(), Scouts: scouts}

	f := calculateCampoutFinancials(campout, txs, nil, nil)
	for _, p := range f.Participants {
		if p.IsPaid == p.RemainingDue.IsPositive() {
			t.Fatalf("%s: isPaid=%v but remaining due %s", p.Name, p.IsPaid, p.RemainingDue)
		}
		if p.RemainingDue.IsPositive() && p.Overpaid.IsPositive() {
			t.Fatalf("%s: both due and overpaid", p.Name)
		}
	}

	share := f.CostPerPerson.MulInt(int64(f.ParticipantCount))
	diff := share.Sub(f.TotalCost)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	tolerance := m("0.01").MulInt(int64(f.ParticipantCount))
	if diff.GreaterThan(tolerance) {
		t.Fatalf("expected shares within %s of total, off by %s", tolerance, diff)
	}
}

func TestCalculateCampoutFinancials_EmptyRoster(t *testing.T) {
	campout := &domain.Campout{ID: uuid.New()}
	f := calculateCampoutFinancials(campout, []domain.Transaction{approved(domain.TxExpense, "90")}, nil, nil)
	if f.ParticipantCount != 0 || !f.CostPerPerson.IsZero() {
		t.Fatalf("expected zero cost per person for an empty roster, got %s", f.CostPerPerson)
	}
}

func TestFindOrphanedPayments(t *testing.T) {
	stays, left, refunded := uuid.New(), uuid.New(), uuid.New()
	adultLeft := uuid.New()
	campout := &domain.Campout{Scouts: []domain.CampoutScout{{ScoutID: stays, Name: "Stays"}}}

	refund := forScout(approved(domain.TxExpense, "20"), refunded)
	refund.IsRefund = true
	txs := []domain.Transaction{
		forScout(approved(domain.TxRegistrationIncome, "20"), stays),
		forScout(approved(domain.TxRegistrationIncome, "45"), left),
		forScout(approved(domain.TxRegistrationIncome, "20"), refunded),
		refund,
		forAdult(approved(domain.TxEventPayment, "15"), adultLeft),
	}
	names := map[uuid.UUID]string{left: "Lee", adultLeft: "Ada"}

	got := findOrphanedPayments(campout, txs, names)
	if len(got) != 2 {
		t.Fatalf("expected 2 orphaned payments, got %d: %+v", len(got), got)
	}
	if got[0].Name != "Ada" || got[0].Kind != domain.ParticipantAdult || !got[0].NetPaid.Equal(m("15")) {
		t.Fatalf("unexpected first orphan: %+v", got[0])
	}
	if got[1].Name != "Lee" || !got[1].NetPaid.Equal(m("45")) {
		t.Fatalf("unexpected second orphan: %+v", got[1])
	}
}
