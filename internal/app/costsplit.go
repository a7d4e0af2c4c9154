/**
 * @description
 * The campout cost-split engine. Everything in this file is pure: it takes a campout with its
 * roster, the campout's transactions and adult expenses, and derives who owes what. The
 * operations in campouts.go and payout.go load the data and act on these results.
 *
 * @notes
 * - Only APPROVED transactions count. Refunds are recognised by the IsRefund flag and
 *   organizer cash-collection credits by HoldingParty, never by description text.
 * - Per-person cost is rounded to cents at the division, so the sum of shares may differ
 *   from the total cost by at most one cent per participant.
 */

package app

import (
	"sort"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

// calculateCampoutFinancials builds the cost-split read model of a campout.
func calculateCampoutFinancials(campout *domain.Campout, txs []domain.Transaction, expenses []domain.AdultExpense, names map[uuid.UUID]string) *domain.CampoutFinancials {
	f := &domain.CampoutFinancials{
		Campout:          campout,
		Participants:     []domain.ParticipantStatus{},
		Organizers:       []domain.OrganizerBalance{},
		OrphanedPayments: []domain.OrphanedPayment{},
		Expenses:         expenses,
		Transactions:     txs,
	}
	if f.Expenses == nil {
		f.Expenses = []domain.AdultExpense{}
	}
	if f.Transactions == nil {
		f.Transactions = []domain.Transaction{}
	}

	for i := range txs {
		t := &txs[i]
		if t.Status != domain.StatusApproved {
			continue
		}
		if t.Type == domain.TxExpense && !t.IsRefund {
			f.TroopExpenses = f.TroopExpenses.Add(t.Amount)
		}
		if t.IsCashCollectionCredit() {
			f.OrganizerHeld = f.OrganizerHeld.Add(t.Amount)
		}
		if t.ScoutID != nil || t.UserID != nil {
			f.TotalCollected = f.TotalCollected.Add(t.PaymentContribution())
		}
	}
	for _, e := range expenses {
		f.AdultExpenses = f.AdultExpenses.Add(e.Amount)
	}

	f.TotalCost = f.TroopExpenses.Add(f.AdultExpenses)
	attendees := campout.Attendees()
	f.ParticipantCount = len(campout.Scouts) + len(attendees)
	f.CostPerPerson = f.TotalCost.DivInt(int64(f.ParticipantCount))

	for _, s := range campout.Scouts {
		paid := netPaidByScout(txs, s.ScoutID)
		f.Participants = append(f.Participants, participantStatus(s.ScoutID, s.Name, domain.ParticipantScout, f.CostPerPerson, paid))
	}
	for _, a := range attendees {
		paid := netPaidByAdult(txs, a.AdultID)
		f.Participants = append(f.Participants, participantStatus(a.AdultID, a.Name, domain.ParticipantAdult, f.CostPerPerson, paid))
	}

	f.BankCollected = domain.MaxMoney(domain.Zero, f.TotalCollected.Sub(f.OrganizerHeld))
	f.TroopDeficit = troopDeficit(txs)
	f.Organizers = organizerBalances(campout, expenses)
	f.OrphanedPayments = findOrphanedPayments(campout, txs, names)
	return f
}

func participantStatus(id uuid.UUID, name string, kind domain.ParticipantKind, cost, paid domain.Money) domain.ParticipantStatus {
	return domain.ParticipantStatus{
		ID:           id,
		Name:         name,
		Kind:         kind,
		Cost:         cost,
		NetPaid:      paid,
		RemainingDue: domain.MaxMoney(domain.Zero, cost.Sub(paid)),
		Overpaid:     domain.MaxMoney(domain.Zero, paid.Sub(cost)),
		IsPaid:       paid.GreaterOrEqual(cost),
	}
}

func netPaidByScout(txs []domain.Transaction, scoutID uuid.UUID) domain.Money {
	total := domain.Zero
	for i := range txs {
		if txs[i].AttributableToScout(scoutID) {
			total = total.Add(txs[i].PaymentContribution())
		}
	}
	return total
}

func netPaidByAdult(txs []domain.Transaction, adultID uuid.UUID) domain.Money {
	total := domain.Zero
	for i := range txs {
		if txs[i].AttributableToAdult(adultID) {
			total = total.Add(txs[i].PaymentContribution())
		}
	}
	return total
}

// troopDeficit is what the troop bank has spent on the campout beyond what it has collected.
// A negative value means the bank is ahead.
func troopDeficit(txs []domain.Transaction) domain.Money {
	deficit := domain.Zero
	for i := range txs {
		t := &txs[i]
		if t.Status != domain.StatusApproved {
			continue
		}
		switch t.Type {
		case domain.TxExpense:
			deficit = deficit.Add(t.Amount)
		case domain.TxRegistrationIncome:
			deficit = deficit.Sub(t.Amount)
		}
	}
	return deficit
}

// splitCashPayment divides a cash payment collected by an organizer. While the troop bank is
// in deficit the payment is deposited first; whatever is left stays with the organizer.
func splitCashPayment(deficit, amount domain.Money) domain.CashSplit {
	if !deficit.IsPositive() {
		return domain.CashSplit{Deposit: domain.Zero, OrganizerHeld: amount}
	}
	deposit := domain.MinMoney(amount, deficit)
	return domain.CashSplit{Deposit: deposit, OrganizerHeld: amount.Sub(deposit)}
}

func organizerBalances(campout *domain.Campout, expenses []domain.AdultExpense) []domain.OrganizerBalance {
	names := make(map[uuid.UUID]string, len(campout.Adults))
	for _, a := range campout.Adults {
		names[a.AdultID] = a.Name
	}

	index := make(map[uuid.UUID]int)
	out := []domain.OrganizerBalance{}
	for _, e := range expenses {
		i, ok := index[e.AdultID]
		if !ok {
			i = len(out)
			index[e.AdultID] = i
			out = append(out, domain.OrganizerBalance{AdultID: e.AdultID, Name: names[e.AdultID]})
		}
		out[i].Spent = out[i].Spent.Add(e.Amount)
		if !e.IsReimbursed {
			out[i].Unreimbursed = out[i].Unreimbursed.Add(e.Amount)
		}
	}
	return out
}

// findOrphanedPayments reports people who still have a positive net payment on the campout
// but are no longer on its roster. Nothing is refunded automatically. Names come from the
// lookup because a removed person has no roster entry left.
func findOrphanedPayments(campout *domain.Campout, txs []domain.Transaction, names map[uuid.UUID]string) []domain.OrphanedPayment {
	type key struct {
		id   uuid.UUID
		kind domain.ParticipantKind
	}
	totals := make(map[key]domain.Money)
	var order []key
	add := func(k key, amount domain.Money) {
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] = totals[k].Add(amount)
	}

	for i := range txs {
		t := &txs[i]
		contribution := t.PaymentContribution()
		if contribution.IsZero() {
			continue
		}
		switch {
		case t.UserID != nil:
			add(key{*t.UserID, domain.ParticipantAdult}, contribution)
		case t.ScoutID != nil:
			add(key{*t.ScoutID, domain.ParticipantScout}, contribution)
		}
	}

	out := []domain.OrphanedPayment{}
	for _, k := range order {
		paid := totals[k]
		if !paid.IsPositive() {
			continue
		}
		onRoster := campout.IsParticipant(k.id)
		if k.kind == domain.ParticipantScout {
			onRoster = campout.HasScout(k.id)
		}
		if onRoster {
			continue
		}
		name := names[k.id]
		if name == "" {
			name = k.id.String()
		}
		out = append(out, domain.OrphanedPayment{ID: k.id, Name: name, Kind: k.kind, NetPaid: paid})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
