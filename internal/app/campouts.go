/**
 * @description
 * Campout operations: the DRAFT → OPEN → READY_FOR_PAYMENT → CLOSED lifecycle, roster changes,
 * expense logging and reimbursement, participant payments and refunds, and the cost-split read
 * model. Transitions are guarded in the database so a concurrent double transition fails with
 * ErrInvalidState instead of applying twice.
 *
 * @dependencies
 * - golang.org/x/sync/errgroup: loads the read model's independent queries concurrently.
 * - github.com/sirupsen/logrus: structured logging.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
	"golang.org/x/sync/errgroup"
)

const troopSubsidyDescription = "Troop Subsidy / Incentive"

// Actor is the authenticated member performing an operation.
type Actor struct {
	UserID     uuid.UUID
	Privileged bool
}

// CreateCampout creates a DRAFT campout.
func (s *Service) CreateCampout(ctx context.Context, troopID uuid.UUID, req domain.CreateCampoutRequest) (*domain.Campout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &domain.Campout{
		TroopID:       troopID,
		Name:          req.Name,
		Location:      req.Location,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		EstimatedCost: req.EstimatedCost,
		Status:        domain.CampoutDraft,
		Scouts:        []domain.CampoutScout{},
		Adults:        []domain.CampoutAdult{},
	}
	if err := s.repo.CreateCampout(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create campout: %w", err)
	}
	return c, nil
}

func (s *Service) ListCampouts(ctx context.Context, troopID uuid.UUID) ([]domain.Campout, error) {
	return s.repo.ListCampouts(ctx, troopID)
}

// PublishCampout opens a DRAFT campout for sign-ups and tells the troop.
func (s *Service) PublishCampout(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error) {
	c, err := s.transitionCampout(ctx, troopID, campoutID, domain.CampoutDraft, domain.CampoutOpen)
	if err != nil {
		return nil, err
	}
	s.notify(domain.Notification{
		Kind:     domain.NotifyCampoutPublished,
		TroopID:  troopID,
		Audience: domain.AudienceTroop,
		Title:    "New campout: " + c.Name,
		Message:  fmt.Sprintf("%s is open for sign-ups.", c.Name),
		Link:     "/campouts/" + c.ID.String(),
	})
	return c, nil
}

// OpenCampoutPayments moves an OPEN campout to payment collection and tells the troop.
func (s *Service) OpenCampoutPayments(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error) {
	c, err := s.transitionCampout(ctx, troopID, campoutID, domain.CampoutOpen, domain.CampoutReadyForPayment)
	if err != nil {
		return nil, err
	}
	s.notify(domain.Notification{
		Kind:     domain.NotifyCampoutPaymentsOpen,
		TroopID:  troopID,
		Audience: domain.AudienceTroop,
		Title:    "Payments open: " + c.Name,
		Message:  fmt.Sprintf("Payments for %s are now being collected.", c.Name),
		Link:     "/campouts/" + c.ID.String(),
	})
	return c, nil
}

// CloseCampout settles any organizer payouts given, then closes the campout. A failed payout
// leaves the campout in READY_FOR_PAYMENT.
func (s *Service) CloseCampout(ctx context.Context, troopID, actorID, campoutID uuid.UUID, req domain.CloseCampoutRequest) (*domain.Campout, *domain.PayoutResult, error) {
	c, err := s.repo.FindCampoutByID(ctx, troopID, campoutID)
	if err != nil {
		return nil, nil, err
	}
	if c.Status != domain.CampoutReadyForPayment {
		return nil, nil, domain.InvalidStateError("campout must be READY_FOR_PAYMENT to close, it is %s", c.Status)
	}

	var payouts *domain.PayoutResult
	if len(req.Payouts) > 0 {
		payouts, err = s.PayoutOrganizers(ctx, troopID, actorID, campoutID, domain.PayoutOrganizersRequest{Payouts: req.Payouts})
		if err != nil {
			return nil, payouts, err
		}
	}

	if err := s.repo.TransitionCampoutStatus(ctx, troopID, campoutID, domain.CampoutReadyForPayment, domain.CampoutClosed); err != nil {
		return nil, payouts, err
	}
	c.Status = domain.CampoutClosed
	s.logger.WithFields(logrus.Fields{"campout_id": campoutID, "troop_id": troopID}).Info("campout closed")
	s.notify(domain.Notification{
		Kind:     domain.NotifyCampoutClosed,
		TroopID:  troopID,
		Audience: domain.AudienceTroop,
		Title:    "Campout closed: " + c.Name,
		Message:  fmt.Sprintf("%s has been closed and settled.", c.Name),
		Link:     "/campouts/" + c.ID.String(),
	})
	return c, payouts, nil
}

func (s *Service) transitionCampout(ctx context.Context, troopID, campoutID uuid.UUID, from, to domain.CampoutStatus) (*domain.Campout, error) {
	if err := s.repo.TransitionCampoutStatus(ctx, troopID, campoutID, from, to); err != nil {
		return nil, err
	}
	c, err := s.repo.FindCampoutByID(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"campout_id": campoutID, "from": from, "to": to}).Info("campout status changed")
	return c, nil
}

// DeleteCampout removes a DRAFT campout that no money has touched.
func (s *Service) DeleteCampout(ctx context.Context, troopID, campoutID uuid.UUID) error {
	return s.repo.DeleteCampout(ctx, troopID, campoutID)
}

// RegisterScout adds a troop scout to the campout roster.
func (s *Service) RegisterScout(ctx context.Context, troopID, campoutID, scoutID uuid.UUID) (*domain.Campout, error) {
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return nil, err
	}
	if _, err := s.findScout(ctx, troopID, scoutID); err != nil {
		return nil, err
	}
	if err := s.repo.AddCampoutScout(ctx, campoutID, scoutID); err != nil {
		return nil, err
	}
	return s.repo.FindCampoutByID(ctx, troopID, campoutID)
}

// RemoveScout takes a scout off the roster and reports payments left orphaned by the change.
func (s *Service) RemoveScout(ctx context.Context, troopID, campoutID, scoutID uuid.UUID) (*domain.RosterChange, error) {
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveCampoutScout(ctx, campoutID, scoutID); err != nil {
		return nil, err
	}
	return s.rosterChange(ctx, troopID, campoutID)
}

// AssignAdult gives a troop member a role on the campout.
func (s *Service) AssignAdult(ctx context.Context, troopID, campoutID, adultID uuid.UUID, role domain.AdultRole) (*domain.Campout, error) {
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "unknown campout role %q", role)
	}
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindMember(ctx, troopID, adultID); err != nil {
		return nil, fmt.Errorf("failed to find adult: %w", err)
	}
	if err := s.repo.AddCampoutAdult(ctx, campoutID, adultID, role); err != nil {
		return nil, err
	}
	return s.repo.FindCampoutByID(ctx, troopID, campoutID)
}

// SwitchAdultRole replaces one of an adult's campout roles with the other.
func (s *Service) SwitchAdultRole(ctx context.Context, troopID, campoutID, adultID uuid.UUID, from, to domain.AdultRole) (*domain.RosterChange, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return nil, domain.NewValidationError("role", "switch must be between ORGANIZER and ATTENDEE")
	}
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return nil, err
	}
	if err := s.repo.SwitchCampoutAdultRole(ctx, campoutID, adultID, from, to); err != nil {
		return nil, err
	}
	return s.rosterChange(ctx, troopID, campoutID)
}

// RemoveAdult drops every role an adult holds on the campout.
func (s *Service) RemoveAdult(ctx context.Context, troopID, campoutID, adultID uuid.UUID) (*domain.RosterChange, error) {
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveCampoutAdult(ctx, campoutID, adultID); err != nil {
		return nil, err
	}
	return s.rosterChange(ctx, troopID, campoutID)
}

func (s *Service) rosterChange(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.RosterChange, error) {
	f, err := s.GetCampoutFinancials(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}
	if len(f.OrphanedPayments) > 0 {
		s.logger.WithFields(logrus.Fields{
			"campout_id": campoutID,
			"orphaned":   len(f.OrphanedPayments),
		}).Warn("roster change left orphaned payments")
	}
	return &domain.RosterChange{OrphanedPayments: f.OrphanedPayments}, nil
}

// LogCampoutExpense records a campout cost. A troop-paid cost becomes an approved EXPENSE and
// needs a privileged actor. An adult-paid cost becomes an AdultExpense awaiting reimbursement,
// logged by the adult or by a privileged actor, and makes the payer an ORGANIZER.
func (s *Service) LogCampoutExpense(ctx context.Context, troopID uuid.UUID, actor Actor, campoutID uuid.UUID, req domain.CampoutExpenseRequest) (*domain.CampoutExpenseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	campout, err := s.findActiveCampout(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}

	if req.PaidByAdultID == nil {
		if !actor.Privileged {
			return nil, fmt.Errorf("%w: only leadership can log troop-paid expenses", domain.ErrForbidden)
		}
		tx := &domain.Transaction{
			TroopID:     troopID,
			Amount:      req.Amount,
			Type:        domain.TxExpense,
			Description: req.Description,
			Status:      domain.StatusApproved,
			CampoutID:   uuidPtr(campoutID),
			ApprovedBy:  uuidPtr(actor.UserID),
			Origin:      domain.OriginManual,
		}
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to log campout expense: %w", err)
		}
		return &domain.CampoutExpenseResult{Transaction: tx}, nil
	}

	adultID := *req.PaidByAdultID
	if adultID != actor.UserID && !actor.Privileged {
		return nil, fmt.Errorf("%w: expenses can only be logged for yourself", domain.ErrForbidden)
	}
	if _, err := s.repo.FindMember(ctx, troopID, adultID); err != nil {
		return nil, fmt.Errorf("failed to find adult: %w", err)
	}
	if !campout.HasAdult(adultID, domain.RoleOrganizer) {
		if err := s.repo.AddCampoutAdult(ctx, campoutID, adultID, domain.RoleOrganizer); err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to add organizer: %w", err)
		}
	}

	expense := &domain.AdultExpense{
		CampoutID:   campoutID,
		AdultID:     adultID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := s.repo.CreateAdultExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to log adult expense: %w", err)
	}
	return &domain.CampoutExpenseResult{AdultExpense: expense}, nil
}

func (s *Service) editableAdultExpense(ctx context.Context, troopID uuid.UUID, actor Actor, expenseID uuid.UUID) (*domain.AdultExpense, error) {
	expense, err := s.repo.FindAdultExpenseByID(ctx, troopID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.AdultID != actor.UserID && !actor.Privileged {
		return nil, fmt.Errorf("%w: not your expense", domain.ErrForbidden)
	}
	if expense.IsReimbursed {
		return nil, domain.InvalidStateError("expense has already been reimbursed")
	}
	if _, err := s.findActiveCampout(ctx, troopID, expense.CampoutID); err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateAdultExpense corrects an expense that has not been reimbursed yet.
func (s *Service) UpdateAdultExpense(ctx context.Context, troopID uuid.UUID, actor Actor, expenseID uuid.UUID, req domain.UpdateAdultExpenseRequest) (*domain.AdultExpense, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	expense, err := s.editableAdultExpense(ctx, troopID, actor, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAdultExpense(ctx, expenseID, req.Amount, req.Description); err != nil {
		return nil, err
	}
	expense.Amount = req.Amount
	expense.Description = req.Description
	return expense, nil
}

// DeleteAdultExpense removes an expense that has not been reimbursed yet.
func (s *Service) DeleteAdultExpense(ctx context.Context, troopID uuid.UUID, actor Actor, expenseID uuid.UUID) error {
	if _, err := s.editableAdultExpense(ctx, troopID, actor, expenseID); err != nil {
		return err
	}
	return s.repo.DeleteAdultExpense(ctx, expenseID)
}

// ApproveAdultExpense reimburses one adult expense from the troop bank.
func (s *Service) ApproveAdultExpense(ctx context.Context, troopID, approverID, expenseID uuid.UUID) (*domain.Transaction, error) {
	expense, err := s.repo.FindAdultExpenseByID(ctx, troopID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.IsReimbursed {
		return nil, domain.InvalidStateError("expense has already been reimbursed")
	}
	campout, err := s.repo.FindCampoutByID(ctx, troopID, expense.CampoutID)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		TroopID:     troopID,
		Amount:      expense.Amount,
		Type:        domain.TxReimbursement,
		Description: fmt.Sprintf("Reimbursement: %s (%s)", expense.Description, campout.Name),
		Status:      domain.StatusApproved,
		UserID:      uuidPtr(expense.AdultID),
		CampoutID:   uuidPtr(expense.CampoutID),
		ApprovedBy:  uuidPtr(approverID),
		Origin:      domain.OriginManual,
	}
	if err := s.repo.ReimburseAdultExpense(ctx, expenseID, tx); err != nil {
		return nil, fmt.Errorf("failed to reimburse expense: %w", err)
	}
	s.notify(domain.Notification{
		Kind:     domain.NotifyAdultExpenseApproved,
		TroopID:  troopID,
		Audience: domain.AudienceUser,
		UserID:   uuidPtr(expense.AdultID),
		Title:    "Expense reimbursed",
		Message:  fmt.Sprintf("Your expense \"%s\" of $%s for %s was approved.", expense.Description, expense.Amount, campout.Name),
		Link:     "/campouts/" + campout.ID.String(),
	})
	return tx, nil
}

// RecordCampoutPayment records money received for one participant. Cash handed to an
// organizer is split by splitCashPayment: the troop bank's deficit is covered first and the
// rest is recorded as held by the organizer.
func (s *Service) RecordCampoutPayment(ctx context.Context, troopID, actorID, campoutID uuid.UUID, req domain.CampoutPaymentRequest) ([]*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	campout, err := s.findActiveCampout(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}

	base := domain.Transaction{
		TroopID:    troopID,
		Status:     domain.StatusApproved,
		CampoutID:  uuidPtr(campoutID),
		ApprovedBy: uuidPtr(actorID),
		Origin:     domain.OriginManual,
	}
	var who string
	if req.ScoutID != nil {
		if !campout.HasScout(*req.ScoutID) {
			return nil, domain.NewValidationError("scout_id", "scout is not registered for this campout")
		}
		base.ScoutID = req.ScoutID
		who = rosterScoutName(campout, *req.ScoutID)
	} else {
		if !campout.IsParticipant(*req.AdultID) {
			return nil, domain.NewValidationError("adult_id", "adult is not on this campout")
		}
		base.UserID = req.AdultID
		who = rosterAdultName(campout, *req.AdultID)
	}

	source := req.Source
	if source == "" {
		source = domain.SourceCash
	}

	entry := func(t domain.TransactionType, amount domain.Money, holding domain.HoldingParty, description string) *domain.Transaction {
		tx := base
		tx.Type = t
		tx.Amount = amount
		tx.HoldingParty = holding
		tx.Description = description
		return &tx
	}

	var entries []*domain.Transaction
	switch source {
	case domain.SourceCash:
		txs, err := s.repo.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, CampoutID: &campoutID})
		if err != nil {
			return nil, fmt.Errorf("failed to load campout transactions: %w", err)
		}
		split := splitCashPayment(troopDeficit(txs), req.Amount)
		if split.Deposit.IsPositive() {
			entries = append(entries, entry(domain.TxRegistrationIncome, split.Deposit, domain.HoldingTroopBank, fmt.Sprintf("Cash payment from %s (deposited)", who)))
		}
		if split.OrganizerHeld.IsPositive() {
			entries = append(entries, entry(domain.TxEventPayment, split.OrganizerHeld, domain.HoldingOrganizer, fmt.Sprintf("Cash payment from %s (held by organizer)", who)))
		}
	case domain.SourceTroop:
		entries = append(entries, entry(domain.TxTroopPayment, req.Amount, domain.HoldingTroopBank, fmt.Sprintf("%s for %s", troopSubsidyDescription, who)))
	case domain.SourceBank, domain.SourceBankDirect, domain.SourceCashDeposit:
		entries = append(entries, entry(domain.TxRegistrationIncome, req.Amount, domain.HoldingTroopBank, fmt.Sprintf("Payment from %s (%s)", who, source)))
	case domain.SourceCashReimburse:
		entries = append(entries, entry(domain.TxEventPayment, req.Amount, domain.HoldingOrganizer, fmt.Sprintf("Cash payment from %s (organizer reimbursement)", who)))
	}

	if err := s.repo.CreateTransactions(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to record campout payment: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"campout_id": campoutID,
		"source":     source,
		"amount":     req.Amount.String(),
		"entries":    len(entries),
	}).Info("campout payment recorded")
	return entries, nil
}

// ProcessRefund returns money to a participant, including one no longer on the roster. The
// refund cannot exceed what the participant has paid.
func (s *Service) ProcessRefund(ctx context.Context, troopID, actorID, campoutID uuid.UUID, req domain.RefundRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	campout, err := s.findActiveCampout(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, CampoutID: &campoutID})
	if err != nil {
		return nil, fmt.Errorf("failed to load campout transactions: %w", err)
	}

	var paid domain.Money
	if req.ScoutID != nil {
		paid = netPaidByScout(txs, *req.ScoutID)
	} else {
		paid = netPaidByAdult(txs, *req.AdultID)
	}
	if req.Amount.GreaterThan(paid) {
		return nil, domain.NewValidationError("amount", "refund of $%s exceeds net paid $%s", req.Amount, paid)
	}

	tx := &domain.Transaction{
		TroopID:    troopID,
		Amount:     req.Amount,
		Status:     domain.StatusApproved,
		CampoutID:  uuidPtr(campoutID),
		ApprovedBy: uuidPtr(actorID),
		IsRefund:   true,
		Origin:     domain.OriginRefund,
	}

	switch req.Method {
	case domain.RefundCash:
		tx.Type = domain.TxExpense
		tx.ScoutID = req.ScoutID
		tx.UserID = req.AdultID
		tx.Description = fmt.Sprintf("Cash refund: %s", campout.Name)
	case domain.RefundIBACredit:
		tx.Type = domain.TxIBADeposit
		if req.ScoutID != nil {
			if _, err := s.findScout(ctx, troopID, *req.ScoutID); err != nil {
				return nil, err
			}
			tx.ScoutID = req.ScoutID
		} else {
			linked, err := s.isLinkedScout(ctx, troopID, *req.AdultID, *req.TargetScoutID)
			if err != nil {
				return nil, err
			}
			if !linked {
				return nil, domain.NewValidationError("target_scout_id", "scout is not linked to the adult")
			}
			tx.ScoutID = req.TargetScoutID
			tx.UserID = req.AdultID
		}
		tx.Description = fmt.Sprintf("IBA credit refund: %s", campout.Name)
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to process refund: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"campout_id": campoutID,
		"method":     req.Method,
		"amount":     req.Amount.String(),
	}).Info("refund processed")
	return tx, nil
}

// RequestPayout lets an organizer ask leadership to reimburse their out-of-pocket spending.
// It only notifies; leadership settles it with PayoutOrganizers or ApproveAdultExpense.
func (s *Service) RequestPayout(ctx context.Context, troopID, adultID, campoutID uuid.UUID, req domain.PayoutRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	campout, err := s.repo.FindCampoutByID(ctx, troopID, campoutID)
	if err != nil {
		return err
	}
	expenses, err := s.repo.ListAdultExpenses(ctx, campoutID)
	if err != nil {
		return fmt.Errorf("failed to list adult expenses: %w", err)
	}
	owed := domain.Zero
	for _, e := range expenses {
		if e.AdultID == adultID && !e.IsReimbursed {
			owed = owed.Add(e.Amount)
		}
	}
	if !owed.IsPositive() {
		return domain.InvalidStateError("no unreimbursed expenses on this campout")
	}
	if req.Amount.GreaterThan(owed) {
		return domain.NewValidationError("amount", "requested $%s exceeds unreimbursed $%s", req.Amount, owed)
	}
	if err := s.consumePayoutRequest(ctx, adultID, campoutID); err != nil {
		return err
	}

	s.notify(domain.Notification{
		Kind:     domain.NotifyPayoutRequested,
		TroopID:  troopID,
		Audience: domain.AudienceLeadership,
		UserID:   uuidPtr(adultID),
		Title:    "Payout requested: " + campout.Name,
		Message:  fmt.Sprintf("%s requested $%s for %s.", rosterAdultName(campout, adultID), req.Amount, campout.Name),
		Link:     "/campouts/" + campout.ID.String(),
	})
	return nil
}

// consumePayoutRequest fails open when the throttle backend is unavailable.
func (s *Service) consumePayoutRequest(ctx context.Context, adultID, campoutID uuid.UUID) error {
	if s.throttle == nil || s.payoutRequestLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.throttle.Consume(ctx, "payout_request", adultID.String()+":"+campoutID.String(), s.payoutRequestWindow)
	if err != nil {
		s.logger.WithError(err).WithField("campout_id", campoutID).Warn("payout request throttle unavailable")
		return nil
	}
	if count > s.payoutRequestLimit {
		return &ThrottleError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

// GetCampoutFinancials computes the cost split of a campout from fresh data.
func (s *Service) GetCampoutFinancials(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.CampoutFinancials, error) {
	var (
		campout  *domain.Campout
		txs      []domain.Transaction
		expenses []domain.AdultExpense
		scouts   []domain.Scout
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.repo.FindCampoutByID(gctx, troopID, campoutID)
		campout = c
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListTransactions(gctx, store.TransactionFilter{TroopID: troopID, CampoutID: &campoutID})
		if err != nil {
			return fmt.Errorf("failed to load campout transactions: %w", err)
		}
		txs = list
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListAdultExpenses(gctx, campoutID)
		if err != nil {
			return fmt.Errorf("failed to load adult expenses: %w", err)
		}
		expenses = list
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListScouts(gctx, troopID)
		if err != nil {
			return fmt.Errorf("failed to load scouts: %w", err)
		}
		scouts = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(scouts)+len(campout.Adults))
	for _, sc := range scouts {
		names[sc.ID] = sc.Name
	}
	for _, a := range campout.Adults {
		names[a.AdultID] = a.Name
	}
	return calculateCampoutFinancials(campout, txs, expenses, names), nil
}

func rosterScoutName(c *domain.Campout, scoutID uuid.UUID) string {
	for _, sc := range c.Scouts {
		if sc.ScoutID == scoutID {
			return sc.Name
		}
	}
	return "scout"
}

func rosterAdultName(c *domain.Campout, adultID uuid.UUID) string {
	for _, a := range c.Adults {
		if a.AdultID == adultID {
			return a.Name
		}
	}
	return "adult"
}
