package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

// RecordTransaction creates a generic ledger entry. Entries by privileged members are approved
// immediately; anyone else's wait for approval and do not touch balances until then.
//
// A FUNDRAISING_INCOME that names both a scout and a campaign is recorded as campaign income
// plus a separate IBA_DEPOSIT of the campaign's IBA percentage for the scout.
func (s *Service) RecordTransaction(ctx context.Context, req domain.RecordTransactionRequest) ([]*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var scout *domain.Scout
	if req.ScoutID != nil {
		found, err := s.findScout(ctx, req.TroopID, *req.ScoutID)
		if err != nil {
			return nil, err
		}
		scout = found
	}
	if req.CampoutID != nil {
		if _, err := s.findActiveCampout(ctx, req.TroopID, *req.CampoutID); err != nil {
			return nil, err
		}
	}
	var campaign *domain.FundraisingCampaign
	if req.FundraisingCampaignID != nil {
		found, err := s.repo.FindCampaignByID(ctx, req.TroopID, *req.FundraisingCampaignID)
		if err != nil {
			return nil, err
		}
		if found.Status == domain.CampaignClosed {
			return nil, domain.ErrCampaignClosed
		}
		campaign = found
	}

	status := domain.StatusPending
	var approvedBy *uuid.UUID
	if req.ActorPrivileged {
		status = domain.StatusApproved
		approvedBy = uuidPtr(req.ActorID)
	}

	entry := &domain.Transaction{
		TroopID:               req.TroopID,
		Amount:                req.Amount,
		Type:                  req.Type,
		Description:           req.Description,
		Status:                status,
		ScoutID:               req.ScoutID,
		UserID:                req.UserID,
		CampoutID:             req.CampoutID,
		BudgetCategoryID:      req.BudgetCategoryID,
		FundraisingCampaignID: req.FundraisingCampaignID,
		ApprovedBy:            approvedBy,
		PaidFromIBA:           req.PaidFromIBA,
		Origin:                domain.OriginManual,
	}
	entries := []*domain.Transaction{entry}

	if req.Type == domain.TxFundraisingIncome && scout != nil && campaign != nil {
		entry.ScoutID = nil
		share := req.Amount.MulPercent(decimalPercent(campaign.IBAPercentage))
		if share.IsPositive() {
			entries = append(entries, &domain.Transaction{
				TroopID:               req.TroopID,
				Amount:                share,
				Type:                  domain.TxIBADeposit,
				Description:           fmt.Sprintf("IBA share (%d%%) of %s for %s", campaign.IBAPercentage, campaign.Name, scout.Name),
				Status:                status,
				ScoutID:               uuidPtr(scout.ID),
				FundraisingCampaignID: req.FundraisingCampaignID,
				ApprovedBy:            approvedBy,
				Origin:                domain.OriginManual,
			})
		}
	}

	if err := s.repo.CreateTransactions(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"troop_id": req.TroopID,
		"type":     req.Type,
		"amount":   req.Amount.String(),
		"status":   status,
	}).Info("transaction recorded")

	if status == domain.StatusPending {
		s.notify(domain.Notification{
			Kind:     domain.NotifyTransactionPending,
			TroopID:  req.TroopID,
			Audience: domain.AudienceLeadership,
			Title:    "Transaction awaiting approval",
			Message:  fmt.Sprintf("%s of $%s: %s", req.Type, req.Amount, req.Description),
			Link:     "/finance/transactions",
		})
	}
	return entries, nil
}

// ApproveTransaction approves a PENDING entry and applies its balance effect.
func (s *Service) ApproveTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.repo.ApproveTransaction(ctx, troopID, transactionID, approverID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"transaction_id": transactionID, "approved_by": approverID}).Info("transaction approved")
	return tx, nil
}

// RejectTransaction rejects a PENDING entry. It never affects a balance.
func (s *Service) RejectTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error) {
	return s.repo.RejectTransaction(ctx, troopID, transactionID, approverID)
}

// UpdateTransaction corrects an entry's amount or description.
func (s *Service) UpdateTransaction(ctx context.Context, troopID, transactionID uuid.UUID, req domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.CorrectTransaction(ctx, troopID, transactionID, req.Amount, req.Description)
}

// DeleteTransaction removes an entry and reverses its balance effect. Reversing a credit the
// scout has already spent fails with ErrInsufficientFunds.
func (s *Service) DeleteTransaction(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.repo.DeleteTransaction(ctx, troopID, transactionID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"type":           tx.Type,
		"amount":         tx.Amount.String(),
	}).Info("transaction deleted")
	return tx, nil
}

// ListTransactions returns the troop's entries narrowed by the filter.
func (s *Service) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// ListScouts returns the troop's scouts with their cached balances.
func (s *Service) ListScouts(ctx context.Context, troopID uuid.UUID) ([]domain.Scout, error) {
	return s.repo.ListScouts(ctx, troopID)
}

// BulkRecordIBADeposits credits several scouts, one database transaction per line. Scouts that
// do not belong to the troop are skipped and reported instead of failing the batch.
func (s *Service) BulkRecordIBADeposits(ctx context.Context, troopID, actorID uuid.UUID, req domain.BulkIBADepositRequest) (*domain.BulkIBADepositResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &domain.BulkIBADepositResult{
		Successful: []*domain.Transaction{},
		Skipped:    []domain.BulkItemFailure{},
	}
	for _, item := range req.Deposits {
		scout, err := s.repo.FindScoutByID(ctx, troopID, item.ScoutID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return result, fmt.Errorf("failed to find scout: %w", err)
			}
			result.Skipped = append(result.Skipped, domain.BulkItemFailure{ScoutID: item.ScoutID, Amount: item.Amount, Error: "scout not found in this troop"})
			continue
		}

		description := item.Description
		if description == "" {
			description = fmt.Sprintf("IBA deposit for %s", scout.Name)
		}
		tx := &domain.Transaction{
			TroopID:     troopID,
			Amount:      item.Amount,
			Type:        domain.TxIBADeposit,
			Description: description,
			Status:      domain.StatusApproved,
			ScoutID:     uuidPtr(scout.ID),
			ApprovedBy:  uuidPtr(actorID),
			Origin:      domain.OriginManual,
		}
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			result.Skipped = append(result.Skipped, domain.BulkItemFailure{ScoutID: item.ScoutID, Amount: item.Amount, Error: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, tx)
	}

	s.logger.WithFields(logrus.Fields{
		"troop_id":   troopID,
		"successful": len(result.Successful),
		"skipped":    len(result.Skipped),
	}).Info("bulk IBA deposits processed")
	return result, nil
}

// TransferIBAToCampout pays a campout share from a scout's IBA. With a beneficiary adult the
// transfer pays that adult's share and the scout must be linked to the adult. Unprivileged
// callers may only spend their own IBA or that of a scout linked to them.
func (s *Service) TransferIBAToCampout(ctx context.Context, troopID uuid.UUID, actor Actor, campoutID uuid.UUID, req domain.IBATransferRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	campout, err := s.findActiveCampout(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}
	scout, err := s.findScout(ctx, troopID, req.ScoutID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeIBASpend(ctx, troopID, actor, scout); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("IBA transfer for %s: %s", scout.Name, campout.Name)
	if req.BeneficiaryAdultID != nil {
		if !campout.HasAdult(*req.BeneficiaryAdultID, domain.RoleAttendee) {
			return nil, domain.NewValidationError("beneficiary_adult_id", "adult is not attending this campout")
		}
		linked, err := s.isLinkedScout(ctx, troopID, *req.BeneficiaryAdultID, scout.ID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, domain.NewValidationError("scout_id", "scout is not linked to the adult")
		}
		description = fmt.Sprintf("IBA transfer from %s for adult share: %s", scout.Name, campout.Name)
	} else if !campout.HasScout(scout.ID) {
		return nil, domain.NewValidationError("scout_id", "scout is not registered for this campout")
	}

	if scout.IBABalance.LessThan(req.Amount) {
		return nil, domain.InsufficientFundsError(scout.Name)
	}

	tx := &domain.Transaction{
		TroopID:     troopID,
		Amount:      req.Amount,
		Type:        domain.TxCampTransfer,
		Description: description,
		Status:      domain.StatusApproved,
		ScoutID:     uuidPtr(scout.ID),
		UserID:      req.BeneficiaryAdultID,
		CampoutID:   uuidPtr(campoutID),
		ApprovedBy:  uuidPtr(actor.UserID),
		Origin:      domain.OriginManual,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to transfer from IBA: %w", err)
	}
	return tx, nil
}

// authorizeIBASpend allows leadership, the scout's own account and parents linked to the scout.
func (s *Service) authorizeIBASpend(ctx context.Context, troopID uuid.UUID, actor Actor, scout *domain.Scout) error {
	if actor.Privileged || (scout.UserID != nil && *scout.UserID == actor.UserID) {
		return nil
	}
	linked, err := s.isLinkedScout(ctx, troopID, actor.UserID, scout.ID)
	if err != nil {
		return err
	}
	if !linked {
		return fmt.Errorf("%w: you can only spend the IBA of your own scouts", domain.ErrForbidden)
	}
	return nil
}

func (s *Service) isLinkedScout(ctx context.Context, troopID, adultID, scoutID uuid.UUID) (bool, error) {
	linked, err := s.repo.ListLinkedScouts(ctx, troopID, adultID)
	if err != nil {
		return false, fmt.Errorf("failed to list linked scouts: %w", err)
	}
	for _, sc := range linked {
		if sc.ID == scoutID {
			return true, nil
		}
	}
	return false, nil
}

// GetScoutLedger returns a scout's balance and full history.
func (s *Service) GetScoutLedger(ctx context.Context, troopID, scoutID uuid.UUID) (*domain.ScoutLedger, error) {
	scout, err := s.findScout(ctx, troopID, scoutID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, ScoutID: &scoutID})
	if err != nil {
		return nil, fmt.Errorf("failed to list scout transactions: %w", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return &domain.ScoutLedger{Scout: scout, Transactions: txs}, nil
}

// GetTroopFinanceSummary reports where the troop's money sits.
func (s *Service) GetTroopFinanceSummary(ctx context.Context, troopID uuid.UUID) (*domain.TroopFinanceSummary, error) {
	approved := domain.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, Status: &approved})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	scouts, err := s.repo.ListScouts(ctx, troopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scouts: %w", err)
	}
	return summarizeTroopFinances(txs, scouts), nil
}

func summarizeTroopFinances(txs []domain.Transaction, scouts []domain.Scout) *domain.TroopFinanceSummary {
	sum := &domain.TroopFinanceSummary{}
	for i := range txs {
		t := &txs[i]
		if t.Status != domain.StatusApproved {
			continue
		}
		switch t.Type {
		case domain.TxRegistrationIncome, domain.TxDonationIn, domain.TxDues, domain.TxCampTransfer, domain.TxFundraisingIncome:
			sum.TroopIncome = sum.TroopIncome.Add(t.Amount)
		case domain.TxExpense, domain.TxTroopPayment:
			sum.TroopExpenses = sum.TroopExpenses.Add(t.Amount)
		case domain.TxReimbursement:
			if !t.IsCashCollectionCredit() {
				sum.TroopExpenses = sum.TroopExpenses.Add(t.Amount)
			}
		case domain.TxEventPayment:
			sum.OrganizerCash = sum.OrganizerCash.Add(t.Amount)
		case domain.TxIBADeposit:
			sum.IBADepositTotal = sum.IBADepositTotal.Add(t.Amount)
		}
	}
	for _, sc := range scouts {
		if sc.Status == domain.ScoutActive {
			sum.IBAReserve = sum.IBAReserve.Add(sc.IBABalance)
		}
	}
	sum.TroopFunds = sum.TroopIncome.Sub(sum.TroopExpenses)
	return sum
}
