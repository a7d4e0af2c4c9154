package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
)

// BatchIBAPayout collects every participant's remaining share of a campout from IBAs.
//
// Scouts pay from their own IBA. An attending adult pays from the first linked scout whose
// balance covers the share. Each transfer is its own database transaction, so when the batch
// stops at a participant who cannot pay, the transfers before it stay in place. The result
// always lists the completed transfers, together with the error that stopped the batch.
func (s *Service) BatchIBAPayout(ctx context.Context, troopID, actorID, campoutID uuid.UUID) (*domain.PayoutResult, error) {
	result := &domain.PayoutResult{Items: []domain.PayoutItem{}}
	err := s.withLock(ctx, campoutLockKey(campoutID), func() error {
		return s.runBatchIBAPayout(ctx, troopID, actorID, campoutID, result)
	})
	for _, it := range result.Items {
		result.Total = result.Total.Add(it.Amount)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"campout_id": campoutID,
		"completed":  len(result.Items),
		"total":      result.Total.String(),
	})
	if err != nil {
		entry.WithError(err).Warn("batch IBA payout stopped")
		return result, err
	}
	entry.Info("batch IBA payout completed")
	return result, nil
}

func (s *Service) runBatchIBAPayout(ctx context.Context, troopID, actorID, campoutID uuid.UUID, result *domain.PayoutResult) error {
	if _, err := s.findActiveCampout(ctx, troopID, campoutID); err != nil {
		return err
	}
	f, err := s.GetCampoutFinancials(ctx, troopID, campoutID)
	if err != nil {
		return err
	}
	if f.ParticipantCount == 0 {
		return domain.InvalidStateError("campout has no participants")
	}

	for _, p := range f.Participants {
		if !p.RemainingDue.IsPositive() {
			continue
		}

		var payer *domain.Scout
		var beneficiary *uuid.UUID
		switch p.Kind {
		case domain.ParticipantScout:
			sc, err := s.findScout(ctx, troopID, p.ID)
			if err != nil {
				return err
			}
			if sc.IBABalance.LessThan(p.RemainingDue) {
				return domain.InsufficientFundsError(p.Name)
			}
			payer = sc
		case domain.ParticipantAdult:
			linked, err := s.repo.ListLinkedScouts(ctx, troopID, p.ID)
			if err != nil {
				return fmt.Errorf("failed to list linked scouts: %w", err)
			}
			for i := range linked {
				if linked[i].IBABalance.GreaterOrEqual(p.RemainingDue) {
					payer = &linked[i]
					break
				}
			}
			if payer == nil {
				return domain.InsufficientFundsError(p.Name)
			}
			beneficiary = uuidPtr(p.ID)
		}

		tx := &domain.Transaction{
			TroopID:     troopID,
			Amount:      p.RemainingDue,
			Type:        domain.TxCampTransfer,
			Description: fmt.Sprintf("Campout payment for %s: %s", p.Name, f.Campout.Name),
			Status:      domain.StatusApproved,
			ScoutID:     uuidPtr(payer.ID),
			UserID:      beneficiary,
			CampoutID:   uuidPtr(campoutID),
			ApprovedBy:  uuidPtr(actorID),
			Origin:      domain.OriginBatchPayout,
		}
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to collect from %s: %w", p.Name, err)
		}
		result.Items = append(result.Items, domain.PayoutItem{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			FundedByScoutID: payer.ID,
			Amount:          p.RemainingDue,
			TransactionID:   tx.ID,
		})
	}
	return nil
}

// PayoutOrganizers reimburses organizers from a payout map. Every positive entry records a
// REIMBURSEMENT and marks all of that adult's unreimbursed campout expenses as reimbursed in one
// database transaction. An entry with FromCashHeld credits cash the organizer already holds
// instead of paying from the bank.
func (s *Service) PayoutOrganizers(ctx context.Context, troopID, actorID, campoutID uuid.UUID, req domain.PayoutOrganizersRequest) (*domain.PayoutResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result := &domain.PayoutResult{Items: []domain.PayoutItem{}}
	err := s.withLock(ctx, campoutLockKey(campoutID), func() error {
		campout, err := s.findActiveCampout(ctx, troopID, campoutID)
		if err != nil {
			return err
		}
		for _, p := range req.Payouts {
			if !p.Amount.IsPositive() {
				continue
			}
			if !campout.IsParticipant(p.AdultID) {
				return domain.NewValidationError("payouts", "adult %s is not on this campout", p.AdultID)
			}
			name := rosterAdultName(campout, p.AdultID)
			tx := &domain.Transaction{
				TroopID:     troopID,
				Amount:      p.Amount,
				Type:        domain.TxReimbursement,
				Description: fmt.Sprintf("Organizer payout for %s: %s", name, campout.Name),
				Status:      domain.StatusApproved,
				UserID:      uuidPtr(p.AdultID),
				CampoutID:   uuidPtr(campoutID),
				ApprovedBy:  uuidPtr(actorID),
				Origin:      domain.OriginOrganizerPayout,
			}
			if p.FromCashHeld {
				tx.HoldingParty = domain.HoldingOrganizer
				tx.Description = fmt.Sprintf("Cash collection credit for %s: %s", name, campout.Name)
			}
			marked, err := s.repo.PayoutOrganizer(ctx, campoutID, p.AdultID, tx)
			if err != nil {
				return fmt.Errorf("failed to pay out %s: %w", name, err)
			}
			s.logger.WithFields(logrus.Fields{
				"campout_id":     campoutID,
				"adult_id":       p.AdultID,
				"amount":         p.Amount.String(),
				"from_cash_held": p.FromCashHeld,
				"reimbursed":     marked,
			}).Info("organizer paid out")
			result.Items = append(result.Items, domain.PayoutItem{
				ParticipantID:   p.AdultID,
				ParticipantName: name,
				Amount:          p.Amount,
				TransactionID:   tx.ID,
			})
			result.Total = result.Total.Add(p.Amount)
		}
		return nil
	})
	return result, err
}
