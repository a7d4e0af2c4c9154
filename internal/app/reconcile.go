package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

// ReconcileBalances recomputes every scout's IBA balance from the APPROVED transactions that
// reference it and compares it with the cached balance. With repair set, drifted balances are
// recomputed again under the scout's row lock and overwritten.
func (s *Service) ReconcileBalances(ctx context.Context, troopID uuid.UUID, repair bool) (*domain.ReconcileReport, error) {
	scouts, err := s.repo.ListScouts(ctx, troopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scouts: %w", err)
	}
	approved := domain.StatusApproved
	txs, err := s.repo.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, Status: &approved})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	report := &domain.ReconcileReport{
		TroopID:       troopID,
		ScoutsChecked: len(scouts),
		Drifts:        []domain.BalanceDrift{},
	}
	for _, d := range findBalanceDrift(scouts, txs) {
		if repair {
			cached, computed, err := s.repo.RepairScoutBalance(ctx, troopID, d.ScoutID)
			if err != nil {
				s.logger.WithError(err).WithField("scout_id", d.ScoutID).Error("failed to repair IBA balance")
			} else {
				d.Cached, d.Computed, d.Repaired = cached, computed, true
			}
		}
		report.Drifts = append(report.Drifts, d)
	}

	if len(report.Drifts) > 0 {
		s.logger.WithFields(logrus.Fields{
			"troop_id": troopID,
			"drifts":   len(report.Drifts),
			"repair":   repair,
		}).Warn("IBA balance drift detected")
		s.notify(domain.Notification{
			Kind:     domain.NotifyBalanceDriftDetected,
			TroopID:  troopID,
			Audience: domain.AudienceLeadership,
			Title:    "IBA balance drift detected",
			Message:  fmt.Sprintf("%d scout balances disagree with their transaction history.", len(report.Drifts)),
			Link:     "/finance/reconcile",
		})
	}
	return report, nil
}

func findBalanceDrift(scouts []domain.Scout, txs []domain.Transaction) []domain.BalanceDrift {
	computed := make(map[uuid.UUID]domain.Money, len(scouts))
	for i := range txs {
		t := &txs[i]
		if t.ScoutID == nil {
			continue
		}
		computed[*t.ScoutID] = computed[*t.ScoutID].Add(t.BalanceEffect())
	}

	var drifts []domain.BalanceDrift
	for _, sc := range scouts {
		want := computed[sc.ID]
		if want.Equal(sc.IBABalance) {
			continue
		}
		drifts = append(drifts, domain.BalanceDrift{
			ScoutID:  sc.ID,
			Name:     sc.Name,
			Cached:   sc.IBABalance,
			Computed: want,
		})
	}
	return drifts
}

// ReconcileAllTroops runs ReconcileBalances for every troop. One troop failing does not stop
// the others.
func (s *Service) ReconcileAllTroops(ctx context.Context, repair bool) error {
	troops, err := s.repo.ListTroops(ctx)
	if err != nil {
		return fmt.Errorf("failed to list troops: %w", err)
	}
	for _, t := range troops {
		report, err := s.ReconcileBalances(ctx, t.ID, repair)
		if err != nil {
			s.logger.WithError(err).WithField("troop_id", t.ID).Error("balance reconciliation failed")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"troop_id": t.ID,
			"checked":  report.ScoutsChecked,
			"drifts":   len(report.Drifts),
		}).Info("balance reconciliation finished")
	}
	return nil
}
