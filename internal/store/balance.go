/**
 * @description
 * The balance mutator. This is the only code in the service that writes scouts.iba_balance.
 * Every helper here runs inside the caller's pgx transaction so the ledger row and the cached
 * balance commit or roll back together.
 *
 * @notes
 * - The scout row is locked with SELECT ... FOR UPDATE before the balance is checked.
 * - A change that would leave a balance negative fails with domain.ErrInsufficientFunds.
 */

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/troopledger/ledger-service/internal/domain"
)

// applyBalanceDelta moves a scout's cached balance by delta.
func applyBalanceDelta(ctx context.Context, tx pgx.Tx, scoutID uuid.UUID, delta domain.Money) error {
	if delta.IsZero() {
		return nil
	}

	var name string
	var balance domain.Money
	err := tx.QueryRow(ctx, "SELECT name, iba_balance FROM scouts WHERE id = $1 FOR UPDATE", scoutID).Scan(&name, &balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrScoutNotFound
		}
		return fmt.Errorf("failed to lock scout balance: %w", err)
	}

	next := balance.Add(delta)
	if next.IsNegative() {
		return domain.InsufficientFundsError(name)
	}

	if _, err := tx.Exec(ctx, "UPDATE scouts SET iba_balance = $1 WHERE id = $2", next, scoutID); err != nil {
		return fmt.Errorf("failed to update scout balance: %w", err)
	}
	return nil
}

// insertLedgerEntry inserts a transaction and applies its balance effect.
func insertLedgerEntry(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if err := insertTransactionRow(ctx, tx, t); err != nil {
		return err
	}
	if t.ScoutID == nil {
		return nil
	}
	return applyBalanceDelta(ctx, tx, *t.ScoutID, t.BalanceEffect())
}

// removeLedgerEntry deletes a transaction and reverses its balance effect.
func removeLedgerEntry(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", t.ID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if t.ScoutID == nil {
		return nil
	}
	return applyBalanceDelta(ctx, tx, *t.ScoutID, t.BalanceEffect().Neg())
}

// RepairScoutBalance recomputes a scout's balance from its APPROVED transactions and stores
// it. The scout row stays locked from the recompute to the write, so ledger writes that commit
// meanwhile wait for it instead of being overwritten. It returns the stored and recomputed values.
func (r *PostgresRepository) RepairScoutBalance(ctx context.Context, troopID, scoutID uuid.UUID) (domain.Money, domain.Money, error) {
	var cached, computed domain.Money
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, "SELECT iba_balance FROM scouts WHERE id = $1 AND troop_id = $2 FOR UPDATE", scoutID, troopID).Scan(&cached)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrScoutNotFound
			}
			return fmt.Errorf("failed to lock scout balance: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE scout_id = $1 AND status = $2`, scoutID, domain.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load scout history: %w", err)
		}
		defer rows.Close()
		computed = domain.Zero
		for rows.Next() {
			var t domain.Transaction
			if err := scanTransaction(rows, &t); err != nil {
				return err
			}
			computed = computed.Add(t.BalanceEffect())
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if computed.IsNegative() {
			return domain.InsufficientFundsError("")
		}
		if computed.Equal(cached) {
			return nil
		}
		_, err = tx.Exec(ctx, "UPDATE scouts SET iba_balance = $1 WHERE id = $2", computed, scoutID)
		return err
	})
	if err != nil {
		return domain.Zero, domain.Zero, err
	}
	return cached, computed, nil
}
