package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/troopledger/ledger-service/internal/domain"
)

var (
	ErrTroopNotFound        = fmt.Errorf("troop %w", domain.ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrMemberNotFound       = fmt.Errorf("troop membership %w", domain.ErrNotFound)
	ErrScoutNotFound        = fmt.Errorf("scout %w", domain.ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", domain.ErrNotFound)
	ErrCampoutNotFound      = fmt.Errorf("campout %w", domain.ErrNotFound)
	ErrAdultExpenseNotFound = fmt.Errorf("expense %w", domain.ErrNotFound)
	ErrRosterEntryNotFound  = fmt.Errorf("roster entry %w", domain.ErrNotFound)
	ErrCampaignNotFound     = fmt.Errorf("campaign %w", domain.ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrInventoryNotFound    = fmt.Errorf("inventory %w", domain.ErrNotFound)
	ErrGroupNotFound        = fmt.Errorf("volunteer group %w", domain.ErrNotFound)
	ErrGroupItemNotFound    = fmt.Errorf("group item %w", domain.ErrNotFound)
)

const uniqueViolation = "23505"

// mapWriteError turns a unique violation into a friendly conflict and passes anything else through.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: record may already exist", domain.ErrConflict)
	}
	return err
}
