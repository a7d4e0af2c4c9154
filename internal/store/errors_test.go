package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/troopledger/ledger-service/internal/domain"
)

func TestMapWriteError(t *testing.T) {
	t.Run("unique violation becomes conflict", func(t *testing.T) {
		err := mapWriteError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "campout_scouts_pkey"}))
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("other postgres errors pass through", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503"}
		err := mapWriteError(pgErr)
		if errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected foreign key error to pass through, got conflict")
		}
		if !errors.Is(err, pgErr) {
			t.Fatalf("expected original error, got %v", err)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := mapWriteError(nil); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

func TestNotFoundSentinelsWrapDomainKind(t *testing.T) {
	sentinels := []error{
		ErrTroopNotFound, ErrUserNotFound, ErrMemberNotFound, ErrScoutNotFound, ErrTransactionNotFound,
		ErrCampoutNotFound, ErrAdultExpenseNotFound, ErrRosterEntryNotFound, ErrCampaignNotFound,
		ErrOrderNotFound, ErrInventoryNotFound, ErrGroupNotFound, ErrGroupItemNotFound,
	}
	for _, s := range sentinels {
		if !errors.Is(s, domain.ErrNotFound) {
			t.Fatalf("expected %q to wrap ErrNotFound", s)
		}
	}
	if ErrScoutNotFound.Error() != "scout not found" {
		t.Fatalf("expected readable message, got %q", ErrScoutNotFound.Error())
	}
}
