/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface for troops,
 * members, scouts and the transaction ledger. Campout, fundraising and direct-sales queries
 * live in their own files of this package.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/troopledger/ledger-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// querier is satisfied by both the pool and an open pgx transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListTroops returns every troop. The reconciliation job walks this list.
func (r *PostgresRepository) ListTroops(ctx context.Context) ([]domain.Troop, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, slug FROM troops ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var troops []domain.Troop
	for rows.Next() {
		var t domain.Troop
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		troops = append(troops, t)
	}
	return troops, rows.Err()
}

// FindTroopByID retrieves a troop.
func (r *PostgresRepository) FindTroopByID(ctx context.Context, troopID uuid.UUID) (*domain.Troop, error) {
	var t domain.Troop
	err := r.db.QueryRow(ctx, "SELECT id, name, slug FROM troops WHERE id = $1", troopID).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTroopNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindUserIDByExternalID resolves the internal user id from the identity provider's subject.
func (r *PostgresRepository) FindUserIDByExternalID(ctx context.Context, externalID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, "SELECT id FROM users WHERE external_id = $1", externalID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

// FindMember returns the user's membership in a troop.
func (r *PostgresRepository) FindMember(ctx context.Context, troopID, userID uuid.UUID) (*domain.TroopMember, error) {
	query := `
		SELECT tm.troop_id, tm.user_id, u.name, COALESCE(u.email, ''), tm.role
		FROM troop_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.troop_id = $1 AND tm.user_id = $2
	`
	var m domain.TroopMember
	err := r.db.QueryRow(ctx, query, troopID, userID).Scan(&m.TroopID, &m.UserID, &m.Name, &m.Email, &m.Role)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListLeadership returns the troop's ADMIN, FINANCIER and LEADER members.
func (r *PostgresRepository) ListLeadership(ctx context.Context, troopID uuid.UUID) ([]domain.TroopMember, error) {
	query := `
		SELECT tm.troop_id, tm.user_id, u.name, COALESCE(u.email, ''), tm.role
		FROM troop_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.troop_id = $1 AND tm.role IN ('ADMIN', 'FINANCIER', 'LEADER')
		ORDER BY u.name
	`
	rows, err := r.db.Query(ctx, query, troopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.TroopMember
	for rows.Next() {
		var m domain.TroopMember
		if err := rows.Scan(&m.TroopID, &m.UserID, &m.Name, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

const scoutColumns = `id, troop_id, name, iba_balance, status, user_id, created_at`

func scanScout(row pgx.Row, s *domain.Scout) error {
	return row.Scan(&s.ID, &s.TroopID, &s.Name, &s.IBABalance, &s.Status, &s.UserID, &s.CreatedAt)
}

// FindScoutByID retrieves a scout of the given troop.
func (r *PostgresRepository) FindScoutByID(ctx context.Context, troopID, scoutID uuid.UUID) (*domain.Scout, error) {
	var s domain.Scout
	query := `SELECT ` + scoutColumns + ` FROM scouts WHERE id = $1 AND troop_id = $2`
	if err := scanScout(r.db.QueryRow(ctx, query, scoutID, troopID), &s); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrScoutNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListScouts returns every scout of a troop, active or not.
func (r *PostgresRepository) ListScouts(ctx context.Context, troopID uuid.UUID) ([]domain.Scout, error) {
	query := `SELECT ` + scoutColumns + ` FROM scouts WHERE troop_id = $1 ORDER BY name`
	return r.queryScouts(ctx, query, troopID)
}

// ListLinkedScouts returns the scouts linked to a parent, in link order.
func (r *PostgresRepository) ListLinkedScouts(ctx context.Context, troopID, parentID uuid.UUID) ([]domain.Scout, error) {
	query := `
		SELECT s.id, s.troop_id, s.name, s.iba_balance, s.status, s.user_id, s.created_at
		FROM parent_scouts ps
		JOIN scouts s ON s.id = ps.scout_id
		WHERE ps.parent_id = $1 AND s.troop_id = $2
		ORDER BY ps.created_at, s.name
	`
	return r.queryScouts(ctx, query, parentID, troopID)
}

func (r *PostgresRepository) queryScouts(ctx context.Context, query string, args ...interface{}) ([]domain.Scout, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scouts []domain.Scout
	for rows.Next() {
		var s domain.Scout
		if err := scanScout(rows, &s); err != nil {
			return nil, err
		}
		scouts = append(scouts, s)
	}
	return scouts, rows.Err()
}

const transactionColumns = `
	id, troop_id, amount, type, description, status, scout_id, user_id, campout_id,
	budget_category_id, fundraising_campaign_id, approved_by, is_refund, holding_party,
	paid_from_iba, origin, created_at`

func scanTransaction(row pgx.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID,
		&t.TroopID,
		&t.Amount,
		&t.Type,
		&t.Description,
		&t.Status,
		&t.ScoutID,
		&t.UserID,
		&t.CampoutID,
		&t.BudgetCategoryID,
		&t.FundraisingCampaignID,
		&t.ApprovedBy,
		&t.IsRefund,
		&t.HoldingParty,
		&t.PaidFromIBA,
		&t.Origin,
		&t.CreatedAt,
	)
}

func insertTransactionRow(ctx context.Context, q querier, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.HoldingParty == "" {
		t.HoldingParty = domain.HoldingNone
	}
	if t.Origin == "" {
		t.Origin = domain.OriginManual
	}
	query := `
		INSERT INTO transactions (
			id, troop_id, amount, type, description, status, scout_id, user_id, campout_id,
			budget_category_id, fundraising_campaign_id, approved_by, is_refund, holding_party,
			paid_from_iba, origin
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at
	`
	err := q.QueryRow(ctx, query,
		t.ID,
		t.TroopID,
		t.Amount,
		t.Type,
		t.Description,
		t.Status,
		t.ScoutID,
		t.UserID,
		t.CampoutID,
		t.BudgetCategoryID,
		t.FundraisingCampaignID,
		t.ApprovedBy,
		t.IsRefund,
		t.HoldingParty,
		t.PaidFromIBA,
		t.Origin,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", mapWriteError(err))
	}
	return nil
}

// CreateTransaction inserts a transaction and applies its balance effect atomically.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		return insertLedgerEntry(ctx, tx, t)
	})
}

// CreateTransactions inserts several transactions in one database transaction.
func (r *PostgresRepository) CreateTransactions(ctx context.Context, txs []*domain.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, t := range txs {
			if err := insertLedgerEntry(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindTransactionByID retrieves a transaction of the given troop.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error) {
	return findTransaction(ctx, r.db, troopID, transactionID, false)
}

func findTransaction(ctx context.Context, q querier, troopID, transactionID uuid.UUID, forUpdate bool) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND troop_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var t domain.Transaction
	if err := scanTransaction(q.QueryRow(ctx, query, transactionID, troopID), &t); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListTransactions returns a troop's transactions, newest first, narrowed by the filter.
func (r *PostgresRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	return listTransactions(ctx, r.db, filter)
}

func listTransactions(ctx context.Context, q querier, filter TransactionFilter) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE troop_id = $1`
	args := []interface{}{filter.TroopID}
	argPos := 2

	if filter.ScoutID != nil {
		query += fmt.Sprintf(" AND scout_id = $%d", argPos)
		args = append(args, *filter.ScoutID)
		argPos++
	}
	if filter.CampoutID != nil {
		query += fmt.Sprintf(" AND campout_id = $%d", argPos)
		args = append(args, *filter.CampoutID)
		argPos++
	}
	if filter.CampaignID != nil {
		query += fmt.Sprintf(" AND fundraising_campaign_id = $%d", argPos)
		args = append(args, *filter.CampaignID)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.Origin != nil {
		query += fmt.Sprintf(" AND origin = $%d", argPos)
		args = append(args, *filter.Origin)
		argPos++
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ApproveTransaction moves a PENDING transaction to APPROVED and applies its balance effect.
func (r *PostgresRepository) ApproveTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error) {
	return r.decideTransaction(ctx, troopID, transactionID, approverID, domain.StatusApproved)
}

// RejectTransaction moves a PENDING transaction to REJECTED. Rejected rows never affect balances.
func (r *PostgresRepository) RejectTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error) {
	return r.decideTransaction(ctx, troopID, transactionID, approverID, domain.StatusRejected)
}

func (r *PostgresRepository) decideTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID, status domain.TransactionStatus) (*domain.Transaction, error) {
	var decided *domain.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := findTransaction(ctx, tx, troopID, transactionID, true)
		if err != nil {
			return err
		}
		if t.Status != domain.StatusPending {
			return domain.InvalidStateError("transaction is already %s", t.Status)
		}

		if _, err := tx.Exec(ctx, "UPDATE transactions SET status = $1, approved_by = $2 WHERE id = $3", status, approverID, t.ID); err != nil {
			return err
		}
		t.Status = status
		t.ApprovedBy = &approverID

		if status == domain.StatusApproved && t.ScoutID != nil {
			if err := applyBalanceDelta(ctx, tx, *t.ScoutID, t.BalanceEffect()); err != nil {
				return err
			}
		}
		decided = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// CorrectTransaction changes amount and/or description. An amount change on an APPROVED,
// balance-affecting row moves the scout's balance by the difference.
func (r *PostgresRepository) CorrectTransaction(ctx context.Context, troopID, transactionID uuid.UUID, amount *domain.Money, description *string) (*domain.Transaction, error) {
	var corrected *domain.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := findTransaction(ctx, tx, troopID, transactionID, true)
		if err != nil {
			return err
		}

		before := t.BalanceEffect()
		if amount != nil {
			t.Amount = *amount
		}
		if description != nil {
			t.Description = *description
		}

		if _, err := tx.Exec(ctx, "UPDATE transactions SET amount = $1, description = $2 WHERE id = $3", t.Amount, t.Description, t.ID); err != nil {
			return err
		}
		if t.ScoutID != nil {
			if err := applyBalanceDelta(ctx, tx, *t.ScoutID, t.BalanceEffect().Sub(before)); err != nil {
				return err
			}
		}
		corrected = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrected, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (r *PostgresRepository) DeleteTransaction(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error) {
	var deleted *domain.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := findTransaction(ctx, tx, troopID, transactionID, true)
		if err != nil {
			return err
		}
		if err := removeLedgerEntry(ctx, tx, t); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
