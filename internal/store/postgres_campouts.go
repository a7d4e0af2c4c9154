package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/troopledger/ledger-service/internal/domain"
)

const campoutColumns = `id, troop_id, name, location, start_date, end_date, estimated_cost, status, created_at`

func scanCampout(row pgx.Row, c *domain.Campout) error {
	return row.Scan(&c.ID, &c.TroopID, &c.Name, &c.Location, &c.StartDate, &c.EndDate, &c.EstimatedCost, &c.Status, &c.CreatedAt)
}

// CreateCampout inserts a new campout.
func (r *PostgresRepository) CreateCampout(ctx context.Context, c *domain.Campout) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO campouts (id, troop_id, name, location, start_date, end_date, estimated_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, c.ID, c.TroopID, c.Name, c.Location, c.StartDate, c.EndDate, c.EstimatedCost, c.Status).Scan(&c.CreatedAt)
	return mapWriteError(err)
}

// FindCampoutByID retrieves a campout with its roster.
func (r *PostgresRepository) FindCampoutByID(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error) {
	var c domain.Campout
	query := `SELECT ` + campoutColumns + ` FROM campouts WHERE id = $1 AND troop_id = $2`
	if err := scanCampout(r.db.QueryRow(ctx, query, campoutID, troopID), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampoutNotFound
		}
		return nil, err
	}
	if err := r.loadRoster(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) loadRoster(ctx context.Context, c *domain.Campout) error {
	scoutRows, err := r.db.Query(ctx, `
		SELECT s.id, s.name
		FROM campout_scouts cs
		JOIN scouts s ON s.id = cs.scout_id
		WHERE cs.campout_id = $1
		ORDER BY s.name
	`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load campout scouts: %w", err)
	}
	c.Scouts = []domain.CampoutScout{}
	for scoutRows.Next() {
		var s domain.CampoutScout
		if err := scoutRows.Scan(&s.ScoutID, &s.Name); err != nil {
			scoutRows.Close()
			return err
		}
		c.Scouts = append(c.Scouts, s)
	}
	scoutRows.Close()
	if err := scoutRows.Err(); err != nil {
		return err
	}

	adultRows, err := r.db.Query(ctx, `
		SELECT u.id, u.name, ca.role
		FROM campout_adults ca
		JOIN users u ON u.id = ca.adult_id
		WHERE ca.campout_id = $1
		ORDER BY u.name, ca.role
	`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load campout adults: %w", err)
	}
	defer adultRows.Close()
	c.Adults = []domain.CampoutAdult{}
	for adultRows.Next() {
		var a domain.CampoutAdult
		if err := adultRows.Scan(&a.AdultID, &a.Name, &a.Role); err != nil {
			return err
		}
		c.Adults = append(c.Adults, a)
	}
	return adultRows.Err()
}

// ListCampouts returns a troop's campouts without rosters, newest first.
func (r *PostgresRepository) ListCampouts(ctx context.Context, troopID uuid.UUID) ([]domain.Campout, error) {
	query := `SELECT ` + campoutColumns + ` FROM campouts WHERE troop_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, troopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campouts []domain.Campout
	for rows.Next() {
		var c domain.Campout
		if err := scanCampout(rows, &c); err != nil {
			return nil, err
		}
		campouts = append(campouts, c)
	}
	return campouts, rows.Err()
}

// TransitionCampoutStatus moves a campout from one status to the next. The WHERE clause makes
// a concurrent double transition fail instead of applying twice.
func (r *PostgresRepository) TransitionCampoutStatus(ctx context.Context, troopID, campoutID uuid.UUID, from, to domain.CampoutStatus) error {
	tag, err := r.db.Exec(ctx, "UPDATE campouts SET status = $1 WHERE id = $2 AND troop_id = $3 AND status = $4", to, campoutID, troopID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("campout is no longer %s", from)
	}
	return nil
}

// DeleteCampout removes a DRAFT campout that no transaction or expense references.
func (r *PostgresRepository) DeleteCampout(ctx context.Context, troopID, campoutID uuid.UUID) error {
	query := `
		DELETE FROM campouts c
		WHERE c.id = $1 AND c.troop_id = $2 AND c.status = 'DRAFT'
		  AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.campout_id = c.id)
		  AND NOT EXISTS (SELECT 1 FROM adult_expenses e WHERE e.campout_id = c.id)
	`
	tag, err := r.db.Exec(ctx, query, campoutID, troopID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("only a DRAFT campout with no financial activity can be deleted")
	}
	return nil
}

// AddCampoutScout registers a scout. A duplicate registration is a conflict.
func (r *PostgresRepository) AddCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error {
	_, err := r.db.Exec(ctx, "INSERT INTO campout_scouts (campout_id, scout_id) VALUES ($1, $2)", campoutID, scoutID)
	return mapWriteError(err)
}

// RemoveCampoutScout drops a scout from the roster.
func (r *PostgresRepository) RemoveCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM campout_scouts WHERE campout_id = $1 AND scout_id = $2", campoutID, scoutID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRosterEntryNotFound
	}
	return nil
}

// AddCampoutAdult assigns an adult to a role. Holding the same role twice is a conflict.
func (r *PostgresRepository) AddCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID, role domain.AdultRole) error {
	_, err := r.db.Exec(ctx, "INSERT INTO campout_adults (campout_id, adult_id, role) VALUES ($1, $2, $3)", campoutID, adultID, role)
	return mapWriteError(err)
}

// SwitchCampoutAdultRole replaces one of an adult's roles with another.
func (r *PostgresRepository) SwitchCampoutAdultRole(ctx context.Context, campoutID, adultID uuid.UUID, from, to domain.AdultRole) error {
	tag, err := r.db.Exec(ctx, "UPDATE campout_adults SET role = $1 WHERE campout_id = $2 AND adult_id = $3 AND role = $4", to, campoutID, adultID, from)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRosterEntryNotFound
	}
	return nil
}

// RemoveCampoutAdult drops every role the adult holds on the campout.
func (r *PostgresRepository) RemoveCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM campout_adults WHERE campout_id = $1 AND adult_id = $2", campoutID, adultID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRosterEntryNotFound
	}
	return nil
}

const adultExpenseColumns = `e.id, e.campout_id, e.adult_id, e.amount, e.description, e.is_reimbursed, e.created_at`

func scanAdultExpense(row pgx.Row, e *domain.AdultExpense) error {
	return row.Scan(&e.ID, &e.CampoutID, &e.AdultID, &e.Amount, &e.Description, &e.IsReimbursed, &e.CreatedAt)
}

// CreateAdultExpense records an adult's out-of-pocket spending.
func (r *PostgresRepository) CreateAdultExpense(ctx context.Context, e *domain.AdultExpense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO adult_expenses (id, campout_id, adult_id, amount, description, is_reimbursed)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING created_at
	`
	return mapWriteError(r.db.QueryRow(ctx, query, e.ID, e.CampoutID, e.AdultID, e.Amount, e.Description).Scan(&e.CreatedAt))
}

// FindAdultExpenseByID retrieves an expense whose campout belongs to the troop.
func (r *PostgresRepository) FindAdultExpenseByID(ctx context.Context, troopID, expenseID uuid.UUID) (*domain.AdultExpense, error) {
	query := `
		SELECT ` + adultExpenseColumns + `
		FROM adult_expenses e
		JOIN campouts c ON c.id = e.campout_id
		WHERE e.id = $1 AND c.troop_id = $2
	`
	var e domain.AdultExpense
	if err := scanAdultExpense(r.db.QueryRow(ctx, query, expenseID, troopID), &e); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAdultExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListAdultExpenses returns every adult expense of a campout.
func (r *PostgresRepository) ListAdultExpenses(ctx context.Context, campoutID uuid.UUID) ([]domain.AdultExpense, error) {
	query := `SELECT ` + adultExpenseColumns + ` FROM adult_expenses e WHERE e.campout_id = $1 ORDER BY e.created_at`
	rows, err := r.db.Query(ctx, query, campoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []domain.AdultExpense
	for rows.Next() {
		var e domain.AdultExpense
		if err := scanAdultExpense(rows, &e); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateAdultExpense corrects an expense that has not been reimbursed.
func (r *PostgresRepository) UpdateAdultExpense(ctx context.Context, expenseID uuid.UUID, amount domain.Money, description string) error {
	tag, err := r.db.Exec(ctx, "UPDATE adult_expenses SET amount = $1, description = $2 WHERE id = $3 AND is_reimbursed = FALSE", amount, description, expenseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("a reimbursed expense cannot be changed")
	}
	return nil
}

// DeleteAdultExpense removes an expense that has not been reimbursed.
func (r *PostgresRepository) DeleteAdultExpense(ctx context.Context, expenseID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM adult_expenses WHERE id = $1 AND is_reimbursed = FALSE", expenseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("a reimbursed expense cannot be deleted")
	}
	return nil
}

// ReimburseAdultExpense flips one expense to reimbursed and records the REIMBURSEMENT together.
func (r *PostgresRepository) ReimburseAdultExpense(ctx context.Context, expenseID uuid.UUID, reimbursement *domain.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE adult_expenses SET is_reimbursed = TRUE WHERE id = $1 AND is_reimbursed = FALSE", expenseID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.InvalidStateError("expense is already reimbursed")
		}
		return insertLedgerEntry(ctx, tx, reimbursement)
	})
}

// PayoutOrganizer records a REIMBURSEMENT for an adult and marks all of the adult's
// unreimbursed expenses on the campout as reimbursed. It returns how many were marked.
func (r *PostgresRepository) PayoutOrganizer(ctx context.Context, campoutID, adultID uuid.UUID, reimbursement *domain.Transaction) (int64, error) {
	var marked int64
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertLedgerEntry(ctx, tx, reimbursement); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "UPDATE adult_expenses SET is_reimbursed = TRUE WHERE campout_id = $1 AND adult_id = $2 AND is_reimbursed = FALSE", campoutID, adultID)
		if err != nil {
			return err
		}
		marked = tag.RowsAffected()
		return nil
	})
	return marked, err
}
