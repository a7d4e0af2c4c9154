package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/troopledger/ledger-service/internal/domain"
)

const campaignColumns = `id, troop_id, name, goal, type, iba_percentage, volunteer_percentage, ticket_price, status, start_date, end_date, created_at`

func scanCampaign(row pgx.Row, c *domain.FundraisingCampaign) error {
	return row.Scan(
		&c.ID,
		&c.TroopID,
		&c.Name,
		&c.Goal,
		&c.Type,
		&c.IBAPercentage,
		&c.VolunteerPercentage,
		&c.TicketPrice,
		&c.Status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
	)
}

// CreateCampaign inserts a campaign together with its products.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *domain.FundraisingCampaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO fundraising_campaigns (
				id, troop_id, name, goal, type, iba_percentage, volunteer_percentage, ticket_price,
				status, start_date, end_date
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			c.ID, c.TroopID, c.Name, c.Goal, c.Type, c.IBAPercentage, c.VolunteerPercentage,
			c.TicketPrice, c.Status, c.StartDate, c.EndDate,
		).Scan(&c.CreatedAt)
		if err != nil {
			return mapWriteError(err)
		}

		for i := range c.Products {
			p := &c.Products[i]
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			p.CampaignID = c.ID
			_, err := tx.Exec(ctx,
				"INSERT INTO campaign_products (id, campaign_id, name, price, cost, iba_amount) VALUES ($1, $2, $3, $4, $5, $6)",
				p.ID, p.CampaignID, p.Name, p.Price, p.Cost, p.IBAAmount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert product %q: %w", p.Name, mapWriteError(err))
			}
		}
		return nil
	})
}

// FindCampaignByID retrieves a campaign with its products.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error) {
	var c domain.FundraisingCampaign
	query := `SELECT ` + campaignColumns + ` FROM fundraising_campaigns WHERE id = $1 AND troop_id = $2`
	if err := scanCampaign(r.db.QueryRow(ctx, query, campaignID, troopID), &c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, "SELECT id, campaign_id, name, price, cost, iba_amount FROM campaign_products WHERE campaign_id = $1 ORDER BY name", c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign products: %w", err)
	}
	defer rows.Close()
	c.Products = []domain.CampaignProduct{}
	for rows.Next() {
		var p domain.CampaignProduct
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.Name, &p.Price, &p.Cost, &p.IBAAmount); err != nil {
			return nil, err
		}
		c.Products = append(c.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaigns returns a troop's campaigns without products, newest first.
func (r *PostgresRepository) ListCampaigns(ctx context.Context, troopID uuid.UUID) ([]domain.FundraisingCampaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM fundraising_campaigns WHERE troop_id = $1 ORDER BY start_date DESC`
	rows, err := r.db.Query(ctx, query, troopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.FundraisingCampaign
	for rows.Next() {
		var c domain.FundraisingCampaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaignSettings stores new split settings unless the campaign is CLOSED.
func (r *PostgresRepository) UpdateCampaignSettings(ctx context.Context, c *domain.FundraisingCampaign) error {
	query := `
		UPDATE fundraising_campaigns
		SET name = $1, goal = $2, iba_percentage = $3, volunteer_percentage = $4, ticket_price = $5, end_date = $6
		WHERE id = $7 AND troop_id = $8 AND status <> 'CLOSED'
	`
	tag, err := r.db.Exec(ctx, query, c.Name, c.Goal, c.IBAPercentage, c.VolunteerPercentage, c.TicketPrice, c.EndDate, c.ID, c.TroopID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignClosed
	}
	return nil
}

// TransitionCampaignStatus moves a campaign between statuses, guarded on the current one.
func (r *PostgresRepository) TransitionCampaignStatus(ctx context.Context, troopID, campaignID uuid.UUID, from, to domain.CampaignStatus) error {
	tag, err := r.db.Exec(ctx, "UPDATE fundraising_campaigns SET status = $1 WHERE id = $2 AND troop_id = $3 AND status = $4", to, campaignID, troopID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("campaign is no longer %s", from)
	}
	return nil
}

// DeleteCampaign removes a DRAFT campaign with no orders and no transactions.
func (r *PostgresRepository) DeleteCampaign(ctx context.Context, troopID, campaignID uuid.UUID) error {
	query := `
		DELETE FROM fundraising_campaigns c
		WHERE c.id = $1 AND c.troop_id = $2 AND c.status = 'DRAFT'
		  AND NOT EXISTS (SELECT 1 FROM fundraising_orders o WHERE o.campaign_id = c.id)
		  AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.fundraising_campaign_id = c.id)
	`
	tag, err := r.db.Exec(ctx, query, campaignID, troopID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("only a DRAFT campaign without orders or transactions can be deleted")
	}
	return nil
}

// SetCampaignVolunteer adds or removes a volunteer. Both directions are idempotent.
func (r *PostgresRepository) SetCampaignVolunteer(ctx context.Context, campaignID, scoutID uuid.UUID, volunteering bool) error {
	if volunteering {
		_, err := r.db.Exec(ctx, "INSERT INTO campaign_volunteers (campaign_id, scout_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", campaignID, scoutID)
		return err
	}
	_, err := r.db.Exec(ctx, "DELETE FROM campaign_volunteers WHERE campaign_id = $1 AND scout_id = $2", campaignID, scoutID)
	return err
}

// ListCampaignVolunteers returns the campaign's volunteers ordered by name.
func (r *PostgresRepository) ListCampaignVolunteers(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVolunteer, error) {
	query := `
		SELECT v.campaign_id, v.scout_id, s.name
		FROM campaign_volunteers v
		JOIN scouts s ON s.id = v.scout_id
		WHERE v.campaign_id = $1
		ORDER BY s.name
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var volunteers []domain.CampaignVolunteer
	for rows.Next() {
		var v domain.CampaignVolunteer
		if err := rows.Scan(&v.CampaignID, &v.ScoutID, &v.ScoutName); err != nil {
			return nil, err
		}
		volunteers = append(volunteers, v)
	}
	return volunteers, rows.Err()
}

// CreateOrder inserts a fundraising order.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *domain.FundraisingOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	query := `
		INSERT INTO fundraising_orders (id, campaign_id, scout_id, product_id, customer_name, quantity, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return mapWriteError(r.db.QueryRow(ctx, query, o.ID, o.CampaignID, o.ScoutID, o.ProductID, o.CustomerName, o.Quantity, o.Delivered).Scan(&o.CreatedAt))
}

// DeleteOrder removes an order of the campaign.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, campaignID, orderID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM fundraising_orders WHERE id = $1 AND campaign_id = $2", orderID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetOrderDelivered records whether an order was handed to the customer.
func (r *PostgresRepository) SetOrderDelivered(ctx context.Context, campaignID, orderID uuid.UUID, delivered bool) error {
	tag, err := r.db.Exec(ctx, "UPDATE fundraising_orders SET delivered = $1 WHERE id = $2 AND campaign_id = $3", delivered, orderID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOrders returns a campaign's orders with seller names.
func (r *PostgresRepository) ListOrders(ctx context.Context, campaignID uuid.UUID) ([]domain.FundraisingOrder, error) {
	query := `
		SELECT o.id, o.campaign_id, o.scout_id, s.name, o.product_id, o.customer_name, o.quantity, o.delivered, o.created_at
		FROM fundraising_orders o
		JOIN scouts s ON s.id = o.scout_id
		WHERE o.campaign_id = $1
		ORDER BY o.created_at
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.FundraisingOrder
	for rows.Next() {
		var o domain.FundraisingOrder
		if err := rows.Scan(&o.ID, &o.CampaignID, &o.ScoutID, &o.ScoutName, &o.ProductID, &o.CustomerName, &o.Quantity, &o.Delivered, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CommitDistribution closes the campaign and posts the share deposits in one database
// transaction. The status guard makes a second concurrent commit fail.
func (r *PostgresRepository) CommitDistribution(ctx context.Context, troopID, campaignID uuid.UUID, deposits []*domain.Transaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE fundraising_campaigns SET status = 'CLOSED' WHERE id = $1 AND troop_id = $2 AND status <> 'CLOSED'", campaignID, troopID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.InvalidStateError("campaign is already closed")
		}
		for _, d := range deposits {
			if err := insertLedgerEntry(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReopenCampaign sets a CLOSED campaign back to ACTIVE and deletes the deposits its
// distribution posted, reversing their balance effects. It returns how many were reversed.
func (r *PostgresRepository) ReopenCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (int, error) {
	reversed := 0
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE fundraising_campaigns SET status = 'ACTIVE' WHERE id = $1 AND troop_id = $2 AND status = 'CLOSED'", campaignID, troopID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.InvalidStateError("only a closed campaign can be reopened")
		}

		origin := domain.OriginDistribution
		deposits, err := listTransactions(ctx, tx, TransactionFilter{TroopID: troopID, CampaignID: &campaignID, Origin: &origin})
		if err != nil {
			return err
		}
		for i := range deposits {
			if err := removeLedgerEntry(ctx, tx, &deposits[i]); err != nil {
				return err
			}
			reversed++
		}
		return nil
	})
	return reversed, err
}
