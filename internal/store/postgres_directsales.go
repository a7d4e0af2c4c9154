package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/troopledger/ledger-service/internal/domain"
)

// CreateInventory stocks a product for direct sales.
func (r *PostgresRepository) CreateInventory(ctx context.Context, inv *domain.DirectSalesInventory) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx,
		"INSERT INTO direct_sales_inventory (id, campaign_id, product_id, quantity) VALUES ($1, $2, $3, $4)",
		inv.ID, inv.CampaignID, inv.ProductID, inv.Quantity,
	)
	return mapWriteError(err)
}

// ListInventory returns a campaign's inventory with how much is already allocated to groups.
func (r *PostgresRepository) ListInventory(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesInventory, error) {
	query := `
		SELECT i.id, i.campaign_id, i.product_id, p.name, i.quantity, COALESCE(SUM(gi.quantity), 0)
		FROM direct_sales_inventory i
		JOIN campaign_products p ON p.id = i.product_id
		LEFT JOIN direct_sales_group_items gi ON gi.inventory_id = i.id
		WHERE i.campaign_id = $1
		GROUP BY i.id, p.name
		ORDER BY p.name
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inventory []domain.DirectSalesInventory
	for rows.Next() {
		var inv domain.DirectSalesInventory
		if err := rows.Scan(&inv.ID, &inv.CampaignID, &inv.ProductID, &inv.ProductName, &inv.Quantity, &inv.Allocated); err != nil {
			return nil, err
		}
		inventory = append(inventory, inv)
	}
	return inventory, rows.Err()
}

// DeleteInventory removes inventory that no group has been allocated from.
func (r *PostgresRepository) DeleteInventory(ctx context.Context, campaignID, inventoryID uuid.UUID) error {
	query := `
		DELETE FROM direct_sales_inventory i
		WHERE i.id = $1 AND i.campaign_id = $2
		  AND NOT EXISTS (SELECT 1 FROM direct_sales_group_items gi WHERE gi.inventory_id = i.id)
	`
	tag, err := r.db.Exec(ctx, query, inventoryID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM direct_sales_inventory WHERE id = $1 AND campaign_id = $2)", inventoryID, campaignID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrInventoryNotFound
		}
		return domain.InvalidStateError("inventory is allocated to a volunteer group")
	}
	return nil
}

// CreateGroup inserts a volunteer group, its items and volunteers. The inventory rows are
// locked while availability is checked so two groups cannot over-allocate the same stock.
func (r *PostgresRepository) CreateGroup(ctx context.Context, g *domain.DirectSalesGroup, requested map[uuid.UUID]int) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, inventoryID := range lockOrder(requested) {
			qty := requested[inventoryID]
			var total, allocated int
			err := tx.QueryRow(ctx, "SELECT quantity FROM direct_sales_inventory WHERE id = $1 AND campaign_id = $2 FOR UPDATE", inventoryID, g.CampaignID).Scan(&total)
			if err != nil {
				if err == pgx.ErrNoRows {
					return ErrInventoryNotFound
				}
				return err
			}
			if err := tx.QueryRow(ctx, "SELECT COALESCE(SUM(quantity), 0) FROM direct_sales_group_items WHERE inventory_id = $1", inventoryID).Scan(&allocated); err != nil {
				return err
			}
			if qty > total-allocated {
				return domain.NewValidationError("items", "one or more items exceed available quantity")
			}
		}

		if _, err := tx.Exec(ctx, "INSERT INTO direct_sales_groups (id, campaign_id, name) VALUES ($1, $2, $3)", g.ID, g.CampaignID, g.Name); err != nil {
			return mapWriteError(err)
		}
		for i := range g.Items {
			it := &g.Items[i]
			if it.ID == uuid.Nil {
				it.ID = uuid.New()
			}
			it.GroupID = g.ID
			_, err := tx.Exec(ctx,
				"INSERT INTO direct_sales_group_items (id, group_id, inventory_id, quantity, sold_count, amount_collected) VALUES ($1, $2, $3, $4, 0, 0)",
				it.ID, it.GroupID, it.InventoryID, it.Quantity,
			)
			if err != nil {
				return fmt.Errorf("failed to insert group item: %w", mapWriteError(err))
			}
		}
		for _, v := range g.Volunteers {
			_, err := tx.Exec(ctx,
				"INSERT INTO direct_sales_group_volunteers (id, group_id, scout_id, user_id) VALUES ($1, $2, $3, $4)",
				uuid.New(), g.ID, v.ScoutID, v.UserID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert group volunteer: %w", mapWriteError(err))
			}
		}
		return nil
	})
}

// lockOrder returns the inventory ids in a fixed order so concurrent allocations take their
// row locks in the same sequence.
func lockOrder(requested map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

// FindGroupByID retrieves a group with priced items and named volunteers.
func (r *PostgresRepository) FindGroupByID(ctx context.Context, campaignID, groupID uuid.UUID) (*domain.DirectSalesGroup, error) {
	var g domain.DirectSalesGroup
	err := r.db.QueryRow(ctx, "SELECT id, campaign_id, name FROM direct_sales_groups WHERE id = $1 AND campaign_id = $2", groupID, campaignID).Scan(&g.ID, &g.CampaignID, &g.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	groups := []domain.DirectSalesGroup{g}
	if err := r.loadGroupDetails(ctx, groups); err != nil {
		return nil, err
	}
	return &groups[0], nil
}

// ListGroups returns every group of a campaign with items and volunteers.
func (r *PostgresRepository) ListGroups(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesGroup, error) {
	rows, err := r.db.Query(ctx, "SELECT id, campaign_id, name FROM direct_sales_groups WHERE campaign_id = $1 ORDER BY created_at", campaignID)
	if err != nil {
		return nil, err
	}
	var groups []domain.DirectSalesGroup
	for rows.Next() {
		var g domain.DirectSalesGroup
		if err := rows.Scan(&g.ID, &g.CampaignID, &g.Name); err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadGroupDetails(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *PostgresRepository) loadGroupDetails(ctx context.Context, groups []domain.DirectSalesGroup) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(groups))
	index := make(map[uuid.UUID]int, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		index[g.ID] = i
		groups[i].Items = []domain.DirectSalesGroupItem{}
		groups[i].Volunteers = []domain.DirectSalesVolunteer{}
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT gi.id, gi.group_id, gi.inventory_id, p.name, p.price, p.iba_amount, gi.quantity, gi.sold_count, gi.amount_collected
		FROM direct_sales_group_items gi
		JOIN direct_sales_inventory i ON i.id = gi.inventory_id
		JOIN campaign_products p ON p.id = i.product_id
		WHERE gi.group_id = ANY($1)
		ORDER BY p.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load group items: %w", err)
	}
	for itemRows.Next() {
		var it domain.DirectSalesGroupItem
		if err := itemRows.Scan(&it.ID, &it.GroupID, &it.InventoryID, &it.ProductName, &it.Price, &it.IBAAmount, &it.Quantity, &it.SoldCount, &it.AmountCollected); err != nil {
			itemRows.Close()
			return err
		}
		g := &groups[index[it.GroupID]]
		g.Items = append(g.Items, it)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return err
	}

	volunteerRows, err := r.db.Query(ctx, `
		SELECT v.group_id, v.scout_id, v.user_id, COALESCE(s.name, u.name, '')
		FROM direct_sales_group_volunteers v
		LEFT JOIN scouts s ON s.id = v.scout_id
		LEFT JOIN users u ON u.id = v.user_id
		WHERE v.group_id = ANY($1)
		ORDER BY 4
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load group volunteers: %w", err)
	}
	defer volunteerRows.Close()
	for volunteerRows.Next() {
		var groupID uuid.UUID
		var v domain.DirectSalesVolunteer
		if err := volunteerRows.Scan(&groupID, &v.ScoutID, &v.UserID, &v.Name); err != nil {
			return err
		}
		g := &groups[index[groupID]]
		g.Volunteers = append(g.Volunteers, v)
	}
	return volunteerRows.Err()
}

// UpdateGroupSales stores sold counts and collected amounts for a group's items in one
// database transaction. Bounds are checked by the caller against the loaded group.
func (r *PostgresRepository) UpdateGroupSales(ctx context.Context, groupID uuid.UUID, updates []domain.GroupSalesUpdate) error {
	ordered := append([]domain.GroupSalesUpdate(nil), updates...)
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i].ItemID[:], ordered[j].ItemID[:]) < 0 })
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, u := range ordered {
			tag, err := tx.Exec(ctx,
				"UPDATE direct_sales_group_items SET sold_count = $1, amount_collected = $2 WHERE id = $3 AND group_id = $4",
				u.SoldCount, u.AmountCollected, u.ItemID, groupID,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrGroupItemNotFound
			}
		}
		return nil
	})
}

// DeleteGroup removes a group that has no recorded sales.
func (r *PostgresRepository) DeleteGroup(ctx context.Context, campaignID, groupID uuid.UUID) error {
	query := `
		DELETE FROM direct_sales_groups g
		WHERE g.id = $1 AND g.campaign_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM direct_sales_group_items gi
			WHERE gi.group_id = g.id AND (gi.sold_count > 0 OR gi.amount_collected > 0)
		  )
	`
	tag, err := r.db.Exec(ctx, query, groupID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvalidStateError("a group with recorded sales cannot be deleted")
	}
	return nil
}
