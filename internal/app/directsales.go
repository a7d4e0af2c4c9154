package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

// CreateInventory stocks a campaign product for direct sales.
func (s *Service) CreateInventory(ctx context.Context, troopID, campaignID uuid.UUID, req domain.CreateInventoryRequest) (*domain.DirectSalesInventory, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.findOpenCampaign(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	product, ok := c.Product(req.ProductID)
	if !ok {
		return nil, domain.NewValidationError("product_id", "product does not belong to this campaign")
	}
	inv := &domain.DirectSalesInventory{
		CampaignID:  campaignID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
	}
	if err := s.repo.CreateInventory(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create inventory: %w", err)
	}
	return inv, nil
}

func (s *Service) ListInventory(ctx context.Context, troopID, campaignID uuid.UUID) ([]domain.DirectSalesInventory, error) {
	if _, err := s.repo.FindCampaignByID(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListInventory(ctx, campaignID)
}

// DeleteInventory removes inventory that no volunteer group has been allocated from.
func (s *Service) DeleteInventory(ctx context.Context, troopID, campaignID, inventoryID uuid.UUID) error {
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return err
	}
	return s.repo.DeleteInventory(ctx, campaignID, inventoryID)
}

// CreateVolunteerGroup allocates inventory to a new group of scout and adult volunteers.
// Availability is checked again under row locks when the group is stored.
func (s *Service) CreateVolunteerGroup(ctx context.Context, troopID, campaignID uuid.UUID, req domain.CreateGroupRequest) (*domain.DirectSalesGroup, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	if err := s.checkInventoryAvailable(ctx, campaignID, req.RequestedQuantities()); err != nil {
		return nil, err
	}

	g := &domain.DirectSalesGroup{
		CampaignID: campaignID,
		Name:       req.Name,
		Items:      make([]domain.DirectSalesGroupItem, 0, len(req.Items)),
		Volunteers: make([]domain.DirectSalesVolunteer, 0, len(req.ScoutIDs)+len(req.AdultIDs)),
	}
	for _, it := range req.Items {
		g.Items = append(g.Items, domain.DirectSalesGroupItem{InventoryID: it.InventoryID, Quantity: it.Quantity})
	}
	for _, id := range req.ScoutIDs {
		scout, err := s.findScout(ctx, troopID, id)
		if err != nil {
			return nil, err
		}
		g.Volunteers = append(g.Volunteers, domain.DirectSalesVolunteer{ScoutID: uuidPtr(scout.ID), Name: scout.Name})
	}
	for _, id := range req.AdultIDs {
		member, err := s.repo.FindMember(ctx, troopID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to find adult volunteer: %w", err)
		}
		g.Volunteers = append(g.Volunteers, domain.DirectSalesVolunteer{UserID: uuidPtr(member.UserID), Name: member.Name})
	}

	if err := s.repo.CreateGroup(ctx, g, req.RequestedQuantities()); err != nil {
		return nil, err
	}
	return s.repo.FindGroupByID(ctx, campaignID, g.ID)
}

func (s *Service) checkInventoryAvailable(ctx context.Context, campaignID uuid.UUID, requested map[uuid.UUID]int) error {
	inventory, err := s.repo.ListInventory(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.DirectSalesInventory, len(inventory))
	for i := range inventory {
		byID[inventory[i].ID] = &inventory[i]
	}
	for id, qty := range requested {
		inv, ok := byID[id]
		if !ok {
			return store.ErrInventoryNotFound
		}
		if qty > inv.Available() {
			return domain.NewValidationError("items", "%s: requested %d exceeds available %d", inv.ProductName, qty, inv.Available())
		}
	}
	return nil
}

// UpdateGroupSales records sold counts and collected cash for a group's items.
func (s *Service) UpdateGroupSales(ctx context.Context, troopID, campaignID, groupID uuid.UUID, req domain.UpdateGroupSalesRequest) (*domain.DirectSalesGroup, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	g, err := s.repo.FindGroupByID(ctx, campaignID, groupID)
	if err != nil {
		return nil, err
	}

	items := make(map[uuid.UUID]domain.DirectSalesGroupItem, len(g.Items))
	for _, it := range g.Items {
		items[it.ID] = it
	}
	for _, u := range req.Updates {
		it, ok := items[u.ItemID]
		if !ok {
			return nil, domain.NewValidationError("item_id", "item %s is not in this group", u.ItemID)
		}
		if u.SoldCount > it.Quantity {
			return nil, domain.NewValidationError("sold_count", "%s: sold %d exceeds allocated %d", it.ProductName, u.SoldCount, it.Quantity)
		}
		if ceiling := it.Price.MulInt(int64(u.SoldCount)); u.AmountCollected.GreaterThan(ceiling) {
			return nil, domain.NewValidationError("amount_collected", "%s: collected $%s exceeds $%s for %d sold", it.ProductName, u.AmountCollected, ceiling, u.SoldCount)
		}
	}

	if err := s.repo.UpdateGroupSales(ctx, groupID, req.Updates); err != nil {
		return nil, err
	}
	return s.repo.FindGroupByID(ctx, campaignID, groupID)
}

// DeleteVolunteerGroup removes a group that has no recorded sales, freeing its inventory.
func (s *Service) DeleteVolunteerGroup(ctx context.Context, troopID, campaignID, groupID uuid.UUID) error {
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return err
	}
	g, err := s.repo.FindGroupByID(ctx, campaignID, groupID)
	if err != nil {
		return err
	}
	if g.HasSales() {
		return domain.InvalidStateError("a group with recorded sales cannot be deleted")
	}
	return s.repo.DeleteGroup(ctx, campaignID, groupID)
}

func (s *Service) ListVolunteerGroups(ctx context.Context, troopID, campaignID uuid.UUID) ([]domain.DirectSalesGroup, error) {
	if _, err := s.repo.FindCampaignByID(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListGroups(ctx, campaignID)
}

// CalculateDirectSalesProfit reports what each scout volunteer has earned from direct sales.
// It never writes to the ledger.
func (s *Service) CalculateDirectSalesProfit(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.DirectSalesProfit, error) {
	if _, err := s.repo.FindCampaignByID(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	groups, err := s.repo.ListGroups(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load direct sales groups: %w", err)
	}
	return calculateDirectSalesProfit(campaignID, groups), nil
}

// calculateDirectSalesProfit splits each sold item's IBA credit equally among the group's
// scout volunteers. Adult volunteers earn nothing, and a group without scouts credits no one.
func calculateDirectSalesProfit(campaignID uuid.UUID, groups []domain.DirectSalesGroup) *domain.DirectSalesProfit {
	index := make(map[uuid.UUID]int)
	shares := []domain.DirectSalesShare{}

	for _, g := range groups {
		scouts := g.ScoutVolunteers()
		if len(scouts) == 0 {
			continue
		}
		for _, it := range g.Items {
			if it.SoldCount <= 0 {
				continue
			}
			profit := it.IBAAmount.MulInt(int64(it.SoldCount))
			each := profit.DivInt(int64(len(scouts)))
			detail := fmt.Sprintf("%s (%s): %d sold × $%s ÷ %d scouts = $%s",
				g.Name, it.ProductName, it.SoldCount, it.IBAAmount, len(scouts), each)
			for _, v := range scouts {
				i, ok := index[*v.ScoutID]
				if !ok {
					i = len(shares)
					index[*v.ScoutID] = i
					shares = append(shares, domain.DirectSalesShare{ScoutID: *v.ScoutID, ScoutName: v.Name, Details: []string{}})
				}
				shares[i].Amount = shares[i].Amount.Add(each)
				shares[i].Details = append(shares[i].Details, detail)
			}
		}
	}

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].ScoutName < shares[j].ScoutName })
	total := domain.Zero
	for _, sh := range shares {
		total = total.Add(sh.Amount)
	}
	return &domain.DirectSalesProfit{CampaignID: campaignID, Shares: shares, Total: total}
}
