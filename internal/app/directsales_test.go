package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

func directSalesFixture(repo *fakeLedgerRepo, quantity, allocated int) (*domain.FundraisingCampaign, domain.DirectSalesInventory) {
	campaign := &domain.FundraisingCampaign{
		ID:      uuid.New(),
		TroopID: repo.troopID,
		Name:    "Popcorn",
		Status:  domain.CampaignActive,
	}
	repo.campaigns[campaign.ID] = campaign
	inv := domain.DirectSalesInventory{
		ID:          uuid.New(),
		CampaignID:  campaign.ID,
		ProductID:   uuid.New(),
		ProductName: "Caramel corn",
		Quantity:    quantity,
		Allocated:   allocated,
	}
	repo.inventory = append(repo.inventory, inv)
	return campaign, inv
}

func TestCreateVolunteerGroup_InventoryAvailability(t *testing.T) {
	tests := []struct {
		name      string
		allocated int
		requested int
		unknown   bool
		wantErr   error
	}{
		{name: "fits", allocated: 4, requested: 6},
		{name: "exceeds remaining", allocated: 4, requested: 7, wantErr: domain.ErrValidation},
		{name: "exceeds stock", requested: 11, wantErr: domain.ErrValidation},
		{name: "unknown inventory", requested: 1, unknown: true, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeLedgerRepo()
			svc := newTestService(repo)
			sc := repo.addScout("Sam", "0")
			campaign, inv := directSalesFixture(repo, 10, tt.allocated)
			inventoryID := inv.ID
			if tt.unknown {
				inventoryID = uuid.New()
			}

			g, err := svc.CreateVolunteerGroup(context.Background(), repo.troopID, campaign.ID, domain.CreateGroupRequest{
				Name:     "Saturday table",
				Items:    []domain.GroupItemInput{{InventoryID: inventoryID, Quantity: tt.requested}},
				ScoutIDs: []uuid.UUID{sc.ID},
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(repo.groups) != 0 || repo.inventory[0].Allocated != tt.allocated {
					t.Fatalf("expected nothing allocated, got %d groups and %d allocated", len(repo.groups), repo.inventory[0].Allocated)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected group to be created, got %v", err)
			}
			if len(g.Volunteers) != 1 || g.Volunteers[0].Name != "Sam" {
				t.Fatalf("expected sam as the only volunteer, got %+v", g.Volunteers)
			}
			if got := repo.inventory[0].Allocated; got != tt.allocated+tt.requested {
				t.Fatalf("expected %d allocated, got %d", tt.allocated+tt.requested, got)
			}
		})
	}
}

func TestCreateVolunteerGroup_ClosedCampaign(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	sc := repo.addScout("Sam", "0")
	campaign, inv := directSalesFixture(repo, 10, 0)
	campaign.Status = domain.CampaignClosed

	_, err := svc.CreateVolunteerGroup(context.Background(), repo.troopID, campaign.ID, domain.CreateGroupRequest{
		Name:     "Saturday table",
		Items:    []domain.GroupItemInput{{InventoryID: inv.ID, Quantity: 1}},
		ScoutIDs: []uuid.UUID{sc.ID},
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected closed campaign to reject the group, got %v", err)
	}
}

func TestUpdateGroupSales_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		unknown   bool
		sold      int
		collected string
		wantErr   error
	}{
		{name: "within allocation", sold: 3, collected: "15"},
		{name: "everything sold", sold: 5, collected: "25"},
		{name: "short on cash", sold: 5, collected: "20"},
		{name: "sold over allocation", sold: 6, collected: "25", wantErr: domain.ErrValidation},
		{name: "collected over price", sold: 2, collected: "10.01", wantErr: domain.ErrValidation},
		{name: "negative sold", sold: -1, collected: "0", wantErr: domain.ErrValidation},
		{name: "item from another group", unknown: true, sold: 1, collected: "5", wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeLedgerRepo()
			svc := newTestService(repo)
			campaign, inv := directSalesFixture(repo, 10, 5)
			item := domain.DirectSalesGroupItem{
				ID:          uuid.New(),
				InventoryID: inv.ID,
				ProductName: inv.ProductName,
				Price:       m("5"),
				IBAAmount:   m("1"),
				Quantity:    5,
			}
			group := domain.DirectSalesGroup{ID: uuid.New(), CampaignID: campaign.ID, Name: "Saturday table", Items: []domain.DirectSalesGroupItem{item}}
			repo.groups = append(repo.groups, group)
			itemID := item.ID
			if tt.unknown {
				itemID = uuid.New()
			}

			g, err := svc.UpdateGroupSales(context.Background(), repo.troopID, campaign.ID, group.ID, domain.UpdateGroupSalesRequest{
				Updates: []domain.GroupSalesUpdate{{ItemID: itemID, SoldCount: tt.sold, AmountCollected: m(tt.collected)}},
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if repo.groups[0].Items[0].SoldCount != 0 {
					t.Fatalf("expected no sales recorded, got %d", repo.groups[0].Items[0].SoldCount)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected sales to be recorded, got %v", err)
			}
			if got := g.Items[0]; got.SoldCount != tt.sold || !got.AmountCollected.Equal(m(tt.collected)) {
				t.Fatalf("expected %d sold for %s, got %d for %s", tt.sold, tt.collected, got.SoldCount, got.AmountCollected)
			}
		})
	}
}

func TestDeleteVolunteerGroup_RefusesRecordedSales(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	campaign, inv := directSalesFixture(repo, 10, 5)
	group := domain.DirectSalesGroup{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		Items:      []domain.DirectSalesGroupItem{{ID: uuid.New(), InventoryID: inv.ID, Price: m("5"), Quantity: 5, SoldCount: 1, AmountCollected: m("5")}},
	}
	repo.groups = append(repo.groups, group)

	err := svc.DeleteVolunteerGroup(context.Background(), repo.troopID, campaign.ID, group.ID)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected a group with sales to stay, got %v", err)
	}
	if err := svc.DeleteVolunteerGroup(context.Background(), repo.troopID, campaign.ID, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
