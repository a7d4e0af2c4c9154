package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DirectSalesInventory is stock of a campaign product available for volunteer groups.
type DirectSalesInventory struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Allocated   int       `json:"allocated"`
}

// Available is the quantity not yet handed to a group.
func (i *DirectSalesInventory) Available() int { return i.Quantity - i.Allocated }

// DirectSalesGroup is a team of volunteers selling allocated inventory.
type DirectSalesGroup struct {
	ID         uuid.UUID              `json:"id"`
	CampaignID uuid.UUID              `json:"campaign_id"`
	Name       string                 `json:"name"`
	Items      []DirectSalesGroupItem `json:"items"`
	Volunteers []DirectSalesVolunteer `json:"volunteers"`
}

// ScoutVolunteers returns the volunteers who are scouts.
func (g *DirectSalesGroup) ScoutVolunteers() []DirectSalesVolunteer {
	out := make([]DirectSalesVolunteer, 0, len(g.Volunteers))
	for _, v := range g.Volunteers {
		if v.ScoutID != nil {
			out = append(out, v)
		}
	}
	return out
}

// HasSales reports whether any item in the group has recorded sales.
func (g *DirectSalesGroup) HasSales() bool {
	for _, it := range g.Items {
		if it.SoldCount > 0 || it.AmountCollected.IsPositive() {
			return true
		}
	}
	return false
}

// DirectSalesGroupItem is a quantity of one inventory row handed to a group.
type DirectSalesGroupItem struct {
	ID              uuid.UUID `json:"id"`
	GroupID         uuid.UUID `json:"group_id"`
	InventoryID     uuid.UUID `json:"inventory_id"`
	ProductName     string    `json:"product_name"`
	Price           Money     `json:"price"`
	IBAAmount       Money     `json:"iba_amount"`
	Quantity        int       `json:"quantity"`
	SoldCount       int       `json:"sold_count"`
	AmountCollected Money     `json:"amount_collected"`
}

// DirectSalesVolunteer is either a scout or an adult, never both.
type DirectSalesVolunteer struct {
	ScoutID *uuid.UUID `json:"scout_id,omitempty"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	Name    string     `json:"name"`
}

// CreateInventoryRequest stocks a campaign product for direct sales.
type CreateInventoryRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (r CreateInventoryRequest) Validate() error {
	if r.ProductID == uuid.Nil {
		return NewValidationError("product_id", "is required")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than zero")
	}
	return nil
}

// GroupItemInput allocates inventory to a new group.
type GroupItemInput struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	Quantity    int       `json:"quantity"`
}

// CreateGroupRequest builds a volunteer group with its allocation.
type CreateGroupRequest struct {
	Name     string           `json:"name"`
	Items    []GroupItemInput `json:"items"`
	ScoutIDs []uuid.UUID      `json:"scout_ids"`
	AdultIDs []uuid.UUID      `json:"adult_ids"`
}

func (r CreateGroupRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(r.Items) == 0 {
		return NewValidationError("items", "at least one product is required")
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return NewValidationError("items", "quantity must be greater than zero")
		}
	}
	if len(r.ScoutIDs)+len(r.AdultIDs) == 0 {
		return NewValidationError("volunteers", "at least one volunteer is required")
	}
	return nil
}

// RequestedQuantities sums the request's quantity per inventory row.
func (r CreateGroupRequest) RequestedQuantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(r.Items))
	for _, it := range r.Items {
		out[it.InventoryID] += it.Quantity
	}
	return out
}

// GroupSalesUpdate records what a group sold of one item.
type GroupSalesUpdate struct {
	ItemID          uuid.UUID `json:"item_id"`
	SoldCount       int       `json:"sold_count"`
	AmountCollected Money     `json:"amount_collected"`
}

// UpdateGroupSalesRequest records sales for several items of one group.
type UpdateGroupSalesRequest struct {
	Updates []GroupSalesUpdate `json:"updates"`
}

func (r UpdateGroupSalesRequest) Validate() error {
	for _, u := range r.Updates {
		if u.SoldCount < 0 {
			return NewValidationError("sold_count", "cannot be negative")
		}
		if u.AmountCollected.IsNegative() {
			return NewValidationError("amount_collected", "cannot be negative")
		}
	}
	return nil
}

// DirectSalesShare is a scout's accumulated direct-sales profit.
type DirectSalesShare struct {
	ScoutID   uuid.UUID `json:"scout_id"`
	ScoutName string    `json:"scout_name"`
	Amount    Money     `json:"amount"`
	Details   []string  `json:"details"`
}

// DirectSalesProfit is the read-only profit report of a campaign's direct sales.
type DirectSalesProfit struct {
	CampaignID uuid.UUID          `json:"campaign_id"`
	Shares     []DirectSalesShare `json:"shares"`
	Total      Money              `json:"total"`
}
