/**
 * @description
 * Fundraising campaign models: campaigns with their products, orders and volunteers, the typed
 * requests that create and change them, and the distribution read model that splits a
 * campaign's net profit between the troop, volunteers and sellers.
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignType distinguishes general fundraisers from product sales.
type CampaignType string

const (
	CampaignGeneral     CampaignType = "GENERAL"
	CampaignProductSale CampaignType = "PRODUCT_SALE"
)

// CampaignStatus is the lifecycle of a campaign. CLOSED can be reopened to ACTIVE.
type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "DRAFT"
	CampaignActive CampaignStatus = "ACTIVE"
	CampaignClosed CampaignStatus = "CLOSED"
)

// FundraisingCampaign is a troop fundraiser.
type FundraisingCampaign struct {
	ID                  uuid.UUID         `json:"id"`
	TroopID             uuid.UUID         `json:"troop_id"`
	Name                string            `json:"name"`
	Goal                Money             `json:"goal"`
	Type                CampaignType      `json:"type"`
	IBAPercentage       int               `json:"iba_percentage"`
	VolunteerPercentage decimal.Decimal   `json:"volunteer_percentage"`
	TicketPrice         *Money            `json:"ticket_price,omitempty"`
	Status              CampaignStatus    `json:"status"`
	StartDate           time.Time         `json:"start_date"`
	EndDate             *time.Time        `json:"end_date,omitempty"`
	Products            []CampaignProduct `json:"products"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Product returns the campaign product with the given id.
func (c *FundraisingCampaign) Product(id uuid.UUID) (*CampaignProduct, bool) {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i], true
		}
	}
	return nil, false
}

// CampaignProduct is something sold in a campaign. IBAAmount is the per-unit seller credit.
type CampaignProduct struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	Name       string    `json:"name"`
	Price      Money     `json:"price"`
	Cost       Money     `json:"cost"`
	IBAAmount  Money     `json:"iba_amount"`
}

// FundraisingOrder is a scout's sale to a customer.
type FundraisingOrder struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	ScoutID      uuid.UUID  `json:"scout_id"`
	ScoutName    string     `json:"scout_name"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	Quantity     int        `json:"quantity"`
	Delivered    bool       `json:"delivered"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CampaignVolunteer is a scout helping run the campaign.
type CampaignVolunteer struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	ScoutID    uuid.UUID `json:"scout_id"`
	ScoutName  string    `json:"scout_name"`
}

// ProductInput describes a product when creating a campaign.
type ProductInput struct {
	Name      string `json:"name"`
	Price     Money  `json:"price"`
	Cost      Money  `json:"cost"`
	IBAAmount Money  `json:"iba_amount"`
}

// CreateCampaignRequest is the input for a new DRAFT campaign.
type CreateCampaignRequest struct {
	Name                string          `json:"name"`
	Goal                Money           `json:"goal"`
	Type                CampaignType    `json:"type"`
	IBAPercentage       int             `json:"iba_percentage"`
	VolunteerPercentage decimal.Decimal `json:"volunteer_percentage"`
	TicketPrice         *Money          `json:"ticket_price,omitempty"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	Products            []ProductInput  `json:"products"`
}

func (r CreateCampaignRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if r.Type != CampaignGeneral && r.Type != CampaignProductSale {
		return NewValidationError("type", "unknown campaign type %q", r.Type)
	}
	if r.Goal.IsNegative() {
		return NewValidationError("goal", "cannot be negative")
	}
	if err := validatePercentages(r.IBAPercentage, r.VolunteerPercentage); err != nil {
		return err
	}
	if r.TicketPrice != nil && r.TicketPrice.IsNegative() {
		return NewValidationError("ticket_price", "cannot be negative")
	}
	if r.StartDate.IsZero() {
		return NewValidationError("start_date", "is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return NewValidationError("end_date", "must not be before start_date")
	}
	for i, p := range r.Products {
		if strings.TrimSpace(p.Name) == "" {
			return NewValidationError("products", "product %d has no name", i)
		}
		if p.Price.IsNegative() || p.Cost.IsNegative() || p.IBAAmount.IsNegative() {
			return NewValidationError("products", "product %q has a negative amount", p.Name)
		}
	}
	return nil
}

// UpdateCampaignSettingsRequest changes the split settings of a campaign that is not CLOSED.
type UpdateCampaignSettingsRequest struct {
	Name                string          `json:"name"`
	Goal                Money           `json:"goal"`
	IBAPercentage       int             `json:"iba_percentage"`
	VolunteerPercentage decimal.Decimal `json:"volunteer_percentage"`
	TicketPrice         *Money          `json:"ticket_price,omitempty"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
}

func (r UpdateCampaignSettingsRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if r.Goal.IsNegative() {
		return NewValidationError("goal", "cannot be negative")
	}
	if r.TicketPrice != nil && r.TicketPrice.IsNegative() {
		return NewValidationError("ticket_price", "cannot be negative")
	}
	return validatePercentages(r.IBAPercentage, r.VolunteerPercentage)
}

func validatePercentages(iba int, volunteer decimal.Decimal) error {
	if iba < 0 || iba > 100 {
		return NewValidationError("iba_percentage", "must be between 0 and 100")
	}
	if volunteer.IsNegative() || volunteer.GreaterThan(decimal.NewFromInt(100)) {
		return NewValidationError("volunteer_percentage", "must be between 0 and 100")
	}
	return nil
}

// CampaignEntryKind is the direction of a manual campaign ledger entry.
type CampaignEntryKind string

const (
	CampaignIncome  CampaignEntryKind = "INCOME"
	CampaignExpense CampaignEntryKind = "EXPENSE"
)

// CampaignTransactionRequest records a donation or a cost against a campaign.
type CampaignTransactionRequest struct {
	Kind        CampaignEntryKind `json:"kind"`
	Amount      Money             `json:"amount"`
	Description string            `json:"description"`
}

func (r CampaignTransactionRequest) Validate() error {
	if r.Kind != CampaignIncome && r.Kind != CampaignExpense {
		return NewValidationError("kind", "must be INCOME or EXPENSE")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError("description", "is required")
	}
	return nil
}

// TransactionType maps the entry kind onto the ledger type it is recorded as.
func (k CampaignEntryKind) TransactionType() TransactionType {
	if k == CampaignIncome {
		return TxDonationIn
	}
	return TxExpense
}

// AddOrderRequest records a scout's sale.
type AddOrderRequest struct {
	ScoutID      uuid.UUID  `json:"scout_id"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	Quantity     int        `json:"quantity"`
}

func (r AddOrderRequest) Validate() error {
	if r.ScoutID == uuid.Nil {
		return NewValidationError("scout_id", "is required")
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		return NewValidationError("customer_name", "is required")
	}
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "must be greater than zero")
	}
	return nil
}

// DistributionMode is the allocation strategy a distribution used.
type DistributionMode string

const (
	DistributionNone    DistributionMode = "NONE"
	DistributionProduct DistributionMode = "PRODUCT"
	DistributionPool    DistributionMode = "POOL"
)

// DistributionShare is what one scout receives from a campaign.
type DistributionShare struct {
	ScoutID   uuid.UUID `json:"scout_id"`
	ScoutName string    `json:"scout_name"`
	Seller    Money     `json:"seller"`
	Volunteer Money     `json:"volunteer"`
	Amount    Money     `json:"amount"`
}

// Distribution is the split of a campaign's net profit.
type Distribution struct {
	CampaignID     uuid.UUID           `json:"campaign_id"`
	Revenue        Money               `json:"revenue"`
	Expenses       Money               `json:"expenses"`
	NetProfit      Money               `json:"net_profit"`
	IBATotal       Money               `json:"iba_total"`
	VolunteerTotal Money               `json:"volunteer_total"`
	SellerTotal    Money               `json:"seller_total"`
	Mode           DistributionMode    `json:"mode"`
	Shares         []DistributionShare `json:"shares"`
	TroopShare     Money               `json:"troop_share"`
}

// SharesTotal sums every scout share.
func (d *Distribution) SharesTotal() Money {
	total := Zero
	for _, s := range d.Shares {
		total = total.Add(s.Amount)
	}
	return total
}
