package app

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/troopledger/ledger-service/internal/domain"
)

// distributionInput is everything the fundraising distribution is computed from.
type distributionInput struct {
	campaign     *domain.FundraisingCampaign
	transactions []domain.Transaction
	orders       []domain.FundraisingOrder
	volunteers   []domain.CampaignVolunteer
	groups       []domain.DirectSalesGroup
	// historical counts posted IBA deposits as expenses, giving the view of a closed campaign.
	historical bool
}

// calculateDistribution splits a campaign's net profit between scouts and the troop.
//
// When any ordered product carries a per-unit IBA amount the product-specific mode applies:
// sellers earn quantity × ibaAmount and volunteers split the volunteer pool. Otherwise sellers
// share what is left of the IBA pool after the volunteer pool, pro rata to units sold.
func calculateDistribution(in distributionInput) *domain.Distribution {
	d := &domain.Distribution{
		CampaignID: in.campaign.ID,
		Mode:       domain.DistributionNone,
		Shares:     []domain.DistributionShare{},
	}

	for i := range in.transactions {
		t := &in.transactions[i]
		if t.Status != domain.StatusApproved {
			continue
		}
		switch t.Type {
		case domain.TxDonationIn, domain.TxFundraisingIncome:
			d.Revenue = d.Revenue.Add(t.Amount)
		case domain.TxExpense:
			d.Expenses = d.Expenses.Add(t.Amount)
		case domain.TxIBADeposit:
			if in.historical {
				d.Expenses = d.Expenses.Add(t.Amount)
			}
		}
	}
	for _, o := range in.orders {
		d.Revenue = d.Revenue.Add(orderUnitPrice(in.campaign, o).MulInt(int64(o.Quantity)))
	}
	for _, g := range in.groups {
		for _, it := range g.Items {
			d.Revenue = d.Revenue.Add(it.AmountCollected)
		}
	}

	d.NetProfit = d.Revenue.Sub(d.Expenses)
	d.TroopShare = d.NetProfit
	if !d.NetProfit.IsPositive() {
		return d
	}

	d.IBATotal = d.NetProfit.MulPercent(decimalPercent(in.campaign.IBAPercentage))
	d.VolunteerTotal = d.NetProfit.MulPercent(in.campaign.VolunteerPercentage)
	d.SellerTotal = domain.MaxMoney(domain.Zero, d.IBATotal.Sub(d.VolunteerTotal))

	shares := newShareBook()
	perVolunteer := d.VolunteerTotal.DivInt(int64(len(in.volunteers)))
	for _, v := range in.volunteers {
		shares.addVolunteer(v.ScoutID, v.ScoutName, perVolunteer)
	}

	if usesProductCredits(in.campaign, in.orders) {
		d.Mode = domain.DistributionProduct
		for _, o := range in.orders {
			if o.ProductID == nil {
				continue
			}
			p, ok := in.campaign.Product(*o.ProductID)
			if !ok {
				continue
			}
			shares.addSeller(o.ScoutID, o.ScoutName, p.IBAAmount.MulInt(int64(o.Quantity)))
		}
	} else {
		d.Mode = domain.DistributionPool
		units := make(map[uuid.UUID]int64)
		names := make(map[uuid.UUID]string)
		var sellers []uuid.UUID
		var totalUnits int64
		for _, o := range in.orders {
			if _, ok := units[o.ScoutID]; !ok {
				sellers = append(sellers, o.ScoutID)
			}
			units[o.ScoutID] += int64(o.Quantity)
			names[o.ScoutID] = o.ScoutName
			totalUnits += int64(o.Quantity)
		}
		for _, id := range sellers {
			shares.addSeller(id, names[id], d.SellerTotal.Prorate(units[id], totalUnits))
		}
	}

	d.Shares = shares.list()
	d.TroopShare = d.NetProfit.Sub(d.SharesTotal())
	return d
}

func orderUnitPrice(c *domain.FundraisingCampaign, o domain.FundraisingOrder) domain.Money {
	if o.ProductID != nil {
		if p, ok := c.Product(*o.ProductID); ok {
			return p.Price
		}
	}
	if c.TicketPrice != nil {
		return *c.TicketPrice
	}
	return domain.Zero
}

func usesProductCredits(c *domain.FundraisingCampaign, orders []domain.FundraisingOrder) bool {
	for _, o := range orders {
		if o.ProductID == nil {
			continue
		}
		if p, ok := c.Product(*o.ProductID); ok && p.IBAAmount.IsPositive() {
			return true
		}
	}
	return false
}

// shareBook accumulates per-scout shares in first-seen order.
type shareBook struct {
	index  map[uuid.UUID]int
	shares []domain.DistributionShare
}

func newShareBook() *shareBook {
	return &shareBook{index: make(map[uuid.UUID]int)}
}

func (b *shareBook) entry(scoutID uuid.UUID, name string) *domain.DistributionShare {
	i, ok := b.index[scoutID]
	if !ok {
		i = len(b.shares)
		b.index[scoutID] = i
		b.shares = append(b.shares, domain.DistributionShare{ScoutID: scoutID, ScoutName: name})
	}
	return &b.shares[i]
}

func (b *shareBook) addSeller(scoutID uuid.UUID, name string, amount domain.Money) {
	s := b.entry(scoutID, name)
	s.Seller = s.Seller.Add(amount)
	s.Amount = s.Amount.Add(amount)
}

func (b *shareBook) addVolunteer(scoutID uuid.UUID, name string, amount domain.Money) {
	s := b.entry(scoutID, name)
	s.Volunteer = s.Volunteer.Add(amount)
	s.Amount = s.Amount.Add(amount)
}

func (b *shareBook) list() []domain.DistributionShare {
	out := make([]domain.DistributionShare, 0, len(b.shares))
	for _, s := range b.shares {
		if s.Amount.IsPositive() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScoutName < out[j].ScoutName })
	return out
}

func decimalPercent(pct int) decimal.Decimal {
	return decimal.NewFromInt(int64(pct))
}
