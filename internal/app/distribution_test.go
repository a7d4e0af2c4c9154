package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/troopledger/ledger-service/internal/domain"
)

func TestCalculateDistribution_ProductCredits(t *testing.T) {
	seller := uuid.New()
	product := domain.CampaignProduct{ID: uuid.New(), Name: "Wreath", Price: m("10"), IBAAmount: m("2")}
	campaign := &domain.FundraisingCampaign{
		ID:            uuid.New(),
		IBAPercentage: 30,
		Status:        domain.CampaignActive,
		Products:      []domain.CampaignProduct{product},
	}
	orders := []domain.FundraisingOrder{
		{ScoutID: seller, ScoutName: "Sam", ProductID: uuidPtr(product.ID), Quantity: 10},
	}

	d := calculateDistribution(distributionInput{campaign: campaign, orders: orders})

	if d.Mode != domain.DistributionProduct {
		t.Fatalf("expected product mode, got %s", d.Mode)
	}
	if !d.Revenue.Equal(m("100")) || !d.NetProfit.Equal(m("100")) {
		t.Fatalf("expected revenue and net 100, got %s and %s", d.Revenue, d.NetProfit)
	}
	if !d.IBATotal.Equal(m("30")) {
		t.Fatalf("expected IBA pool 30, got %s", d.IBATotal)
	}
	if len(d.Shares) != 1 || !d.Shares[0].Amount.Equal(m("20")) {
		t.Fatalf("expected Sam to get 20, got %+v", d.Shares)
	}
	if !d.TroopShare.Equal(m("80")) {
		t.Fatalf("expected troop share 80, got %s", d.TroopShare)
	}
}

func TestCalculateDistribution_Pool(t *testing.T) {
	a, b, v := uuid.New(), uuid.New(), uuid.New()
	ticket := m("5")
	campaign := &domain.FundraisingCampaign{
		ID:                  uuid.New(),
		IBAPercentage:       50,
		VolunteerPercentage: decimal.NewFromInt(10),
		TicketPrice:         &ticket,
		Status:              domain.CampaignActive,
	}
	expense := approved(domain.TxExpense, "50")
	donation := approved(domain.TxDonationIn, "50")
	orders := []domain.FundraisingOrder{
		{ScoutID: a, ScoutName: "Ann", Quantity: 20},
		{ScoutID: b, ScoutName: "Ben", Quantity: 5},
		{ScoutID: a, ScoutName: "Ann", Quantity: 5},
	}
	volunteers := []domain.CampaignVolunteer{{ScoutID: v, ScoutName: "Vic"}, {ScoutID: b, ScoutName: "Ben"}}

	d := calculateDistribution(distributionInput{
		campaign:     campaign,
		transactions: []domain.Transaction{expense, donation},
		orders:       orders,
		volunteers:   volunteers,
	})

	// revenue 50 + 30 tickets × 5 = 200, net 150, IBA pool 75, volunteers 15, sellers 60
	if !d.NetProfit.Equal(m("150")) || d.Mode != domain.DistributionPool {
		t.Fatalf("expected pool mode with net 150, got %s %s", d.Mode, d.NetProfit)
	}
	if !d.VolunteerTotal.Equal(m("15")) || !d.SellerTotal.Equal(m("60")) {
		t.Fatalf("expected volunteer 15 and seller 60, got %s and %s", d.VolunteerTotal, d.SellerTotal)
	}

	want := map[string]string{"Ann": "50", "Ben": "17.50", "Vic": "7.50"}
	if len(d.Shares) != len(want) {
		t.Fatalf("expected %d shares, got %+v", len(want), d.Shares)
	}
	for _, s := range d.Shares {
		if !s.Amount.Equal(m(want[s.ScoutName])) {
			t.Fatalf("expected %s to get %s, got %s", s.ScoutName, want[s.ScoutName], s.Amount)
		}
	}
	if !d.SharesTotal().Equal(d.IBATotal) {
		t.Fatalf("expected shares to exhaust the IBA pool %s, got %s", d.IBATotal, d.SharesTotal())
	}
	if !d.TroopShare.Add(d.SharesTotal()).Equal(d.NetProfit) {
		t.Fatalf("expected troop share plus shares to equal net profit")
	}
}

func TestCalculateDistribution_NoProfit(t *testing.T) {
	campaign := &domain.FundraisingCampaign{ID: uuid.New(), IBAPercentage: 30, Status: domain.CampaignActive}
	d := calculateDistribution(distributionInput{
		campaign:     campaign,
		transactions: []domain.Transaction{approved(domain.TxDonationIn, "40"), approved(domain.TxExpense, "40")},
		volunteers:   []domain.CampaignVolunteer{{ScoutID: uuid.New(), ScoutName: "Vic"}},
	})
	if d.Mode != domain.DistributionNone || len(d.Shares) != 0 {
		t.Fatalf("expected an empty distribution, got %s with %d shares", d.Mode, len(d.Shares))
	}
}

func TestCalculateDistribution_HistoricalViewCountsDeposits(t *testing.T) {
	campaign := &domain.FundraisingCampaign{ID: uuid.New(), IBAPercentage: 30, Status: domain.CampaignClosed}
	txs := []domain.Transaction{approved(domain.TxDonationIn, "100"), approved(domain.TxIBADeposit, "30")}

	live := calculateDistribution(distributionInput{campaign: campaign, transactions: txs})
	historical := calculateDistribution(distributionInput{campaign: campaign, transactions: txs, historical: true})

	if !live.Expenses.IsZero() {
		t.Fatalf("expected deposits ignored in the live view, got expenses %s", live.Expenses)
	}
	if !historical.Expenses.Equal(m("30")) || !historical.NetProfit.Equal(m("70")) {
		t.Fatalf("expected historical expenses 30 and net 70, got %s and %s", historical.Expenses, historical.NetProfit)
	}
}

func TestCalculateDirectSalesProfit(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	adult := uuid.New()
	groups := []domain.DirectSalesGroup{
		{
			Name: "Saturday",
			Items: []domain.DirectSalesGroupItem{
				{ProductName: "Popcorn", IBAAmount: m("3"), SoldCount: 10},
				{ProductName: "Candy", IBAAmount: m("1"), SoldCount: 0},
			},
			Volunteers: []domain.DirectSalesVolunteer{
				{ScoutID: uuidPtr(s1), Name: "Ann"},
				{ScoutID: uuidPtr(s2), Name: "Ben"},
				{UserID: uuidPtr(adult), Name: "Parent"},
			},
		},
		{
			Name:       "Adults only",
			Items:      []domain.DirectSalesGroupItem{{ProductName: "Popcorn", IBAAmount: m("3"), SoldCount: 4}},
			Volunteers: []domain.DirectSalesVolunteer{{UserID: uuidPtr(adult), Name: "Parent"}},
		},
	}

	got := calculateDirectSalesProfit(uuid.New(), groups)

	if len(got.Shares) != 2 {
		t.Fatalf("expected 2 scout shares, got %+v", got.Shares)
	}
	for _, s := range got.Shares {
		if !s.Amount.Equal(m("15")) {
			t.Fatalf("expected %s to earn 15, got %s", s.ScoutName, s.Amount)
		}
		want := "Saturday (Popcorn): 10 sold × $3.00 ÷ 2 scouts = $15.00"
		if len(s.Details) != 1 || s.Details[0] != want {
			t.Fatalf("expected detail %q, got %v", want, s.Details)
		}
	}
	if !got.Total.Equal(m("30")) {
		t.Fatalf("expected total 30, got %s", got.Total)
	}
}
