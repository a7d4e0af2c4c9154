package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	sheetScouts       = "Scouts"
	sheetTransactions = "Transactions"
	sheetCampaigns    = "Campaigns"
	sheetSummary      = "Summary"
)

// ExportTroopWorkbook writes the troop's ledger as an XLSX workbook with Scouts, Transactions,
// Campaigns and Summary sheets.
func (s *Service) ExportTroopWorkbook(ctx context.Context, troopID uuid.UUID, w io.Writer) error {
	var (
		troop     *domain.Troop
		scouts    []domain.Scout
		txs       []domain.Transaction
		campaigns []domain.FundraisingCampaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.repo.FindTroopByID(gctx, troopID)
		troop = t
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListScouts(gctx, troopID)
		scouts = list
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListTransactions(gctx, store.TransactionFilter{TroopID: troopID})
		txs = list
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListCampaigns(gctx, troopID)
		campaigns = list
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load export data: %w", err)
	}

	f, err := buildLedgerWorkbook(troop, scouts, txs, campaigns)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildLedgerWorkbook(troop *domain.Troop, scouts []domain.Scout, txs []domain.Transaction, campaigns []domain.FundraisingCampaign) (*excelize.File, error) {
	f := excelize.NewFile()
	names := make(map[uuid.UUID]string, len(scouts))
	for _, sc := range scouts {
		names[sc.ID] = sc.Name
	}

	scoutRows := make([][]interface{}, 0, len(scouts))
	for _, sc := range scouts {
		scoutRows = append(scoutRows, []interface{}{sc.Name, string(sc.Status), sc.IBABalance.InexactFloat64()})
	}

	txRows := make([][]interface{}, 0, len(txs))
	for _, t := range txs {
		scout := ""
		if t.ScoutID != nil {
			scout = names[*t.ScoutID]
		}
		txRows = append(txRows, []interface{}{
			t.CreatedAt.Format("2006-01-02"),
			string(t.Type),
			t.Description,
			scout,
			t.Amount.InexactFloat64(),
			string(t.Status),
			string(t.Origin),
			t.IsRefund,
		})
	}

	campaignRows := make([][]interface{}, 0, len(campaigns))
	for _, c := range campaigns {
		campaignRows = append(campaignRows, []interface{}{
			c.Name,
			string(c.Type),
			string(c.Status),
			c.Goal.InexactFloat64(),
			c.IBAPercentage,
			c.VolunteerPercentage.InexactFloat64(),
		})
	}

	sum := summarizeTroopFinances(txs, scouts)
	summaryRows := [][]interface{}{
		{"Troop", troop.Name},
		{"Troop income", sum.TroopIncome.InexactFloat64()},
		{"Troop expenses", sum.TroopExpenses.InexactFloat64()},
		{"Troop funds", sum.TroopFunds.InexactFloat64()},
		{"Cash held by organizers", sum.OrganizerCash.InexactFloat64()},
		{"IBA reserve", sum.IBAReserve.InexactFloat64()},
		{"IBA deposits", sum.IBADepositTotal.InexactFloat64()},
	}

	sheets := []struct {
		name    string
		headers []interface{}
		rows    [][]interface{}
	}{
		{sheetSummary, []interface{}{"Item", "Value"}, summaryRows},
		{sheetScouts, []interface{}{"Name", "Status", "IBA balance"}, scoutRows},
		{sheetTransactions, []interface{}{"Date", "Type", "Description", "Scout", "Amount", "Status", "Origin", "Refund"}, txRows},
		{sheetCampaigns, []interface{}{"Name", "Type", "Status", "Goal", "IBA %", "Volunteer %"}, campaignRows},
	}
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, sh.name, sh.headers, sh.rows); err != nil {
			return nil, fmt.Errorf("failed to write %s sheet: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
