package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

const maxTransactionPage = 500

func (h *Handlers) ListScouts(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	scouts, err := h.service.ListScouts(r.Context(), troopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, scouts)
}

func (h *Handlers) GetScoutLedger(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	scoutID, ok := urlUUID(w, r, "scoutID")
	if !ok {
		return
	}
	ledger, err := h.service.GetScoutLedger(r.Context(), troopID, scoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, ledger)
}

// ListTransactions supports scout_id, campout_id, campaign_id, status, origin and limit filters.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	filter, err := transactionFilterFromQuery(troopID, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, txs)
}

func transactionFilterFromQuery(troopID uuid.UUID, r *http.Request) (store.TransactionFilter, error) {
	q := r.URL.Query()
	filter := store.TransactionFilter{TroopID: troopID, Limit: 100}

	optionalID := func(name string) (*uuid.UUID, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s", name)
		}
		return &id, nil
	}
	var err error
	if filter.ScoutID, err = optionalID("scout_id"); err != nil {
		return filter, err
	}
	if filter.CampoutID, err = optionalID("campout_id"); err != nil {
		return filter, err
	}
	if filter.CampaignID, err = optionalID("campaign_id"); err != nil {
		return filter, err
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.TransactionStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("origin"); raw != "" {
		origin := domain.TransactionOrigin(raw)
		filter.Origin = &origin
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("invalid limit")
		}
		if limit > maxTransactionPage {
			limit = maxTransactionPage
		}
		filter.Limit = limit
	}
	return filter, nil
}

// RecordTransaction records a generic ledger entry. Entries by non-privileged members stay
// PENDING until approved.
func (h *Handlers) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	var req domain.RecordTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TroopID = troopID
	req.ActorID = member.UserID
	req.ActorPrivileged = member.Role.Privileged()

	txs, err := h.service.RecordTransaction(r.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"troop_id": troopID, "type": req.Type}).Warn("record transaction rejected")
		h.writeServiceError(w, r, err)
		return
	}
	message := "Transaction recorded"
	if len(txs) > 0 && txs[0].Status == domain.StatusPending {
		message = "Transaction submitted for approval"
	}
	writeSuccess(w, http.StatusCreated, message, nil, txs)
}

func (h *Handlers) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	txID, ok := urlUUID(w, r, "transactionID")
	if !ok {
		return
	}
	tx, err := h.service.ApproveTransaction(r.Context(), troopID, txID, member.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction approved", nil, tx)
}

func (h *Handlers) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	txID, ok := urlUUID(w, r, "transactionID")
	if !ok {
		return
	}
	tx, err := h.service.RejectTransaction(r.Context(), troopID, txID, member.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction rejected", nil, tx)
}

func (h *Handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	txID, ok := urlUUID(w, r, "transactionID")
	if !ok {
		return
	}
	var req domain.UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.service.UpdateTransaction(r.Context(), troopID, txID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction updated", nil, tx)
}

func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	txID, ok := urlUUID(w, r, "transactionID")
	if !ok {
		return
	}
	tx, err := h.service.DeleteTransaction(r.Context(), troopID, txID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction deleted", nil, tx)
}

func (h *Handlers) BulkRecordIBADeposits(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	var req domain.BulkIBADepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.service.BulkRecordIBADeposits(r.Context(), troopID, member.UserID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var details []string
	for _, s := range result.Skipped {
		details = append(details, fmt.Sprintf("skipped %s ($%s): %s", s.ScoutID, s.Amount, s.Error))
	}
	message := fmt.Sprintf("Recorded %d deposit(s)", len(result.Successful))
	writeSuccess(w, http.StatusCreated, message, details, result)
}

func (h *Handlers) GetTroopFinanceSummary(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	summary, err := h.service.GetTroopFinanceSummary(r.Context(), troopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, summary)
}

// ReconcileBalances reports balance drift; repair=true also rewrites the cached balances.
func (h *Handlers) ReconcileBalances(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	repair, _ := strconv.ParseBool(r.URL.Query().Get("repair"))
	report, err := h.service.ReconcileBalances(r.Context(), troopID, repair)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var details []string
	for _, d := range report.Drifts {
		details = append(details, fmt.Sprintf("%s: cached $%s, computed $%s", d.Name, d.Cached, d.Computed))
	}
	message := fmt.Sprintf("Checked %d scout(s), %d drifted", report.ScoutsChecked, len(report.Drifts))
	writeSuccess(w, http.StatusOK, message, details, report)
}

// ExportWorkbook streams the troop ledger as an XLSX download.
func (h *Handlers) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	filename := fmt.Sprintf("troop-ledger-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	rec := &statusRecorder{ResponseWriter: w}
	if err := h.service.ExportTroopWorkbook(r.Context(), troopID, rec); err != nil {
		if rec.wrote {
			h.logger.WithError(err).WithField("troop_id", troopID).Error("workbook export aborted mid-stream")
			return
		}
		w.Header().Del("Content-Disposition")
		h.writeServiceError(w, r, err)
	}
}

// statusRecorder remembers whether the body has started, after which an error can no longer
// change the status code.
type statusRecorder struct {
	http.ResponseWriter
	wrote bool
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(p)
}
