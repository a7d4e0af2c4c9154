package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
)

type rosterScoutRequest struct {
	ScoutID uuid.UUID `json:"scout_id"`
}

type rosterAdultRequest struct {
	AdultID uuid.UUID        `json:"adult_id"`
	Role    domain.AdultRole `json:"role"`
}

type switchRoleRequest struct {
	From domain.AdultRole `json:"from"`
	To   domain.AdultRole `json:"to"`
}

func (h *Handlers) ListCampouts(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campouts, err := h.service.ListCampouts(r.Context(), troopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, campouts)
}

func (h *Handlers) CreateCampout(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	var req domain.CreateCampoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	campout, err := h.service.CreateCampout(r.Context(), troopID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Campout created", nil, campout)
}

func (h *Handlers) PublishCampout(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	campout, err := h.service.PublishCampout(r.Context(), troopID, campoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campout published", nil, campout)
}

func (h *Handlers) OpenCampoutPayments(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	campout, err := h.service.OpenCampoutPayments(r.Context(), troopID, campoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campout is ready for payment", nil, campout)
}

// CloseCampout accepts an optional organizer payout map settled before closing.
func (h *Handlers) CloseCampout(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.CloseCampoutRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	campout, payouts, err := h.service.CloseCampout(r.Context(), troopID, member.UserID, campoutID, req)
	var details []string
	if payouts != nil {
		details = payouts.Details()
	}
	if err != nil {
		h.writeServiceError(w, r, err, details...)
		return
	}
	writeSuccess(w, http.StatusOK, "Campout closed", details, campout)
}

func (h *Handlers) DeleteCampout(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	if err := h.service.DeleteCampout(r.Context(), troopID, campoutID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campout deleted", nil, nil)
}

func (h *Handlers) RegisterScout(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req rosterScoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	campout, err := h.service.RegisterScout(r.Context(), troopID, campoutID, req.ScoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Scout registered", nil, campout)
}

// RemoveScout returns payments left orphaned by the removal so leadership can refund them.
func (h *Handlers) RemoveScout(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	scoutID, ok := urlUUID(w, r, "scoutID")
	if !ok {
		return
	}
	change, err := h.service.RemoveScout(r.Context(), troopID, campoutID, scoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Scout removed", orphanDetails(change), change)
}

func (h *Handlers) AssignAdult(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req rosterAdultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	campout, err := h.service.AssignAdult(r.Context(), troopID, campoutID, req.AdultID, req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Adult assigned", nil, campout)
}

func (h *Handlers) SwitchAdultRole(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	adultID, ok := urlUUID(w, r, "adultID")
	if !ok {
		return
	}
	var req switchRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	change, err := h.service.SwitchAdultRole(r.Context(), troopID, campoutID, adultID, req.From, req.To)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Adult role switched", orphanDetails(change), change)
}

func (h *Handlers) RemoveAdult(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	adultID, ok := urlUUID(w, r, "adultID")
	if !ok {
		return
	}
	change, err := h.service.RemoveAdult(r.Context(), troopID, campoutID, adultID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Adult removed", orphanDetails(change), change)
}

func orphanDetails(change *domain.RosterChange) []string {
	if change == nil {
		return nil
	}
	var out []string
	for _, p := range change.OrphanedPayments {
		out = append(out, fmt.Sprintf("%s has $%s paid with no seat on the roster", p.Name, p.NetPaid))
	}
	return out
}

func (h *Handlers) LogCampoutExpense(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.CampoutExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.service.LogCampoutExpense(r.Context(), troopID, actorOf(member), campoutID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Expense logged", nil, result)
}

func (h *Handlers) UpdateAdultExpense(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	expenseID, ok := urlUUID(w, r, "expenseID")
	if !ok {
		return
	}
	var req domain.UpdateAdultExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.service.UpdateAdultExpense(r.Context(), troopID, actorOf(member), expenseID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense updated", nil, expense)
}

func (h *Handlers) DeleteAdultExpense(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	expenseID, ok := urlUUID(w, r, "expenseID")
	if !ok {
		return
	}
	if err := h.service.DeleteAdultExpense(r.Context(), troopID, actorOf(member), expenseID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense deleted", nil, nil)
}

func (h *Handlers) ApproveAdultExpense(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	expenseID, ok := urlUUID(w, r, "expenseID")
	if !ok {
		return
	}
	tx, err := h.service.ApproveAdultExpense(r.Context(), troopID, member.UserID, expenseID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Expense reimbursed", nil, tx)
}

// RecordCampoutPayment returns one or two transactions: cash can be split between the troop
// deficit and the organizer.
func (h *Handlers) RecordCampoutPayment(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.CampoutPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txs, err := h.service.RecordCampoutPayment(r.Context(), troopID, member.UserID, campoutID, req)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"campout_id": campoutID, "source": req.Source}).Warn("campout payment rejected")
		h.writeServiceError(w, r, err)
		return
	}
	details := make([]string, 0, len(txs))
	for _, tx := range txs {
		details = append(details, fmt.Sprintf("%s $%s", tx.Type, tx.Amount))
	}
	writeSuccess(w, http.StatusCreated, "Payment recorded", details, txs)
}

func (h *Handlers) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.RefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.service.ProcessRefund(r.Context(), troopID, member.UserID, campoutID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Refund processed", nil, tx)
}

func (h *Handlers) TransferIBAToCampout(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.IBATransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.service.TransferIBAToCampout(r.Context(), troopID, actorOf(member), campoutID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "IBA transfer recorded", nil, tx)
}

// RequestPayout notifies leadership on behalf of the calling adult.
func (h *Handlers) RequestPayout(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.PayoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.RequestPayout(r.Context(), troopID, member.UserID, campoutID, req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "Payout request sent to leadership", nil, nil)
}

func (h *Handlers) BatchIBAPayout(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	result, err := h.service.BatchIBAPayout(r.Context(), troopID, member.UserID, campoutID)
	var details []string
	if result != nil {
		details = result.Details()
	}
	if err != nil {
		h.writeServiceError(w, r, err, details...)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Charged %d participant(s)", len(result.Items)), details, result)
}

func (h *Handlers) PayoutOrganizers(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	var req domain.PayoutOrganizersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.service.PayoutOrganizers(r.Context(), troopID, member.UserID, campoutID, req)
	var details []string
	if result != nil {
		details = result.Details()
	}
	if err != nil {
		h.writeServiceError(w, r, err, details...)
		return
	}
	writeSuccess(w, http.StatusOK, "Organizers paid", details, result)
}

func (h *Handlers) GetCampoutFinancials(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campoutID, ok := urlUUID(w, r, "campoutID")
	if !ok {
		return
	}
	financials, err := h.service.GetCampoutFinancials(r.Context(), troopID, campoutID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, financials)
}
