package api

import (
	"fmt"
	"net/http"

	"github.com/troopledger/ledger-service/internal/domain"
)

type volunteerRequest struct {
	Volunteering bool `json:"volunteering"`
}

type deliveredRequest struct {
	Delivered bool `json:"delivered"`
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaigns, err := h.service.ListCampaigns(r.Context(), troopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, campaigns)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	var req domain.CreateCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	campaign, err := h.service.CreateCampaign(r.Context(), troopID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Campaign created", nil, campaign)
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	campaign, err := h.service.GetCampaign(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, campaign)
}

func (h *Handlers) UpdateCampaignSettings(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	var req domain.UpdateCampaignSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	campaign, err := h.service.UpdateCampaignSettings(r.Context(), troopID, campaignID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campaign updated", nil, campaign)
}

func (h *Handlers) PublishCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	campaign, err := h.service.PublishCampaign(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campaign published", nil, campaign)
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	if err := h.service.DeleteCampaign(r.Context(), troopID, campaignID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campaign deleted", nil, nil)
}

// CloseCampaign commits the distribution and closes the campaign.
func (h *Handlers) CloseCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	dist, err := h.service.CloseCampaign(r.Context(), troopID, member.UserID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Campaign closed", distributionDetails(dist), dist)
}

func (h *Handlers) ReopenCampaign(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	reversed, err := h.service.ReopenCampaign(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Campaign reopened, %d deposit(s) reversed", reversed), nil, map[string]int{"reversed": reversed})
}

func (h *Handlers) CalculateDistribution(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	dist, err := h.service.CalculateDistribution(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", distributionDetails(dist), dist)
}

func distributionDetails(d *domain.Distribution) []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Shares)+1)
	for _, s := range d.Shares {
		out = append(out, fmt.Sprintf("%s: $%s", s.ScoutName, s.Amount))
	}
	out = append(out, fmt.Sprintf("Troop: $%s", d.TroopShare))
	return out
}

func (h *Handlers) ToggleVolunteer(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	scoutID, ok := urlUUID(w, r, "scoutID")
	if !ok {
		return
	}
	var req volunteerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.ToggleVolunteer(r.Context(), troopID, campaignID, scoutID, req.Volunteering); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Volunteer updated", nil, nil)
}

func (h *Handlers) AddCampaignTransaction(w http.ResponseWriter, r *http.Request) {
	troopID, member := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	var req domain.CampaignTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.service.AddCampaignTransaction(r.Context(), troopID, member.UserID, campaignID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Campaign transaction recorded", nil, tx)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, orders)
}

func (h *Handlers) AddOrder(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	var req domain.AddOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.service.AddOrder(r.Context(), troopID, campaignID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Order added", nil, order)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), troopID, campaignID, orderID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order deleted", nil, nil)
}

func (h *Handlers) ToggleOrderDelivered(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req deliveredRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.ToggleOrderDelivered(r.Context(), troopID, campaignID, orderID, req.Delivered); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order updated", nil, nil)
}

// Direct sales

func (h *Handlers) ListInventory(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	inventory, err := h.service.ListInventory(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, inventory)
}

func (h *Handlers) CreateInventory(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	var req domain.CreateInventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inventory, err := h.service.CreateInventory(r.Context(), troopID, campaignID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Inventory added", nil, inventory)
}

func (h *Handlers) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	inventoryID, ok := urlUUID(w, r, "inventoryID")
	if !ok {
		return
	}
	if err := h.service.DeleteInventory(r.Context(), troopID, campaignID, inventoryID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Inventory deleted", nil, nil)
}

func (h *Handlers) ListVolunteerGroups(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	groups, err := h.service.ListVolunteerGroups(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", nil, groups)
}

func (h *Handlers) CreateVolunteerGroup(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	var req domain.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := h.service.CreateVolunteerGroup(r.Context(), troopID, campaignID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Volunteer group created", nil, group)
}

func (h *Handlers) UpdateGroupSales(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	groupID, ok := urlUUID(w, r, "groupID")
	if !ok {
		return
	}
	var req domain.UpdateGroupSalesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := h.service.UpdateGroupSales(r.Context(), troopID, campaignID, groupID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Sales recorded", nil, group)
}

func (h *Handlers) DeleteVolunteerGroup(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	groupID, ok := urlUUID(w, r, "groupID")
	if !ok {
		return
	}
	if err := h.service.DeleteVolunteerGroup(r.Context(), troopID, campaignID, groupID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Volunteer group deleted", nil, nil)
}

func (h *Handlers) CalculateDirectSalesProfit(w http.ResponseWriter, r *http.Request) {
	troopID, _ := caller(r)
	campaignID, ok := urlUUID(w, r, "campaignID")
	if !ok {
		return
	}
	profit, err := h.service.CalculateDirectSalesProfit(r.Context(), troopID, campaignID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var details []string
	for _, s := range profit.Shares {
		details = append(details, s.Details...)
	}
	writeSuccess(w, http.StatusOK, "", details, profit)
}
