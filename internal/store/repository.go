/**
 * @description
 * This file defines the `Repository` interface, the contract for every data access operation
 * the ledger-service needs. Business rules live in internal/app; methods here either read
 * rows or perform one atomic write. Every write that inserts, approves, corrects or deletes a
 * balance-affecting transaction applies the balance change in the same database transaction.
 *
 * @dependencies
 * - github.com/google/uuid: identifiers.
 * - internal/domain: the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Troops, members and scouts
	ListTroops(ctx context.Context) ([]domain.Troop, error)
	FindTroopByID(ctx context.Context, troopID uuid.UUID) (*domain.Troop, error)
	FindUserIDByExternalID(ctx context.Context, externalID string) (uuid.UUID, error)
	FindMember(ctx context.Context, troopID, userID uuid.UUID) (*domain.TroopMember, error)
	ListLeadership(ctx context.Context, troopID uuid.UUID) ([]domain.TroopMember, error)
	FindScoutByID(ctx context.Context, troopID, scoutID uuid.UUID) (*domain.Scout, error)
	ListScouts(ctx context.Context, troopID uuid.UUID) ([]domain.Scout, error)
	ListLinkedScouts(ctx context.Context, troopID, parentID uuid.UUID) ([]domain.Scout, error)
	RepairScoutBalance(ctx context.Context, troopID, scoutID uuid.UUID) (cached, computed domain.Money, err error)

	// Ledger
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	CreateTransactions(ctx context.Context, txs []*domain.Transaction) error
	FindTransactionByID(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	ApproveTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error)
	RejectTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error)
	CorrectTransaction(ctx context.Context, troopID, transactionID uuid.UUID, amount *domain.Money, description *string) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error)

	// Campouts
	CreateCampout(ctx context.Context, campout *domain.Campout) error
	FindCampoutByID(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error)
	ListCampouts(ctx context.Context, troopID uuid.UUID) ([]domain.Campout, error)
	TransitionCampoutStatus(ctx context.Context, troopID, campoutID uuid.UUID, from, to domain.CampoutStatus) error
	DeleteCampout(ctx context.Context, troopID, campoutID uuid.UUID) error
	AddCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error
	RemoveCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error
	AddCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID, role domain.AdultRole) error
	SwitchCampoutAdultRole(ctx context.Context, campoutID, adultID uuid.UUID, from, to domain.AdultRole) error
	RemoveCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID) error
	CreateAdultExpense(ctx context.Context, expense *domain.AdultExpense) error
	FindAdultExpenseByID(ctx context.Context, troopID, expenseID uuid.UUID) (*domain.AdultExpense, error)
	ListAdultExpenses(ctx context.Context, campoutID uuid.UUID) ([]domain.AdultExpense, error)
	UpdateAdultExpense(ctx context.Context, expenseID uuid.UUID, amount domain.Money, description string) error
	DeleteAdultExpense(ctx context.Context, expenseID uuid.UUID) error
	ReimburseAdultExpense(ctx context.Context, expenseID uuid.UUID, reimbursement *domain.Transaction) error
	PayoutOrganizer(ctx context.Context, campoutID, adultID uuid.UUID, reimbursement *domain.Transaction) (int64, error)

	// Fundraising
	CreateCampaign(ctx context.Context, campaign *domain.FundraisingCampaign) error
	FindCampaignByID(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error)
	ListCampaigns(ctx context.Context, troopID uuid.UUID) ([]domain.FundraisingCampaign, error)
	UpdateCampaignSettings(ctx context.Context, campaign *domain.FundraisingCampaign) error
	TransitionCampaignStatus(ctx context.Context, troopID, campaignID uuid.UUID, from, to domain.CampaignStatus) error
	DeleteCampaign(ctx context.Context, troopID, campaignID uuid.UUID) error
	SetCampaignVolunteer(ctx context.Context, campaignID, scoutID uuid.UUID, volunteering bool) error
	ListCampaignVolunteers(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVolunteer, error)
	CreateOrder(ctx context.Context, order *domain.FundraisingOrder) error
	DeleteOrder(ctx context.Context, campaignID, orderID uuid.UUID) error
	SetOrderDelivered(ctx context.Context, campaignID, orderID uuid.UUID, delivered bool) error
	ListOrders(ctx context.Context, campaignID uuid.UUID) ([]domain.FundraisingOrder, error)
	CommitDistribution(ctx context.Context, troopID, campaignID uuid.UUID, deposits []*domain.Transaction) error
	ReopenCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (int, error)

	// Direct sales
	CreateInventory(ctx context.Context, inventory *domain.DirectSalesInventory) error
	ListInventory(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesInventory, error)
	DeleteInventory(ctx context.Context, campaignID, inventoryID uuid.UUID) error
	CreateGroup(ctx context.Context, group *domain.DirectSalesGroup, requested map[uuid.UUID]int) error
	FindGroupByID(ctx context.Context, campaignID, groupID uuid.UUID) (*domain.DirectSalesGroup, error)
	ListGroups(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesGroup, error)
	UpdateGroupSales(ctx context.Context, groupID uuid.UUID, updates []domain.GroupSalesUpdate) error
	DeleteGroup(ctx context.Context, campaignID, groupID uuid.UUID) error
}

// TransactionFilter narrows ListTransactions. TroopID is always required.
type TransactionFilter struct {
	TroopID    uuid.UUID
	ScoutID    *uuid.UUID
	CampoutID  *uuid.UUID
	CampaignID *uuid.UUID
	Status     *domain.TransactionStatus
	Origin     *domain.TransactionOrigin
	Limit      int
}
