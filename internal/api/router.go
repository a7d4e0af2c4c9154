/**
 * @description
 * This file sets up the HTTP router for the ledger-service. Every troop route is mounted under
 * /troops/{troopID}, requires a bearer token and a membership in that troop, and is gated by
 * role where it moves or corrects money.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: routing and standard middleware.
 * - github.com/go-chi/cors: CORS for the web client.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/troopledger/ledger-service/internal/domain"
)

// LedgerRoutes creates the router for the ledger service.
func LedgerRoutes(h *Handlers, verifier *TokenVerifier, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", Health)

	privileged := RequireRole(domain.RoleAdmin, domain.RoleFinancier, domain.RoleLeader)
	adults := RequireRole(domain.RoleAdmin, domain.RoleFinancier, domain.RoleLeader, domain.RoleParent)
	treasury := RequireRole(domain.RoleAdmin, domain.RoleFinancier)

	r.Route("/troops/{troopID}", func(r chi.Router) {
		r.Use(Authenticate(verifier))
		r.Use(h.LoadMember)

		r.Get("/summary", h.GetTroopFinanceSummary)
		r.Get("/scouts", h.ListScouts)
		r.Get("/scouts/{scoutID}/ledger", h.GetScoutLedger)
		r.With(treasury).Post("/reconcile", h.ReconcileBalances)
		r.With(treasury).Get("/export.xlsx", h.ExportWorkbook)
		r.With(privileged).Post("/iba-deposits", h.BulkRecordIBADeposits)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.With(adults).Post("/", h.RecordTransaction)
			r.Group(func(r chi.Router) {
				r.Use(privileged)
				r.Post("/{transactionID}/approve", h.ApproveTransaction)
				r.Post("/{transactionID}/reject", h.RejectTransaction)
				r.Patch("/{transactionID}", h.UpdateTransaction)
				r.Delete("/{transactionID}", h.DeleteTransaction)
			})
		})

		r.Route("/campouts", func(r chi.Router) {
			r.Get("/", h.ListCampouts)
			r.With(privileged).Post("/", h.CreateCampout)

			r.Route("/{campoutID}", func(r chi.Router) {
				r.Get("/financials", h.GetCampoutFinancials)
				r.Post("/iba-transfers", h.TransferIBAToCampout)

				r.Group(func(r chi.Router) {
					r.Use(adults)
					r.Post("/scouts", h.RegisterScout)
					r.Post("/adults", h.AssignAdult)
					r.Post("/expenses", h.LogCampoutExpense)
					r.Post("/payout-requests", h.RequestPayout)
				})

				r.Group(func(r chi.Router) {
					r.Use(privileged)
					r.Delete("/", h.DeleteCampout)
					r.Post("/publish", h.PublishCampout)
					r.Post("/open-payments", h.OpenCampoutPayments)
					r.Post("/close", h.CloseCampout)
					r.Delete("/scouts/{scoutID}", h.RemoveScout)
					r.Put("/adults/{adultID}/role", h.SwitchAdultRole)
					r.Delete("/adults/{adultID}", h.RemoveAdult)
					r.Post("/payments", h.RecordCampoutPayment)
					r.Post("/refunds", h.ProcessRefund)
				})

				r.Group(func(r chi.Router) {
					r.Use(treasury)
					r.Post("/batch-payout", h.BatchIBAPayout)
					r.Post("/organizer-payouts", h.PayoutOrganizers)
				})
			})
		})

		r.Route("/expenses/{expenseID}", func(r chi.Router) {
			r.With(adults).Put("/", h.UpdateAdultExpense)
			r.With(adults).Delete("/", h.DeleteAdultExpense)
			r.With(privileged).Post("/approve", h.ApproveAdultExpense)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.With(privileged).Post("/", h.CreateCampaign)

			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Get("/distribution", h.CalculateDistribution)
				r.Get("/orders", h.ListOrders)
				r.Get("/inventory", h.ListInventory)
				r.Get("/groups", h.ListVolunteerGroups)
				r.Get("/direct-sales/profit", h.CalculateDirectSalesProfit)

				r.Put("/volunteers/{scoutID}", h.ToggleVolunteer)
				r.Post("/orders", h.AddOrder)
				r.Delete("/orders/{orderID}", h.DeleteOrder)
				r.Put("/orders/{orderID}/delivered", h.ToggleOrderDelivered)
				r.With(adults).Put("/groups/{groupID}/sales", h.UpdateGroupSales)

				r.Group(func(r chi.Router) {
					r.Use(privileged)
					r.Put("/", h.UpdateCampaignSettings)
					r.Delete("/", h.DeleteCampaign)
					r.Post("/publish", h.PublishCampaign)
					r.Post("/close", h.CloseCampaign)
					r.Post("/transactions", h.AddCampaignTransaction)
					r.Post("/inventory", h.CreateInventory)
					r.Delete("/inventory/{inventoryID}", h.DeleteInventory)
					r.Post("/groups", h.CreateVolunteerGroup)
					r.Delete("/groups/{groupID}", h.DeleteVolunteerGroup)
				})
				r.With(treasury).Post("/reopen", h.ReopenCampaign)
			})
		})
	})

	return r
}
