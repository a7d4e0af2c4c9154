package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
	"golang.org/x/sync/errgroup"
)

// minimumShare is the smallest distribution share worth posting as a deposit.
var minimumShare = domain.MustParseMoney("0.01")

// CreateCampaign creates a DRAFT campaign with its products.
func (s *Service) CreateCampaign(ctx context.Context, troopID uuid.UUID, req domain.CreateCampaignRequest) (*domain.FundraisingCampaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &domain.FundraisingCampaign{
		TroopID:             troopID,
		Name:                req.Name,
		Goal:                req.Goal,
		Type:                req.Type,
		IBAPercentage:       req.IBAPercentage,
		VolunteerPercentage: req.VolunteerPercentage,
		TicketPrice:         req.TicketPrice,
		Status:              domain.CampaignDraft,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		Products:            make([]domain.CampaignProduct, 0, len(req.Products)),
	}
	for _, p := range req.Products {
		c.Products = append(c.Products, domain.CampaignProduct{
			Name:      p.Name,
			Price:     p.Price,
			Cost:      p.Cost,
			IBAAmount: p.IBAAmount,
		})
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return c, nil
}

func (s *Service) ListCampaigns(ctx context.Context, troopID uuid.UUID) ([]domain.FundraisingCampaign, error) {
	return s.repo.ListCampaigns(ctx, troopID)
}

func (s *Service) GetCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error) {
	return s.repo.FindCampaignByID(ctx, troopID, campaignID)
}

// UpdateCampaignSettings changes a campaign's name, goal and split settings unless it is CLOSED.
func (s *Service) UpdateCampaignSettings(ctx context.Context, troopID, campaignID uuid.UUID, req domain.UpdateCampaignSettingsRequest) (*domain.FundraisingCampaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.findOpenCampaign(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	c.Name = req.Name
	c.Goal = req.Goal
	c.IBAPercentage = req.IBAPercentage
	c.VolunteerPercentage = req.VolunteerPercentage
	c.TicketPrice = req.TicketPrice
	c.EndDate = req.EndDate
	if err := s.repo.UpdateCampaignSettings(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// PublishCampaign activates a DRAFT campaign and tells the troop.
func (s *Service) PublishCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error) {
	if err := s.repo.TransitionCampaignStatus(ctx, troopID, campaignID, domain.CampaignDraft, domain.CampaignActive); err != nil {
		return nil, err
	}
	c, err := s.repo.FindCampaignByID(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	s.notify(domain.Notification{
		Kind:     domain.NotifyCampaignPublished,
		TroopID:  troopID,
		Audience: domain.AudienceTroop,
		Title:    "New fundraiser: " + c.Name,
		Message:  fmt.Sprintf("%s has started. Sign up to sell or volunteer.", c.Name),
		Link:     "/fundraising/" + c.ID.String(),
	})
	return c, nil
}

// ToggleVolunteer signs a scout up as a campaign volunteer or removes them.
func (s *Service) ToggleVolunteer(ctx context.Context, troopID, campaignID, scoutID uuid.UUID, volunteering bool) error {
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return err
	}
	if _, err := s.findScout(ctx, troopID, scoutID); err != nil {
		return err
	}
	return s.repo.SetCampaignVolunteer(ctx, campaignID, scoutID, volunteering)
}

// AddCampaignTransaction records a donation (DONATION_IN) or a cost (EXPENSE) against a campaign.
func (s *Service) AddCampaignTransaction(ctx context.Context, troopID, actorID, campaignID uuid.UUID, req domain.CampaignTransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	tx := &domain.Transaction{
		TroopID:               troopID,
		Amount:                req.Amount,
		Type:                  req.Kind.TransactionType(),
		Description:           req.Description,
		Status:                domain.StatusApproved,
		FundraisingCampaignID: uuidPtr(campaignID),
		ApprovedBy:            uuidPtr(actorID),
		Origin:                domain.OriginManual,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record campaign transaction: %w", err)
	}
	return tx, nil
}

// AddOrder records a scout's sale. The product, when given, must belong to the campaign.
func (s *Service) AddOrder(ctx context.Context, troopID, campaignID uuid.UUID, req domain.AddOrderRequest) (*domain.FundraisingOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.findOpenCampaign(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	if req.ProductID != nil {
		if _, ok := c.Product(*req.ProductID); !ok {
			return nil, domain.NewValidationError("product_id", "product does not belong to this campaign")
		}
	}
	scout, err := s.findScout(ctx, troopID, req.ScoutID)
	if err != nil {
		return nil, err
	}
	o := &domain.FundraisingOrder{
		CampaignID:   campaignID,
		ScoutID:      scout.ID,
		ScoutName:    scout.Name,
		ProductID:    req.ProductID,
		CustomerName: req.CustomerName,
		Quantity:     req.Quantity,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to add order: %w", err)
	}
	return o, nil
}

// DeleteOrder removes an order from a campaign that is not CLOSED.
func (s *Service) DeleteOrder(ctx context.Context, troopID, campaignID, orderID uuid.UUID) error {
	if _, err := s.findOpenCampaign(ctx, troopID, campaignID); err != nil {
		return err
	}
	return s.repo.DeleteOrder(ctx, campaignID, orderID)
}

// ToggleOrderDelivered records whether an order has been handed over.
func (s *Service) ToggleOrderDelivered(ctx context.Context, troopID, campaignID, orderID uuid.UUID, delivered bool) error {
	if _, err := s.repo.FindCampaignByID(ctx, troopID, campaignID); err != nil {
		return err
	}
	return s.repo.SetOrderDelivered(ctx, campaignID, orderID, delivered)
}

func (s *Service) ListOrders(ctx context.Context, troopID, campaignID uuid.UUID) ([]domain.FundraisingOrder, error) {
	if _, err := s.repo.FindCampaignByID(ctx, troopID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, campaignID)
}

// CalculateDistribution previews how an ACTIVE campaign's profit would be split, or shows the
// historical view of a CLOSED one, where posted IBA deposits count as expenses.
func (s *Service) CalculateDistribution(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.Distribution, error) {
	in, err := s.loadDistributionInput(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	if in.campaign.Status == domain.CampaignDraft {
		return nil, domain.InvalidStateError("campaign has not been published")
	}
	in.historical = in.campaign.Status == domain.CampaignClosed
	return calculateDistribution(*in), nil
}

// CloseCampaign commits the distribution: every share above one cent is posted as an
// IBA_DEPOSIT and the campaign is CLOSED, in one database transaction. A campaign without
// profit closes with no deposits.
func (s *Service) CloseCampaign(ctx context.Context, troopID, actorID, campaignID uuid.UUID) (*domain.Distribution, error) {
	var dist *domain.Distribution
	err := s.withLock(ctx, campaignLockKey(campaignID), func() error {
		in, err := s.loadDistributionInput(ctx, troopID, campaignID)
		if err != nil {
			return err
		}
		if in.campaign.Status != domain.CampaignActive {
			return domain.InvalidStateError("only an active campaign can be closed, it is %s", in.campaign.Status)
		}
		dist = calculateDistribution(*in)

		deposits := make([]*domain.Transaction, 0, len(dist.Shares))
		for _, share := range dist.Shares {
			if !share.Amount.GreaterThan(minimumShare) {
				continue
			}
			deposits = append(deposits, &domain.Transaction{
				TroopID:               troopID,
				Amount:                share.Amount,
				Type:                  domain.TxIBADeposit,
				Description:           fmt.Sprintf("Fundraising share: %s", in.campaign.Name),
				Status:                domain.StatusApproved,
				ScoutID:               uuidPtr(share.ScoutID),
				FundraisingCampaignID: uuidPtr(campaignID),
				ApprovedBy:            uuidPtr(actorID),
				Origin:                domain.OriginDistribution,
			})
		}
		if err := s.repo.CommitDistribution(ctx, troopID, campaignID, deposits); err != nil {
			return fmt.Errorf("failed to commit distribution: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"deposits":    len(deposits),
			"net_profit":  dist.NetProfit.String(),
		}).Info("fundraising distribution committed")
		s.notify(domain.Notification{
			Kind:     domain.NotifyDistributionCommitted,
			TroopID:  troopID,
			Audience: domain.AudienceTroop,
			Title:    "Fundraiser closed: " + in.campaign.Name,
			Message:  closeMessage(dist, len(deposits)),
			Link:     "/fundraising/" + campaignID.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

func closeMessage(dist *domain.Distribution, deposits int) string {
	if deposits == 0 {
		return fmt.Sprintf("No profit was distributed (net $%s).", dist.NetProfit)
	}
	return fmt.Sprintf("$%s was credited to %d scout accounts.", dist.SharesTotal(), deposits)
}

// ReopenCampaign returns a CLOSED campaign to ACTIVE and reverses the deposits its distribution
// posted. Closing again recomputes from current data.
func (s *Service) ReopenCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (int, error) {
	var reversed int
	err := s.withLock(ctx, campaignLockKey(campaignID), func() error {
		n, err := s.repo.ReopenCampaign(ctx, troopID, campaignID)
		if err != nil {
			return err
		}
		reversed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"campaign_id": campaignID, "reversed": reversed}).Info("fundraising campaign reopened")
	return reversed, nil
}

// DeleteCampaign removes a DRAFT campaign with no orders or transactions.
func (s *Service) DeleteCampaign(ctx context.Context, troopID, campaignID uuid.UUID) error {
	return s.repo.DeleteCampaign(ctx, troopID, campaignID)
}

func (s *Service) findOpenCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error) {
	c, err := s.repo.FindCampaignByID(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.CampaignClosed {
		return nil, domain.ErrCampaignClosed
	}
	return c, nil
}

func (s *Service) loadDistributionInput(ctx context.Context, troopID, campaignID uuid.UUID) (*distributionInput, error) {
	campaign, err := s.repo.FindCampaignByID(ctx, troopID, campaignID)
	if err != nil {
		return nil, err
	}
	in := &distributionInput{campaign: campaign}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.repo.ListTransactions(gctx, store.TransactionFilter{TroopID: troopID, CampaignID: &campaignID})
		if err != nil {
			return fmt.Errorf("failed to load campaign transactions: %w", err)
		}
		in.transactions = list
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListOrders(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		in.orders = list
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListCampaignVolunteers(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load volunteers: %w", err)
		}
		in.volunteers = list
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.ListGroups(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("failed to load direct sales groups: %w", err)
		}
		in.groups = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}
