package app

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

// fakeLedgerRepo is an in-memory repository that applies balance effects the way the
// Postgres repository does. Methods a test does not need fall through to the embedded
// interface and panic.
type fakeLedgerRepo struct {
	store.Repository

	troopID    uuid.UUID
	scouts     map[uuid.UUID]*domain.Scout
	links      map[uuid.UUID][]uuid.UUID
	members    map[uuid.UUID]*domain.TroopMember
	txs        []domain.Transaction
	campouts   map[uuid.UUID]*domain.Campout
	expenses   []domain.AdultExpense
	campaigns  map[uuid.UUID]*domain.FundraisingCampaign
	orders     []domain.FundraisingOrder
	volunteers []domain.CampaignVolunteer
	groups     []domain.DirectSalesGroup
	inventory  []domain.DirectSalesInventory

	failCreateAfter int
	creates         int
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		troopID:   uuid.New(),
		scouts:    make(map[uuid.UUID]*domain.Scout),
		links:     make(map[uuid.UUID][]uuid.UUID),
		members:   make(map[uuid.UUID]*domain.TroopMember),
		campouts:  make(map[uuid.UUID]*domain.Campout),
		campaigns: make(map[uuid.UUID]*domain.FundraisingCampaign),
	}
}

func newTestService(repo store.Repository) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(repo, nil, nil, logger)
}

func (r *fakeLedgerRepo) addScout(name string, balance string) *domain.Scout {
	s := &domain.Scout{
		ID:         uuid.New(),
		TroopID:    r.troopID,
		Name:       name,
		IBABalance: domain.MustParseMoney(balance),
		Status:     domain.ScoutActive,
	}
	r.scouts[s.ID] = s
	if s.IBABalance.IsPositive() {
		r.txs = append(r.txs, domain.Transaction{
			ID:      uuid.New(),
			TroopID: r.troopID,
			Amount:  s.IBABalance,
			Type:    domain.TxIBADeposit,
			Status:  domain.StatusApproved,
			ScoutID: uuidPtr(s.ID),
			Origin:  domain.OriginManual,
		})
	}
	return s
}

func (r *fakeLedgerRepo) addAdult(name string) uuid.UUID {
	id := uuid.New()
	r.members[id] = &domain.TroopMember{TroopID: r.troopID, UserID: id, Name: name, Role: domain.RoleParent}
	return id
}

func (r *fakeLedgerRepo) addCampout(status domain.CampoutStatus) *domain.Campout {
	c := &domain.Campout{ID: uuid.New(), TroopID: r.troopID, Name: "Spring Camp", Status: status}
	r.campouts[c.ID] = c
	return c
}

func (r *fakeLedgerRepo) balance(scoutID uuid.UUID) domain.Money {
	return r.scouts[scoutID].IBABalance
}

func (r *fakeLedgerRepo) ListTroops(ctx context.Context) ([]domain.Troop, error) {
	return []domain.Troop{{ID: r.troopID, Name: "Troop 1"}}, nil
}

func (r *fakeLedgerRepo) FindTroopByID(ctx context.Context, troopID uuid.UUID) (*domain.Troop, error) {
	if troopID != r.troopID {
		return nil, store.ErrTroopNotFound
	}
	return &domain.Troop{ID: r.troopID, Name: "Troop 1"}, nil
}

func (r *fakeLedgerRepo) FindMember(ctx context.Context, troopID, userID uuid.UUID) (*domain.TroopMember, error) {
	m, ok := r.members[userID]
	if !ok || troopID != r.troopID {
		return nil, store.ErrMemberNotFound
	}
	return m, nil
}

func (r *fakeLedgerRepo) FindScoutByID(ctx context.Context, troopID, scoutID uuid.UUID) (*domain.Scout, error) {
	s, ok := r.scouts[scoutID]
	if !ok || s.TroopID != troopID {
		return nil, store.ErrScoutNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeLedgerRepo) ListScouts(ctx context.Context, troopID uuid.UUID) ([]domain.Scout, error) {
	var out []domain.Scout
	for _, s := range r.scouts {
		if s.TroopID == troopID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListLinkedScouts(ctx context.Context, troopID, parentID uuid.UUID) ([]domain.Scout, error) {
	var out []domain.Scout
	for _, id := range r.links[parentID] {
		out = append(out, *r.scouts[id])
	}
	return out, nil
}

func (r *fakeLedgerRepo) RepairScoutBalance(ctx context.Context, troopID, scoutID uuid.UUID) (domain.Money, domain.Money, error) {
	s, ok := r.scouts[scoutID]
	if !ok || s.TroopID != troopID {
		return domain.Zero, domain.Zero, store.ErrScoutNotFound
	}
	computed := domain.Zero
	for i := range r.txs {
		if t := &r.txs[i]; t.ScoutID != nil && *t.ScoutID == scoutID {
			computed = computed.Add(t.BalanceEffect())
		}
	}
	cached := s.IBABalance
	s.IBABalance = computed
	return cached, computed, nil
}

func (r *fakeLedgerRepo) applyEffect(t *domain.Transaction, sign int) error {
	effect := t.BalanceEffect()
	if sign < 0 {
		effect = effect.Neg()
	}
	if effect.IsZero() {
		return nil
	}
	s := r.scouts[*t.ScoutID]
	next := s.IBABalance.Add(effect)
	if next.IsNegative() {
		return domain.InsufficientFundsError(s.Name)
	}
	s.IBABalance = next
	return nil
}

func (r *fakeLedgerRepo) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return r.CreateTransactions(ctx, []*domain.Transaction{t})
}

func (r *fakeLedgerRepo) CreateTransactions(ctx context.Context, txs []*domain.Transaction) error {
	r.creates++
	if r.failCreateAfter > 0 && r.creates > r.failCreateAfter {
		return domain.InsufficientFundsError("forced")
	}
	for _, t := range txs {
		if err := r.applyEffect(t, 1); err != nil {
			return err
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.HoldingParty == "" {
			t.HoldingParty = domain.HoldingNone
		}
		t.CreatedAt = time.Now()
		r.txs = append(r.txs, *t)
	}
	return nil
}

func (r *fakeLedgerRepo) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.TroopID != f.TroopID {
			continue
		}
		if f.ScoutID != nil && (t.ScoutID == nil || *t.ScoutID != *f.ScoutID) {
			continue
		}
		if f.CampoutID != nil && (t.CampoutID == nil || *t.CampoutID != *f.CampoutID) {
			continue
		}
		if f.CampaignID != nil && (t.FundraisingCampaignID == nil || *t.FundraisingCampaignID != *f.CampaignID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Origin != nil && t.Origin != *f.Origin {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindCampoutByID(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error) {
	c, ok := r.campouts[campoutID]
	if !ok || c.TroopID != troopID {
		return nil, store.ErrCampoutNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeLedgerRepo) TransitionCampoutStatus(ctx context.Context, troopID, campoutID uuid.UUID, from, to domain.CampoutStatus) error {
	c, ok := r.campouts[campoutID]
	if !ok {
		return store.ErrCampoutNotFound
	}
	if c.Status != from {
		return domain.InvalidStateError("campout is %s, not %s", c.Status, from)
	}
	c.Status = to
	return nil
}

func (r *fakeLedgerRepo) AddCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID, role domain.AdultRole) error {
	c := r.campouts[campoutID]
	if c.HasAdult(adultID, role) {
		return domain.ErrConflict
	}
	c.Adults = append(c.Adults, domain.CampoutAdult{AdultID: adultID, Name: r.members[adultID].Name, Role: role})
	return nil
}

func (r *fakeLedgerRepo) RemoveCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error {
	c := r.campouts[campoutID]
	for i, s := range c.Scouts {
		if s.ScoutID == scoutID {
			c.Scouts = append(c.Scouts[:i], c.Scouts[i+1:]...)
			return nil
		}
	}
	return store.ErrRosterEntryNotFound
}

func (r *fakeLedgerRepo) CreateAdultExpense(ctx context.Context, e *domain.AdultExpense) error {
	e.ID = uuid.New()
	r.expenses = append(r.expenses, *e)
	return nil
}

func (r *fakeLedgerRepo) ListAdultExpenses(ctx context.Context, campoutID uuid.UUID) ([]domain.AdultExpense, error) {
	var out []domain.AdultExpense
	for _, e := range r.expenses {
		if e.CampoutID == campoutID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) PayoutOrganizer(ctx context.Context, campoutID, adultID uuid.UUID, tx *domain.Transaction) (int64, error) {
	if err := r.CreateTransaction(ctx, tx); err != nil {
		return 0, err
	}
	var marked int64
	for i := range r.expenses {
		e := &r.expenses[i]
		if e.CampoutID == campoutID && e.AdultID == adultID && !e.IsReimbursed {
			e.IsReimbursed = true
			marked++
		}
	}
	return marked, nil
}

func (r *fakeLedgerRepo) FindCampaignByID(ctx context.Context, troopID, campaignID uuid.UUID) (*domain.FundraisingCampaign, error) {
	c, ok := r.campaigns[campaignID]
	if !ok || c.TroopID != troopID {
		return nil, store.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeLedgerRepo) ListOrders(ctx context.Context, campaignID uuid.UUID) ([]domain.FundraisingOrder, error) {
	var out []domain.FundraisingOrder
	for _, o := range r.orders {
		if o.CampaignID == campaignID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListCampaignVolunteers(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignVolunteer, error) {
	var out []domain.CampaignVolunteer
	for _, v := range r.volunteers {
		if v.CampaignID == campaignID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListGroups(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesGroup, error) {
	var out []domain.DirectSalesGroup
	for _, g := range r.groups {
		if g.CampaignID == campaignID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) CommitDistribution(ctx context.Context, troopID, campaignID uuid.UUID, deposits []*domain.Transaction) error {
	c := r.campaigns[campaignID]
	if c.Status == domain.CampaignClosed {
		return domain.InvalidStateError("campaign is already closed")
	}
	if err := r.CreateTransactions(ctx, deposits); err != nil {
		return err
	}
	c.Status = domain.CampaignClosed
	return nil
}

func (r *fakeLedgerRepo) ReopenCampaign(ctx context.Context, troopID, campaignID uuid.UUID) (int, error) {
	c := r.campaigns[campaignID]
	if c.Status != domain.CampaignClosed {
		return 0, domain.InvalidStateError("only a closed campaign can be reopened")
	}
	kept := r.txs[:0]
	reversed := 0
	for _, t := range r.txs {
		t := t
		if t.Origin == domain.OriginDistribution && t.FundraisingCampaignID != nil && *t.FundraisingCampaignID == campaignID {
			if err := r.applyEffect(&t, -1); err != nil {
				return 0, err
			}
			reversed++
			continue
		}
		kept = append(kept, t)
	}
	r.txs = kept
	c.Status = domain.CampaignActive
	return reversed, nil
}

func (r *fakeLedgerRepo) findTx(troopID, transactionID uuid.UUID) (int, error) {
	for i := range r.txs {
		if r.txs[i].ID == transactionID && r.txs[i].TroopID == troopID {
			return i, nil
		}
	}
	return -1, store.ErrTransactionNotFound
}

func (r *fakeLedgerRepo) ApproveTransaction(ctx context.Context, troopID, transactionID, approverID uuid.UUID) (*domain.Transaction, error) {
	i, err := r.findTx(troopID, transactionID)
	if err != nil {
		return nil, err
	}
	t := r.txs[i]
	if t.Status != domain.StatusPending {
		return nil, domain.InvalidStateError("transaction is already %s", t.Status)
	}
	t.Status = domain.StatusApproved
	t.ApprovedBy = &approverID
	if t.ScoutID != nil {
		if err := r.applyEffect(&t, 1); err != nil {
			return nil, err
		}
	}
	r.txs[i] = t
	return &t, nil
}

func (r *fakeLedgerRepo) DeleteTransaction(ctx context.Context, troopID, transactionID uuid.UUID) (*domain.Transaction, error) {
	i, err := r.findTx(troopID, transactionID)
	if err != nil {
		return nil, err
	}
	t := r.txs[i]
	if t.ScoutID != nil {
		if err := r.applyEffect(&t, -1); err != nil {
			return nil, err
		}
	}
	r.txs = append(r.txs[:i], r.txs[i+1:]...)
	return &t, nil
}

func (r *fakeLedgerRepo) FindAdultExpenseByID(ctx context.Context, troopID, expenseID uuid.UUID) (*domain.AdultExpense, error) {
	for _, e := range r.expenses {
		if e.ID == expenseID {
			if c, ok := r.campouts[e.CampoutID]; ok && c.TroopID == troopID {
				cp := e
				return &cp, nil
			}
		}
	}
	return nil, store.ErrAdultExpenseNotFound
}

func (r *fakeLedgerRepo) ReimburseAdultExpense(ctx context.Context, expenseID uuid.UUID, reimbursement *domain.Transaction) error {
	if err := r.CreateTransaction(ctx, reimbursement); err != nil {
		return err
	}
	for i := range r.expenses {
		if r.expenses[i].ID == expenseID {
			r.expenses[i].IsReimbursed = true
		}
	}
	return nil
}

func (r *fakeLedgerRepo) AddCampoutScout(ctx context.Context, campoutID, scoutID uuid.UUID) error {
	c := r.campouts[campoutID]
	if c.HasScout(scoutID) {
		return domain.ErrConflict
	}
	c.Scouts = append(c.Scouts, domain.CampoutScout{ScoutID: scoutID, Name: r.scouts[scoutID].Name})
	return nil
}

func (r *fakeLedgerRepo) SwitchCampoutAdultRole(ctx context.Context, campoutID, adultID uuid.UUID, from, to domain.AdultRole) error {
	c := r.campouts[campoutID]
	if !c.HasAdult(adultID, from) {
		return store.ErrRosterEntryNotFound
	}
	if c.HasAdult(adultID, to) {
		return domain.ErrConflict
	}
	for i := range c.Adults {
		if c.Adults[i].AdultID == adultID && c.Adults[i].Role == from {
			c.Adults[i].Role = to
		}
	}
	return nil
}

func (r *fakeLedgerRepo) RemoveCampoutAdult(ctx context.Context, campoutID, adultID uuid.UUID) error {
	c := r.campouts[campoutID]
	kept := c.Adults[:0]
	for _, a := range c.Adults {
		if a.AdultID != adultID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(c.Adults) {
		return store.ErrRosterEntryNotFound
	}
	c.Adults = kept
	return nil
}

func (r *fakeLedgerRepo) CreateCampaign(ctx context.Context, c *domain.FundraisingCampaign) error {
	c.ID = uuid.New()
	for i := range c.Products {
		c.Products[i].ID = uuid.New()
		c.Products[i].CampaignID = c.ID
	}
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) UpdateCampaignSettings(ctx context.Context, c *domain.FundraisingCampaign) error {
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) TransitionCampaignStatus(ctx context.Context, troopID, campaignID uuid.UUID, from, to domain.CampaignStatus) error {
	c, ok := r.campaigns[campaignID]
	if !ok || c.TroopID != troopID {
		return store.ErrCampaignNotFound
	}
	if c.Status != from {
		return domain.InvalidStateError("campaign is %s, not %s", c.Status, from)
	}
	c.Status = to
	return nil
}

func (r *fakeLedgerRepo) DeleteCampaign(ctx context.Context, troopID, campaignID uuid.UUID) error {
	c, ok := r.campaigns[campaignID]
	if !ok || c.TroopID != troopID || c.Status != domain.CampaignDraft {
		return domain.InvalidStateError("only a DRAFT campaign without orders or transactions can be deleted")
	}
	orders, _ := r.ListOrders(ctx, campaignID)
	txs, _ := r.ListTransactions(ctx, store.TransactionFilter{TroopID: troopID, CampaignID: &campaignID})
	if len(orders) > 0 || len(txs) > 0 {
		return domain.InvalidStateError("only a DRAFT campaign without orders or transactions can be deleted")
	}
	delete(r.campaigns, campaignID)
	return nil
}

func (r *fakeLedgerRepo) CreateOrder(ctx context.Context, o *domain.FundraisingOrder) error {
	o.ID = uuid.New()
	r.orders = append(r.orders, *o)
	return nil
}

func (r *fakeLedgerRepo) ListInventory(ctx context.Context, campaignID uuid.UUID) ([]domain.DirectSalesInventory, error) {
	var out []domain.DirectSalesInventory
	for _, inv := range r.inventory {
		if inv.CampaignID == campaignID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) CreateGroup(ctx context.Context, g *domain.DirectSalesGroup, requested map[uuid.UUID]int) error {
	for i := range r.inventory {
		inv := &r.inventory[i]
		if qty, ok := requested[inv.ID]; ok {
			if qty > inv.Available() {
				return domain.NewValidationError("items", "%s: requested %d exceeds available %d", inv.ProductName, qty, inv.Available())
			}
			inv.Allocated += qty
		}
	}
	g.ID = uuid.New()
	for i := range g.Items {
		g.Items[i].ID = uuid.New()
		g.Items[i].GroupID = g.ID
	}
	r.groups = append(r.groups, *g)
	return nil
}

func (r *fakeLedgerRepo) FindGroupByID(ctx context.Context, campaignID, groupID uuid.UUID) (*domain.DirectSalesGroup, error) {
	for _, g := range r.groups {
		if g.ID == groupID && g.CampaignID == campaignID {
			cp := g
			cp.Items = append([]domain.DirectSalesGroupItem(nil), g.Items...)
			return &cp, nil
		}
	}
	return nil, store.ErrGroupNotFound
}

func (r *fakeLedgerRepo) UpdateGroupSales(ctx context.Context, groupID uuid.UUID, updates []domain.GroupSalesUpdate) error {
	for gi := range r.groups {
		if r.groups[gi].ID != groupID {
			continue
		}
		for _, u := range updates {
			for i := range r.groups[gi].Items {
				if it := &r.groups[gi].Items[i]; it.ID == u.ItemID {
					it.SoldCount = u.SoldCount
					it.AmountCollected = u.AmountCollected
				}
			}
		}
		return nil
	}
	return store.ErrGroupNotFound
}
