package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/troopledger/ledger-service/internal/domain"
)

func TestRegisterScout(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	sc := repo.addScout("Sam", "0")
	open := repo.addCampout(domain.CampoutOpen)
	closed := repo.addCampout(domain.CampoutClosed)
	ctx := context.Background()

	tests := []struct {
		name      string
		campoutID uuid.UUID
		scoutID   uuid.UUID
		wantErr   error
	}{
		{name: "open campout", campoutID: open.ID, scoutID: sc.ID},
		{name: "already registered", campoutID: open.ID, scoutID: sc.ID, wantErr: domain.ErrConflict},
		{name: "unknown scout", campoutID: open.ID, scoutID: uuid.New(), wantErr: domain.ErrNotFound},
		{name: "closed campout", campoutID: closed.ID, scoutID: sc.ID, wantErr: domain.ErrInvalidState},
		{name: "unknown campout", campoutID: uuid.New(), scoutID: sc.ID, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.RegisterScout(ctx, repo.troopID, tt.campoutID, tt.scoutID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected registration to succeed, got %v", err)
			}
			if !c.HasScout(tt.scoutID) {
				t.Fatalf("expected scout on the roster, got %+v", c.Scouts)
			}
		})
	}
}

func TestRemoveScout_ReportsOrphanedPayments(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	sam := repo.addScout("Sam", "30")
	ana := repo.addScout("Ana", "0")
	c := repo.addCampout(domain.CampoutOpen)
	repo.register(c, sam)
	repo.register(c, ana)
	ctx := context.Background()

	if _, err := svc.TransferIBAToCampout(ctx, repo.troopID, Actor{UserID: uuid.New(), Privileged: true}, c.ID, domain.IBATransferRequest{ScoutID: sam.ID, Amount: m("30")}); err != nil {
		t.Fatalf("expected transfer to succeed, got %v", err)
	}

	change, err := svc.RemoveScout(ctx, repo.troopID, c.ID, ana.ID)
	if err != nil {
		t.Fatalf("expected removal to succeed, got %v", err)
	}
	if len(change.OrphanedPayments) != 0 {
		t.Fatalf("expected no orphaned payments, got %+v", change.OrphanedPayments)
	}

	change, err = svc.RemoveScout(ctx, repo.troopID, c.ID, sam.ID)
	if err != nil {
		t.Fatalf("expected removal to succeed, got %v", err)
	}
	if len(change.OrphanedPayments) != 1 {
		t.Fatalf("expected one orphaned payment, got %d", len(change.OrphanedPayments))
	}
	if o := change.OrphanedPayments[0]; o.ID != sam.ID || o.Name != "Sam" || !o.NetPaid.Equal(m("30")) {
		t.Fatalf("expected sam orphaned with 30 paid, got %+v", o)
	}
	if !repo.balance(sam.ID).IsZero() {
		t.Fatalf("expected no automatic refund, got balance %s", repo.balance(sam.ID))
	}

	if _, err := svc.RemoveScout(ctx, repo.troopID, c.ID, sam.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a second removal to be not found, got %v", err)
	}
}

func TestAdultRoster(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	pat := repo.addAdult("Pat")
	c := repo.addCampout(domain.CampoutOpen)
	ctx := context.Background()

	if _, err := svc.AssignAdult(ctx, repo.troopID, c.ID, pat, domain.AdultRole("DRIVER")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected unknown role to be rejected, got %v", err)
	}
	if _, err := svc.AssignAdult(ctx, repo.troopID, c.ID, uuid.New(), domain.RoleAttendee); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown adult to be not found, got %v", err)
	}
	got, err := svc.AssignAdult(ctx, repo.troopID, c.ID, pat, domain.RoleAttendee)
	if err != nil {
		t.Fatalf("expected assignment to succeed, got %v", err)
	}
	if !got.HasAdult(pat, domain.RoleAttendee) {
		t.Fatalf("expected pat as attendee, got %+v", got.Adults)
	}
	if _, err := svc.AssignAdult(ctx, repo.troopID, c.ID, pat, domain.RoleAttendee); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected the same role twice to conflict, got %v", err)
	}

	switches := []struct {
		name     string
		from, to domain.AdultRole
		wantErr  error
	}{
		{name: "same role", from: domain.RoleAttendee, to: domain.RoleAttendee, wantErr: domain.ErrValidation},
		{name: "role not held", from: domain.RoleOrganizer, to: domain.RoleAttendee, wantErr: domain.ErrNotFound},
		{name: "attendee to organizer", from: domain.RoleAttendee, to: domain.RoleOrganizer},
	}
	for _, tt := range switches {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SwitchAdultRole(ctx, repo.troopID, c.ID, pat, tt.from, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected switch to succeed, got %v", err)
			}
			if !c.HasAdult(pat, tt.to) || c.HasAdult(pat, tt.from) {
				t.Fatalf("expected pat to hold only %s, got %+v", tt.to, c.Adults)
			}
		})
	}

	if _, err := svc.AssignAdult(ctx, repo.troopID, c.ID, pat, domain.RoleAttendee); err != nil {
		t.Fatalf("expected pat to hold both roles, got %v", err)
	}
	if _, err := svc.RemoveAdult(ctx, repo.troopID, c.ID, pat); err != nil {
		t.Fatalf("expected removal to succeed, got %v", err)
	}
	if c.IsParticipant(pat) {
		t.Fatalf("expected every role dropped, got %+v", c.Adults)
	}
	if _, err := svc.RemoveAdult(ctx, repo.troopID, c.ID, pat); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a second removal to be not found, got %v", err)
	}
}

func TestRosterChangesRejectedOnClosedCampout(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	sc := repo.addScout("Sam", "0")
	pat := repo.addAdult("Pat")
	c := repo.addCampout(domain.CampoutOpen)
	repo.register(c, sc)
	c.Status = domain.CampoutClosed
	ctx := context.Background()

	checks := []struct {
		name string
		call func() error
	}{
		{"remove scout", func() error { _, err := svc.RemoveScout(ctx, repo.troopID, c.ID, sc.ID); return err }},
		{"assign adult", func() error {
			_, err := svc.AssignAdult(ctx, repo.troopID, c.ID, pat, domain.RoleOrganizer)
			return err
		}},
		{"remove adult", func() error { _, err := svc.RemoveAdult(ctx, repo.troopID, c.ID, pat); return err }},
	}
	for _, tt := range checks {
		if err := tt.call(); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("%s: expected closed campout to reject the change, got %v", tt.name, err)
		}
	}
	if !c.HasScout(sc.ID) {
		t.Fatal("expected the roster to be unchanged")
	}
}
