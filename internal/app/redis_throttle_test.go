package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/troopledger/ledger-service/internal/domain"
)

type countingThrottle struct {
	counts map[string]int
	err    error
}

func (c *countingThrottle) Consume(ctx context.Context, scope, subject string, window time.Duration) (int, int, error) {
	if c.err != nil {
		return 0, 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[scope+":"+subject]++
	return c.counts[scope+":"+subject], 1800, nil
}

func payoutRequestFixture(repo *fakeLedgerRepo) (uuid.UUID, *domain.Campout) {
	adult := repo.addAdult("Olga")
	c := repo.addCampout(domain.CampoutOpen)
	c.Adults = []domain.CampoutAdult{{AdultID: adult, Name: "Olga", Role: domain.RoleOrganizer}}
	repo.expenses = []domain.AdultExpense{{ID: uuid.New(), CampoutID: c.ID, AdultID: adult, Amount: m("40")}}
	return adult, c
}

func TestRequestPayout_Throttled(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	svc.SetPayoutRequestThrottle(&countingThrottle{}, 2, time.Hour)
	adult, c := payoutRequestFixture(repo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.RequestPayout(ctx, repo.troopID, adult, c.ID, domain.PayoutRequest{Amount: m("40")}); err != nil {
			t.Fatalf("expected request %d to pass, got %v", i+1, err)
		}
	}
	err := svc.RequestPayout(ctx, repo.troopID, adult, c.ID, domain.PayoutRequest{Amount: m("40")})
	if !errors.Is(err, ErrThrottled) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected the third request to be throttled, got %v", err)
	}
	var throttled *ThrottleError
	if !errors.As(err, &throttled) || throttled.RetryAfterSeconds != 1800 {
		t.Fatalf("expected a retry hint, got %v", err)
	}
}

func TestRequestPayout_ValidationRunsBeforeThrottle(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	throttle := &countingThrottle{}
	svc.SetPayoutRequestThrottle(throttle, 1, time.Hour)
	adult, c := payoutRequestFixture(repo)

	err := svc.RequestPayout(context.Background(), repo.troopID, adult, c.ID, domain.PayoutRequest{Amount: m("45")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected an over-ask to be a validation error, got %v", err)
	}
	if len(throttle.counts) != 0 {
		t.Fatalf("expected rejected requests not to count, got %v", throttle.counts)
	}
}

func TestRequestPayout_ThrottleFailsOpen(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc := newTestService(repo)
	svc.SetPayoutRequestThrottle(&countingThrottle{err: errors.New("redis down")}, 1, time.Hour)
	adult, c := payoutRequestFixture(repo)

	if err := svc.RequestPayout(context.Background(), repo.troopID, adult, c.ID, domain.PayoutRequest{Amount: m("10")}); err != nil {
		t.Fatalf("expected the request to pass when the throttle is down, got %v", err)
	}
}

func TestRedisRequestThrottle_Defaults(t *testing.T) {
	th := NewRedisRequestThrottle(nil, " custom:throttle: ")
	if th.prefix != "custom:throttle" {
		t.Fatalf("expected trimmed prefix, got %q", th.prefix)
	}
	if NewRedisRequestThrottle(nil, "").prefix != "troopledger:throttle" {
		t.Fatal("expected the default prefix")
	}
	count, retry, err := th.Consume(context.Background(), "payout_request", "x", time.Hour)
	if err != nil || count != 0 || retry != 0 {
		t.Fatalf("expected a no-op without a client, got %d %d %v", count, retry, err)
	}
}

func TestRedisRequestThrottle_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, _, err := NewRedisRequestThrottle(client, "").Consume(context.Background(), "payout_request", "x", time.Hour)
	if err == nil {
		t.Fatal("expected an error from an unreachable redis")
	}
}
