/**
 * @description
 * This file contains the `Service` struct that holds the ledger-service's business logic. The
 * service coordinates the repository, the notification dispatcher and the operation locker.
 * The individual use cases live in ledger.go, campouts.go, payout.go, fundraising.go,
 * directsales.go, reconcile.go and export.go.
 *
 * Key features:
 * - Validates typed requests before any data access.
 * - Keeps every balance change inside one repository call, so a failure never leaves a
 *   partially applied ledger entry behind.
 * - Publishes notifications asynchronously; a failed publish is logged and never fails the
 *   operation that triggered it.
 *
 * @dependencies
 * - github.com/sirupsen/logrus: structured logging.
 * - internal/domain, internal/store: domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/internal/store"
)

const defaultNotifyTimeout = 10 * time.Second

// Notifier delivers notifications. Implementations may publish to a broker or send mail.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// OperationLocker serializes long-running operations on one entity across instances.
type OperationLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Service provides the core business logic for the troop ledger.
type Service struct {
	repo          store.Repository
	notifier      Notifier
	locker        OperationLocker
	logger        *logrus.Entry
	notifyTimeout time.Duration
	now           func() time.Time

	throttle            RequestThrottle
	payoutRequestLimit  int
	payoutRequestWindow time.Duration
}

// NewService creates a new ledger service instance. A nil notifier or locker disables the
// respective feature.
func NewService(repo store.Repository, notifier Notifier, locker OperationLocker, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if locker == nil {
		locker = noopLocker{}
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		locker:        locker,
		logger:        logger.WithField("component", "service"),
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
	}
}

// SetPayoutRequestThrottle limits how many payout requests one adult may send per campout in
// each window. A limit of zero disables the check.
func (s *Service) SetPayoutRequestThrottle(throttle RequestThrottle, limit int, window time.Duration) {
	s.throttle = throttle
	s.payoutRequestLimit = limit
	s.payoutRequestWindow = window
}

// ResolveInternalUserID converts the identity provider's subject into the internal user id.
func (s *Service) ResolveInternalUserID(ctx context.Context, subject string) (uuid.UUID, error) {
	return s.repo.FindUserIDByExternalID(ctx, subject)
}

// GetMember returns the caller's membership in the troop. The API layer uses it for role gating.
func (s *Service) GetMember(ctx context.Context, troopID, userID uuid.UUID) (*domain.TroopMember, error) {
	return s.repo.FindMember(ctx, troopID, userID)
}

// notify publishes in the background with its own deadline.
func (s *Service) notify(n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = s.now().UTC()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"kind":     n.Kind,
				"troop_id": n.TroopID,
			}).Warn("notification delivery failed")
		}
	}()
}

// withLock runs fn while holding the named operation lock.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (s *Service) findActiveCampout(ctx context.Context, troopID, campoutID uuid.UUID) (*domain.Campout, error) {
	campout, err := s.repo.FindCampoutByID(ctx, troopID, campoutID)
	if err != nil {
		return nil, err
	}
	if campout.IsClosed() {
		return nil, domain.ErrCampoutClosed
	}
	return campout, nil
}

func (s *Service) findScout(ctx context.Context, troopID, scoutID uuid.UUID) (*domain.Scout, error) {
	scout, err := s.repo.FindScoutByID(ctx, troopID, scoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to find scout: %w", err)
	}
	return scout, nil
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
