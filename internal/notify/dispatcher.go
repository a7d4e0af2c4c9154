/**
 * @description
 * The Dispatcher delivers ledger notifications. Every notification is published to the
 * troop events exchange; leadership notifications are also mailed when SMTP is configured.
 *
 * @dependencies
 * - pkg/rabbitmq: broker publisher (or its fallback).
 * - pkg/mailer: SMTP sender.
 * - github.com/sirupsen/logrus: structured logging.
 */
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/domain"
	"github.com/troopledger/ledger-service/pkg/mailer"
	"github.com/troopledger/ledger-service/pkg/rabbitmq"
)

const (
	DefaultExchange   = "troop.events"
	routingKeyPrefix  = "notification."
	leadershipSubject = "[Troop ledger] "
)

// Dispatcher implements app.Notifier.
type Dispatcher struct {
	publisher  rabbitmq.Publisher
	exchange   string
	mail       mailer.Sender
	leadership []string
	logger     *logrus.Entry
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLeadershipMail mails LEADERSHIP notifications to the given addresses.
func WithLeadershipMail(sender mailer.Sender, recipients []string) Option {
	return func(d *Dispatcher) {
		d.mail = sender
		for _, r := range recipients {
			if r = strings.TrimSpace(r); r != "" {
				d.leadership = append(d.leadership, r)
			}
		}
	}
}

func NewDispatcher(publisher rabbitmq.Publisher, exchange string, logger *logrus.Logger, opts ...Option) *Dispatcher {
	if strings.TrimSpace(exchange) == "" {
		exchange = DefaultExchange
	}
	d := &Dispatcher{
		publisher: publisher,
		exchange:  exchange,
		logger:    logger.WithField("component", "notifier"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RoutingKey is the broker routing key for a notification kind.
func RoutingKey(kind domain.NotificationKind) string {
	return routingKeyPrefix + string(kind)
}

// Notify publishes the notification and, for leadership, mails it. Both channels are attempted
// even if the first fails.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, d.exchange, RoutingKey(n.Kind), n); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish notification: %w", err))
		}
	}
	if n.Audience == domain.AudienceLeadership && d.mail != nil && len(d.leadership) > 0 {
		if err := d.mail.Send(ctx, d.leadership, leadershipSubject+n.Title, renderMail(n)); err != nil {
			errs = append(errs, fmt.Errorf("failed to mail leadership: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	d.logger.WithFields(logrus.Fields{"kind": n.Kind, "troop_id": n.TroopID}).Debug("notification delivered")
	return nil
}

func renderMail(n domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3>\n<p>%s</p>\n", html.EscapeString(n.Title), html.EscapeString(n.Message))
	if n.Link != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Open in the troop ledger</a></p>\n", html.EscapeString(n.Link))
	}
	return b.String()
}
