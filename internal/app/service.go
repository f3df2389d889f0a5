/**
 * @description
 * This file contains the core business logic for the savings service. The
 * `Service` struct orchestrates all money movement operations, coordinating
 * between the database repository, the transactional ledger executor, the
 * product catalog client, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: wallet deposits/withdrawals, goal funding
 *   and redemption, recurring automated savings, and merchant payouts.
 * - Every balance mutation goes through the ledger executor so debits,
 *   credits, the ledger entry, and the audit record land atomically.
 * - Publishes notification events to RabbitMQ for asynchronous delivery.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/ledger, internal/store: Domain models, balance
 *   transitions, and data access.
 * - pkg/catalogclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/pkg/catalogclient"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/pkg/rabbitmq"
)

// ProductCatalog resolves product details for product-linked goals. The
// catalog price is authoritative for the goal's target amount.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*catalogclient.Product, error)
}

// Service provides the core business logic for the savings ledger.
type Service struct {
	repo          store.Repository
	executor      store.LedgerExecutor
	catalog       ProductCatalog
	eventProducer rabbitmq.Publisher
	eventExchange string
	currency      string

	// now is replaceable in tests so automation runs can be pinned to a date.
	now func() time.Time
}

// NewService creates a new savings service instance.
func NewService(repo store.Repository, executor store.LedgerExecutor, catalog ProductCatalog, producer rabbitmq.Publisher, eventExchange, currency string) *Service {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Service{
		repo:          repo,
		executor:      executor,
		catalog:       catalog,
		eventProducer: producer,
		eventExchange: eventExchange,
		currency:      currency,
		now:           time.Now,
	}
}

// newReference builds a ledger reference for operations where the caller did
// not supply one. References are unique per operation, not per attempt: the
// scheduler and webhook paths construct deterministic references instead.
func newReference(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}

// notify persists an in-app notification and publishes the matching broker
// event. Delivery is best-effort; a notification failure never fails the
// ledger operation that triggered it.
func (s *Service) notify(ctx context.Context, userID uuid.UUID, category, title, message string, metadata map[string]any) {
	n := &domain.InAppNotification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Category: category,
		Metadata: metadata,
	}
	if err := s.repo.CreateInAppNotification(ctx, n); err != nil {
		log.Printf("level=warn component=service msg=\"failed to persist notification\" user_id=%s category=%s err=%v", userID, category, err)
	}
	if s.eventProducer != nil {
		event := rabbitmq.NotificationEvent{
			UserID:    userID,
			Category:  category,
			Title:     title,
			Message:   message,
			Metadata:  metadata,
			Timestamp: time.Now().UTC(),
		}
		if err := s.eventProducer.Publish(ctx, s.eventExchange, "notification.dispatch."+category, event); err != nil {
			log.Printf("level=warn component=service msg=\"failed to publish notification event\" user_id=%s category=%s err=%v", userID, category, err)
		}
	}
}

func auditResourceID(id uuid.UUID) *string {
	v := id.String()
	return &v
}
