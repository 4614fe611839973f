package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"github.com/ordernotify/whatsapp-dispatch/internal/observability"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"go.uber.org/zap"
)

// ProviderStatusEvent is one status entry from a provider webhook callback.
type ProviderStatusEvent struct {
	ProviderMessageID string
	Status            string
	Timestamp         time.Time
}

// Outcome classifies how the reconciler handled one status event. Rejections
// are expected operation, not failures: webhooks arrive duplicated and out
// of order.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeOutOfOrder        Outcome = "out_of_order"
	OutcomeIllegalTransition Outcome = "illegal_transition"
	OutcomeUnknownMessage    Outcome = "unknown_message"
	OutcomeUnknownStatus     Outcome = "unknown_status"
	OutcomeError             Outcome = "error"
)

// Reconciler applies provider-reported status events to local message
// records, enforcing the transition graph and timestamp ordering. No event
// is fatal: everything rejected is logged and dropped.
type Reconciler struct {
	messages repository.MessageRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewReconciler(messages repository.MessageRepository, logger *zap.Logger) (*Reconciler, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		messages: messages,
		logger:   logger,
	}, nil
}

func (r *Reconciler) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Process applies a single status event and reports the outcome.
func (r *Reconciler) Process(ctx context.Context, event ProviderStatusEvent) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	outcome := r.process(ctx, event)
	if r.metrics != nil {
		r.metrics.IncWebhookEvent(string(outcome))
	}
	return outcome
}

// ProcessBatch applies each event independently; one bad entry never blocks
// the rest of the callback.
func (r *Reconciler) ProcessBatch(ctx context.Context, events []ProviderStatusEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(events))
	for _, event := range events {
		outcomes = append(outcomes, r.Process(ctx, event))
	}
	return outcomes
}

func (r *Reconciler) process(ctx context.Context, event ProviderStatusEvent) Outcome {
	logger := observability.WithContextLogger(r.logger, ctx)

	status, err := domain.ParseProviderStatus(event.Status)
	if err != nil {
		logger.Warn("webhook event with unrecognized status dropped",
			zap.String("providerMessageId", event.ProviderMessageID),
			zap.String("status", event.Status),
		)
		return OutcomeUnknownStatus
	}

	msg, err := r.messages.GetByProviderMessageID(ctx, event.ProviderMessageID)
	if errors.Is(err, domain.ErrNotFound) {
		// The provider reports for messages we never tracked, e.g. test
		// callbacks. Not actionable.
		logger.Info("webhook event for unknown provider message id dropped",
			zap.String("providerMessageId", event.ProviderMessageID),
			zap.String("status", event.Status),
		)
		return OutcomeUnknownMessage
	}
	if err != nil {
		logger.Error("webhook event lookup failed",
			zap.String("providerMessageId", event.ProviderMessageID),
			zap.Error(err),
		)
		return OutcomeError
	}

	applied, err := r.messages.UpdateStatus(ctx, msg.ID, status, event.Timestamp, domain.SourceProvider)
	if err != nil {
		logger.Error("webhook status update failed",
			zap.String("messageId", msg.ID),
			zap.String("status", status.String()),
			zap.Error(err),
		)
		return OutcomeError
	}
	if applied {
		logger.Info("message status reconciled",
			zap.String("messageId", msg.ID),
			zap.String("from", msg.Status.String()),
			zap.String("to", status.String()),
		)
		return OutcomeApplied
	}

	outcome := classifyRejection(msg, status, event.Timestamp)
	logger.Info("webhook transition rejected",
		zap.String("messageId", msg.ID),
		zap.String("current", msg.Status.String()),
		zap.String("reported", status.String()),
		zap.Time("eventTimestamp", event.Timestamp),
		zap.Time("lastStatusAt", msg.LastStatusAt),
		zap.String("outcome", string(outcome)),
	)
	return outcome
}

func classifyRejection(msg *domain.Message, reported domain.Status, timestamp time.Time) Outcome {
	if reported == msg.Status {
		return OutcomeDuplicate
	}
	if timestamp.Before(msg.LastStatusAt) {
		return OutcomeOutOfOrder
	}
	return OutcomeIllegalTransition
}
