package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"github.com/ordernotify/whatsapp-dispatch/internal/lock"
	"github.com/ordernotify/whatsapp-dispatch/internal/observability"
	"github.com/ordernotify/whatsapp-dispatch/internal/provider"
	"github.com/ordernotify/whatsapp-dispatch/internal/ratelimit"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"github.com/ordernotify/whatsapp-dispatch/internal/template"
	"go.uber.org/zap"
)

// TemplateSend requests a templated message.
type TemplateSend struct {
	Destination  string
	TemplateName string
	Language     string
	Variables    map[string]string
	OrderID      string
}

// RawSend requests a free-text message.
type RawSend struct {
	Destination string
	Body        string
	OrderID     string
}

// TemplateResolver resolves an active template by name and language.
type TemplateResolver interface {
	Resolve(ctx context.Context, name, language string) (*domain.Template, error)
}

// Dispatcher orchestrates template resolution, rendering, the outbound
// provider call, and persistence of the resulting message record. Send
// failures are recorded on the message, not returned as errors: callers
// inspect the returned status.
type Dispatcher struct {
	messages  repository.MessageRepository
	templates TemplateResolver
	provider  provider.Provider
	inflight  *lock.Keyed
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDispatcher(
	messages repository.MessageRepository,
	templates TemplateResolver,
	deliveryProvider provider.Provider,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template resolver is required")
	}
	if deliveryProvider == nil {
		return nil, fmt.Errorf("delivery provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		messages:  messages,
		templates: templates,
		provider:  deliveryProvider,
		inflight:  lock.NewKeyed(),
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// SendTemplate resolves and renders the named template, then dispatches the
// rendered body.
func (d *Dispatcher) SendTemplate(ctx context.Context, req TemplateSend) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	destination := strings.TrimSpace(req.Destination)
	if err := domain.ValidateDestination(destination); err != nil {
		return nil, err
	}

	tpl, err := d.templates.Resolve(ctx, req.TemplateName, req.Language)
	if err != nil {
		return nil, err
	}

	body, err := template.Render(tpl, req.Variables)
	if err != nil {
		return nil, err
	}

	msg := d.newMessage(destination, body, req.OrderID)
	msg.TemplateName = &tpl.Name
	msg.Language = &tpl.Language
	if len(req.Variables) > 0 {
		msg.Variables = req.Variables
	}

	if err := d.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	return d.dispatch(ctx, msg, "template")
}

// SendRaw dispatches a free-text body without template resolution.
func (d *Dispatcher) SendRaw(ctx context.Context, req RawSend) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	destination := strings.TrimSpace(req.Destination)
	if err := domain.ValidateDestination(destination); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}

	msg := d.newMessage(destination, req.Body, req.OrderID)
	if err := d.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	return d.dispatch(ctx, msg, "raw")
}

// Resend re-dispatches the stored body of a failed message. Only failed
// messages qualify; a resend racing another attempt on the same id fails
// fast with ErrConflict instead of blocking.
func (d *Dispatcher) Resend(ctx context.Context, messageID string) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}

	if !d.inflight.TryAcquire(messageID) {
		if d.metrics != nil {
			d.metrics.IncResendConflict()
		}
		return nil, fmt.Errorf("%w: message %s already has a send attempt in flight", domain.ErrConflict, messageID)
	}
	defer d.inflight.Release(messageID)

	msg, err := d.messages.ClaimForResend(ctx, messageID)
	if err != nil {
		return nil, err
	}

	return d.attempt(ctx, msg, "resend")
}

func (d *Dispatcher) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	return d.messages.GetByID(ctx, strings.TrimSpace(id))
}

func (d *Dispatcher) ListMessages(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error) {
	return d.messages.List(ctx, params)
}

func (d *Dispatcher) newMessage(destination, body, orderID string) *domain.Message {
	now := d.now().UTC()
	msg := &domain.Message{
		ID:           uuid.NewString(),
		Destination:  destination,
		Body:         body,
		Status:       domain.StatusPending,
		AttemptCount: 1,
		LastStatusAt: now,
		CreatedAt:    now,
	}
	if trimmed := strings.TrimSpace(orderID); trimmed != "" {
		msg.OrderID = &trimmed
	}
	return msg
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *domain.Message, kind string) (*domain.Message, error) {
	if !d.inflight.TryAcquire(msg.ID) {
		return nil, fmt.Errorf("%w: message %s already has a send attempt in flight", domain.ErrConflict, msg.ID)
	}
	defer d.inflight.Release(msg.ID)

	return d.attempt(ctx, msg, kind)
}

// attempt performs the provider call and records the outcome. The caller
// must hold the in-flight lock for msg.ID.
func (d *Dispatcher) attempt(ctx context.Context, msg *domain.Message, kind string) (*domain.Message, error) {
	// A limiter failure must not strand the row in pending: the message is
	// already claimed or created, so the outcome is recorded as a failed
	// attempt and stays resendable.
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, msg.Destination); err != nil {
			return d.recordFailure(ctx, msg, kind, fmt.Errorf("rate limiter wait failed: %w", err))
		}
	}

	sendStart := d.now()
	result, sendErr := d.provider.Send(ctx, msg.Destination, msg.Body)
	if d.metrics != nil {
		d.metrics.ObserveSendDuration(d.now().Sub(sendStart))
	}

	logger := observability.WithContextLogger(d.logger, ctx)

	if sendErr != nil {
		return d.recordFailure(ctx, msg, kind, sendErr)
	}

	if err := d.messages.SetProviderMessageID(ctx, msg.ID, result.ProviderMessageID); err != nil {
		return nil, fmt.Errorf("failed to store provider message id: %w", err)
	}

	sentAt := d.now().UTC()
	applied, err := d.messages.UpdateStatus(ctx, msg.ID, domain.StatusSent, sentAt, domain.SourceDispatcher)
	if err != nil {
		return nil, fmt.Errorf("failed to mark message as sent: %w", err)
	}
	if !applied {
		// A webhook for this provider message id won the race; the stored
		// status is already ahead of sent.
		logger.Warn("sent transition rejected, message already progressed",
			zap.String("messageId", msg.ID),
		)
		return d.messages.GetByID(ctx, msg.ID)
	}

	msg.Status = domain.StatusSent
	msg.ProviderMessageID = &result.ProviderMessageID
	msg.LastStatusAt = sentAt
	msg.ErrorDetail = nil

	if d.metrics != nil {
		d.metrics.IncMessageSent(kind)
	}
	logger.Info("message sent",
		zap.String("messageId", msg.ID),
		zap.String("providerMessageId", result.ProviderMessageID),
		zap.String("kind", kind),
		zap.Int("attempt", msg.AttemptCount),
	)

	return msg, nil
}

// recordFailure persists the adapter error as message state. The send
// failure is data, not an error: the message is returned with status failed
// so the caller can inspect it and later resend.
func (d *Dispatcher) recordFailure(ctx context.Context, msg *domain.Message, kind string, sendErr error) (*domain.Message, error) {
	// The failed state must be persisted even when the request context was
	// cancelled mid-attempt, otherwise the row stays pending and can never
	// be resent.
	persistCtx := context.WithoutCancel(ctx)

	detail := sendErr.Error()
	if err := d.messages.SetErrorDetail(persistCtx, msg.ID, detail); err != nil {
		return nil, fmt.Errorf("failed to store error detail: %w", err)
	}

	failedAt := d.now().UTC()
	if _, err := d.messages.UpdateStatus(persistCtx, msg.ID, domain.StatusFailed, failedAt, domain.SourceDispatcher); err != nil {
		return nil, fmt.Errorf("failed to mark message as failed: %w", err)
	}

	msg.Status = domain.StatusFailed
	msg.ErrorDetail = &detail
	msg.LastStatusAt = failedAt

	if d.metrics != nil {
		reason := "permanent_error"
		if provider.IsTransient(sendErr) {
			reason = "transient_error"
		}
		d.metrics.IncMessageFailed(reason)
	}
	observability.WithContextLogger(d.logger, ctx).Warn("message send failed",
		zap.String("messageId", msg.ID),
		zap.String("kind", kind),
		zap.Int("attempt", msg.AttemptCount),
		zap.Error(sendErr),
	)

	return msg, nil
}
