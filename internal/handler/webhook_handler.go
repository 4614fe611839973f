package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ordernotify/whatsapp-dispatch/internal/service"
)

type StatusReconciler interface {
	ProcessBatch(ctx context.Context, events []service.ProviderStatusEvent) []service.Outcome
}

// WebhookHandler terminates the provider's webhook callbacks: the GET
// subscription handshake and POST delivery status notifications.
type WebhookHandler struct {
	reconciler  StatusReconciler
	verifyToken string
	logger      *zap.Logger
}

func NewWebhookHandler(reconciler StatusReconciler, verifyToken string, logger *zap.Logger) (*WebhookHandler, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("status reconciler is required")
	}
	if strings.TrimSpace(verifyToken) == "" {
		return nil, fmt.Errorf("webhook verify token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		reconciler:  reconciler,
		verifyToken: verifyToken,
		logger:      logger,
	}, nil
}

func RegisterWebhookRoutes(router fiber.Router, reconciler StatusReconciler, verifyToken string, logger *zap.Logger) error {
	h, err := NewWebhookHandler(reconciler, verifyToken, logger)
	if err != nil {
		return err
	}

	router.Get("/webhook", h.Verify)
	router.Post("/webhook", h.Receive)

	return nil
}

// webhookPayload mirrors the provider's notification envelope. Only the
// statuses array is consumed; inbound message entries are ignored.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Statuses []struct {
					ID        string `json:"id"`
					Status    string `json:"status"`
					Timestamp string `json:"timestamp"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Verify answers the provider's subscription handshake: echo the challenge
// when the mode and token match, reject otherwise.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Warn("webhook verification rejected", zap.String("mode", mode))
		return fiber.NewError(fiber.StatusForbidden, "verification failed")
	}

	return c.Status(fiber.StatusOK).SendString(challenge)
}

// Receive ingests a status notification batch. The response is always 200 so
// the provider does not retry: rejected events are recorded as outcomes, not
// surfaced as HTTP failures.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var payload webhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn("webhook payload not parseable", zap.Error(err))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ignored"})
	}

	events := extractStatusEvents(payload)
	if len(events) == 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ignored"})
	}

	outcomes := h.reconciler.ProcessBatch(c.UserContext(), events)

	results := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		results = append(results, string(outcome))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "processed",
		"received": len(events),
		"outcomes": results,
	})
}

func extractStatusEvents(payload webhookPayload) []service.ProviderStatusEvent {
	var events []service.ProviderStatusEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				events = append(events, service.ProviderStatusEvent{
					ProviderMessageID: strings.TrimSpace(status.ID),
					Status:            status.Status,
					Timestamp:         parseWebhookTimestamp(status.Timestamp),
				})
			}
		}
	}
	return events
}

// parseWebhookTimestamp reads the provider's unix-seconds string. A missing
// or malformed value falls back to now so the event is still applied in
// arrival order.
func parseWebhookTimestamp(raw string) time.Time {
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || seconds <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(seconds, 0).UTC()
}
