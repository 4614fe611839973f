package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"github.com/ordernotify/whatsapp-dispatch/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageService interface {
	SendTemplate(ctx context.Context, req service.TemplateSend) (*domain.Message, error)
	SendRaw(ctx context.Context, req service.RawSend) (*domain.Message, error)
	Resend(ctx context.Context, messageID string) (*domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListMessages(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error)
}

type MessageHandler struct {
	service MessageService
}

func NewMessageHandler(service MessageService) (*MessageHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("message service is required")
	}
	return &MessageHandler{service: service}, nil
}

func RegisterMessageRoutes(router fiber.Router, service MessageService) error {
	h, err := NewMessageHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages/template", h.SendTemplateMessage)
	v1.Post("/messages/raw", h.SendRawMessage)
	v1.Post("/messages/:id/resend", h.ResendMessage)
	v1.Get("/messages/:id", h.GetMessage)
	v1.Get("/messages", h.ListMessages)

	return nil
}

type sendTemplateRequest struct {
	Destination  string            `json:"destination"`
	TemplateName string            `json:"templateName"`
	Language     string            `json:"language"`
	Variables    map[string]string `json:"variables"`
	OrderID      string            `json:"orderId"`
}

type sendRawRequest struct {
	Destination string `json:"destination"`
	Body        string `json:"body"`
	OrderID     string `json:"orderId"`
}

type messageResponse struct {
	ID                string                `json:"id"`
	Destination       string                `json:"destination"`
	Body              string                `json:"body"`
	TemplateName      *string               `json:"templateName,omitempty"`
	Language          *string               `json:"language,omitempty"`
	OrderID           *string               `json:"orderId,omitempty"`
	Status            string                `json:"status"`
	ProviderMessageID *string               `json:"providerMessageId,omitempty"`
	AttemptCount      int                   `json:"attemptCount"`
	ErrorDetail       *string               `json:"errorDetail,omitempty"`
	LastStatusAt      time.Time             `json:"lastStatusAt"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
	History           []statusEventResponse `json:"history,omitempty"`
}

type statusEventResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *MessageHandler) SendTemplateMessage(c *fiber.Ctx) error {
	var req sendTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := h.service.SendTemplate(c.UserContext(), service.TemplateSend{
		Destination:  strings.TrimSpace(req.Destination),
		TemplateName: strings.TrimSpace(req.TemplateName),
		Language:     strings.TrimSpace(req.Language),
		Variables:    req.Variables,
		OrderID:      strings.TrimSpace(req.OrderID),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) SendRawMessage(c *fiber.Ctx) error {
	var req sendRawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := h.service.SendRaw(c.UserContext(), service.RawSend{
		Destination: strings.TrimSpace(req.Destination),
		Body:        req.Body,
		OrderID:     strings.TrimSpace(req.OrderID),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) ResendMessage(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	msg, err := h.service.Resend(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) GetMessage(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	msg, err := h.service.GetMessage(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	messages, total, err := h.service.ListMessages(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: toMessageResponses(messages),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Destination: strings.TrimSpace(c.Query("destination")),
		OrderID:     strings.TrimSpace(c.Query("orderId")),
		Page:        c.QueryInt("page", defaultPage),
		PageSize:    c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	responses := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		m := message
		responses = append(responses, toMessageResponse(&m))
	}
	return responses
}

func toMessageResponse(m *domain.Message) messageResponse {
	if m == nil {
		return messageResponse{}
	}

	resp := messageResponse{
		ID:                m.ID,
		Destination:       m.Destination,
		Body:              m.Body,
		TemplateName:      m.TemplateName,
		Language:          m.Language,
		OrderID:           m.OrderID,
		Status:            m.Status.String(),
		ProviderMessageID: m.ProviderMessageID,
		AttemptCount:      m.AttemptCount,
		ErrorDetail:       m.ErrorDetail,
		LastStatusAt:      m.LastStatusAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}

	for _, event := range m.History {
		resp.History = append(resp.History, statusEventResponse{
			Status:    event.Status.String(),
			Timestamp: event.Timestamp,
			Source:    event.Source.String(),
		})
	}

	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
