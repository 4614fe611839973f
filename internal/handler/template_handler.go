package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

type TemplateService interface {
	Resolve(ctx context.Context, name, language string) (*domain.Template, error)
	ListActive(ctx context.Context, language string) ([]domain.Template, error)
}

type TemplateHandler struct {
	service TemplateService
}

func NewTemplateHandler(service TemplateService) (*TemplateHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("template service is required")
	}
	return &TemplateHandler{service: service}, nil
}

func RegisterTemplateRoutes(router fiber.Router, service TemplateService) error {
	h, err := NewTemplateHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/templates", h.ListTemplates)
	v1.Get("/templates/:name", h.GetTemplate)

	return nil
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	Body      string    `json:"body"`
	Variables []string  `json:"variables"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.service.ListActive(c.UserContext(), strings.TrimSpace(c.Query("language")))
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		t := tpl
		responses = append(responses, toTemplateResponse(&t))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))
	tpl, err := h.service.Resolve(c.UserContext(), name, strings.TrimSpace(c.Query("language")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(tpl))
}

func toTemplateResponse(t *domain.Template) templateResponse {
	if t == nil {
		return templateResponse{}
	}

	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Language:  t.Language,
		Body:      t.Body,
		Variables: t.Variables,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
