package migrations

import (
	"encoding/json"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedTemplate struct {
	name      string
	language  string
	body      string
	variables []string
}

// Default order-notification templates. Bodies are plain text with
// {{variable}} placeholders; every listed variable is required at send time.
var defaultTemplates = []seedTemplate{
	{
		name:     "order_confirmation",
		language: "es",
		body: "¡Hola {{customer_name}}! Tu pedido #{{order_id}} ha sido confirmado. " +
			"Total: {{order_total}}. Entrega estimada: {{estimated_delivery}}. ¡Gracias por tu compra!",
		variables: []string{"customer_name", "order_id", "order_total", "estimated_delivery"},
	},
	{
		name:     "order_status_update",
		language: "es",
		body: "¡Hola! Tu pedido #{{order_id}} ha sido actualizado. Nuevo estado: {{status}}. " +
			"Te notificaremos cuando haya más novedades.",
		variables: []string{"order_id", "status"},
	},
	{
		name:     "order_delivered",
		language: "es",
		body: "¡Excelente noticia! Tu pedido #{{order_id}} ha sido entregado el {{delivery_date}}. " +
			"Esperamos que disfrutes tu compra.",
		variables: []string{"order_id", "delivery_date"},
	},
	{
		name:     "order_cancelled",
		language: "es",
		body: "Tu pedido #{{order_id}} ha sido cancelado. Motivo: {{cancellation_reason}}. " +
			"Si tienes alguna pregunta, contáctanos.",
		variables: []string{"order_id", "cancellation_reason"},
	},
	{
		name:     "payment_confirmed",
		language: "es",
		body: "¡Pago confirmado! Tu pago de {{payment_amount}} para el pedido #{{order_id}} " +
			"ha sido procesado. Tu pedido está siendo preparado.",
		variables: []string{"order_id", "payment_amount"},
	},
	{
		name:     "shipping_update",
		language: "es",
		body: "Tu pedido #{{order_id}} está en camino. Estado: {{shipping_status}}. " +
			"Ubicación actual: {{current_location}}.",
		variables: []string{"order_id", "shipping_status", "current_location"},
	},
	{
		name:      "welcome_message",
		language:  "es",
		body:      "¡Bienvenido, {{customer_name}}! Gracias por registrarte. Recibirás aquí las novedades de tus pedidos.",
		variables: []string{"customer_name"},
	},
	{
		name:     "order_confirmation",
		language: "en",
		body: "Hello {{customer_name}}! Your order #{{order_id}} has been confirmed. " +
			"Total: {{order_total}}. Estimated delivery: {{estimated_delivery}}. Thank you for your purchase!",
		variables: []string{"customer_name", "order_id", "order_total", "estimated_delivery"},
	},
	{
		name:     "order_status_update",
		language: "en",
		body: "Hello! Your order #{{order_id}} has been updated. New status: {{status}}. " +
			"We will notify you when there are more updates.",
		variables: []string{"order_id", "status"},
	},
	{
		name:     "order_delivered",
		language: "en",
		body: "Great news! Your order #{{order_id}} was delivered on {{delivery_date}}. " +
			"We hope you enjoy your purchase.",
		variables: []string{"order_id", "delivery_date"},
	},
}

func seedDefaultTemplates() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_seed_default_templates",
		Migrate: func(tx *gorm.DB) error {
			for _, seed := range defaultTemplates {
				variables, err := json.Marshal(seed.variables)
				if err != nil {
					return err
				}

				model := repository.TemplateModel{
					ID:        uuid.NewString(),
					Name:      seed.name,
					Language:  seed.language,
					Body:      seed.body,
					Variables: string(variables),
					Active:    true,
				}

				err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
				if err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			for _, seed := range defaultTemplates {
				err := tx.Where("name = ? AND language = ?", seed.name, seed.language).
					Delete(&repository.TemplateModel{}).Error
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
