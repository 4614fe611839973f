package repository

import (
	"encoding/json"
	"time"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
)

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID                string        `gorm:"type:uuid;primaryKey"`
	Destination       string        `gorm:"type:varchar(20);not null"`
	Body              string        `gorm:"type:text;not null"`
	TemplateName      *string       `gorm:"type:varchar(100)"`
	Language          *string       `gorm:"type:varchar(8)"`
	OrderID           *string       `gorm:"type:varchar(50)"`
	Variables         string        `gorm:"type:jsonb;not null;default:'{}'"`
	Status            domain.Status `gorm:"type:varchar(20);not null"`
	ProviderMessageID *string       `gorm:"type:varchar(100)"`
	AttemptCount      int           `gorm:"not null;default:1"`
	ErrorDetail       *string       `gorm:"type:text"`
	LastStatusAt      time.Time     `gorm:"type:timestamptz;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// StatusEventModel is the persistence model for message_status_events, the
// append-only transition history.
type StatusEventModel struct {
	ID        string              `gorm:"type:uuid;primaryKey"`
	MessageID string              `gorm:"type:uuid;not null"`
	Status    domain.Status       `gorm:"type:varchar(20);not null"`
	Timestamp time.Time           `gorm:"type:timestamptz;not null"`
	Source    domain.StatusSource `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (StatusEventModel) TableName() string {
	return "message_status_events"
}

// TemplateModel is the persistence model for the templates table.
type TemplateModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"type:varchar(100);not null"`
	Language  string `gorm:"type:varchar(8);not null"`
	Body      string `gorm:"type:text;not null"`
	Variables string `gorm:"type:jsonb;not null;default:'[]'"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	variables := "{}"
	if len(m.Variables) > 0 {
		if encoded, err := json.Marshal(m.Variables); err == nil {
			variables = string(encoded)
		}
	}

	return &MessageModel{
		ID:                m.ID,
		Destination:       m.Destination,
		Body:              m.Body,
		TemplateName:      m.TemplateName,
		Language:          m.Language,
		OrderID:           m.OrderID,
		Variables:         variables,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		AttemptCount:      m.AttemptCount,
		ErrorDetail:       m.ErrorDetail,
		LastStatusAt:      m.LastStatusAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	var variables map[string]string
	if m.Variables != "" {
		_ = json.Unmarshal([]byte(m.Variables), &variables)
	}

	return &domain.Message{
		ID:                m.ID,
		Destination:       m.Destination,
		Body:              m.Body,
		TemplateName:      m.TemplateName,
		Language:          m.Language,
		OrderID:           m.OrderID,
		Variables:         variables,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		AttemptCount:      m.AttemptCount,
		ErrorDetail:       m.ErrorDetail,
		LastStatusAt:      m.LastStatusAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func statusEventModelToDomain(m *StatusEventModel) *domain.StatusEvent {
	if m == nil {
		return nil
	}

	return &domain.StatusEvent{
		ID:        m.ID,
		MessageID: m.MessageID,
		Status:    m.Status,
		Timestamp: m.Timestamp,
		Source:    m.Source,
		CreatedAt: m.CreatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	var variables []string
	if m.Variables != "" {
		_ = json.Unmarshal([]byte(m.Variables), &variables)
	}

	return &domain.Template{
		ID:        m.ID,
		Name:      m.Name,
		Language:  m.Language,
		Body:      m.Body,
		Variables: variables,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
