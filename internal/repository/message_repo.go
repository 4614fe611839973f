package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListParams struct {
	Status      *domain.Status
	Destination string
	OrderID     string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.Message, error)
	List(ctx context.Context, params ListParams) ([]domain.Message, int64, error)
	// UpdateStatus applies a status transition with check-and-set semantics:
	// inside one transaction the current row is locked, the transition graph
	// and the event timestamp are checked against last_status_at, and on
	// acceptance the status, last_status_at, and history are updated together.
	// Returns false (no error) when the guard rejects the transition.
	UpdateStatus(ctx context.Context, id string, status domain.Status, timestamp time.Time, source domain.StatusSource) (bool, error)
	SetProviderMessageID(ctx context.Context, id, providerMessageID string) error
	SetErrorDetail(ctx context.Context, id, detail string) error
	// ClaimForResend atomically moves a failed message back to pending and
	// increments attempt_count. ErrNotFound on unknown id, ErrInvalidState
	// when the current status is not failed.
	ClaimForResend(ctx context.Context, id string) (*domain.Message, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	model := messageModelFromDomain(m)
	if model == nil {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		event := StatusEventModel{
			ID:        uuid.NewString(),
			MessageID: model.ID,
			Status:    model.Status,
			Timestamp: model.LastStatusAt,
			Source:    domain.SourceDispatcher,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return err
	}

	*m = *messageModelToDomain(model)
	return nil
}

func (r *GormMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	message := messageModelToDomain(&model)
	history, err := r.history(ctx, r.db, model.ID)
	if err != nil {
		return nil, err
	}
	message.History = history

	return message, nil
}

func (r *GormMessageRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).
		Where("provider_message_id = ?", providerMessageID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) List(ctx context.Context, params ListParams) ([]domain.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&MessageModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Destination != "" {
		query = query.Where("destination = ?", params.Destination)
	}
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []MessageModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *messageModelToDomain(&models[i]))
	}

	return messages, total, nil
}

func (r *GormMessageRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.Status,
	timestamp time.Time,
	source domain.StatusSource,
) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model MessageModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		// Provider timestamps order a single message's history; events older
		// than the last accepted one are duplicates or arrived out of order.
		if timestamp.Before(model.LastStatusAt) {
			return nil
		}
		if !model.Status.CanTransitionTo(status) {
			return nil
		}

		updates := map[string]any{
			"status":         status,
			"last_status_at": timestamp,
		}
		if err := tx.Model(&MessageModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		event := StatusEventModel{
			ID:        uuid.NewString(),
			MessageID: id,
			Status:    status,
			Timestamp: timestamp,
			Source:    source,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (r *GormMessageRepo) SetProviderMessageID(ctx context.Context, id, providerMessageID string) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", id).
		Update("provider_message_id", providerMessageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) SetErrorDetail(ctx context.Context, id, detail string) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", id).
		Update("error_detail", detail)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) ClaimForResend(ctx context.Context, id string) (*domain.Message, error) {
	var claimed *domain.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model MessageModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if model.Status != domain.StatusFailed {
			return fmt.Errorf("%w: message %s is %s, only failed messages may be resent",
				domain.ErrInvalidState, id, model.Status)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":         domain.StatusPending,
			"last_status_at": now,
			"attempt_count":  gorm.Expr("attempt_count + 1"),
			"error_detail":   nil,
		}
		if err := tx.Model(&MessageModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		event := StatusEventModel{
			ID:        uuid.NewString(),
			MessageID: id,
			Status:    domain.StatusPending,
			Timestamp: now,
			Source:    domain.SourceDispatcher,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		model.Status = domain.StatusPending
		model.LastStatusAt = now
		model.AttemptCount++
		model.ErrorDetail = nil
		claimed = messageModelToDomain(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (r *GormMessageRepo) history(ctx context.Context, db *gorm.DB, messageID string) ([]domain.StatusEvent, error) {
	var models []StatusEventModel
	err := db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("timestamp ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.StatusEvent, 0, len(models))
	for i := range models {
		events = append(events, *statusEventModelToDomain(&models[i]))
	}

	return events, nil
}
