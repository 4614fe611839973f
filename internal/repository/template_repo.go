package repository

import (
	"context"
	"errors"

	"github.com/ordernotify/whatsapp-dispatch/internal/domain"
	"gorm.io/gorm"
)

// TemplateRepository reads templates. Writes happen through the seed
// migration and the administrative path, not through this service.
type TemplateRepository interface {
	FindActive(ctx context.Context, name, language string) (*domain.Template, error)
	ListActive(ctx context.Context, language string) ([]domain.Template, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) FindActive(ctx context.Context, name, language string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("name = ? AND language = ? AND active", name, language).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) ListActive(ctx context.Context, language string) ([]domain.Template, error) {
	query := r.db.WithContext(ctx).Where("active")
	if language != "" {
		query = query.Where("language = ?", language)
	}

	var models []TemplateModel
	if err := query.Order("name ASC, language ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(models))
	for i := range models {
		templates = append(templates, *templateModelToDomain(&models[i]))
	}

	return templates, nil
}
