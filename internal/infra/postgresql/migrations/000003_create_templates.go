package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createTemplatesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_templates",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TemplateModel{}); err != nil {
				return err
			}
			// One active template per (name, language); inactive rows keep
			// the history of replaced versions.
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_name_language_active ON templates (name, language) WHERE active`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}
