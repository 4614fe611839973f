package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createMessageStatusEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_message_status_events",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.StatusEventModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_status_events_message_id ON message_status_events (message_id, timestamp)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_status_events_dedupe ON message_status_events (message_id, status, timestamp)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.StatusEventModel{})
		},
	}
}
