package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/ordernotify/whatsapp-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createMessagesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_messages",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_messages_status_created ON messages (status, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_destination ON messages (destination)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_order_id ON messages (order_id) WHERE order_id IS NOT NULL`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_provider_message_id ON messages (provider_message_id) WHERE provider_message_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MessageModel{})
		},
	}
}
