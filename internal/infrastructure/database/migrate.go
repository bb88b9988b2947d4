package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mediavault/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.MediaRecord{}); err != nil {
		return err
	}
	log.Info().Msg("applied media record migrations")
	return nil
}
