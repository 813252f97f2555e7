package database

import (
	"Ripple/internal/app/config"
	"Ripple/internal/model"
	"Ripple/internal/pkg/logger"
	"fmt"
	log "log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewGormDB 打开本地 SQLite 缓存库并完成迁移
func NewGormDB(cfg *config.StorageConfig) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "ripple.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err = db.AutoMigrate(&model.CachedMessage{}, &model.Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	log.Info("Local database opened successfully.", "path", path)
	return db, nil
}
