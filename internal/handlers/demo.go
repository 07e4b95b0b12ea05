package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/database"
	"github.com/industrieschule/vertretungsplan/internal/endpoint"
)

// demoSeedHook fills an empty debug database with a published day.
func demoSeedHook(db *gorm.DB, log *zap.Logger) endpoint.Hook {
	return endpoint.Hook{
		Name:      "demo-plan",
		DebugOnly: true,
		Run: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return database.SeedDemoPlan(db.WithContext(ctx), time.Now(), log)
		},
	}
}
