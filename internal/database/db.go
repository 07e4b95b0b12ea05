package database

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/models"
)

// Pool limits for production. Debug mode runs on a single connection.
const (
	poolMaxOpen     = 50
	poolMaxIdle     = 10
	poolMaxLifetime = 1000 * time.Second
	pingTimeout     = 5 * time.Second
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if cfg.Debug {
		// Verbose SQL only in debug mode
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.DBDriver)
	}

	sdb, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "access sql pool")
	}
	if cfg.Debug || cfg.DBDriver == config.DriverSQLite {
		sdb.SetMaxOpenConns(1)
	} else {
		sdb.SetMaxOpenConns(poolMaxOpen)
		sdb.SetMaxIdleConns(poolMaxIdle)
		sdb.SetConnMaxLifetime(poolMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sdb.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.PlanDay{},
		&models.PlanLesson{},
	), "auto migrate")
}

// Ping checks that the database still answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sdb, err := db.DB()
	if err != nil {
		return err
	}
	return sdb.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sdb, err := db.DB()
	if err != nil {
		return err
	}
	return sdb.Close()
}
