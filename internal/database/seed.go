package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/utils"
)

func SeedAdmin(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count admins")
	}
	if count > 0 {
		return nil
	}

	email := cfg.AdminEmail
	if email == "" {
		email = "admin@example.com"
	}
	fullName := cfg.AdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		UserID:   uuid.NewString(),
		FullName: fullName,
		Email:    email,
		Password: hashed,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return errors.Wrap(err, "create admin")
	}
	log.Info("seeded initial admin", zap.String("email", email))
	return nil
}

// SeedDemoPlan adds a published day for today if none exists yet.
func SeedDemoPlan(db *gorm.DB, now time.Time, log *zap.Logger) error {
	date := models.NormalizeDate(now)
	var count int64
	if err := db.Model(&models.PlanDay{}).Where("date = ?", date).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count demo day")
	}
	if count > 0 {
		return nil
	}
	day := models.PlanDay{
		Date:      date,
		Header:    "Vertretungsplan - Demo",
		Footer:    "Automatisch erzeugt im Debug-Modus",
		Block:     "unbekannt",
		Published: true,
		Lessons: []models.PlanLesson{
			{Position: 1, Stunde: "1-2", Massnahme: "Vertretung durch Hr. Beispiel", Verantwortlicher: "Fr. Muster", Klasse: "10a"},
			{Position: 2, Stunde: "Ganzer Tag", Massnahme: "Ganztägiger Stundenausfall, keine Vertretung", Verantwortlicher: "INFO für ALLE", Klasse: models.AllClasses},
		},
	}
	if err := db.Create(&day).Error; err != nil {
		return errors.Wrap(err, "create demo day")
	}
	log.Info("seeded demo plan day", zap.String("date", day.Label()))
	return nil
}
