// Package plan reads the published substitute schedule.
package plan

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/models"
)

// DateLayout is the wire format of plan dates.
const DateLayout = "2006-01-02"

// Filter narrows a plan query. Zero values mean "no restriction", except From
// which the callers default to today.
type Filter struct {
	Klasse        string
	From          time.Time
	To            time.Time
	Limit         int
	IncludeDrafts bool
}

// ParseDate accepts yyyy-mm-dd and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return models.NormalizeDate(t), nil
}

// MatchesClass reports whether a lesson for lessonClass is shown to klasse.
func MatchesClass(lessonClass, klasse string) bool {
	if klasse == "" {
		return true
	}
	lessonClass = strings.TrimSpace(lessonClass)
	return strings.EqualFold(lessonClass, models.AllClasses) || strings.EqualFold(lessonClass, klasse)
}

// Days loads the days selected by f in date order with their lessons in
// position order. Lessons not matching f.Klasse are removed.
func Days(ctx context.Context, db *gorm.DB, f Filter) ([]models.PlanDay, error) {
	q := db.WithContext(ctx).Model(&models.PlanDay{}).
		Preload("Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("created_at ASC")
		}).
		Order("date ASC")
	if !f.IncludeDrafts {
		q = q.Where("published = ?", true)
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", models.NormalizeDate(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", models.NormalizeDate(f.To))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var days []models.PlanDay
	if err := q.Find(&days).Error; err != nil {
		return nil, errors.Wrap(err, "load plan days")
	}
	klasse := strings.TrimSpace(f.Klasse)
	if klasse == "" {
		return days, nil
	}
	for i := range days {
		kept := days[i].Lessons[:0]
		for _, l := range days[i].Lessons {
			if MatchesClass(l.Klasse, klasse) {
				kept = append(kept, l)
			}
		}
		days[i].Lessons = kept
	}
	return days, nil
}

// Day loads one day by id with its lessons, drafts included.
func Day(ctx context.Context, db *gorm.DB, id string) (models.PlanDay, error) {
	var day models.PlanDay
	err := db.WithContext(ctx).
		Preload("Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("created_at ASC")
		}).
		Where("id = ?", id).First(&day).Error
	return day, err
}
