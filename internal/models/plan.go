package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllClasses marks a lesson that applies to every class.
const AllClasses = "ALLE"

// PlanDay is one published page of the substitute schedule.
type PlanDay struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Date      time.Time `gorm:"uniqueIndex"`
	Header    string
	Footer    string
	Block     string
	Published bool         `gorm:"index"`
	Lessons   []PlanLesson `gorm:"foreignKey:DayIDRef;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *PlanDay) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Label is the day key legacy clients expect, e.g. "02.09.".
func (d *PlanDay) Label() string {
	return d.Date.Format("02.01.")
}

// PlanLesson is one substitution entry of a day.
type PlanLesson struct {
	ID               string `gorm:"type:varchar(36);primaryKey"`
	DayIDRef         string `gorm:"type:varchar(36);index"`
	Position         int
	Stunde           string
	Massnahme        string
	Verantwortlicher string
	Klasse           string `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (l *PlanLesson) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// NormalizeDate truncates t to midnight UTC of its calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
