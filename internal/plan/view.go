package plan

import (
	"time"

	"github.com/industrieschule/vertretungsplan/internal/models"
)

type LessonView struct {
	ID               string `json:"id"`
	Position         int    `json:"position"`
	Stunde           string `json:"stunde"`
	Massnahme        string `json:"massnahme"`
	Verantwortlicher string `json:"verantwortlicher"`
	Klasse           string `json:"klasse"`
}

type DayView struct {
	ID        string       `json:"id"`
	Date      string       `json:"date"`
	Label     string       `json:"label"`
	Header    string       `json:"header"`
	Footer    string       `json:"footer"`
	Block     string       `json:"block"`
	Published bool         `json:"published"`
	UpdatedAt time.Time    `json:"updated_at"`
	Lessons   []LessonView `json:"lessons"`
}

func LessonViewOf(l models.PlanLesson) LessonView {
	return LessonView{
		ID:               l.ID,
		Position:         l.Position,
		Stunde:           l.Stunde,
		Massnahme:        l.Massnahme,
		Verantwortlicher: l.Verantwortlicher,
		Klasse:           l.Klasse,
	}
}

func DayViewOf(d models.PlanDay) DayView {
	lessons := make([]LessonView, 0, len(d.Lessons))
	for _, l := range d.Lessons {
		lessons = append(lessons, LessonViewOf(l))
	}
	return DayView{
		ID:        d.ID,
		Date:      d.Date.Format(DateLayout),
		Label:     d.Label(),
		Header:    d.Header,
		Footer:    d.Footer,
		Block:     d.Block,
		Published: d.Published,
		UpdatedAt: d.UpdatedAt,
		Lessons:   lessons,
	}
}

func DayViews(days []models.PlanDay) []DayView {
	out := make([]DayView, 0, len(days))
	for _, d := range days {
		out = append(out, DayViewOf(d))
	}
	return out
}

// Classes returns the distinct classes of a day's lessons in first-seen order.
func Classes(lessons []models.PlanLesson) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range lessons {
		if _, ok := seen[l.Klasse]; ok || l.Klasse == "" {
			continue
		}
		seen[l.Klasse] = struct{}{}
		out = append(out, l.Klasse)
	}
	return out
}
