package controllers

import (
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/plan"
	"github.com/industrieschule/vertretungsplan/internal/ws"
)

// broadcastDay tells live clients about a day change. Drafts stay private: a
// day is only announced while it is published or when it stops being published.
func broadcastDay(hub *ws.PlanHub, eventType string, day models.PlanDay, wasPublished bool) {
	if hub == nil || (!day.Published && !wasPublished) {
		return
	}
	var payload any
	if day.Published && eventType != ws.DayDeleted {
		payload = plan.DayViewOf(day)
	} else if eventType != ws.DayDeleted {
		eventType = ws.DayDeleted
	}
	hub.Publish(ws.PlanEvent{
		Type:    eventType,
		DayID:   day.ID,
		Date:    day.Date.Format(plan.DateLayout),
		Label:   day.Label(),
		Payload: payload,
	})
}

// broadcastLesson announces a lesson change on a published day to the classes
// it concerns. classes carries the lesson's class before and after the change.
func broadcastLesson(hub *ws.PlanHub, eventType string, day models.PlanDay, lesson models.PlanLesson, classes ...string) {
	if hub == nil || !day.Published {
		return
	}
	var payload any
	if eventType != ws.LessonDeleted {
		payload = plan.LessonViewOf(lesson)
	}
	hub.Publish(ws.PlanEvent{
		Type:    eventType,
		DayID:   day.ID,
		Date:    day.Date.Format(plan.DateLayout),
		Label:   day.Label(),
		Classes: dedupe(classes),
		Payload: payload,
	})
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
