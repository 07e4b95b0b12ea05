package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/metrics"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/plan"
	"github.com/industrieschule/vertretungsplan/internal/utils"
)

// Error codes understood by the legacy app.
const (
	legacyErrMissingANZ   = "NO_ANS (inofficial error code)"
	legacyErrWrongHash    = "WRONG_SECUREHASH"
	legacyErrWrongPW      = "WRONG_PASSWORD"
	legacyErrRateLimited  = "TOO_MANY_REQUESTS (inofficial error code)"
	legacyErrUnavailable  = "UNAVAILABLE (inofficial error code)"
	legacyNoticeStunde    = "Ganzer Tag"
	legacyNoticeMassnahme = "Zurzeit sind keine Vertretungen eingetragen"
	legacyNoticeInfo      = "INFO für ALLE"
)

// LegacyController serves the JSON format of the old Vertretungsplan app.
// Every answer is HTTP 200; failures are reported in an "ERROR" field.
type LegacyController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Now     func() time.Time
}

type legacyLesson struct {
	Stunde           string `json:"Stunde"`
	Massnahme        string `json:"Massnahme"`
	Verantwortlicher string `json:"Verantwortlicher"`
	Klasse           string `json:"Klasse"`
}

type legacyDay struct {
	Header string         `json:"Header"`
	Footer string         `json:"Footer"`
	Block  string         `json:"Block"`
	Update string         `json:"Update"`
	Inhalt []legacyLesson `json:"Inhalt"`
}

type legacyEntry struct {
	label string
	day   legacyDay
}

func (lc *LegacyController) now() time.Time {
	if lc.Now != nil {
		return lc.Now()
	}
	return time.Now()
}

func (lc *LegacyController) Vertretungsplan(c *gin.Context) {
	anz, hasANZ := c.GetQuery("ANZ")
	if !hasANZ {
		lc.fail(c, metrics.LegacyMissingANZ, legacyErrMissingANZ)
		return
	}
	now := lc.now()
	if !strings.EqualFold(strings.TrimSpace(c.Query("SEC")), utils.LegacySecureHash(lc.Cfg.LegacySecret, now)) {
		lc.fail(c, metrics.LegacyWrongHash, legacyErrWrongHash)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(c.Query("PW")), utils.LegacyPasswordHash(lc.Cfg.LegacyPassword)) {
		lc.fail(c, metrics.LegacyWrongPassword, legacyErrWrongPW)
		return
	}

	limit := 0
	if n, err := strconv.Atoi(strings.TrimSpace(anz)); err == nil && n > 0 {
		limit = n
	}
	// ANZ counts labels, so it is applied after repeated labels are dropped
	days, err := plan.Days(c.Request.Context(), lc.DB, plan.Filter{From: models.NormalizeDate(now)})
	if err != nil {
		lc.Log.Error("legacy plan query failed", zap.Error(err))
		lc.fail(c, metrics.LegacyInternalFailed, legacyErrUnavailable)
		return
	}

	entries := legacyEntries(days, limit)
	if len(entries) == 0 {
		entries = append(entries, noticeDay(now))
	}

	body, err := encodeLegacyPlan(entries)
	if err != nil {
		lc.Log.Error("legacy plan encoding failed", zap.Error(err))
		lc.fail(c, metrics.LegacyInternalFailed, legacyErrUnavailable)
		return
	}
	lc.Metrics.LegacyRequest(metrics.LegacyOK)
	c.Data(http.StatusOK, "application/json", body)
}

// RateLimited answers throttled legacy clients in their own error format.
func (lc *LegacyController) RateLimited(c *gin.Context) {
	lc.fail(c, metrics.LegacyRateLimited, legacyErrRateLimited)
}

func (lc *LegacyController) fail(c *gin.Context, outcome, code string) {
	lc.Metrics.LegacyRequest(outcome)
	c.JSON(http.StatusOK, gin.H{"ERROR": code})
}

// legacyEntries keys days by label in date order. A repeated label keeps its
// first day; limit > 0 caps the number of labels.
func legacyEntries(days []models.PlanDay, limit int) []legacyEntry {
	entries := make([]legacyEntry, 0, len(days))
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		if limit > 0 && len(entries) == limit {
			break
		}
		label := d.Label()
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		entries = append(entries, legacyEntry{label: label, day: legacyDayOf(d)})
	}
	return entries
}

func legacyDayOf(d models.PlanDay) legacyDay {
	lessons := make([]legacyLesson, 0, len(d.Lessons))
	for _, l := range d.Lessons {
		lessons = append(lessons, legacyLesson{
			Stunde:           l.Stunde,
			Massnahme:        l.Massnahme,
			Verantwortlicher: l.Verantwortlicher,
			Klasse:           l.Klasse,
		})
	}
	return legacyDay{
		Header: d.Header,
		Footer: d.Footer,
		Block:  d.Block,
		Update: legacyTimestamp(d.UpdatedAt),
		Inhalt: lessons,
	}
}

func noticeDay(now time.Time) legacyEntry {
	return legacyEntry{
		label: now.Format("02.01."),
		day: legacyDay{
			Header: "Vertretungsplan",
			Footer: "",
			Block:  "unbekannt",
			Update: legacyTimestamp(now),
			Inhalt: []legacyLesson{{
				Stunde:           legacyNoticeStunde,
				Massnahme:        legacyNoticeMassnahme,
				Verantwortlicher: legacyNoticeInfo,
				Klasse:           models.AllClasses,
			}},
		},
	}
}

// legacyTimestamp renders yyyy-MM-dd H:m:s with unpadded time fields.
func legacyTimestamp(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d %d:%d:%d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// encodeLegacyPlan writes a JSON object whose keys keep the order of entries.
// A repeated label keeps its first day.
func encodeLegacyPlan(entries []legacyEntry) ([]byte, error) {
	var buf bytes.Buffer
	seen := make(map[string]struct{}, len(entries))
	buf.WriteByte('{')
	first := true
	for _, e := range entries {
		if _, dup := seen[e.label]; dup {
			continue
		}
		seen[e.label] = struct{}{}
		key, err := json.Marshal(e.label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.day)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
