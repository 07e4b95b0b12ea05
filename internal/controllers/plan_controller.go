package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/plan"
	"github.com/industrieschule/vertretungsplan/internal/ws"
)

// PlanController lets editors maintain the schedule. Every change to a
// published day is pushed to the live feed.
type PlanController struct {
	DB  *gorm.DB
	Hub *ws.PlanHub
	Log *zap.Logger
}

type lessonRequest struct {
	Position         *int            `json:"position"`
	Stunde           *FlexibleString `json:"stunde"`
	Massnahme        *string         `json:"massnahme"`
	Verantwortlicher *string         `json:"verantwortlicher"`
	Klasse           *string         `json:"klasse"`
}

type createDayRequest struct {
	Date      string          `json:"date" binding:"required"`
	Header    string          `json:"header"`
	Footer    string          `json:"footer"`
	Block     string          `json:"block"`
	Published bool            `json:"published"`
	Lessons   []lessonRequest `json:"lessons"`
}

type updateDayRequest struct {
	Date      *string `json:"date"`
	Header    *string `json:"header"`
	Footer    *string `json:"footer"`
	Block     *string `json:"block"`
	Published *bool   `json:"published"`
}

func (r lessonRequest) apply(l *models.PlanLesson) {
	if r.Position != nil {
		l.Position = *r.Position
	}
	if r.Stunde != nil {
		l.Stunde = r.Stunde.String()
	}
	if r.Massnahme != nil {
		l.Massnahme = strings.TrimSpace(*r.Massnahme)
	}
	if r.Verantwortlicher != nil {
		l.Verantwortlicher = strings.TrimSpace(*r.Verantwortlicher)
	}
	if r.Klasse != nil {
		l.Klasse = strings.TrimSpace(*r.Klasse)
	}
}

// ListDays returns days including drafts. Optional from/to (yyyy-mm-dd).
func (pc *PlanController) ListDays(c *gin.Context) {
	f := plan.Filter{IncludeDrafts: true}
	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = plan.ParseDate(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, want yyyy-mm-dd"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if f.To, err = plan.ParseDate(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, want yyyy-mm-dd"})
			return
		}
	}
	days, err := plan.Days(c.Request.Context(), pc.DB, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plan.DayViews(days)})
}

func (pc *PlanController) GetDay(c *gin.Context) {
	day, ok := pc.loadDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, plan.DayViewOf(day))
}

func (pc *PlanController) CreateDay(c *gin.Context) {
	var req createDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := plan.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want yyyy-mm-dd"})
		return
	}

	var exists int64
	if err := pc.DB.Model(&models.PlanDay{}).Where("date = ?", date).Count(&exists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "a plan for this date already exists"})
		return
	}

	day := models.PlanDay{
		Date:      date,
		Header:    strings.TrimSpace(req.Header),
		Footer:    strings.TrimSpace(req.Footer),
		Block:     strings.TrimSpace(req.Block),
		Published: req.Published,
	}
	for i, lr := range req.Lessons {
		l := models.PlanLesson{Position: i + 1}
		lr.apply(&l)
		if l.Klasse == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lesson klasse is required"})
			return
		}
		day.Lessons = append(day.Lessons, l)
	}
	if err := pc.DB.Create(&day).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "a plan for this date already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pc.Log.Info("plan day created", zap.String("day_id", day.ID), zap.String("date", day.Label()), zap.Bool("published", day.Published))
	broadcastDay(pc.Hub, ws.DayCreated, day, false)
	c.JSON(http.StatusCreated, plan.DayViewOf(day))
}

func (pc *PlanController) UpdateDay(c *gin.Context) {
	day, ok := pc.loadDay(c)
	if !ok {
		return
	}
	var req updateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wasPublished := day.Published
	if req.Date != nil {
		date, err := plan.ParseDate(*req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want yyyy-mm-dd"})
			return
		}
		day.Date = date
	}
	if req.Header != nil {
		day.Header = strings.TrimSpace(*req.Header)
	}
	if req.Footer != nil {
		day.Footer = strings.TrimSpace(*req.Footer)
	}
	if req.Block != nil {
		day.Block = strings.TrimSpace(*req.Block)
	}
	if req.Published != nil {
		day.Published = *req.Published
	}

	err := pc.DB.Model(&models.PlanDay{}).Where("id = ?", day.ID).Updates(map[string]interface{}{
		"date":      day.Date,
		"header":    day.Header,
		"footer":    day.Footer,
		"block":     day.Block,
		"published": day.Published,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "a plan for this date already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if day, err = plan.Day(c.Request.Context(), pc.DB, day.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	broadcastDay(pc.Hub, ws.DayUpdated, day, wasPublished)
	c.JSON(http.StatusOK, plan.DayViewOf(day))
}

func (pc *PlanController) DeleteDay(c *gin.Context) {
	day, ok := pc.loadDay(c)
	if !ok {
		return
	}
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("day_id_ref = ?", day.ID).Delete(&models.PlanLesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&day).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pc.Log.Info("plan day deleted", zap.String("day_id", day.ID), zap.String("date", day.Label()))
	broadcastDay(pc.Hub, ws.DayDeleted, day, day.Published)
	c.Status(http.StatusNoContent)
}

// AddLesson appends a lesson to a day. Without a position it goes last.
func (pc *PlanController) AddLesson(c *gin.Context) {
	day, ok := pc.loadDay(c)
	if !ok {
		return
	}
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lesson := models.PlanLesson{DayIDRef: day.ID, Position: nextPosition(day.Lessons)}
	req.apply(&lesson)
	if lesson.Klasse == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "klasse is required"})
		return
	}
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lesson).Error; err != nil {
			return err
		}
		return touchDay(tx, day.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	broadcastLesson(pc.Hub, ws.LessonCreated, day, lesson, lesson.Klasse)
	c.JSON(http.StatusCreated, plan.LessonViewOf(lesson))
}

func (pc *PlanController) UpdateLesson(c *gin.Context) {
	lesson, day, ok := pc.loadLesson(c)
	if !ok {
		return
	}
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	before := lesson.Klasse
	req.apply(&lesson)
	if lesson.Klasse == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "klasse is required"})
		return
	}
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&lesson).Error; err != nil {
			return err
		}
		return touchDay(tx, day.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	broadcastLesson(pc.Hub, ws.LessonUpdated, day, lesson, before, lesson.Klasse)
	c.JSON(http.StatusOK, plan.LessonViewOf(lesson))
}

func (pc *PlanController) DeleteLesson(c *gin.Context) {
	lesson, day, ok := pc.loadLesson(c)
	if !ok {
		return
	}
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&lesson).Error; err != nil {
			return err
		}
		return touchDay(tx, day.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	broadcastLesson(pc.Hub, ws.LessonDeleted, day, lesson, lesson.Klasse)
	c.Status(http.StatusNoContent)
}

// touchDay bumps updated_at of a day whose lessons changed; legacy clients
// read it as the plan's last update.
func touchDay(tx *gorm.DB, dayID string) error {
	return tx.Model(&models.PlanDay{}).Where("id = ?", dayID).Update("updated_at", time.Now()).Error
}

func (pc *PlanController) loadDay(c *gin.Context) (models.PlanDay, bool) {
	id, ok := parseID(c.Param("day_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan day not found"})
		return models.PlanDay{}, false
	}
	day, err := plan.Day(c.Request.Context(), pc.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan day not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return models.PlanDay{}, false
	}
	return day, true
}

func (pc *PlanController) loadLesson(c *gin.Context) (models.PlanLesson, models.PlanDay, bool) {
	id, ok := parseID(c.Param("lesson_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
		return models.PlanLesson{}, models.PlanDay{}, false
	}
	var lesson models.PlanLesson
	if err := pc.DB.Where("id = ?", id).First(&lesson).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
		return models.PlanLesson{}, models.PlanDay{}, false
	}
	var day models.PlanDay
	if err := pc.DB.Where("id = ?", lesson.DayIDRef).First(&day).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lesson has no day"})
		return models.PlanLesson{}, models.PlanDay{}, false
	}
	return lesson, day, true
}

func nextPosition(lessons []models.PlanLesson) int {
	max := 0
	for _, l := range lessons {
		if l.Position > max {
			max = l.Position
		}
	}
	return max + 1
}
