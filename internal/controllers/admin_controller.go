package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/utils"
)

type AdminController struct {
	DB *gorm.DB
}

type createUserRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	Active   *bool  `json:"active"` // optional, defaults to true
}

type updateUserRequest struct {
	FullName *string         `json:"full_name"`
	Email    *string         `json:"email"`
	Password *FlexibleString `json:"password"`
	Role     *string         `json:"role"`
	Active   *bool           `json:"active"`
}

func (a *AdminController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleViewer
	}
	if !IsValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	pw, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var taken int64
	if err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if taken > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	user := models.User{
		UserID:   uuid.NewString(),
		FullName: strings.TrimSpace(req.FullName),
		Email:    email,
		Password: pw,
		Role:     role,
		Active:   active,
	}
	if err := a.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, userView(user))
}

func (a *AdminController) ListUsers(c *gin.Context) {
	// Query params: limit, page, all, sort_by, sort_dir, q, role, active
	all := strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
	limit := 50
	page := 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	sortBy := strings.ToLower(c.DefaultQuery("sort_by", "created_at"))
	sortDir := strings.ToUpper(c.DefaultQuery("sort_dir", "DESC"))
	if sortDir != "ASC" && sortDir != "DESC" {
		sortDir = "DESC"
	}
	allowedSorts := map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"full_name":  "full_name",
		"email":      "email",
		"role":       "role",
		"active":     "active",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := fmt.Sprintf("%s %s", sortCol, sortDir)

	qText := strings.TrimSpace(c.Query("q"))
	role := strings.TrimSpace(strings.ToLower(c.Query("role")))
	activeStr := strings.TrimSpace(strings.ToLower(c.Query("active")))

	base := a.DB.Model(&models.User{})
	if qText != "" {
		like := "%" + strings.ToLower(qText) + "%"
		base = base.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if role != "" {
		if !IsValidRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		base = base.Where("role = ?", role)
	}
	switch activeStr {
	case "":
	case "true", "1":
		base = base.Where("active = ?", true)
	case "false", "0":
		base = base.Where("active = ?", false)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active value"})
		return
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	listQ := base.Session(&gorm.Session{}).Order(order)
	if !all {
		listQ = listQ.Offset((page - 1) * limit).Limit(limit)
	}
	var users []models.User
	if err := listQ.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	meta := gin.H{"total": total, "all": all}
	if !all {
		meta["limit"] = limit
		meta["page"] = page
		meta["sort_by"] = sortCol
		meta["sort_dir"] = sortDir
	}
	if qText != "" {
		meta["q"] = qText
	}
	if role != "" {
		meta["role"] = role
	}
	if activeStr != "" {
		meta["active"] = activeStr
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func (a *AdminController) GetUser(c *gin.Context) {
	var u models.User
	if err := a.DB.Where("user_id = ?", c.Param("user_id")).First(&u).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userView(u))
}

// UpdateUser changes profile, role, password or active flag. Deactivating a
// user or changing the password revokes all of the user's sessions.
func (a *AdminController) UpdateUser(c *gin.Context) {
	var u models.User
	if err := a.DB.Where("user_id = ?", c.Param("user_id")).First(&u).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	revoke := false
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if !IsValidRole(role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		u.Role = role
	}
	if req.Active != nil {
		if u.Active && !*req.Active {
			revoke = true
		}
		u.Active = *req.Active
	}
	if req.Password != nil {
		raw := strings.TrimSpace(req.Password.String())
		if raw != "" {
			pw, err := utils.HashPassword(raw)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
				return
			}
			u.Password = pw
			revoke = true
		}
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		if !revoke {
			return nil
		}
		now := time.Now().UTC()
		return tx.Model(&models.Session{}).
			Where("user_id_ref = ? AND revoked_at IS NULL", u.ID).
			Update("revoked_at", &now).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, userView(u))
}
