package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/auth"
	"github.com/industrieschule/vertretungsplan/internal/middleware"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/utils"
)

const refreshTokenLength = 48

type AuthController struct {
	DB     *gorm.DB
	Issuer *auth.Issuer
	Log    *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	auth.Token
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Role      string `json:"role"`
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := a.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active || !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	var tok auth.Token
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		_, tok, err = a.openSession(tx, user, c)
		return err
	})
	if err != nil {
		a.Log.Error("login failed", zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	a.Log.Info("user logged in", zap.String("user_id", user.UserID), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusOK, a.tokenResponse(tok, user))
}

func (a *AuthController) tokenResponse(tok auth.Token, user models.User) tokenResponse {
	return tokenResponse{
		Token:     tok,
		TokenType: "Bearer",
		ExpiresIn: int(a.Issuer.TTL().Seconds()),
		Role:      user.Role,
	}
}

// openSession stores a new session for user and signs its access token.
func (a *AuthController) openSession(tx *gorm.DB, user models.User, c *gin.Context) (models.Session, auth.Token, error) {
	refresh, err := utils.GenerateToken(refreshTokenLength)
	if err != nil {
		return models.Session{}, auth.Token{}, err
	}
	session := models.Session{
		SessionID:   uuid.NewString(),
		UserIDRef:   user.ID,
		RefreshHash: utils.SHA256Hex(refresh),
		UserAgent:   truncate(c.Request.UserAgent(), 512),
		RemoteIP:    c.ClientIP(),
		ExpiresAt:   time.Now().UTC().Add(a.Issuer.TTL()),
	}
	tok, err := a.Issuer.Issue(session.SessionID, refresh)
	if err != nil {
		return models.Session{}, auth.Token{}, err
	}
	session.ExpiresAt = tok.NotAfter
	if err := tx.Create(&session).Error; err != nil {
		return models.Session{}, auth.Token{}, err
	}
	return session, tok, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates the session: the presented refresh token is revoked and a new
// session with a new token pair replaces it.
func (a *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var old models.Session
	if err := a.DB.Where("refresh_hash = ?", utils.SHA256Hex(req.RefreshToken)).First(&old).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token not found"})
		return
	}
	if !old.Usable(time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired or revoked"})
		return
	}
	var user models.User
	if err := a.DB.Where("id = ? AND active = ?", old.UserIDRef, true).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or inactive"})
		return
	}

	var tok auth.Token
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		next, t, err := a.openSession(tx, user, c)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&models.Session{}).
			Where("id = ? AND revoked_at IS NULL", old.ID).
			Updates(map[string]interface{}{
				"revoked_at":             &now,
				"replaced_by_session_id": next.SessionID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errSessionRevoked
		}
		tok = t
		return nil
	})
	if errors.Is(err, errSessionRevoked) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired or revoked"})
		return
	}
	if err != nil {
		a.Log.Error("refresh failed", zap.String("session", old.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate session"})
		return
	}
	c.JSON(http.StatusOK, a.tokenResponse(tok, user))
}

var errSessionRevoked = errors.New("session already revoked")

type logoutRequest struct {
	All bool `json:"all"`
}

// Logout revokes the calling session, or every session of the user with all=true.
func (a *AuthController) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	user, _ := middleware.CurrentUser(c)
	session, _ := middleware.CurrentSession(c)
	now := time.Now().UTC()

	q := a.DB.Model(&models.Session{}).Where("revoked_at IS NULL")
	if req.All {
		q = q.Where("user_id_ref = ?", user.ID)
	} else {
		q = q.Where("id = ?", session.ID)
	}
	if err := q.Update("revoked_at", &now).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (a *AuthController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	session, _ := middleware.CurrentSession(c)
	out := userView(user)
	out["session_expires_at"] = session.ExpiresAt
	c.JSON(http.StatusOK, out)
}

func userView(u models.User) gin.H {
	return gin.H{
		"user_id":    u.UserID,
		"email":      u.Email,
		"full_name":  u.FullName,
		"role":       u.Role,
		"active":     u.Active,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
