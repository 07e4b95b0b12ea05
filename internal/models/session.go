package models

import "time"

// Session backs one issued access token. Only the refresh token's hash is kept.
type Session struct {
	ID                  uint      `gorm:"primaryKey"`
	SessionID           string    `gorm:"uniqueIndex"`
	UserIDRef           uint      `gorm:"index"`
	RefreshHash         string    `gorm:"uniqueIndex"`
	UserAgent           string    `gorm:"size:512"`
	RemoteIP            string    `gorm:"size:64"`
	ExpiresAt           time.Time `gorm:"index"`
	RevokedAt           *time.Time
	ReplacedBySessionID *string
	CreatedAt           time.Time
}

func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
