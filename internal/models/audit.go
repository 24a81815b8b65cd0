package models

import "time"

// Access log event types.
const (
	AccessLoginSuccess = "login_success"
	AccessLoginFailure = "login_failure"
	AccessLogout       = "logout"
	AccessDenied       = "access_denied"
)

// AccessLog is the append-only audit trail of authentication and
// authorization events. UserID is nil for failed logins against unknown
// usernames. Rows are never deleted through the application.
type AccessLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index:idx_access_created,sort:desc" json:"created_at"`
	UserID     *uint     `gorm:"index" json:"user_id,omitempty"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	SourceIP   string    `gorm:"size:45;not null" json:"source_ip"`
	AccessType string    `gorm:"size:50;not null" json:"access_type"`
	Detail     string    `gorm:"type:text" json:"detail,omitempty"`
}
