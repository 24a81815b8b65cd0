package models

import (
	"time"

	"github.com/algasur/algatrack/gate"
)

// User represents a member of the cooperative. Role is one of the closed
// enumeration in package gate; stored values outside it carry no access.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `gorm:"uniqueIndex;size:45;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:15" json:"phone,omitempty"`
	Role      string    `gorm:"size:45;not null" json:"role"`
}

// AccessRole converts the stored role string once, failing closed on
// unrecognized values.
func (u *User) AccessRole() (gate.Role, bool) {
	return gate.ParseRole(u.Role)
}

func (u *User) IsAdmin() bool {
	role, ok := u.AccessRole()
	return ok && role == gate.RoleAdministrator
}
