package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role distinguishes regular users from administrators
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ReservedUsername cannot be registered because it collides with /users/me/
const ReservedUsername = "me"

const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxNameLength     = 150
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:254;uniqueIndex:idx_users_email;not null" json:"email"`
	Username     string    `gorm:"size:150;uniqueIndex:idx_users_username;not null" json:"username"`
	FirstName    string    `gorm:"size:150;not null" json:"first_name"`
	LastName     string    `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"size:30;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave rejects usernames the API would refuse
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !u.Role.Valid() {
		return &FieldError{Field: "role", Message: "unknown role"}
	}
	return ValidateUsername(u.Username)
}

// ValidateUsername checks the allowed character set, the length limit and
// the reserved name
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return &FieldError{Field: "username", Message: "This field is required."}
	case len([]rune(username)) > MaxUsernameLength:
		return &FieldError{Field: "username", Message: "Ensure this field has no more than 150 characters."}
	case strings.EqualFold(username, ReservedUsername):
		return &FieldError{Field: "username", Message: `Username "me" is not allowed.`}
	case !usernamePattern.MatchString(username):
		return &FieldError{Field: "username", Message: "Username may contain only letters, digits and @/./+/-/_ characters."}
	}
	return nil
}
