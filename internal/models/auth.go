package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
	EntryRoute  string    `json:"entry_route"`
}

// SignupRequest registers a new login. When the role is student, the
// embedded profile creates the linked Student record in the same flow.
type SignupRequest struct {
	Username string          `json:"username" validate:"required"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     string          `json:"role" validate:"omitempty,user_role"`
	Profile  *StudentProfile `json:"profile,omitempty"`
}

// StudentProfile carries the student fields collected at signup.
type StudentProfile struct {
	Name        string   `json:"name" validate:"required"`
	Mobile      string   `json:"mobile"`
	Instruments []string `json:"instruments"`
	Branch      string   `json:"branch"`
	Age         *int     `json:"age,omitempty"`
	Country     string   `json:"country"`
	City        string   `json:"city"`
	Address     string   `json:"address"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	StudentID *string  `json:"student_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	StudentID *string  `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// EntryRouteFor resolves the dashboard entry route for a role. The
// routing table is explicit: claims decide navigation once per login,
// never as a rendering side effect.
func EntryRouteFor(role UserRole) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleStudent:
		return "/dashboard"
	default:
		return "/login"
	}
}
