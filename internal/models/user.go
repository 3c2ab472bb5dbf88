package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleValidator UserRole = "validator"
	RoleAdmin     UserRole = "admin"
)

// User represents an application user stored in the users table.
// TotalContributions and TotalValidations are denormalized counters owned by
// the repository transactions that create contributions and validations.
type User struct {
	ID                 string    `db:"id" json:"id"`
	Username           string    `db:"username" json:"username"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	Role               UserRole  `db:"role" json:"role"`
	TotalContributions int       `db:"total_contributions" json:"total_contributions"`
	TotalValidations   int       `db:"total_validations" json:"total_validations"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
