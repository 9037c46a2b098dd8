package model

import "time"

// Role is the closed set of user roles. Stored as a small integer.
type Role int

const (
	RoleAdmin      Role = 1
	RoleSupervisor Role = 2
	RoleAgent      Role = 3
)

// ValidRoles lists every role accepted by the API, in storage order.
var ValidRoles = []Role{RoleAdmin, RoleSupervisor, RoleAgent}

// Name returns the display name of the role.
func (r Role) Name() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSupervisor:
		return "Supervisor"
	case RoleAgent:
		return "Agent"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// DateLayout is the wire and storage layout of date_of_birth.
const DateLayout = "2006-01-02"

// User represents a user in the system
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Role         Role
	Email        string
	PasswordHash string
	Latitude     float64
	Longitude    float64
	DateOfBirth  time.Time
	Timezone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserPayload is the body of register, create and update requests.
// Nil fields were not supplied by the client.
type UserPayload struct {
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	Role        *int     `json:"role"`
	Email       *string  `json:"email"`
	Password    *string  `json:"password"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	DateOfBirth *string  `json:"date_of_birth"`
	Timezone    *string  `json:"timezone"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Location nests the coordinates in the outgoing representation.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UserResponse is the outgoing representation of a user. It never carries the password.
type UserResponse struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Role        Role      `json:"role"`
	RoleName    string    `json:"role_name"`
	Email       string    `json:"email"`
	Location    Location  `json:"location"`
	DateOfBirth string    `json:"date_of_birth"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserResponse builds the outgoing representation of u.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Role:        u.Role,
		RoleName:    u.Role.Name(),
		Email:       u.Email,
		Location:    Location{Latitude: u.Latitude, Longitude: u.Longitude},
		DateOfBirth: u.DateOfBirth.Format(DateLayout),
		Timezone:    u.Timezone,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
