package types

import "strings"

// Role determines what a user is allowed to see
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// AgentStatus represents whether an agent is currently working
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// User is the authenticated identity of the dashboard operator
type User struct {
	ID     string `json:"id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name"`
	Role   Role   `json:"role" validate:"required,oneof=admin client"`
	Domain string `json:"domain,omitempty"` // organization domain, informational
}

// EmailDomain returns the part of the email after the last "@", unchanged.
// Returns "" when the email has no separator or nothing after it.
func (u *User) EmailDomain() string {
	if u == nil {
		return ""
	}
	i := strings.LastIndexByte(u.Email, '@')
	if i < 0 {
		return ""
	}
	return u.Email[i+1:]
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Agent represents a call-center agent belonging to an organization
type Agent struct {
	ID           string      `json:"id" yaml:"id" validate:"required"`
	Name         string      `json:"name" yaml:"name"`
	Email        string      `json:"email" yaml:"email"`
	Status       AgentStatus `json:"status" yaml:"status" validate:"oneof=active inactive"`
	Score        float64     `json:"score" yaml:"score" validate:"gte=0,lte=100"`
	CallsHandled int         `json:"callsHandled" yaml:"callsHandled" validate:"gte=0"`
	Domain       string      `json:"domain" yaml:"domain"`
}
