package dto

import "auth/internal/domain"

// AuthenticatedUser is the session-bindable identity returned on any
// successful authentication. It never carries credential material.
type AuthenticatedUser struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"displayName,omitempty"`
}

func NewAuthenticatedUser(u *domain.User) *AuthenticatedUser {
	out := &AuthenticatedUser{
		ID:       u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
	}
	if u.DisplayName != nil {
		out.DisplayName = *u.DisplayName
	}
	return out
}
