package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the authentication service.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	OrganizationID string   `json:"organization_id"`
	jwt.RegisteredClaims
}

// Requester converts the claims into the agenda requester identity.
func (c *JWTClaims) Requester() Requester {
	if c == nil {
		return Requester{}
	}
	return Requester{UserID: c.UserID, Role: c.Role, OrganizationID: c.OrganizationID}
}
