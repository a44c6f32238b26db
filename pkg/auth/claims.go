package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin may manage connects and vendors.
const RoleAdmin = "admin"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject string
	Role    string
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by admin clients.
type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
