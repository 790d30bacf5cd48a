package auth

import (
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to API callers.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the identity recorded as created_by on postings.
func (c *AccessTokenClaims) Actor() string {
	if c == nil {
		return ""
	}
	return c.Role.String() + ":" + c.UserID.String()
}
