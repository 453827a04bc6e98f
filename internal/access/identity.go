// Package access decides which rows of each entity a caller may see.
package access

import "github.com/noah-isme/edu-admin-api/internal/models"

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string
	Role   models.UserRole
}

// Anonymous returns the identity used for unauthenticated requests.
func Anonymous() Identity {
	return Identity{Role: models.RoleAnonymous}
}

// FromClaims converts verified token claims into an identity. Nil claims are
// anonymous.
func FromClaims(claims *models.JWTClaims) Identity {
	if claims == nil {
		return Anonymous()
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}
}

// Authenticated reports whether the identity carries a recognised, non
// anonymous role.
func (i Identity) Authenticated() bool {
	return i.Role.Known() && i.Role != models.RoleAnonymous
}
