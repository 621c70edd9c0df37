// Package auth issues and verifies the JWT pair used by the API.
package auth

import (
	"rewardpoints/internal/model"
)

// Identity is the authenticated caller. Role is always taken from the
// user record, never from client-supplied data.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func IdentityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (i Identity) IsParent() bool { return i.Role == model.RoleParent }
func (i Identity) IsChild() bool  { return i.Role == model.RoleChild }
