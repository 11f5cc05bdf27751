package account

import "github.com/shelfmark/client-go/internal/utils"

// Role represents the authenticated user's role on the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile is a denormalized snapshot of the authenticated principal,
// cached client-side. It is a cache, not a source of truth - it may be stale
// relative to the backend record and is refreshed opportunistically.
type UserProfile struct {
	ID      int64  `json:"id,omitempty"`      // Backend user identifier
	Email   string `json:"email,omitempty"`   // User's email address
	Name    string `json:"name,omitempty"`    // First name
	Surname string `json:"surname,omitempty"` // Last name
	Role    Role   `json:"role,omitempty"`    // user or admin
	Active  bool   `json:"active,omitempty"`  // Whether the account is active
}

// DisplayName returns the user's full name, falling back to the email when
// no name has been set.
func (p UserProfile) DisplayName() string {
	switch {
	case p.Name != "" && p.Surname != "":
		return p.Name + " " + p.Surname
	case p.Name != "":
		return p.Name
	default:
		return p.Email
	}
}

// IsAdmin reports whether the profile carries the admin role.
func (p UserProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfileUpdate is a partial profile used to merge edited fields into the
// cached UserProfile. Nil fields are left untouched.
type ProfileUpdate struct {
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
	Surname *string `json:"surname,omitempty"`
	Role    *Role   `json:"role,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

// Apply merges the non-nil fields of the update into the profile and
// returns the merged copy.
func (u ProfileUpdate) Apply(profile UserProfile) UserProfile {
	if u.Email != nil {
		profile.Email = utils.Value(u.Email)
	}
	if u.Name != nil {
		profile.Name = utils.Value(u.Name)
	}
	if u.Surname != nil {
		profile.Surname = utils.Value(u.Surname)
	}
	if u.Role != nil {
		profile.Role = utils.Value(u.Role)
	}
	if u.Active != nil {
		profile.Active = utils.Value(u.Active)
	}
	return profile
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.Name == nil && u.Surname == nil && u.Role == nil && u.Active == nil
}
