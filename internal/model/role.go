package model

// Role is the closed set of authorization roles. Guest is never persisted;
// it is the identity of a caller that presented no token.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a stored or claimed role string into a Role. Unknown
// values report false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleGuest, RoleCustomer, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Identity is the claim set carried by an access token: who the caller is
// and what role they hold. It is trusted without a further user lookup.
type Identity struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Guest returns the identity used for requests without a token.
func Guest() Identity { return Identity{Role: RoleGuest} }

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// IsGuest reports whether the identity is unauthenticated.
func (i Identity) IsGuest() bool { return i.ID == 0 || i.Role == RoleGuest }

// CanOperate is the single authorization predicate for owned records: an
// admin may act on anything, everyone else only on records they own.
func (i Identity) CanOperate(ownerID uint64) bool {
	if i.IsAdmin() {
		return true
	}
	return !i.IsGuest() && i.ID == ownerID
}

// Is reports whether the identity holds role r.
func (i Identity) Is(r Role) bool { return i.Role == r }
