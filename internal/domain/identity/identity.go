package identity

// Role is the caller's role as asserted by the external auth service.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Identity is the verified caller identity consumed from the auth collaborator.
// The core never makes authentication decisions itself; it only applies the
// access rules below to an already-verified identity.
type Identity struct {
	UserID string
	Role   Role
}

// CanUpload reports whether the caller may ingest new media.
func (i Identity) CanUpload() bool {
	return i.Role == RoleEditor || i.Role == RoleAdmin
}

// CanViewFlagged reports whether the caller may fetch flagged content.
func (i Identity) CanViewFlagged() bool {
	return i.Role == RoleAdmin
}

// CanModify reports whether the caller may edit or delete the record owned by ownerID.
func (i Identity) CanModify(ownerID string) bool {
	if i.Role == RoleAdmin {
		return true
	}
	return i.Role == RoleEditor && i.UserID == ownerID
}

// CanOverrideStatus reports whether the caller may override a terminal classification.
func (i Identity) CanOverrideStatus() bool {
	return i.Role == RoleAdmin
}
