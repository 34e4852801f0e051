// Package access implements the permission evaluation and hierarchical
// row-scoping rules. Every protected operation consults the Guard for a
// named permission and the Resolver for the row filter applied to shared
// tables. Both fail closed: any ambiguity denies.
package access

import "github.com/waplatform/console/internal/common/cnst"

// Identity is the acting user as resolved by the auth layer, rebuilt from
// the database on every request. AccessType is mutable between requests,
// so identities are never cached.
type Identity struct {
	UserID        int64
	Email         string
	Level         int
	PrimaryRoleID int64
	AccessType    string
}

// LevelOf returns the identity's role level, or 0 when unresolvable.
func LevelOf(id *Identity) int {
	if id == nil {
		return 0
	}
	return id.Level
}

// MoreOrEqualPrivileged reports whether level a is at least as privileged
// as level b. Lower values win.
func MoreOrEqualPrivileged(a, b int) bool {
	return a > 0 && a <= b
}

// validLevel reports whether a level belongs to the seeded hierarchy.
func validLevel(level int) bool {
	return level >= cnst.LevelOwner
}
