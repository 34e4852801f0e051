package access

import (
	"context"

	"go.uber.org/zap"
)

// Store is the narrow persistence surface the guard needs. Implemented by
// the database layer.
type Store interface {
	// PermissionOverride returns the explicit per-user grant for a
	// permission name, or nil when no override row exists.
	PermissionOverride(ctx context.Context, userID int64, permission string) (*bool, error)

	// RoleGrants reports whether a role's default set contains a
	// permission name.
	RoleGrants(ctx context.Context, roleID int64, permission string) (bool, error)
}

// Guard answers "does this user hold this permission". It is the first
// gate in front of every protected operation.
type Guard struct {
	store  Store
	logger *zap.Logger
}

// NewGuard creates an authorization guard.
func NewGuard(store Store, logger *zap.Logger) *Guard {
	return &Guard{
		store:  store,
		logger: logger.Named("access.guard"),
	}
}

// Has reports whether the identity holds the named permission.
//
// Resolution order: an explicit per-user revoke denies even when the role
// default grants; an explicit per-user grant allows even when the role
// default does not; otherwise the primary role's default set decides.
// Unauthenticated identities and lookup failures always deny.
func (g *Guard) Has(ctx context.Context, id *Identity, permission string) bool {
	if id == nil || id.UserID == 0 {
		return false
	}

	override, err := g.store.PermissionOverride(ctx, id.UserID, permission)
	if err != nil {
		g.logger.Error("permission lookup failed, denying",
			zap.Int64("user_id", id.UserID),
			zap.String("permission", permission),
			zap.Error(err))
		return false
	}
	if override != nil {
		return *override
	}

	if id.PrimaryRoleID == 0 {
		return false
	}
	granted, err := g.store.RoleGrants(ctx, id.PrimaryRoleID, permission)
	if err != nil {
		g.logger.Error("role permission lookup failed, denying",
			zap.Int64("user_id", id.UserID),
			zap.Int64("role_id", id.PrimaryRoleID),
			zap.String("permission", permission),
			zap.Error(err))
		return false
	}
	return granted
}
