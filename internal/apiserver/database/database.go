package database

import (
	"context"

	"github.com/waplatform/console/internal/access"
)

// Database defines the methods for database operations. All listing and
// aggregation methods take the scope resolved once for the request, so
// every sub-query of one logical request shares the same visibility.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Transaction runs fn inside a database transaction. The transaction
	// is threaded through the context; every Database method called with
	// that context joins it.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// GetUserByID gets a user by id.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail gets a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserForUpdate gets a user by id with a row lock. Must be called
	// inside Transaction.
	GetUserForUpdate(ctx context.Context, id int64) (*User, error)

	// CreateUser creates a new user.
	CreateUser(ctx context.Context, user *User) error

	// UpdateUser updates an existing user.
	UpdateUser(ctx context.Context, user *User) error

	// UpdateUserBalance sets a user's balance column.
	UpdateUserBalance(ctx context.Context, id int64, balance float64) error

	// DeleteUser hard-deletes a user together with its role and permission
	// assignments.
	DeleteUser(ctx context.Context, id int64) error

	// ListUsers lists users visible under the scope with pagination,
	// returning the page and the total count.
	ListUsers(ctx context.Context, scope access.Scope, page, pageSize int) ([]*User, int64, error)

	// CountUsers counts all users.
	CountUsers(ctx context.Context) (int64, error)

	// CountChildren counts users whose parent is the given user.
	CountChildren(ctx context.Context, parentID int64) (int64, error)

	// DealerCodeExists reports whether a dealer code is already taken.
	DealerCodeExists(ctx context.Context, code string) (bool, error)

	// ListRoles lists the role catalog ordered by level.
	ListRoles(ctx context.Context) ([]*Role, error)

	// GetRolesByIDs gets roles by their ids.
	GetRolesByIDs(ctx context.Context, ids []int64) ([]*Role, error)

	// GetUserPrimaryRole gets a user's primary role.
	GetUserPrimaryRole(ctx context.Context, userID int64) (*Role, error)

	// GetUserRoles gets all roles assigned to a user, primary first.
	GetUserRoles(ctx context.Context, userID int64) ([]*Role, error)

	// ReplaceUserRoles replaces a user's role assignments. The first role
	// id becomes the primary role.
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error

	// ListPermissions lists the permission catalog.
	ListPermissions(ctx context.Context) ([]*Permission, error)

	// GetPermissionByName gets a permission by its dot-namespaced name.
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)

	// SetUserPermission upserts an explicit per-user grant or revoke.
	SetUserPermission(ctx context.Context, userID, permissionID int64, granted bool) error

	// RemoveUserPermission removes an explicit per-user override.
	RemoveUserPermission(ctx context.Context, userID, permissionID int64) error

	// PermissionOverride returns the explicit per-user grant for a
	// permission name, or nil when no override row exists.
	PermissionOverride(ctx context.Context, userID int64, permission string) (*bool, error)

	// RoleGrants reports whether a role's default set contains a
	// permission name.
	RoleGrants(ctx context.Context, roleID int64, permission string) (bool, error)

	// CreateTransaction appends a ledger entry.
	CreateTransaction(ctx context.Context, tx *PointsTransaction) error

	// CountUserTransactions counts ledger entries owned by a user.
	CountUserTransactions(ctx context.Context, userID int64) (int64, error)

	// ListTransactions lists ledger entries whose owning user is visible
	// under the scope, newest first, with pagination.
	ListTransactions(ctx context.Context, scope access.Scope, page, pageSize int) ([]*PointsTransaction, int64, error)

	// ListUserTransactions lists one user's ledger entries in creation order.
	ListUserTransactions(ctx context.Context, userID int64) ([]*PointsTransaction, error)

	// TransactionSummary aggregates balances and ledger totals over exactly
	// the users visible under the scope.
	TransactionSummary(ctx context.Context, scope access.Scope) (*PointsSummary, error)
}
