package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/common/cnst"
)

// DB implements the Database interface on top of gorm. The dialector is
// chosen by the factory; all query logic is shared across backends.
type DB struct {
	db *gorm.DB
}

func newDB(gormDB *gorm.DB) (*DB, error) {
	if err := gormDB.AutoMigrate(
		&Role{}, &User{}, &UserRole{},
		&Permission{}, &RolePermission{}, &UserPermission{},
		&PointsTransaction{},
	); err != nil {
		return nil, err
	}
	return &DB{db: gormDB}, nil
}

// conn returns the DB handle, joining the transaction from context if present.
func (d *DB) conn(ctx context.Context) *gorm.DB {
	return sessionFromContext(ctx, d.db)
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTransaction(ctx, d.db, fn)
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := d.conn(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cnst.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := d.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cnst.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserForUpdate(ctx context.Context, id int64) (*User, error) {
	q := d.conn(ctx)
	// sqlite serializes writers itself and rejects FOR UPDATE
	if d.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user User
	if err := q.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cnst.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *DB) CreateUser(ctx context.Context, user *User) error {
	return d.conn(ctx).Create(user).Error
}

func (d *DB) UpdateUser(ctx context.Context, user *User) error {
	return d.conn(ctx).Save(user).Error
}

func (d *DB) UpdateUserBalance(ctx context.Context, id int64, balance float64) error {
	return d.conn(ctx).Model(&User{}).Where("id = ?", id).Update("balance", balance).Error
}

func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	return d.Transaction(ctx, func(ctx context.Context) error {
		if err := d.conn(ctx).Where("user_id = ?", id).Delete(&UserRole{}).Error; err != nil {
			return err
		}
		if err := d.conn(ctx).Where("user_id = ?", id).Delete(&UserPermission{}).Error; err != nil {
			return err
		}
		return d.conn(ctx).Delete(&User{}, id).Error
	})
}

func (d *DB) ListUsers(ctx context.Context, scope access.Scope, page, pageSize int) ([]*User, int64, error) {
	q := scope.Apply(d.conn(ctx).Model(&User{}), "users.id", "users.parent_id")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*User
	err := q.Order("users.id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

func (d *DB) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := d.conn(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

func (d *DB) CountChildren(ctx context.Context, parentID int64) (int64, error) {
	var count int64
	err := d.conn(ctx).Model(&User{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

func (d *DB) DealerCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&User{}).Where("dealer_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (d *DB) ListRoles(ctx context.Context) ([]*Role, error) {
	var roles []*Role
	err := d.conn(ctx).Order("level").Find(&roles).Error
	return roles, err
}

func (d *DB) GetRolesByIDs(ctx context.Context, ids []int64) ([]*Role, error) {
	var roles []*Role
	err := d.conn(ctx).Where("id IN ?", ids).Find(&roles).Error
	return roles, err
}

func (d *DB) GetUserPrimaryRole(ctx context.Context, userID int64) (*Role, error) {
	var role Role
	err := d.conn(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND user_roles.is_primary = ?", userID, true).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cnst.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (d *DB) GetUserRoles(ctx context.Context, userID int64) ([]*Role, error) {
	var roles []*Role
	err := d.conn(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("user_roles.is_primary desc, roles.level").
		Find(&roles).Error
	return roles, err
}

func (d *DB) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return cnst.ErrNoPrimaryRole
	}
	return d.Transaction(ctx, func(ctx context.Context) error {
		if err := d.conn(ctx).Where("user_id = ?", userID).Delete(&UserRole{}).Error; err != nil {
			return err
		}
		assignments := make([]UserRole, 0, len(roleIDs))
		for i, roleID := range roleIDs {
			assignments = append(assignments, UserRole{
				UserID:    userID,
				RoleID:    roleID,
				IsPrimary: i == 0,
			})
		}
		return d.conn(ctx).Create(&assignments).Error
	})
}

func (d *DB) ListPermissions(ctx context.Context) ([]*Permission, error) {
	var perms []*Permission
	err := d.conn(ctx).Order("category, name").Find(&perms).Error
	return perms, err
}

func (d *DB) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	var perm Permission
	if err := d.conn(ctx).Where("name = ?", name).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cnst.ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (d *DB) SetUserPermission(ctx context.Context, userID, permissionID int64, granted bool) error {
	return d.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted"}),
	}).Create(&UserPermission{
		UserID:       userID,
		PermissionID: permissionID,
		Granted:      granted,
	}).Error
}

func (d *DB) RemoveUserPermission(ctx context.Context, userID, permissionID int64) error {
	return d.conn(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&UserPermission{}).Error
}

func (d *DB) PermissionOverride(ctx context.Context, userID int64, permission string) (*bool, error) {
	var up UserPermission
	err := d.conn(ctx).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND permissions.name = ?", userID, permission).
		First(&up).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &up.Granted, nil
}

func (d *DB) RoleGrants(ctx context.Context, roleID int64, permission string) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ? AND permissions.name = ?", roleID, permission).
		Count(&count).Error
	return count > 0, err
}

func (d *DB) CreateTransaction(ctx context.Context, tx *PointsTransaction) error {
	return d.conn(ctx).Create(tx).Error
}

func (d *DB) CountUserTransactions(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := d.conn(ctx).Model(&PointsTransaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// visibleUsers builds the scope-filtered subquery of user ids used to
// restrict ledger queries.
func (d *DB) visibleUsers(ctx context.Context, scope access.Scope) *gorm.DB {
	return scope.Apply(d.conn(ctx).Model(&User{}).Select("users.id"), "users.id", "users.parent_id")
}

func (d *DB) ListTransactions(ctx context.Context, scope access.Scope, page, pageSize int) ([]*PointsTransaction, int64, error) {
	q := d.conn(ctx).Model(&PointsTransaction{})
	if scope.Kind != access.ScopeUnrestricted {
		q = q.Where("user_id IN (?)", d.visibleUsers(ctx, scope))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []*PointsTransaction
	err := q.Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}

func (d *DB) ListUserTransactions(ctx context.Context, userID int64) ([]*PointsTransaction, error) {
	var txs []*PointsTransaction
	err := d.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&txs).Error
	return txs, err
}

func (d *DB) TransactionSummary(ctx context.Context, scope access.Scope) (*PointsSummary, error) {
	summary := &PointsSummary{TotalsByType: make(map[string]float64)}

	users := scope.Apply(d.conn(ctx).Model(&User{}), "users.id", "users.parent_id")
	if err := users.Select("COALESCE(SUM(balance), 0)").Scan(&summary.TotalBalance).Error; err != nil {
		return nil, err
	}

	withBalance := scope.Apply(d.conn(ctx).Model(&User{}), "users.id", "users.parent_id")
	if err := withBalance.Where("balance > 0").Count(&summary.UsersWithBalance).Error; err != nil {
		return nil, err
	}

	txs := d.conn(ctx).Model(&PointsTransaction{})
	if scope.Kind != access.ScopeUnrestricted {
		txs = txs.Where("user_id IN (?)", d.visibleUsers(ctx, scope))
	}
	if err := txs.Count(&summary.TransactionCount).Error; err != nil {
		return nil, err
	}

	type typeTotal struct {
		Type  string
		Total float64
	}
	var totals []typeTotal
	byType := d.conn(ctx).Model(&PointsTransaction{}).
		Select("type, COALESCE(SUM(amount), 0) as total").
		Group("type")
	if scope.Kind != access.ScopeUnrestricted {
		byType = byType.Where("user_id IN (?)", d.visibleUsers(ctx, scope))
	}
	if err := byType.Scan(&totals).Error; err != nil {
		return nil, err
	}
	for _, t := range totals {
		summary.TotalsByType[t.Type] = t.Total
	}

	return summary, nil
}
