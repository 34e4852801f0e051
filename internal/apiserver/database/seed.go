package database

import (
	"gorm.io/gorm/clause"

	"github.com/waplatform/console/internal/common/cnst"
)

var seedRoles = []Role{
	{Name: "OWNER", Level: cnst.LevelOwner, Description: "Platform owner"},
	{Name: "ADMIN", Level: cnst.LevelAdmin, Description: "Delegated administrator"},
	{Name: "SUBDEALER", Level: cnst.LevelSubDealer, Description: "Reseller managing assigned customers"},
	{Name: "EMPLOYEE", Level: cnst.LevelEmployee, Description: "Staff account"},
	{Name: "CUSTOMER", Level: cnst.LevelCustomer, Description: "End customer"},
}

var seedPermissions = []Permission{
	{Name: cnst.PermUsersView, Category: "users", Resource: "users", Action: "view", IsSystem: true},
	{Name: cnst.PermUsersCreate, Category: "users", Resource: "users", Action: "create", IsSystem: true},
	{Name: cnst.PermUsersUpdate, Category: "users", Resource: "users", Action: "update", IsSystem: true},
	{Name: cnst.PermUsersDelete, Category: "users", Resource: "users", Action: "delete", IsSystem: true},
	{Name: cnst.PermCustomersView, Category: "customers", Resource: "customers", Action: "view", IsSystem: true},
	{Name: cnst.PermCustomersCreate, Category: "customers", Resource: "customers", Action: "create", IsSystem: true},
	{Name: cnst.PermBizPointsAdd, Category: "bizpoints", Resource: "bizpoints", Action: "add", IsSystem: true},
	{Name: cnst.PermBizPointsView, Category: "bizpoints", Resource: "bizpoints", Action: "view", IsSystem: true},
	{Name: cnst.PermTransactionsView, Category: "transactions", Resource: "transactions", Action: "view", IsSystem: true},
	{Name: cnst.PermDashboardView, Category: "dashboard", Resource: "dashboard", Action: "view", IsSystem: true},
	{Name: cnst.PermRolesView, Category: "roles", Resource: "roles", Action: "view", IsSystem: true},
	{Name: cnst.PermPermissionsView, Category: "permissions", Resource: "permissions", Action: "view", IsSystem: true},
	{Name: cnst.PermPermissionsManage, Category: "permissions", Resource: "permissions", Action: "manage", IsSystem: true},
}

// Default grants per role name. OWNER holds everything; the manage
// permission stays exclusive to OWNER.
var seedRoleGrants = map[string][]string{
	"OWNER": {
		cnst.PermUsersView, cnst.PermUsersCreate, cnst.PermUsersUpdate, cnst.PermUsersDelete,
		cnst.PermCustomersView, cnst.PermCustomersCreate,
		cnst.PermBizPointsAdd, cnst.PermBizPointsView,
		cnst.PermTransactionsView, cnst.PermDashboardView,
		cnst.PermRolesView, cnst.PermPermissionsView, cnst.PermPermissionsManage,
	},
	"ADMIN": {
		cnst.PermUsersView, cnst.PermUsersCreate, cnst.PermUsersUpdate, cnst.PermUsersDelete,
		cnst.PermCustomersView, cnst.PermCustomersCreate,
		cnst.PermBizPointsAdd, cnst.PermBizPointsView,
		cnst.PermTransactionsView, cnst.PermDashboardView,
		cnst.PermRolesView, cnst.PermPermissionsView,
	},
	"SUBDEALER": {
		cnst.PermUsersView,
		cnst.PermCustomersView, cnst.PermCustomersCreate,
		cnst.PermBizPointsAdd, cnst.PermBizPointsView,
		cnst.PermTransactionsView, cnst.PermDashboardView,
	},
	"EMPLOYEE": {
		cnst.PermBizPointsView, cnst.PermTransactionsView, cnst.PermDashboardView,
	},
	"CUSTOMER": {
		cnst.PermBizPointsView, cnst.PermTransactionsView, cnst.PermDashboardView,
	},
}

// seedCatalog inserts the role and permission catalogs and the role default
// grants. Existing rows are left untouched so re-running startup is safe.
func (d *DB) seedCatalog() error {
	for i := range seedRoles {
		if err := d.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "level"}},
			DoNothing: true,
		}).Create(&seedRoles[i]).Error; err != nil {
			return err
		}
	}

	for i := range seedPermissions {
		if err := d.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&seedPermissions[i]).Error; err != nil {
			return err
		}
	}

	for roleName, grants := range seedRoleGrants {
		var role Role
		if err := d.db.Where("name = ?", roleName).First(&role).Error; err != nil {
			return err
		}
		for _, permName := range grants {
			var perm Permission
			if err := d.db.Where("name = ?", permName).First(&perm).Error; err != nil {
				return err
			}
			if err := d.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
				DoNothing: true,
			}).Create(&RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
