package cnst

// Permission names. Dot-namespaced as <resource>.<action> with an optional
// UI qualifier, matching the catalog seeded at startup.
const (
	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermCustomersView   = "customers.view"
	PermCustomersCreate = "customers.create"

	PermBizPointsAdd  = "bizpoints.add.button"
	PermBizPointsView = "bizpoints.view"

	PermTransactionsView = "transactions.view"
	PermDashboardView    = "dashboard.view"

	PermRolesView         = "roles.view"
	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"
)
