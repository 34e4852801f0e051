package dto

// PageResponse wraps a paginated listing
type PageResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// UserPermissionRequest sets or clears an explicit per-user override
type UserPermissionRequest struct {
	Permission string `json:"permission" binding:"required"`
	Granted    *bool  `json:"granted"` // nil removes the override
}

// UserRolesRequest replaces a user's role assignments; the first id
// becomes the primary role
type UserRolesRequest struct {
	RoleIDs []int64 `json:"roleIds" binding:"required"`
}

// DashboardStats summarizes what the acting user can see
type DashboardStats struct {
	TotalUsers       int64              `json:"totalUsers"`
	TotalBalance     float64            `json:"totalBalance"`
	UsersWithBalance int64              `json:"usersWithBalance"`
	TransactionCount int64              `json:"transactionCount"`
	TotalsByType     map[string]float64 `json:"totalsByType"`
}
