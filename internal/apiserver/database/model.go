package database

import "time"

// Role is the immutable role catalog, seeded once. Level determines the
// default scope width: lower is more privileged.
type Role struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"type:varchar(50);uniqueIndex"`
	Level       int    `json:"level" gorm:"not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:varchar(255)"`
}

// User represents a console account at any tier of the hierarchy.
type User struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Email      string    `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	Name       string    `json:"name" gorm:"type:varchar(100)"`
	Password   string    `json:"-" gorm:"not null"` // Password is not exposed in JSON
	ParentID   *int64    `json:"parentId" gorm:"index"`
	DealerCode *string   `json:"dealerCode" gorm:"type:varchar(32);uniqueIndex"`
	AccessType string    `json:"accessType" gorm:"type:varchar(10);not null;default:'filtered'"`
	Balance    float64   `json:"balance" gorm:"not null;default:0"`
	IsActive   bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserRole links a user to a role. Exactly one assignment per user carries
// IsPrimary; provisioning enforces it.
type UserRole struct {
	ID        int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64 `json:"userId" gorm:"index:idx_user_role,unique"`
	RoleID    int64 `json:"roleId" gorm:"index:idx_user_role,unique"`
	IsPrimary bool  `json:"isPrimary" gorm:"not null;default:false"`
}

// Permission is a named, dot-namespaced permission in the catalog. System
// permissions are immutable and undeletable.
type Permission struct {
	ID       int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name     string `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Category string `json:"category" gorm:"type:varchar(50)"`
	Resource string `json:"resource" gorm:"type:varchar(50)"`
	Action   string `json:"action" gorm:"type:varchar(50)"`
	IsSystem bool   `json:"isSystem" gorm:"not null;default:false"`
}

// RolePermission is a role's default grant.
type RolePermission struct {
	ID           int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	RoleID       int64 `json:"roleId" gorm:"index:idx_role_perm,unique"`
	PermissionID int64 `json:"permissionId" gorm:"index:idx_role_perm,unique"`
}

// UserPermission is an explicit per-user grant or revoke, overriding the
// role-derived default for that permission name.
type UserPermission struct {
	ID           int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       int64 `json:"userId" gorm:"index:idx_user_perm,unique"`
	PermissionID int64 `json:"permissionId" gorm:"index:idx_user_perm,unique"`
	Granted      bool  `json:"granted" gorm:"not null"`
}

// PointsTransaction is an append-only BizPoints ledger entry. Balance is
// the resulting balance snapshot after this entry, not a delta: for a
// given user, entries ordered by CreatedAt form a strict running total.
type PointsTransaction struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TxID        string    `json:"txId" gorm:"type:varchar(32);uniqueIndex;not null"`
	UserID      int64     `json:"userId" gorm:"index;not null"`
	Type        string    `json:"type" gorm:"type:varchar(25);not null"`
	Amount      float64   `json:"amount" gorm:"not null"` // signed: negative for debit types
	Balance     float64   `json:"balance" gorm:"not null"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	CreatedBy   int64     `json:"createdBy" gorm:"index;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`

	// Display fields resolved for immediate UI feedback, not persisted.
	UserName  string `json:"userName,omitempty" gorm:"-"`
	UserEmail string `json:"userEmail,omitempty" gorm:"-"`
}

// PointsSummary aggregates ledger statistics over one resolved scope.
type PointsSummary struct {
	TotalBalance     float64            `json:"totalBalance"`
	UsersWithBalance int64              `json:"usersWithBalance"`
	TransactionCount int64              `json:"transactionCount"`
	TotalsByType     map[string]float64 `json:"totalsByType"`
}
