package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/config"
)

func newTestDB(t *testing.T) Database {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db Database, email string, parentID *int64, balance float64) *User {
	t.Helper()
	u := &User{
		Email:      email,
		Name:       email,
		Password:   "x",
		ParentID:   parentID,
		AccessType: cnst.AccessFiltered,
		Balance:    balance,
		IsActive:   true,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func TestCatalogSeeded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	roles, err := db.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 5)
	assert.Equal(t, "OWNER", roles[0].Name)
	assert.Equal(t, 1, roles[0].Level)

	perms, err := db.ListPermissions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, perms)

	perm, err := db.GetPermissionByName(ctx, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	assert.True(t, perm.IsSystem)
}

func TestUserCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "dealer@example.com", nil, 0)
	require.NotZero(t, u.ID)

	got, err := db.GetUserByEmail(ctx, "dealer@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.Name = "Dealer One"
	require.NoError(t, db.UpdateUser(ctx, got))

	got, err = db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dealer One", got.Name)

	_, err = db.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, cnst.ErrNotFound)

	require.NoError(t, db.DeleteUser(ctx, u.ID))
	_, err = db.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, cnst.ErrNotFound)
}

func TestListUsersScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := seedUser(t, db, "admin@example.com", nil, 0)
	childA := seedUser(t, db, "a@example.com", &admin.ID, 0)
	_ = seedUser(t, db, "other@example.com", nil, 0)

	// filtered admin sees self and children only
	users, total, err := db.ListUsers(ctx, access.Scope{Kind: access.ScopeSelfAndChildren, UserID: admin.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	ids := []int64{users[0].ID, users[1].ID}
	assert.ElementsMatch(t, []int64{admin.ID, childA.ID}, ids)

	// unrestricted sees everyone
	_, total, err = db.ListUsers(ctx, access.Scope{Kind: access.ScopeUnrestricted}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// self only
	users, total, err = db.ListUsers(ctx, access.Scope{Kind: access.ScopeSelfOnly, UserID: childA.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, childA.ID, users[0].ID)

	// denied scope matches nothing
	_, total, err = db.ListUsers(ctx, access.Deny(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReplaceUserRolesPrimaryInvariant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "u@example.com", nil, 0)
	roles, err := db.ListRoles(ctx)
	require.NoError(t, err)

	_, err = db.GetUserPrimaryRole(ctx, u.ID)
	assert.ErrorIs(t, err, cnst.ErrRoleNotFound)

	assert.ErrorIs(t, db.ReplaceUserRoles(ctx, u.ID, nil), cnst.ErrNoPrimaryRole)

	// first role in the list becomes primary
	require.NoError(t, db.ReplaceUserRoles(ctx, u.ID, []int64{roles[2].ID, roles[4].ID}))
	primary, err := db.GetUserPrimaryRole(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, roles[2].ID, primary.ID)

	all, err := db.GetUserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, primary.ID, all[0].ID)

	// replacing keeps exactly one primary
	require.NoError(t, db.ReplaceUserRoles(ctx, u.ID, []int64{roles[4].ID}))
	primary, err = db.GetUserPrimaryRole(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, roles[4].ID, primary.ID)
}

func TestPermissionOverrideAndRoleGrants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "u@example.com", nil, 0)
	roles, err := db.ListRoles(ctx)
	require.NoError(t, err)
	subdealer := roles[2]

	granted, err := db.RoleGrants(ctx, subdealer.ID, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = db.RoleGrants(ctx, subdealer.ID, cnst.PermPermissionsManage)
	require.NoError(t, err)
	assert.False(t, granted)

	override, err := db.PermissionOverride(ctx, u.ID, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	assert.Nil(t, override)

	perm, err := db.GetPermissionByName(ctx, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	require.NoError(t, db.SetUserPermission(ctx, u.ID, perm.ID, false))

	override, err = db.PermissionOverride(ctx, u.ID, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.False(t, *override)

	// upsert flips the flag in place
	require.NoError(t, db.SetUserPermission(ctx, u.ID, perm.ID, true))
	override, err = db.PermissionOverride(ctx, u.ID, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.True(t, *override)

	require.NoError(t, db.RemoveUserPermission(ctx, u.ID, perm.ID))
	override, err = db.PermissionOverride(ctx, u.ID, cnst.PermBizPointsAdd)
	require.NoError(t, err)
	assert.Nil(t, override)
}

func TestLedgerScopedListingAndSummary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dealer := seedUser(t, db, "dealer@example.com", nil, 100)
	child := seedUser(t, db, "child@example.com", &dealer.ID, 50)
	outsider := seedUser(t, db, "outsider@example.com", nil, 500)

	for _, tx := range []*PointsTransaction{
		{TxID: "BPT1", UserID: child.ID, Type: cnst.TxAdminCredit, Amount: 50, Balance: 50, CreatedBy: dealer.ID},
		{TxID: "BPT2", UserID: outsider.ID, Type: cnst.TxAdminCredit, Amount: 500, Balance: 500, CreatedBy: outsider.ID},
	} {
		require.NoError(t, db.CreateTransaction(ctx, tx))
	}

	scope := access.Scope{Kind: access.ScopeSelfAndChildren, UserID: dealer.ID}
	txs, total, err := db.ListTransactions(ctx, scope, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "BPT1", txs[0].TxID)

	summary, err := db.TransactionSummary(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 150.0, summary.TotalBalance)
	assert.Equal(t, int64(2), summary.UsersWithBalance)
	assert.Equal(t, int64(1), summary.TransactionCount)
	assert.Equal(t, 50.0, summary.TotalsByType[cnst.TxAdminCredit])

	// unrestricted totals cover everyone
	summary, err = db.TransactionSummary(ctx, access.Scope{Kind: access.ScopeUnrestricted})
	require.NoError(t, err)
	assert.Equal(t, 650.0, summary.TotalBalance)
	assert.Equal(t, int64(2), summary.TransactionCount)
}

func TestTransactionRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "u@example.com", nil, 100)

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(ctx context.Context) error {
		if err := db.UpdateUserBalance(ctx, u.ID, 40); err != nil {
			return err
		}
		if err := db.CreateTransaction(ctx, &PointsTransaction{
			TxID: "BPTX", UserID: u.ID, Type: cnst.TxAdminDebit, Amount: -60, Balance: 40, CreatedBy: u.ID,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Balance)

	count, err := db.CountUserTransactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// Methods that open their own transactional unit must join a transaction
// already carried by the context, so an outer rollback discards their
// writes too.
func TestNestedTransactionJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "nested@example.com", nil, 0)
	roles, err := db.ListRoles(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Transaction(ctx, func(ctx context.Context) error {
		if err := db.ReplaceUserRoles(ctx, u.ID, []int64{roles[0].ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetUserPrimaryRole(ctx, u.ID)
	assert.ErrorIs(t, err, cnst.ErrRoleNotFound)

	// and the committed path still lands both writes
	v := seedUser(t, db, "nested2@example.com", nil, 0)
	require.NoError(t, db.Transaction(ctx, func(ctx context.Context) error {
		return db.ReplaceUserRoles(ctx, v.ID, []int64{roles[0].ID})
	}))
	role, err := db.GetUserPrimaryRole(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, roles[0].ID, role.ID)
}

func TestDealerCodeExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	code := "ABC123"
	u := seedUser(t, db, "d@example.com", nil, 0)
	u.DealerCode = &code
	require.NoError(t, db.UpdateUser(ctx, u))

	exists, err := db.DealerCodeExists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.DealerCodeExists(ctx, "XYZ999")
	require.NoError(t, err)
	assert.False(t, exists)
}
