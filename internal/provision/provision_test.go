package provision

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/config"
	"github.com/waplatform/console/internal/common/errs"
)

type fixture struct {
	db      database.Database
	svc     *Service
	roles   map[int]*database.Role
	resolve *access.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	roles, err := db.ListRoles(context.Background())
	require.NoError(t, err)
	byLevel := make(map[int]*database.Role)
	for _, r := range roles {
		byLevel[r.Level] = r
	}

	return &fixture{
		db:      db,
		svc:     NewService(db, access.NewGuard(db, logger), logger),
		roles:   byLevel,
		resolve: access.NewResolver(logger),
	}
}

func (f *fixture) addActor(t *testing.T, email string, level int, dealerCode *string) (*database.User, *access.Identity) {
	t.Helper()
	ctx := context.Background()

	u := &database.User{
		Email:      email,
		Name:       email,
		Password:   "x",
		DealerCode: dealerCode,
		AccessType: cnst.AccessFiltered,
		IsActive:   true,
	}
	require.NoError(t, f.db.CreateUser(ctx, u))
	require.NoError(t, f.db.ReplaceUserRoles(ctx, u.ID, []int64{f.roles[level].ID}))
	return u, &access.Identity{
		UserID:        u.ID,
		Email:         u.Email,
		Level:         level,
		PrimaryRoleID: f.roles[level].ID,
		AccessType:    cnst.AccessFiltered,
	}
}

func TestDealerCreatesCustomersWithSequentialCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := "ABC123"
	dealer, dealerID := f.addActor(t, "dealer@example.com", cnst.LevelSubDealer, &code)

	first, err := f.svc.CreateSubordinate(ctx, dealerID, CreateRequest{
		Email:    "c1@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	})
	require.NoError(t, err)
	require.NotNil(t, first.ParentID)
	assert.Equal(t, dealer.ID, *first.ParentID)
	require.NotNil(t, first.DealerCode)
	assert.Equal(t, "ABC123-C-0001", *first.DealerCode)

	second, err := f.svc.CreateSubordinate(ctx, dealerID, CreateRequest{
		Email:    "c2@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC123-C-0002", *second.DealerCode)

	// primary role recorded
	primary, err := f.db.GetUserPrimaryRole(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, cnst.LevelCustomer, primary.Level)
}

// A restricted creator must not plant accounts inside another tenant's
// subtree by naming a foreign parent.
func TestExplicitParentBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	codeA := "DLRA"
	codeB := "DLRB"
	dealerA, dealerAID := f.addActor(t, "dealer-a@example.com", cnst.LevelSubDealer, &codeA)
	dealerB, _ := f.addActor(t, "dealer-b@example.com", cnst.LevelSubDealer, &codeB)

	// foreign parent is refused
	_, err := f.svc.CreateSubordinate(ctx, dealerAID, CreateRequest{
		Email:    "planted@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
		ParentID: &dealerB.ID,
	})
	assert.True(t, errs.Is(err, errs.KindForbidden))

	// unknown parent is refused
	nowhere := int64(99999)
	_, err = f.svc.CreateSubordinate(ctx, dealerAID, CreateRequest{
		Email:    "orphan@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
		ParentID: &nowhere,
	})
	assert.True(t, errs.Is(err, errs.KindValidation))

	// naming yourself explicitly is fine
	own, err := f.svc.CreateSubordinate(ctx, dealerAID, CreateRequest{
		Email:    "own@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
		ParentID: &dealerA.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, dealerA.ID, *own.ParentID)

	// the owner may place an account under anyone
	_, ownerID := f.addActor(t, "owner@example.com", cnst.LevelOwner, nil)
	placed, err := f.svc.CreateSubordinate(ctx, ownerID, CreateRequest{
		Email:    "placed@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
		ParentID: &dealerB.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, dealerB.ID, *placed.ParentID)
}

func TestRoleBoundedCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := "D1"
	_, dealerID := f.addActor(t, "dealer@example.com", cnst.LevelSubDealer, &code)
	_, ownerID := f.addActor(t, "owner@example.com", cnst.LevelOwner, nil)
	_, customerID := f.addActor(t, "cust@example.com", cnst.LevelCustomer, nil)

	// a dealer may not assign the ADMIN role
	_, err := f.svc.CreateSubordinate(ctx, dealerID, CreateRequest{
		Email:    "x@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelAdmin].ID},
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindForbidden))
	assert.Contains(t, errs.Message(err), "ADMIN")

	// an owner may assign any role
	for level, role := range f.roles {
		u, err := f.svc.CreateSubordinate(ctx, ownerID, CreateRequest{
			Email:    fmt.Sprintf("lvl%d@example.com", level),
			Password: "secret",
			RoleIDs:  []int64{role.ID},
		})
		require.NoError(t, err, "level %d", level)
		require.NotZero(t, u.ID)
	}

	// customers may not create users at all
	_, err = f.svc.CreateSubordinate(ctx, customerID, CreateRequest{
		Email:    "y@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	})
	assert.True(t, errs.Is(err, errs.KindForbidden))
}

func TestDuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ownerID := f.addActor(t, "owner@example.com", cnst.LevelOwner, nil)

	req := CreateRequest{
		Email:    "dup@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	}
	_, err := f.svc.CreateSubordinate(ctx, ownerID, req)
	require.NoError(t, err)

	_, err = f.svc.CreateSubordinate(ctx, ownerID, req)
	assert.True(t, errs.Is(err, errs.KindConflict))
}

func TestDealerCodeTruncationStaysUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := strings.Repeat("X", 25)
	_, dealerID := f.addActor(t, "dealer@example.com", cnst.LevelSubDealer, &long)

	u, err := f.svc.CreateSubordinate(ctx, dealerID, CreateRequest{
		Email:    "c@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	})
	require.NoError(t, err)
	require.NotNil(t, u.DealerCode)
	assert.LessOrEqual(t, len(*u.DealerCode), 20)
	assert.True(t, strings.HasPrefix(*u.DealerCode, "XXXX"))
}

func TestDealerCodeCollisionRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code := "ABC123"
	_, dealerID := f.addActor(t, "dealer@example.com", cnst.LevelSubDealer, &code)

	// occupy the code the sequence would produce
	taken := "ABC123-C-0001"
	squatter := &database.User{Email: "squat@example.com", Password: "x", DealerCode: &taken, AccessType: cnst.AccessFiltered, IsActive: true}
	require.NoError(t, f.db.CreateUser(ctx, squatter))

	u, err := f.svc.CreateSubordinate(ctx, dealerID, CreateRequest{
		Email:    "c@example.com",
		Password: "secret",
		RoleIDs:  []int64{f.roles[cnst.LevelCustomer].ID},
	})
	require.NoError(t, err)
	require.NotNil(t, u.DealerCode)
	assert.NotEqual(t, taken, *u.DealerCode)
	assert.True(t, strings.HasPrefix(*u.DealerCode, "ABC123-C-"))
}

func TestUpdateOutOfScopeIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, dealerID := f.addActor(t, "dealer@example.com", cnst.LevelSubDealer, nil)
	stranger, _ := f.addActor(t, "stranger@example.com", cnst.LevelCustomer, nil)

	scope, err := f.resolve.Resolve(ctx, dealerID)
	require.NoError(t, err)

	name := "New Name"
	_, err = f.svc.Update(ctx, dealerID, scope, stranger.ID, UpdateRequest{Name: &name})
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDeleteSoftWithLedgerHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ownerID := f.addActor(t, "owner@example.com", cnst.LevelOwner, nil)
	withHistory, _ := f.addActor(t, "hist@example.com", cnst.LevelCustomer, nil)
	clean, _ := f.addActor(t, "clean@example.com", cnst.LevelCustomer, nil)

	require.NoError(t, f.db.CreateTransaction(ctx, &database.PointsTransaction{
		TxID: "BPT1", UserID: withHistory.ID, Type: cnst.TxAdminCredit, Amount: 10, Balance: 10, CreatedBy: 1,
	}))

	scope, err := f.resolve.Resolve(ctx, ownerID)
	require.NoError(t, err)

	// with history: deactivated, row kept
	require.NoError(t, f.svc.Delete(ctx, ownerID, scope, withHistory.ID))
	got, err := f.db.GetUserByID(ctx, withHistory.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// without history: removed
	require.NoError(t, f.svc.Delete(ctx, ownerID, scope, clean.ID))
	_, err = f.db.GetUserByID(ctx, clean.ID)
	assert.ErrorIs(t, err, cnst.ErrNotFound)

	// self-deletion refused
	err = f.svc.Delete(ctx, ownerID, scope, ownerID.UserID)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestReplaceRolesBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, adminID := f.addActor(t, "admin@example.com", cnst.LevelAdmin, nil)
	child, _ := f.addActor(t, "child@example.com", cnst.LevelCustomer, nil)
	child.ParentID = &admin.ID
	require.NoError(t, f.db.UpdateUser(ctx, child))

	scope, err := f.resolve.Resolve(ctx, adminID)
	require.NoError(t, err)

	// admins may hand out dealer-tier roles
	require.NoError(t, f.svc.ReplaceRoles(ctx, adminID, scope, child.ID, []int64{f.roles[cnst.LevelSubDealer].ID}))

	// but not the OWNER role
	err = f.svc.ReplaceRoles(ctx, adminID, scope, child.ID, []int64{f.roles[cnst.LevelOwner].ID})
	assert.True(t, errs.Is(err, errs.KindForbidden))

	// and never zero roles
	err = f.svc.ReplaceRoles(ctx, adminID, scope, child.ID, nil)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestMinAssignableLevel(t *testing.T) {
	assert.Equal(t, cnst.LevelOwner, minAssignableLevel(cnst.LevelOwner))
	assert.Equal(t, cnst.LevelSubDealer, minAssignableLevel(cnst.LevelAdmin))
	assert.Equal(t, cnst.LevelCustomer, minAssignableLevel(cnst.LevelSubDealer))
	assert.Equal(t, cnst.LevelCustomer, minAssignableLevel(cnst.LevelEmployee))
	assert.Zero(t, minAssignableLevel(cnst.LevelCustomer))
	assert.Zero(t, minAssignableLevel(7))
}
