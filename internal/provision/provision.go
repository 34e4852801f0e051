// Package provision creates and maintains console accounts: role-bounded
// creation, parent assignment and dealer-code generation.
package provision

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/errs"
)

const (
	maxDealerCodeLen   = 20
	dealerCodeAttempts = 5
)

// CreateRequest describes a new account. The first role id becomes the
// primary role.
type CreateRequest struct {
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Password   string  `json:"password"`
	RoleIDs    []int64 `json:"roleIds"`
	ParentID   *int64  `json:"parentId"`
	DealerCode *string `json:"dealerCode"`
	AccessType string  `json:"accessType"`
}

// Service provisions accounts under the hierarchy rules.
type Service struct {
	db     database.Database
	guard  *access.Guard
	logger *zap.Logger
}

func NewService(db database.Database, guard *access.Guard, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		guard:  guard,
		logger: logger.Named("provision"),
	}
}

// minAssignableLevel returns the most privileged level a creator may hand
// out, or 0 when the creator may not create accounts at all.
func minAssignableLevel(creatorLevel int) int {
	switch {
	case creatorLevel == cnst.LevelOwner:
		return cnst.LevelOwner
	case creatorLevel == cnst.LevelAdmin:
		return cnst.LevelSubDealer
	case creatorLevel == cnst.LevelSubDealer, creatorLevel == cnst.LevelEmployee:
		return cnst.LevelCustomer
	default:
		return 0
	}
}

// CreateSubordinate creates a new account on behalf of the actor.
func (s *Service) CreateSubordinate(ctx context.Context, actor *access.Identity, req CreateRequest) (*database.User, error) {
	if !s.guard.Has(ctx, actor, cnst.PermUsersCreate) && !s.guard.Has(ctx, actor, cnst.PermCustomersCreate) {
		return nil, errs.New(errs.KindForbidden, "missing permission to create users")
	}

	if req.Email == "" || req.Password == "" {
		return nil, errs.New(errs.KindValidation, "email and password are required")
	}
	if len(req.RoleIDs) == 0 {
		return nil, errs.Wrap(errs.KindValidation, "at least one role is required", cnst.ErrNoPrimaryRole)
	}

	roles, err := s.db.GetRolesByIDs(ctx, req.RoleIDs)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(req.RoleIDs) {
		return nil, errs.New(errs.KindValidation, "unknown role id")
	}

	floor := minAssignableLevel(actor.Level)
	if floor == 0 {
		return nil, errs.Newf(errs.KindForbidden, "level %d accounts may not create users", actor.Level)
	}
	var primaryLevel int
	for _, role := range roles {
		if role.Level < floor {
			return nil, errs.Newf(errs.KindForbidden,
				"level %d accounts may not assign the %s role", actor.Level, role.Name)
		}
		if role.ID == req.RoleIDs[0] {
			primaryLevel = role.Level
		}
	}

	if req.ParentID != nil {
		parent, err := s.db.GetUserByID(ctx, *req.ParentID)
		if err != nil {
			return nil, errs.New(errs.KindValidation, "parent user not found")
		}
		if err := authorizeParent(actor, parent); err != nil {
			return nil, err
		}
	}

	if _, err := s.db.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, errs.New(errs.KindConflict, "email already in use")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &database.User{
		Email:      req.Email,
		Name:       req.Name,
		Password:   string(hashed),
		ParentID:   req.ParentID,
		DealerCode: req.DealerCode,
		AccessType: normalizeAccessType(req.AccessType),
		IsActive:   true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	// A dealer-tier creator adding a customer with no explicit parent owns
	// the new account and stamps it with a derived dealer code.
	dealerTier := actor.Level == cnst.LevelSubDealer || actor.Level == cnst.LevelEmployee
	if user.ParentID == nil && dealerTier && primaryLevel >= cnst.LevelCustomer {
		user.ParentID = &actor.UserID
		if user.DealerCode == nil {
			code, err := s.nextCustomerCode(ctx, actor.UserID)
			if err != nil {
				return nil, err
			}
			user.DealerCode = &code
		}
	}

	if user.DealerCode != nil {
		exists, err := s.db.DealerCodeExists(ctx, *user.DealerCode)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errs.Wrap(errs.KindConflict, "dealer code already in use", cnst.ErrDuplicateDealerCode)
		}
	}

	err = s.db.Transaction(ctx, func(ctx context.Context) error {
		if err := s.db.CreateUser(ctx, user); err != nil {
			return err
		}
		return s.db.ReplaceUserRoles(ctx, user.ID, req.RoleIDs)
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindTransactionFailed, "failed to create user", err)
	}

	s.logger.Info("user created",
		zap.Int64("id", user.ID),
		zap.String("email", user.Email),
		zap.Int64("created_by", actor.UserID))
	return user, nil
}

// authorizeParent bounds an explicitly requested parent. Only the owner and
// full-access admins may place an account under an arbitrary user; everyone
// else may only parent new accounts to themselves, keeping them inside the
// creator's own tenant.
func authorizeParent(actor *access.Identity, parent *database.User) error {
	if actor.Level == cnst.LevelOwner {
		return nil
	}
	if actor.Level == cnst.LevelAdmin && actor.AccessType == cnst.AccessFull {
		return nil
	}
	if parent.ID == actor.UserID {
		return nil
	}
	return errs.Newf(errs.KindForbidden,
		"level %d accounts may only parent new users to themselves", actor.Level)
}

// nextCustomerCode derives a customer dealer code from the acting dealer's
// own code plus a zero-padded sequential count. When the result would
// exceed the maximum length the prefix is truncated and uniqueness is
// verified, retrying with a random suffix; truncation alone is not trusted
// to avoid collisions.
func (s *Service) nextCustomerCode(ctx context.Context, dealerID int64) (string, error) {
	dealer, err := s.db.GetUserByID(ctx, dealerID)
	if err != nil {
		return "", err
	}
	if dealer.DealerCode == nil || *dealer.DealerCode == "" {
		return "", errs.New(errs.KindValidation, "acting dealer has no dealer code")
	}

	n, err := s.db.CountChildren(ctx, dealerID)
	if err != nil {
		return "", err
	}

	suffix := fmt.Sprintf("-C-%04d", n+1)
	prefix := *dealer.DealerCode
	if len(prefix)+len(suffix) > maxDealerCodeLen {
		prefix = prefix[:maxDealerCodeLen-len(suffix)]
	}
	candidate := prefix + suffix

	for attempt := 0; attempt < dealerCodeAttempts; attempt++ {
		exists, err := s.db.DealerCodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = prefix + "-C-" + randomBase36(4)
	}
	return "", errs.Wrap(errs.KindConflict, "could not generate a unique dealer code", cnst.ErrDuplicateDealerCode)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		b.WriteByte(base36[idx.Int64()])
	}
	return b.String()
}

func normalizeAccessType(accessType string) string {
	if accessType == cnst.AccessFull {
		return cnst.AccessFull
	}
	return cnst.AccessFiltered
}

// UpdateRequest carries the mutable account fields. Nil pointers leave the
// field unchanged.
type UpdateRequest struct {
	Name       *string `json:"name"`
	Password   *string `json:"password"`
	AccessType *string `json:"accessType"`
	IsActive   *bool   `json:"isActive"`
}

// Update modifies an account visible under the actor's scope.
func (s *Service) Update(ctx context.Context, actor *access.Identity, scope access.Scope, userID int64, req UpdateRequest) (*database.User, error) {
	if !s.guard.Has(ctx, actor, cnst.PermUsersUpdate) {
		return nil, errs.New(errs.KindForbidden, "missing permission to update users")
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errs.New(errs.KindNotFound, "user not found")
	}
	// Out-of-scope reads are indistinguishable from missing rows.
	if !scope.AllowsUser(user.ID, user.ParentID) {
		return nil, errs.New(errs.KindNotFound, "user not found")
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}
	if req.AccessType != nil {
		user.AccessType = normalizeAccessType(*req.AccessType)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, errs.Wrap(errs.KindTransactionFailed, "failed to update user", err)
	}
	return user, nil
}

// Delete deactivates an account. Accounts without ledger history are
// removed outright; anything with history is only soft-deleted so the
// audit trail stays intact.
func (s *Service) Delete(ctx context.Context, actor *access.Identity, scope access.Scope, userID int64) error {
	if !s.guard.Has(ctx, actor, cnst.PermUsersDelete) {
		return errs.New(errs.KindForbidden, "missing permission to delete users")
	}
	if userID == actor.UserID {
		return errs.New(errs.KindValidation, "cannot delete your own account")
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return errs.New(errs.KindNotFound, "user not found")
	}
	if !scope.AllowsUser(user.ID, user.ParentID) {
		return errs.New(errs.KindNotFound, "user not found")
	}

	txCount, err := s.db.CountUserTransactions(ctx, userID)
	if err != nil {
		return err
	}
	if txCount == 0 {
		return s.db.DeleteUser(ctx, userID)
	}

	user.IsActive = false
	user.UpdatedAt = time.Now()
	return s.db.UpdateUser(ctx, user)
}

// ReplaceRoles reassigns an account's roles, bounded by the actor's level.
func (s *Service) ReplaceRoles(ctx context.Context, actor *access.Identity, scope access.Scope, userID int64, roleIDs []int64) error {
	if !s.guard.Has(ctx, actor, cnst.PermUsersUpdate) {
		return errs.New(errs.KindForbidden, "missing permission to update users")
	}
	if len(roleIDs) == 0 {
		return errs.Wrap(errs.KindValidation, "at least one role is required", cnst.ErrNoPrimaryRole)
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return errs.New(errs.KindNotFound, "user not found")
	}
	if !scope.AllowsUser(user.ID, user.ParentID) {
		return errs.New(errs.KindNotFound, "user not found")
	}

	roles, err := s.db.GetRolesByIDs(ctx, roleIDs)
	if err != nil {
		return err
	}
	if len(roles) != len(roleIDs) {
		return errs.New(errs.KindValidation, "unknown role id")
	}
	floor := minAssignableLevel(actor.Level)
	if floor == 0 {
		return errs.Newf(errs.KindForbidden, "level %d accounts may not assign roles", actor.Level)
	}
	for _, role := range roles {
		if role.Level < floor {
			return errs.Newf(errs.KindForbidden,
				"level %d accounts may not assign the %s role", actor.Level, role.Name)
		}
	}

	return s.db.ReplaceUserRoles(ctx, userID, roleIDs)
}
