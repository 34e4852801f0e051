package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/errs"
)

// ScopeKind classifies how wide a row filter is.
type ScopeKind int

const (
	// ScopeDenied matches nothing. Used when the acting user's role cannot
	// be resolved.
	ScopeDenied ScopeKind = iota
	// ScopeSelfOnly matches only the acting user's own rows.
	ScopeSelfOnly
	// ScopeSelfAndChildren matches the acting user's rows and rows whose
	// parent is the acting user.
	ScopeSelfAndChildren
	// ScopeUnrestricted applies no filter.
	ScopeUnrestricted
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeSelfOnly:
		return "self_only"
	case ScopeSelfAndChildren:
		return "self_and_children"
	case ScopeUnrestricted:
		return "unrestricted"
	default:
		return "denied"
	}
}

// Scope is the row-visibility predicate derived once per request from the
// acting user's level and accessType, and reused for every sub-query of
// that request.
type Scope struct {
	Kind   ScopeKind
	UserID int64
}

// Deny returns a scope that matches nothing.
func Deny() Scope {
	return Scope{Kind: ScopeDenied}
}

// Apply restricts q to rows visible under the scope. ownerCol is matched
// against the subject user and parentCol against the subject's parent.
func (s Scope) Apply(q *gorm.DB, ownerCol, parentCol string) *gorm.DB {
	switch s.Kind {
	case ScopeUnrestricted:
		return q
	case ScopeSelfAndChildren:
		return q.Where(fmt.Sprintf("%s = ? OR %s = ?", ownerCol, parentCol), s.UserID, s.UserID)
	case ScopeSelfOnly:
		return q.Where(fmt.Sprintf("%s = ?", ownerCol), s.UserID)
	default:
		return q.Where("1 = 0")
	}
}

// AllowsUser reports whether a user row identified by id and parentID is
// visible under the scope. This is the in-memory twin of Apply for checks
// against an already loaded row.
func (s Scope) AllowsUser(id int64, parentID *int64) bool {
	switch s.Kind {
	case ScopeUnrestricted:
		return true
	case ScopeSelfAndChildren:
		return id == s.UserID || (parentID != nil && *parentID == s.UserID)
	case ScopeSelfOnly:
		return id == s.UserID
	default:
		return false
	}
}

// Resolver computes the row scope for an acting user.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a scope resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("access.resolver")}
}

// Resolve derives the scope from the identity's level and accessType.
// An identity without a resolvable primary role yields a denied scope and
// ErrRoleNotFound; callers must treat that as zero visible rows, never as
// unrestricted.
func (r *Resolver) Resolve(ctx context.Context, id *Identity) (Scope, error) {
	if id == nil || !validLevel(id.Level) {
		r.logger.Error("scope unresolvable, denying all",
			zap.Any("identity", id))
		return Deny(), errs.Wrap(errs.KindRoleNotFound, "account has no resolvable role", cnst.ErrRoleNotFound)
	}

	switch {
	case id.Level == cnst.LevelOwner:
		return Scope{Kind: ScopeUnrestricted, UserID: id.UserID}, nil
	case id.Level == cnst.LevelAdmin:
		if id.AccessType == cnst.AccessFull {
			return Scope{Kind: ScopeUnrestricted, UserID: id.UserID}, nil
		}
		return Scope{Kind: ScopeSelfAndChildren, UserID: id.UserID}, nil
	case id.Level == cnst.LevelSubDealer:
		// Dealers never see the whole tenant base, whatever their accessType.
		return Scope{Kind: ScopeSelfAndChildren, UserID: id.UserID}, nil
	default:
		return Scope{Kind: ScopeSelfOnly, UserID: id.UserID}, nil
	}
}
