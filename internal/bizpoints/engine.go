// Package bizpoints implements the BizPoints ledger engine: balance
// mutations with an append-only audit trail, authorized through the
// permission guard and the hierarchical scope rules.
package bizpoints

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/common/cnst"
	"github.com/waplatform/console/internal/common/errs"
	"github.com/waplatform/console/pkg/metrics"
)

// PostRequest describes one ledger posting. Amount is always positive;
// the sign of the persisted entry is derived from Type.
type PostRequest struct {
	TargetUserID int64   `json:"userId"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
}

// Engine applies ledger transactions and serves scope-filtered reads.
type Engine struct {
	db       database.Database
	guard    *access.Guard
	resolver *access.Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
	locks    *userLocks
}

// NewEngine creates a ledger engine. metrics may be nil.
func NewEngine(db database.Database, guard *access.Guard, resolver *access.Resolver, m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		db:       db,
		guard:    guard,
		resolver: resolver,
		metrics:  m,
		logger:   logger.Named("bizpoints"),
		locks:    newUserLocks(),
	}
}

// Post validates, authorizes and atomically persists one ledger
// transaction, returning the persisted entry with display fields resolved.
func (e *Engine) Post(ctx context.Context, actor *access.Identity, req PostRequest) (*database.PointsTransaction, error) {
	start := time.Now()
	entry, err := e.post(ctx, actor, req)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	e.metrics.RecordLedger(req.Type, status, time.Since(start))
	return entry, err
}

func (e *Engine) post(ctx context.Context, actor *access.Identity, req PostRequest) (*database.PointsTransaction, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if !e.guard.Has(ctx, actor, cnst.PermBizPointsAdd) {
		e.metrics.RecordDenied(cnst.PermBizPointsAdd)
		return nil, errs.New(errs.KindForbidden, "missing permission to post BizPoints transactions")
	}

	target, err := e.db.GetUserByID(ctx, req.TargetUserID)
	if err != nil || !target.IsActive {
		return nil, errs.New(errs.KindNotFound, "target user not found")
	}

	if err := authorizeWrite(actor, target); err != nil {
		e.metrics.RecordDenied(cnst.PermBizPointsAdd)
		return nil, err
	}

	amount := req.Amount
	if cnst.IsDebitType(req.Type) {
		amount = -amount
	}

	// Serialize the read-compute-write window per target user. TxID and
	// CreatedAt are stamped only once the lock is held, so timestamp order
	// cannot diverge from commit order between racing postings.
	unlock := e.locks.lock(target.ID)
	defer unlock()

	entry := &database.PointsTransaction{
		TxID:        newTxID(),
		UserID:      target.ID,
		Type:        req.Type,
		Amount:      amount,
		Description: req.Description,
		CreatedBy:   actor.UserID,
		CreatedAt:   time.Now(),
	}

	err = e.db.Transaction(ctx, func(ctx context.Context) error {
		locked, err := e.db.GetUserForUpdate(ctx, target.ID)
		if err != nil {
			return err
		}

		newBalance := locked.Balance + amount
		if newBalance < 0 {
			return errs.Newf(errs.KindInsufficientBalance,
				"insufficient balance: have %.2f, requested %.2f", locked.Balance, req.Amount)
		}

		if err := e.db.UpdateUserBalance(ctx, locked.ID, newBalance); err != nil {
			return err
		}
		entry.Balance = newBalance
		return e.db.CreateTransaction(ctx, entry)
	})
	if err != nil {
		if errs.Is(err, errs.KindInsufficientBalance) {
			return nil, err
		}
		e.logger.Error("ledger write aborted",
			zap.Int64("target", target.ID),
			zap.String("type", req.Type),
			zap.Error(err))
		return nil, errs.Wrap(errs.KindTransactionFailed, "transaction failed", err)
	}

	entry.UserName = target.Name
	entry.UserEmail = target.Email
	e.logger.Info("ledger transaction posted",
		zap.String("tx_id", entry.TxID),
		zap.Int64("target", target.ID),
		zap.String("type", entry.Type),
		zap.Float64("amount", entry.Amount),
		zap.Float64("balance", entry.Balance),
		zap.Int64("created_by", actor.UserID))
	return entry, nil
}

func validate(req PostRequest) error {
	if req.TargetUserID == 0 {
		return errs.New(errs.KindValidation, "userId is required")
	}
	if !cnst.ValidTransactionType(req.Type) {
		return errs.Newf(errs.KindValidation, "unknown transaction type: %s", req.Type)
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return errs.New(errs.KindValidation, "amount must be a positive number")
	}
	return nil
}

// authorizeWrite applies the ledger-specific hierarchy rules on top of the
// generic permission check.
func authorizeWrite(actor *access.Identity, target *database.User) error {
	switch {
	case actor.Level == cnst.LevelOwner:
		return nil
	case actor.Level == cnst.LevelAdmin && actor.AccessType == cnst.AccessFull:
		return nil
	case actor.Level == cnst.LevelAdmin || actor.Level == cnst.LevelSubDealer:
		if target.ID == actor.UserID || (target.ParentID != nil && *target.ParentID == actor.UserID) {
			return nil
		}
		return errs.Newf(errs.KindForbidden,
			"level %d accounts may only post for themselves or their assigned customers", actor.Level)
	default:
		if target.ID == actor.UserID {
			return nil
		}
		return errs.Newf(errs.KindForbidden,
			"level %d accounts may only post for themselves", actor.Level)
	}
}

// List returns the ledger entries visible to the actor, newest first.
func (e *Engine) List(ctx context.Context, actor *access.Identity, page, pageSize int) ([]*database.PointsTransaction, int64, error) {
	if !e.guard.Has(ctx, actor, cnst.PermBizPointsView) {
		e.metrics.RecordDenied(cnst.PermBizPointsView)
		return nil, 0, errs.New(errs.KindForbidden, "missing permission to view BizPoints")
	}
	scope, err := e.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return e.db.ListTransactions(ctx, scope, page, pageSize)
}

// Summary aggregates balances and ledger totals over the actor's scope.
func (e *Engine) Summary(ctx context.Context, actor *access.Identity) (*database.PointsSummary, error) {
	if !e.guard.Has(ctx, actor, cnst.PermBizPointsView) {
		e.metrics.RecordDenied(cnst.PermBizPointsView)
		return nil, errs.New(errs.KindForbidden, "missing permission to view BizPoints")
	}
	scope, err := e.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	return e.db.TransactionSummary(ctx, scope)
}
