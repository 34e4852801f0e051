package database

import (
	"context"

	"gorm.io/gorm"
)

// txKey carries the open transaction through a request context.
type txKey struct{}

// TransactionFromContext returns the transaction carried by ctx, or nil
// when the caller is not inside one.
func TransactionFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// ContextWithTransaction derives a context whose database calls join tx.
func ContextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// runInTransaction executes fn inside the transaction already carried by
// ctx, or begins a new one on db. An existing transaction is joined, never
// nested: a rollback of the outer unit discards the inner writes too.
func runInTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if TransactionFromContext(ctx) != nil {
		return fn(ctx)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx))
	})
}

// sessionFromContext picks the handle for one operation: the transaction
// in ctx when present, the shared pool otherwise.
func sessionFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TransactionFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
