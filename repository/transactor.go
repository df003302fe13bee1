package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor scopes repository calls to a single database transaction.
type Transactor interface {
	// WithinTransaction runs fn in a transaction. If ctx already carries one,
	// fn joins it and the outermost call decides commit or rollback.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// AfterCommit defers fn until the enclosing transaction commits and drops
	// it on rollback. Outside a transaction fn runs immediately.
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

type txKey struct{}

type txState struct {
	tx    *gorm.DB
	hooks []func(ctx context.Context)
}

type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}

	// hooks get the caller's context, which carries no transaction
	for _, hook := range state.hooks {
		hook(ctx)
	}
	return nil
}

func (t *GormTransactor) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn(ctx)
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && state.tx != nil {
		return state.tx
	}
	return db.WithContext(ctx)
}
