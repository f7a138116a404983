package relica

import (
	"context"

	"github.com/coregx/announcer"
	"github.com/coregx/relica"
)

// inTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on every other exit path, panics included.
func inTx(ctx context.Context, db *relica.DB, what string, fn func(b *relica.QueryBuilder) error) error {
	return withTx(ctx, db, what, func(tx *relica.Tx) error {
		return fn(tx.Builder())
	})
}

// withTx is inTx for callers that need the transaction's model queries.
func withTx(ctx context.Context, db *relica.DB, what string, fn func(tx *relica.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to begin transaction: "+what, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		if announcer.IsNotFound(err) {
			return err
		}
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, what, err)
	}
	if err := tx.Commit(); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to commit transaction: "+what, err)
	}
	committed = true
	return nil
}
