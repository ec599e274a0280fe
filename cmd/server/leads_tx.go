package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	dErrors "leadline/pkg/domain-errors"
	txcontext "leadline/pkg/platform/tx"
)

const defaultLeadsTxTimeout = 5 * time.Second

// leadsPostgresTx runs bucket renumbering in one transaction. Stores pick the
// transaction up from the context.
type leadsPostgresTx struct {
	db      *sqlx.DB
	timeout time.Duration
}

func newLeadsPostgresTx(db *sqlx.DB, timeout time.Duration) *leadsPostgresTx {
	return &leadsPostgresTx{db: db, timeout: timeout}
}

func (t *leadsPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultLeadsTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
