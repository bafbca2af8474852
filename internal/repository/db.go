package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so repositories run on either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories bundles the stores bound to one connection or transaction.
type Repositories struct {
	Tickets TicketRepository
	History TicketHistoryRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets: NewTicketRepository(db),
		History: NewTicketHistoryRepository(db),
	}
}

// UnitOfWork is the transaction boundary controlled by the services.
type UnitOfWork interface {
	// Repositories returns stores outside any transaction, for reads.
	Repositories() Repositories
	// Do runs fn in one transaction; a non-nil error or a panic from fn rolls everything back.
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

type pgUnitOfWork struct {
	db TxBeginner
}

// NewUnitOfWork builds a UnitOfWork over a pgx pool.
func NewUnitOfWork(db TxBeginner) UnitOfWork {
	return &pgUnitOfWork{db: db}
}

func (u *pgUnitOfWork) Repositories() Repositories {
	return NewRepositories(u.db)
}

func (u *pgUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
