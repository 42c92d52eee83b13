package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// UnitOfWork runs a function inside one database transaction. Repositories
// receive the transaction as their SQLExecutor, so every write in fn commits
// or rolls back as a whole. Test doubles can run fn with a nil executor.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlUnitOfWork struct {
	db *sql.DB
}

func NewSQLUnitOfWork(db *sql.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
