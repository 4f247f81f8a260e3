package service

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-accounts/app/repository"
)

// txFunc receives repositories bound to the running transaction.
type txFunc func(users *repository.UserRepository, ledger *repository.TokenLedger) error

// withinTx commits when fn succeeds and rolls back otherwise. Errors from fn
// are returned unchanged.
func withinTx(ctx context.Context, db *sql.DB, op string, fn txFunc) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return internalError(op+": begin", err)
	}
	defer tx.Rollback()

	if err = fn(repository.NewUserRepository(tx), repository.NewTokenLedger(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return internalError(op+": commit", err)
	}
	return nil
}
