package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc はトランザクション内で実行される処理を表す。
type TxFunc func(tx *sql.Tx) error

// WithTx はfnを1つのトランザクション内で実行する。
// fnがエラーを返すかパニックした場合はロールバックし、成功時はコミットする。
func WithTx(ctx context.Context, db *sql.DB, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
