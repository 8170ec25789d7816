package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jinford/spec-rag/internal/core/search"
)

// DBTX は *pgxpool.Pool と pgx.Tx の共通インターフェース
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUndefinedFunction = "42883"
	pgUndefinedTable    = "42P01"
)

// mapSearchError は検索関数やテーブルが存在しない場合に ErrCapabilityUnavailable を返す
func mapSearchError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUndefinedFunction || pgErr.Code == pgUndefinedTable) {
		return fmt.Errorf("%s: %w: %s", op, search.ErrCapabilityUnavailable, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
