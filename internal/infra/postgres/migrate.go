package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// SchemaSQL は埋め込み次元を反映したスキーマ定義を返す
func SchemaSQL(dimension int) string {
	return strings.ReplaceAll(schemaSQL, "{{DIMENSION}}", strconv.Itoa(dimension))
}

// Migrate はテーブル・インデックス・検索関数を作成する
// 何度実行しても同じ状態になる
func Migrate(ctx context.Context, db DBTX, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	if _, err := db.Exec(ctx, SchemaSQL(dimension)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
