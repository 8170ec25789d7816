package search

import "errors"

var (
	// ErrEmptyQuery は空のクエリが指定された場合のエラー
	ErrEmptyQuery = errors.New("query is required")

	// ErrCapabilityUnavailable はストア側に融合検索の関数が存在しない場合のエラー
	ErrCapabilityUnavailable = errors.New("search capability unavailable")

	// ErrSearchUnavailable は全ての検索経路が失敗した場合のエラー
	ErrSearchUnavailable = errors.New("search unavailable")
)
