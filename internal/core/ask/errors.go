package ask

import "errors"

var (
	// ErrEmptyQuestion は質問が空の場合のエラー
	ErrEmptyQuestion = errors.New("question is required")

	// ErrTemporarilyUnavailable は検索や回答生成が一時的に利用できない場合のエラー
	ErrTemporarilyUnavailable = errors.New("answering is temporarily unavailable")
)

// PublicMessage は利用者向けの汎用メッセージを返す
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuestion):
		return "Query is required."
	case errors.Is(err, ErrTemporarilyUnavailable):
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An internal error occurred."
	}
}
