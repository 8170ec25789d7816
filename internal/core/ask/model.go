package ask

import "github.com/google/uuid"

// Answer は質問応答の結果を表す
type Answer struct {
	Text      string     // LLM による回答
	Citations []Citation // 参照したチャンク
	Strategy  string     // 検索経路
}

// Citation は回答の根拠となったチャンクへの参照
type Citation struct {
	Ref             int // プロンプト内の参照番号（1始まり）
	DocumentID      uuid.UUID
	DocumentName    string
	ChunkID         uuid.UUID
	PageNumber      int
	CharOffsetStart *int
	CharOffsetEnd   *int
	Score           float64
}
