package chunk

import "github.com/google/uuid"

// Page は抽出済みの1ページ分のテキストを表す
type Page struct {
	Number int    // 1始まりのページ番号
	Text   string // ページ本文
}

// Segment は Split が返すテキスト断片
// Start/End はページ内の文字（rune）オフセットで、End は排他的
type Segment struct {
	Content string
	Start   int
	End     int
}

// Chunk は検索単位となるチャンク
type Chunk struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	ChunkIndex      int
	Content         string
	PageNumber      int
	CharOffsetStart int
	CharOffsetEnd   int
	TokenCount      int
}
