package chunk

import (
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TokenCounter はチャンクのトークン数を数える
type TokenCounter interface {
	CountTokens(text string) int
}

// runeCounter はトークナイザ未設定時の代替で、文字数をそのまま返す
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int {
	return utf8.RuneCountInString(text)
}

// Chunker はページ単位のテキストを Chunk に変換する
type Chunker struct {
	splitter  *Splitter
	counter   TokenCounter
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// ChunkerOption は Chunker のオプション設定
type ChunkerOption func(*Chunker)

// WithTokenCounter はトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter) ChunkerOption {
	return func(c *Chunker) {
		c.counter = counter
	}
}

// WithChunkerLogger はロガーを設定する
func WithChunkerLogger(logger *slog.Logger) ChunkerOption {
	return func(c *Chunker) {
		c.logger = logger
	}
}

// NewChunker はパラメータを検証して Chunker を作成する
// 不正なパラメータは取り込み開始前に拒否する
func NewChunker(chunkSize, overlap int, opts ...ChunkerOption) (*Chunker, error) {
	if err := ValidateParams(chunkSize, overlap); err != nil {
		return nil, err
	}

	c := &Chunker{
		counter:   runeCounter{},
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.splitter = NewSplitter(WithSplitterLogger(c.logger))

	return c, nil
}

// ChunkSize は設定済みのチャンクサイズを返す
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap は設定済みのオーバーラップを返す
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkPages はページごとに分割し、文書内で連番の ChunkIndex を振る
// チャンクはページを跨がない
func (c *Chunker) ChunkPages(documentID uuid.UUID, pages []Page) ([]*Chunk, error) {
	var chunks []*Chunk
	for _, page := range pages {
		segments, err := c.splitter.Split(page.Text, c.chunkSize, c.overlap)
		if err != nil {
			return nil, err
		}

		for _, seg := range segments {
			chunks = append(chunks, &Chunk{
				ID:              uuid.New(),
				DocumentID:      documentID,
				ChunkIndex:      len(chunks),
				Content:         seg.Content,
				PageNumber:      page.Number,
				CharOffsetStart: seg.Start,
				CharOffsetEnd:   seg.End,
				TokenCount:      c.counter.CountTokens(seg.Content),
			})
		}
	}

	c.logger.Debug("pages chunked",
		"documentID", documentID,
		"pages", len(pages),
		"chunks", len(chunks),
	)

	return chunks, nil
}
