package chunk

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinChunkSize は許容する最小チャンクサイズ（文字数）
	MinChunkSize = 100

	// MinContentLength はこれ以下の長さの断片を破棄する閾値
	MinContentLength = 20

	// iterationSlack は反復回数上限に加える余裕
	iterationSlack = 10
)

// Splitter は固定長ウィンドウでテキストを分割する
type Splitter struct {
	logger *slog.Logger
}

// SplitterOption は Splitter のオプション設定
type SplitterOption func(*Splitter)

// WithSplitterLogger はロガーを設定する
func WithSplitterLogger(logger *slog.Logger) SplitterOption {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// NewSplitter は新しい Splitter を作成する
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ValidateParams はチャンクサイズとオーバーラップを検証する
// overlap >= chunkSize を拒否することで、カーソルが必ず前進することを保証する
func ValidateParams(chunkSize, overlap int) error {
	if chunkSize < MinChunkSize {
		return fmt.Errorf("%w: chunkSize must be >= %d, got %d", ErrInvalidParameter, MinChunkSize, chunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must be >= 0, got %d", ErrInvalidParameter, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunkSize (%d)", ErrInvalidParameter, overlap, chunkSize)
	}
	return nil
}

// Chunk はテキストを分割し、チャンク本文のみを返す
func (s *Splitter) Chunk(text string, chunkSize, overlap int) ([]string, error) {
	segments, err := s.Split(text, chunkSize, overlap)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(segments))
	for i, seg := range segments {
		contents[i] = seg.Content
	}
	return contents, nil
}

// Split はテキストを chunkSize 文字のウィンドウで overlap 文字ずつ重ねながら分割する
func (s *Splitter) Split(text string, chunkSize, overlap int) ([]Segment, error) {
	if err := ValidateParams(chunkSize, overlap); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return []Segment{}, nil
	}

	runes := []rune(text)
	length := len(runes)

	// 1チャンクに収まる場合は trim して返す
	if length < chunkSize {
		seg, _ := trimWindow(runes, 0, length)
		return []Segment{seg}, nil
	}

	step := chunkSize - overlap
	maxIterations := (length+step-1)/step + iterationSlack

	segments := make([]Segment, 0, maxIterations)
	iterations := 0
	for cursor := 0; cursor < length; cursor += step {
		if iterations >= maxIterations {
			s.logger.Warn("chunk iteration limit reached, stopping early",
				"length", length,
				"chunkSize", chunkSize,
				"overlap", overlap,
				"maxIterations", maxIterations,
			)
			break
		}
		iterations++

		end := min(cursor+chunkSize, length)
		if seg, ok := trimWindow(runes, cursor, end); ok && utf8.RuneCountInString(seg.Content) > MinContentLength {
			segments = append(segments, seg)
		}

		if end == length {
			break
		}
	}

	return segments, nil
}

// trimWindow は [start, end) の前後の空白を除き、オフセットも合わせて詰める
func trimWindow(runes []rune, start, end int) (Segment, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return Segment{}, false
	}
	return Segment{
		Content: string(runes[start:end]),
		Start:   start,
		End:     end,
	}, true
}

var defaultSplitter = NewSplitter()

// Split はデフォルトの Splitter でテキストを分割する
func Split(text string, chunkSize, overlap int) ([]Segment, error) {
	return defaultSplitter.Split(text, chunkSize, overlap)
}
