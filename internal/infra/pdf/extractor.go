package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/spec-rag/internal/core/chunk"
	"github.com/jinford/spec-rag/internal/core/ingestion"
)

// ErrNoText は全ページからテキストが得られなかった場合のエラー
var ErrNoText = errors.New("no extractable text in document")

// Extractor は PDF からページごとのテキストを取り出す
type Extractor struct {
	logger *slog.Logger
}

// ExtractorOption は Extractor のオプション設定
type ExtractorOption func(*Extractor)

// WithExtractorLogger はロガーを設定する
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor は新しい Extractor を作成する
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ingestion.TextExtractor = (*Extractor)(nil)

// ExtractPages はページ番号付きのテキストを返す
// テキストを持たないページは飛ばし、ページ番号は元の番号を保持する
func (e *Extractor) ExtractPages(ctx context.Context, data []byte) (pages []chunk.Page, err error) {
	// 壊れた PDF でライブラリが panic することがあるためエラーに変換する
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("ページのテキスト抽出に失敗したためスキップします", "page", i, "error", err)
			continue
		}

		text = normalizeText(text)
		if text == "" {
			continue
		}
		pages = append(pages, chunk.Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}

	e.logger.Debug("PDF テキスト抽出完了", "pages", total, "textPages", len(pages))
	return pages, nil
}

// normalizeText は行末の空白と連続する空行を取り除く
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
