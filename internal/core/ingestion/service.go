package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/jinford/spec-rag/internal/core/chunk"
)

// IngestService は文書の登録・取り込み・削除のユースケースを提供する
type IngestService struct {
	documents      DocumentRepository
	chunks         ChunkRepository
	blobs          BlobStore
	extractor      TextExtractor
	embedder       BatchEmbedder
	chunker        *chunk.Chunker
	pipelineConfig *PipelineConfig
	logger         *slog.Logger
}

type ingestServiceOptions struct {
	pipelineConfig *PipelineConfig
	logger         *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger はロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithIngestPipelineConfig はパイプライン設定を上書きする
func WithIngestPipelineConfig(cfg *PipelineConfig) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.pipelineConfig = cfg
	}
}

// NewIngestService は新しい IngestService を作成する
func NewIngestService(
	documents DocumentRepository,
	chunks ChunkRepository,
	blobs BlobStore,
	extractor TextExtractor,
	embedder BatchEmbedder,
	chunker *chunk.Chunker,
	opts ...IngestServiceOption,
) *IngestService {
	options := &ingestServiceOptions{
		pipelineConfig: DefaultPipelineConfig(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	cfg := *options.pipelineConfig
	cfg.normalize()

	return &IngestService{
		documents:      documents,
		chunks:         chunks,
		blobs:          blobs,
		extractor:      extractor,
		embedder:       embedder,
		chunker:        chunker,
		pipelineConfig: &cfg,
		logger:         options.logger,
	}
}

// Register は原本を保存し、取り込み待ちの文書として登録する
func (s *IngestService) Register(ctx context.Context, name string, r io.Reader) (*Document, error) {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("document name is required")
	}

	id := uuid.New()
	doc := &Document{
		ID:          id,
		Name:        name,
		StoragePath: path.Join(id.String(), name),
		Status:      StatusUploading,
	}
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if err := s.blobs.Upload(ctx, doc.StoragePath, r); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrUpload, err)
		s.markFailed(ctx, doc.ID, wrapped)
		return nil, wrapped
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, StatusPending, nil); err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}
	doc.Status = StatusPending

	s.logger.Info("ドキュメントを登録しました", "documentID", doc.ID, "name", doc.Name)
	return doc, nil
}

// Ingest は文書を取り込み、検索可能な状態にする
// 失敗した場合は状態を error にし、利用者向けメッセージを記録する
func (s *IngestService) Ingest(ctx context.Context, id uuid.UUID) (*IngestResult, error) {
	start := time.Now()

	docOpt, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc, ok := docOpt.Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if doc.Status == StatusProcessing {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessing, id)
	}

	if err := s.documents.UpdateStatus(ctx, id, StatusProcessing, nil); err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}

	s.logger.Info("ドキュメントの取り込みを開始します", "documentID", id, "name", doc.Name)

	pageCount, chunkCount, err := s.process(ctx, doc)
	if err != nil {
		s.markFailed(ctx, id, err)
		return nil, err
	}

	if err := s.documents.MarkIndexed(ctx, id, pageCount, chunkCount); err != nil {
		wrapped := fmt.Errorf("%w: failed to mark document indexed: %w", ErrStorage, err)
		s.markFailed(ctx, id, wrapped)
		return nil, wrapped
	}

	result := &IngestResult{
		DocumentID: id,
		PageCount:  pageCount,
		ChunkCount: chunkCount,
		Duration:   time.Since(start),
	}

	s.logger.Info("ドキュメントの取り込みが完了しました",
		"documentID", id,
		"pages", pageCount,
		"chunks", chunkCount,
		"duration", result.Duration,
	)

	return result, nil
}

// process は抽出・分割・埋め込み・保存を順に行う
func (s *IngestService) process(ctx context.Context, doc *Document) (int, int, error) {
	data, err := s.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: download: %w", ErrTextExtraction, err)
	}

	pages, err := s.extractor.ExtractPages(ctx, data)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrTextExtraction, err)
	}

	chunks, err := s.chunker.ChunkPages(doc.ID, pages)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: chunking: %w", ErrTextExtraction, err)
	}
	if len(chunks) == 0 {
		return 0, 0, fmt.Errorf("%w: no text found in %d pages", ErrTextExtraction, len(pages))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts, s.pipelineConfig.EmbeddingConcurrency)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrEmbeddingGeneration, err)
	}
	// 件数が一致しない場合は書き込み前に中止する
	if len(vectors) != len(chunks) {
		return 0, 0, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingGeneration, len(chunks), len(vectors))
	}

	if err := s.chunks.ReplaceChunks(ctx, doc.ID, chunks, vectors); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return len(pages), len(chunks), nil
}

// markFailed は文書を error 状態にする
// 呼び出し元の context がキャンセルされていても状態を残す
func (s *IngestService) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	msg := PublicMessage(cause)
	if err := s.documents.UpdateStatus(context.WithoutCancel(ctx), id, StatusError, &msg); err != nil {
		s.logger.Error("ドキュメントのステータス更新に失敗しました", "documentID", id, "error", err)
	}
	s.logger.Error("ドキュメントの取り込みに失敗しました", "documentID", id, "error", cause)
}

// IngestMany は複数文書をワーカープールで取り込む
// 1件の失敗は他の文書に影響しない。結果は入力と同じ順序で返す
func (s *IngestService) IngestMany(ctx context.Context, ids []uuid.UUID) ([]*IngestResult, error) {
	results := make([]*IngestResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(s.pipelineConfig.DocumentWorkerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, id := range ids {
		if ctx.Err() != nil {
			results[i] = &IngestResult{DocumentID: id, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i] = &IngestResult{DocumentID: id, Err: err}
				return
			}
			res, err := s.Ingest(ctx, id)
			if err != nil {
				results[i] = &IngestResult{DocumentID: id, Err: err}
				return
			}
			results[i] = res
		})
		if submitErr != nil {
			wg.Done()
			results[i] = &IngestResult{DocumentID: id, Err: fmt.Errorf("failed to submit task: %w", submitErr)}
		}
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("一括取り込みが完了しました", "total", len(ids), "failed", failed)

	return results, nil
}

// GetDocument は文書を取得する
func (s *IngestService) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	docOpt, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc, ok := docOpt.Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// ListDocuments は全文書を返す
func (s *IngestService) ListDocuments(ctx context.Context) ([]*Document, error) {
	docs, err := s.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Delete は文書とそのチャンク、原本を削除する
func (s *IngestService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	// チャンクは外部キーの ON DELETE CASCADE で削除される
	if err := s.documents.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Warn("原本の削除に失敗しました", "documentID", id, "path", doc.StoragePath, "error", err)
	}

	s.logger.Info("ドキュメントを削除しました", "documentID", id, "name", doc.Name)
	return nil
}
