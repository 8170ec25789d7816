package ingestion

const (
	// DefaultEmbeddingConcurrency は1文書内の埋め込み並列数
	DefaultEmbeddingConcurrency = 3

	// DefaultDocumentWorkerCount は複数文書を同時に取り込むワーカー数
	DefaultDocumentWorkerCount = 2
)

// PipelineConfig は取り込み処理の設定
type PipelineConfig struct {
	// EmbeddingConcurrency は埋め込み生成の並列数
	EmbeddingConcurrency int
	// DocumentWorkerCount は IngestMany のワーカー数
	DocumentWorkerCount int
}

// DefaultPipelineConfig はデフォルトのパイプライン設定を返す
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		EmbeddingConcurrency: DefaultEmbeddingConcurrency,
		DocumentWorkerCount:  DefaultDocumentWorkerCount,
	}
}

func (c *PipelineConfig) normalize() {
	if c.EmbeddingConcurrency <= 0 {
		c.EmbeddingConcurrency = DefaultEmbeddingConcurrency
	}
	if c.DocumentWorkerCount <= 0 {
		c.DocumentWorkerCount = DefaultDocumentWorkerCount
	}
}
