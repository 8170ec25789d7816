package ingestion

import "errors"

var (
	// ErrTextExtraction は文書からテキストを取り出せなかった場合のエラー
	ErrTextExtraction = errors.New("text extraction failed")

	// ErrEmbeddingGeneration は埋め込み生成に失敗した場合のエラー
	ErrEmbeddingGeneration = errors.New("embedding generation failed")

	// ErrStorage はチャンクの保存に失敗した場合のエラー
	ErrStorage = errors.New("chunk storage failed")

	// ErrDocumentNotFound は文書が存在しない場合のエラー
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAlreadyProcessing は処理中の文書を再度取り込もうとした場合のエラー
	ErrAlreadyProcessing = errors.New("document is already being processed")

	// ErrUpload は原本の保存に失敗した場合のエラー
	ErrUpload = errors.New("document upload failed")
)

// PublicMessage は利用者向けの汎用メッセージを返す
// 内部の詳細（接続先やスタックなど）は含めない
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTextExtraction):
		return "Could not extract text from the document."
	case errors.Is(err, ErrEmbeddingGeneration):
		return "Failed to generate embeddings for the document."
	case errors.Is(err, ErrStorage):
		return "Failed to store document chunks."
	case errors.Is(err, ErrUpload):
		return "Failed to upload the document."
	case errors.Is(err, ErrDocumentNotFound):
		return "Document not found."
	case errors.Is(err, ErrAlreadyProcessing):
		return "Document is already being processed."
	default:
		return "Document processing failed."
	}
}

// ErrBlobNotFound は原本が保存先に存在しない場合のエラー
var ErrBlobNotFound = errors.New("blob not found")
