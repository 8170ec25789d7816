package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jinford/spec-rag/internal/core/ingestion"
)

// ErrInvalidPath はルート外を指すパスが渡された場合のエラー
var ErrInvalidPath = errors.New("invalid blob path")

// BlobStore はローカルディレクトリに文書原本を保存する
type BlobStore struct {
	root string
}

// NewBlobStore は root 配下を保存先とする BlobStore を作成する
func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &BlobStore{root: root}, nil
}

var _ ingestion.BlobStore = (*BlobStore)(nil)

// Upload は一時ファイルに書き込んでから rename し、途中状態のファイルを残さない
func (s *BlobStore) Upload(ctx context.Context, path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}
	return nil
}

func (s *BlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ingestion.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Delete はファイルを削除し、空になった親ディレクトリも取り除く
func (s *BlobStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ingestion.ErrBlobNotFound, path)
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	if dir := filepath.Dir(full); dir != filepath.Clean(s.root) {
		// 他のファイルが残っている場合は失敗するが問題ない
		_ = os.Remove(dir)
	}
	return nil
}

func (s *BlobStore) resolve(path string) (string, error) {
	if path == "" || !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(s.root, path), nil
}
