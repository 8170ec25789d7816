package filesystem

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreFile は一括取り込み時に読み込む除外パターンファイル名
const DefaultIgnoreFile = ".specragignore"

// defaultIgnorePatterns は常に除外するパス
var defaultIgnorePatterns = []string{
	".git",
	".DS_Store",
	"*.crdownload",
	"*.tmp",
	"*.part",
}

// Scanner はディレクトリ配下の取り込み対象ファイルを列挙する
type Scanner struct {
	ignoreFile string
	extensions map[string]struct{}
}

// ScannerOption は Scanner のオプション設定
type ScannerOption func(*Scanner)

// WithIgnoreFile は除外パターンファイル名を設定する
func WithIgnoreFile(name string) ScannerOption {
	return func(s *Scanner) {
		if name != "" {
			s.ignoreFile = name
		}
	}
}

// WithExtensions は対象とする拡張子を設定する（"." 付き、大文字小文字は区別しない）
func WithExtensions(exts ...string) ScannerOption {
	return func(s *Scanner) {
		s.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			s.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}
}

// NewScanner は新しい Scanner を作成する
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		ignoreFile: DefaultIgnoreFile,
		extensions: map[string]struct{}{".pdf": {}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan は root 配下の対象ファイルをパス順に返す
// root 直下の除外パターンファイルに一致するパスは除外する
func (s *Scanner) Scan(root string) ([]string, error) {
	matcher, err := s.loadIgnore(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)
		if matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if _, ok := s.extensions[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) loadIgnore(root string) (*gitignore.GitIgnore, error) {
	patterns := append([]string{}, defaultIgnorePatterns...)

	path := filepath.Join(root, s.ignoreFile)
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			// 空行とコメント行をスキップ
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.ignoreFile, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to open %s: %w", s.ignoreFile, err)
	}

	return gitignore.CompileIgnoreLines(patterns...), nil
}
