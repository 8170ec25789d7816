package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/spec-rag/internal/core/ingestion"
)

// DocumentRegisterAction は PDF を登録するコマンドのアクション
func DocumentRegisterAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("登録するファイルを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := registerFiles(ctx, appCtx.Container.IngestService, files)
	if err != nil {
		return err
	}
	printDocuments(output(cmd), docs)

	if !cmd.Bool("ingest") {
		return nil
	}
	return ingestDocuments(ctx, cmd, appCtx, documentIDs(docs))
}

// DocumentIngestAction は登録済み文書を取り込むコマンドのアクション
func DocumentIngestAction(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	return ingestDocuments(ctx, cmd, appCtx, ids)
}

// DocumentListAction は文書一覧を表示するコマンドのアクション
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := appCtx.Container.IngestService.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("文書一覧の取得に失敗: %w", err)
	}
	printDocuments(output(cmd), docs)
	return nil
}

// DocumentDeleteAction は文書を削除するコマンドのアクション
func DocumentDeleteAction(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("削除する文書IDを1つ指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.IngestService.Delete(ctx, ids[0]); err != nil {
		return fmt.Errorf("文書の削除に失敗: %w", err)
	}
	fmt.Fprintf(output(cmd), "deleted %s\n", ids[0])
	return nil
}

// registerFiles はファイルを順に登録する。1件でも失敗した場合はそこで止める
func registerFiles(ctx context.Context, svc *ingestion.IngestService, files []string) ([]*ingestion.Document, error) {
	docs := make([]*ingestion.Document, 0, len(files))
	for _, path := range files {
		doc, err := registerFile(ctx, svc, path)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func registerFile(ctx context.Context, svc *ingestion.IngestService, path string) (*ingestion.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けません: %w", err)
	}
	defer f.Close()

	doc, err := svc.Register(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("%s の登録に失敗: %w", path, err)
	}
	return doc, nil
}

// ingestDocuments は文書を取り込み、結果を表示する
// 失敗した文書がある場合はエラーを返す
func ingestDocuments(ctx context.Context, cmd *cli.Command, appCtx *AppContext, ids []uuid.UUID) error {
	results, err := appCtx.Container.IngestService.IngestMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	failed := printIngestResults(output(cmd), results)
	if failed > 0 {
		return fmt.Errorf("%d 件の文書の取り込みに失敗しました", failed)
	}
	return nil
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	if len(args) == 0 {
		return nil, errors.New("文書IDを指定してください")
	}
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("不正な文書ID %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func documentIDs(docs []*ingestion.Document) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
