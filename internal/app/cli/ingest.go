package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// IngestDirAction はディレクトリ配下の PDF を一括で登録・取り込みするコマンドのアクション
func IngestDirAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("ディレクトリを指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	files, err := appCtx.Container.Scanner.Scan(dir)
	if err != nil {
		return err
	}
	appCtx.Logger().Info("取り込み対象のファイルを検出しました", "dir", dir, "files", len(files))

	out := output(cmd)
	if cmd.Bool("dry-run") {
		for _, f := range files {
			fmt.Fprintln(out, f)
		}
		return nil
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "no documents found")
		return nil
	}

	docs, err := registerFiles(ctx, appCtx.Container.IngestService, files)
	if err != nil {
		return err
	}
	return ingestDocuments(ctx, cmd, appCtx, documentIDs(docs))
}
