package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// MigrateAction はスキーマを作成するコマンドのアクション
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Migrate(ctx); err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	appCtx.Logger().Info("マイグレーションが完了しました", "dimension", appCtx.Config.OpenAI.EmbeddingDimension)
	return nil
}
