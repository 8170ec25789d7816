package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	showSources := cmd.Bool("show-sources")

	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	logger := appCtx.Logger()
	logger.Info("質問応答を開始", "question", question, "showSources", showSources)

	answer, err := appCtx.Container.AskService.Ask(ctx, question)
	if err != nil {
		logger.Error("質問応答に失敗しました", "error", err)
		return fmt.Errorf("質問応答に失敗: %w", err)
	}

	printAnswer(output(cmd), answer, showSources)

	logger.Info("質問応答が完了しました", "citations", len(answer.Citations))
	return nil
}
