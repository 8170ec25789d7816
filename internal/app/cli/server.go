package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/spec-rag/internal/app/httpapi"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
// シグナルで ctx がキャンセルされるとグレースフルに停止する
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cont := appCtx.Container
	cfg := appCtx.Config

	server := httpapi.NewServer(
		cont.AskService,
		cont.SearchService,
		cont.IngestService,
		httpapi.WithServerLogger(appCtx.Logger()),
		httpapi.WithDefaultMatchCount(cfg.Search.MatchCount),
	)

	return server.Run(ctx, httpapi.RunConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}
