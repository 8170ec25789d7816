package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/jinford/spec-rag/internal/core/search"
)

var envFlag = &cli.StringFlag{
	Name:  "env",
	Usage: "環境変数ファイルパス",
	Value: ".env",
}

// NewApp は spec-rag のコマンドツリーを返す
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "spec-rag",
		Usage: "鋼材規格文書を対象とした RAG 検索・質問応答システム",
		Flags: []cli.Flag{envFlag},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "データベースのスキーマと検索関数を作成",
				Action: MigrateAction,
			},
			{
				Name:  "document",
				Usage: "文書管理コマンド",
				Commands: []*cli.Command{
					{
						Name:      "register",
						Usage:     "PDF を登録（--ingest で続けて取り込み）",
						ArgsUsage: "<file>...",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "ingest",
								Usage: "登録後に取り込みを実行",
							},
						},
						Action: DocumentRegisterAction,
					},
					{
						Name:      "ingest",
						Usage:     "登録済み文書を取り込み",
						ArgsUsage: "<document-id>...",
						Action:    DocumentIngestAction,
					},
					{
						Name:   "list",
						Usage:  "文書一覧を表示",
						Action: DocumentListAction,
					},
					{
						Name:      "delete",
						Usage:     "文書とチャンクを削除",
						ArgsUsage: "<document-id>",
						Action:    DocumentDeleteAction,
					},
				},
			},
			{
				Name:  "ingest",
				Usage: "一括取り込みコマンド",
				Commands: []*cli.Command{
					{
						Name:      "dir",
						Usage:     "ディレクトリ配下の PDF を登録して取り込み（除外パターンファイルに対応）",
						ArgsUsage: "<directory>",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "dry-run",
								Usage: "対象ファイルの一覧のみ表示",
							},
						},
						Action: IngestDirAction,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "文書を検索",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "検索方式（hybrid, bm25, strategy）",
						Value: string(search.ModeHybrid),
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "取得件数",
						Value: search.DefaultMatchCount,
					},
				},
				Action: SearchAction,
			},
			{
				Name:      "ask",
				Usage:     "質問に回答",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照した出典を表示",
					},
				},
				Action: AskAction,
			},
			{
				Name:  "server",
				Usage: "HTTPサーバコマンド",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "HTTP API サーバを起動",
						Action: ServerStartAction,
					},
				},
			},
		},
	}
}
