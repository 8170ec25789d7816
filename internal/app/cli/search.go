package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/spec-rag/internal/core/search"
)

const modeStrategy = "strategy"

// SearchAction は検索コマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	q := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("検索クエリを指定してください")
	}

	mode := cmd.String("mode")
	switch mode {
	case string(search.ModeHybrid), string(search.ModeBM25), modeStrategy:
	default:
		return fmt.Errorf("不正な検索方式です: %s（hybrid, bm25, strategy のいずれか）", mode)
	}
	limit := int(cmd.Int("limit"))

	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	svc := appCtx.Container.SearchService
	out := output(cmd)

	switch mode {
	case modeStrategy:
		printStrategy(out, svc.DescribeStrategy(q))
	case string(search.ModeBM25):
		results, err := svc.SearchBM25(ctx, q, limit)
		if err != nil {
			return fmt.Errorf("検索に失敗: %w", err)
		}
		printSearchResults(out, search.StrategyKeyword, results)
	default:
		resp, err := svc.SearchWithDetails(ctx, q, limit)
		if err != nil {
			return fmt.Errorf("検索に失敗: %w", err)
		}
		if resp.Enhancement != nil && resp.Enhancement.Enhanced() {
			fmt.Fprintf(out, "enhanced query: %s\n", resp.Enhancement.EnhancedQuery)
		}
		fmt.Fprintf(out, "weights: bm25=%.2f vector=%.2f\n", resp.Weights.BM25, resp.Weights.Vector)
		printSearchResults(out, resp.Strategy, resp.Results)
	}
	return nil
}
