package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/logo-relay/internal/core/logo"
)

// LogoGenerateAction はロゴを一括生成して結果のURLを表示するコマンドのアクション
func LogoGenerateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	req := logo.GenerationRequest{
		Prompt: cmd.String("prompt"),
		Width:  int(cmd.Int("width")),
		Height: int(cmd.Int("height")),
	}

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	batchID := uuid.NewString()
	log := appCtx.Logger().With("batchID", batchID)
	log.Info("ロゴ一括生成を開始", "width", req.Width, "height", req.Height)

	result, err := appCtx.Container.LogoService.GenerateBatch(ctx, req)
	if err != nil {
		return fmt.Errorf("ロゴ生成に失敗: %w", err)
	}

	log.Info("ロゴ一括生成が完了", "logos", len(result.Logos), "failed", result.Failed)
	printBatchResult(os.Stdout, result)
	return nil
}

func printBatchResult(w io.Writer, result *logo.BatchResult) {
	fmt.Fprintf(w, "✓ %d/%d 件のロゴを生成しました (%s)\n",
		len(result.Logos), result.Attempts, result.Duration.Round(100*time.Millisecond))
	for i, url := range result.Logos {
		fmt.Fprintf(w, "  %d. %s\n", i+1, url)
	}
}
