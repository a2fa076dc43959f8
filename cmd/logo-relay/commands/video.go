package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/logo-relay/internal/core/video"
)

// statusChecker はジョブ状態を1回確認する
type statusChecker interface {
	CheckStatus(ctx context.Context, jobID string) (*video.StatusResult, error)
}

// VideoConvertAction は画像URLから動画生成ジョブを投入するコマンドのアクション
func VideoConvertAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	imageURL := cmd.String("image-url")

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	result, err := appCtx.Container.VideoService.Convert(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("動画変換の投入に失敗: %w", err)
	}

	printSubmitResult(os.Stdout, result)
	return nil
}

// VideoStatusAction は動画生成ジョブの状態を確認するコマンドのアクション
func VideoStatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	jobID := cmd.String("job-id")

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	maxChecks := 1
	if cmd.Bool("wait") {
		maxChecks = int(cmd.Int("max-checks"))
	}

	result, err := waitForVideo(ctx, appCtx.Container.VideoService, jobID, cmd.Duration("interval"), maxChecks)
	if err != nil {
		return fmt.Errorf("動画ステータスの確認に失敗: %w", err)
	}

	printStatusResult(os.Stdout, jobID, result)
	return nil
}

// waitForVideo は processing の間だけ interval ごとに状態を確認する
// 最大回数に達した場合は最後の結果を返す
func waitForVideo(ctx context.Context, checker statusChecker, jobID string, interval time.Duration, maxChecks int) (*video.StatusResult, error) {
	if maxChecks < 1 {
		maxChecks = 1
	}

	var result *video.StatusResult
	for i := 0; i < maxChecks; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}

		var err error
		result, err = checker.CheckStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if result.State != video.StateProcessing {
			return result, nil
		}
	}
	return result, nil
}

func printSubmitResult(w io.Writer, result *video.SubmitResult) {
	switch {
	case result.JobID != "":
		fmt.Fprintf(w, "✓ ジョブを投入しました: %s (status: %s)\n", result.JobID, result.State)
	case result.VideoURL != "":
		fmt.Fprintf(w, "✓ 動画を生成しました: %s\n", result.VideoURL)
	default:
		fmt.Fprintf(w, "✓ GIFを生成しました: %s\n", result.GifURL)
	}
}

func printStatusResult(w io.Writer, jobID string, result *video.StatusResult) {
	fmt.Fprintf(w, "ジョブ %s: %s\n", jobID, result.State)

	switch result.State {
	case video.StateCompleted:
		if result.VideoURL != "" {
			fmt.Fprintf(w, "  動画: %s\n", result.VideoURL)
		}
		if result.GifURL != "" {
			fmt.Fprintf(w, "  GIF: %s\n", result.GifURL)
		}
	case video.StateFailed:
		fmt.Fprintf(w, "  エラー: %s\n", result.Error)
		if len(result.ErrorCode) > 0 {
			fmt.Fprintf(w, "  エラーコード: %s\n", result.ErrorCode)
		}
	case video.StateUnknown:
		fmt.Fprintf(w, "  %s\n", result.Message)
	}
}
