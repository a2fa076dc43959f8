package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/logo-relay/cmd/logo-relay/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 設定読み込み前のログ出力用。AppContext 作成時に設定値で置き換える
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "logo-relay",
		Usage: "AIロゴ生成と動画変換のリレーAPI",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "HTTPサーバーコマンド",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "HTTP APIサーバーを起動",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "logo",
				Usage: "ロゴ生成コマンド",
				Commands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "プロンプトからロゴを一括生成",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "prompt",
								Usage:    "生成プロンプト",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "width",
								Usage: "画像の幅",
								Value: 1024,
							},
							&cli.IntFlag{
								Name:  "height",
								Usage: "画像の高さ",
								Value: 768,
							},
						},
						Action: commands.LogoGenerateAction,
					},
				},
			},
			{
				Name:  "video",
				Usage: "動画変換コマンド",
				Commands: []*cli.Command{
					{
						Name:  "convert",
						Usage: "画像URLから動画生成ジョブを投入",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "image-url",
								Usage:    "変換元の画像URL",
								Required: true,
							},
						},
						Action: commands.VideoConvertAction,
					},
					{
						Name:  "status",
						Usage: "動画生成ジョブの状態を確認",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "job-id",
								Usage:    "ジョブID",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "wait",
								Usage: "完了または失敗まで定期的に確認する",
							},
							&cli.DurationFlag{
								Name:  "interval",
								Usage: "--wait 時の確認間隔",
								Value: 30 * time.Second,
							},
							&cli.IntFlag{
								Name:  "max-checks",
								Usage: "--wait 時の最大確認回数",
								Value: 20,
							},
						},
						Action: commands.VideoStatusAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
