package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/logo-relay/internal/interface/httpapi"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
// SIGINT / SIGTERM で ctx がキャンセルされるとグレースフルシャットダウンする
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(envFile)
	if err != nil {
		return err
	}

	cfg := appCtx.Config
	server := httpapi.NewServer(
		httpapi.Config{
			Addr:           cfg.HTTP.Addr,
			BasePath:       cfg.HTTP.BasePath,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		},
		appCtx.Container.LogoService,
		appCtx.Container.VideoService,
		httpapi.WithLogger(appCtx.Logger()),
	)

	appCtx.Logger().Info("サーバー設定",
		"addr", cfg.HTTP.Addr,
		"basePath", cfg.HTTP.BasePath,
		"imageProvider", cfg.Image.Provider,
		"videoProvider", cfg.Video.Provider,
	)

	return server.Run(ctx)
}
