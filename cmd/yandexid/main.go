// Command yandexid sirve el login con Yandex ID y sus tareas de mantenimiento.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/yandexid/internal/config"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"

	// Registra los adapters del account store vía init().
	_ "github.com/dropDatabas3/yandexid/internal/store/adapters/all"
)

func main() {
	// .env es opcional: en producción todo llega por entorno.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	configPath := envOr("CONFIG_PATH", "")
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "yandexid",
		Short:         "Login con Yandex ID (OAuth 2.0 authorization code)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: cfg.App.Name,
				Version:     cfg.App.Version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "Ruta a config.yaml (env CONFIG_PATH)")

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(cfgFn),
		newMigrateCmd(cfgFn),
		newPurgeLinksCmd(cfgFn),
		newAuthorizeURLCmd(cfgFn),
	)
	return root
}
