package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/yandexid/internal/config"
	"github.com/dropDatabas3/yandexid/internal/http/server"
	"github.com/dropDatabas3/yandexid/internal/http/services/social"
	"github.com/dropDatabas3/yandexid/internal/store"
)

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del account store",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := server.OpenStore(cmd.Context(), cfg(), false)
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := store.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver=%s applied=%v skipped=%v took=%s\n",
				conn.Name(), res.Applied, res.Skipped, res.Duration)
			return nil
		},
	}
}

// purge-links reemplaza la desinstalación: borra todos los vínculos con
// Yandex y los avatares cacheados, sin tocar las cuentas.
func newPurgeLinksCmd(cfg func() *config.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge-links",
		Short: "Elimina todos los provider ids y avatar URLs de Yandex del account store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge-links es irreversible: repetir con --yes")
			}
			conn, err := server.OpenStore(cmd.Context(), cfg(), cfg().Storage.Migrate)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := conn.Accounts().PurgeProviderLinks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged=%d\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirmar la operación")
	return cmd
}

// authorize-url imprime una URL de autorización de prueba con un state
// atado al binding dado.
func newAuthorizeURLCmd(cfg func() *config.Config) *cobra.Command {
	var binding string
	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Imprime la URL de autorización de Yandex y el callback registrado",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			app, err := server.Build(cmd.Context(), c, server.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			if !app.Yandex.Configured() {
				return fmt.Errorf("yandex.client_id no está configurado")
			}

			st, err := app.State.Generate(cmd.Context(), social.PurposeYandexLogin, binding)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "callback_url: %s\nauthorize_url: %s\n", c.CallbackURL(), app.Yandex.AuthURL(st))
			return nil
		},
	}
	cmd.Flags().StringVar(&binding, "binding", "cli", "Valor de la cookie yid_state al que se ata el state")
	return cmd
}
