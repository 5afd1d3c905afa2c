package cmd

import (
	"github.com/spf13/cobra"

	"fintechbi/internal/ui"
	"fintechbi/internal/warehouse"
)

func newDashboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render the KPI dashboard from the warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(a.v, cmd.Flags(), map[string]string{"db-url": "warehouse.url"})
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.newLogger(cfg)

			target, err := warehouse.ParseURL(cfg.Warehouse.URL)
			if err != nil {
				return err
			}

			dash := ui.NewDashboard(cmd.OutOrStdout(), ui.SupportsColor())
			exists, err := warehouse.Exists(cfg.Warehouse.URL)
			if err != nil {
				return err
			}
			if !exists {
				dash.Missing(target.Redacted())
				return nil
			}

			credentials, err := a.credentialSource(cfg)
			if err != nil {
				return err
			}
			wh, err := warehouse.Open(cmd.Context(), cfg.Warehouse.URL, warehouse.Options{
				Credential:  cfg.Warehouse.Credential,
				Credentials: credentials,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			defer wh.Close()

			return dash.Render(cmd.Context(), wh)
		},
	}

	cmd.Flags().String("db-url", "", "warehouse URL, e.g. sqlite://warehouse/fintech.db")
	return cmd
}
