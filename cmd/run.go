package cmd

import (
	"github.com/spf13/cobra"

	"fintechbi/internal/pipeline"
	"fintechbi/internal/ui"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest, validate and load the raw data, then refresh the KPI views",
		Long: "Run reads the raw sources, drops duplicates and malformed rows, keeps settled, " +
			"refunded and chargeback transactions and upserts everything into the warehouse. Rerunning " +
			"on the same input leaves the warehouse unchanged.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(a.v, cmd.Flags(), runFlagKeys)
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.newLogger(cfg)

			credentials, err := a.credentialSource(cfg)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(cfg,
				pipeline.WithLogger(logger),
				pipeline.WithCredentials(credentials),
			)
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			ui.ShowRunReport(report)
			if cfg.Metrics.Textfile != "" {
				ui.ShowInfo("Metrics written to " + cfg.Metrics.Textfile)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("db-url", "", "warehouse URL, e.g. sqlite://warehouse/fintech.db")
	flags.String("validation", "", "transaction validation mode: sample or full")
	flags.String("upsert", "", "upsert strategy: auto, native or delete_insert")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.String("transactions", "", "transactions CSV source")
	flags.String("users", "", "users JSON source")
	flags.String("products", "", "products CSV source")
	return cmd
}

var runFlagKeys = map[string]string{
	"db-url":       "warehouse.url",
	"validation":   "validation.mode",
	"upsert":       "warehouse.upsert_strategy",
	"metrics-file": "metrics.textfile",
	"transactions": "sources.transactions_csv",
	"users":        "sources.users_json",
	"products":     "sources.products_csv",
}
