package cmd

import (
	"github.com/spf13/cobra"

	"fintechbi/internal/config"
	"fintechbi/internal/synth"
	"fintechbi/internal/ui"
)

func newGenerateCmd(a *app) *cobra.Command {
	d := config.Default().Synth

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic users, products and transactions",
		Long: "Generate writes users.json and transactions.csv to the raw directory and " +
			"products.csv to the reference directory. The same seed always yields the same files.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(a.v, cmd.Flags(), generateFlagKeys)
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.newLogger(cfg)

			synthCfg, err := synthConfig(cfg.Synth)
			if err != nil {
				return err
			}

			logger.InfoWithFields("Generating synthetic data", map[string]interface{}{
				"users":    synthCfg.Users,
				"products": synthCfg.Products,
				"txns":     synthCfg.Txns,
				"seed":     synthCfg.Seed,
			})
			summary, err := synth.Generate(synthCfg)
			if err != nil {
				return err
			}

			ui.ShowGenerateSummary(summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("users", d.Users, "number of users")
	flags.Int("products", d.Products, "number of products")
	flags.Int("txns", d.Txns, "number of transactions")
	flags.String("start-date", d.StartDate, "first day of activity (YYYY-MM-DD)")
	flags.Int("days", d.Days, "days of activity")
	flags.String("raw-dir", d.RawDir, "directory for users.json and transactions.csv")
	flags.String("ref-dir", d.RefDir, "directory for products.csv")
	flags.Uint64("seed", d.Seed, "random seed")
	return cmd
}

var generateFlagKeys = map[string]string{
	"users":      "synth.users",
	"products":   "synth.products",
	"txns":       "synth.txns",
	"start-date": "synth.start_date",
	"days":       "synth.days",
	"raw-dir":    "synth.raw_dir",
	"ref-dir":    "synth.ref_dir",
	"seed":       "synth.seed",
}

func synthConfig(c config.SynthConfig) (synth.Config, error) {
	start, err := synth.ParseStartDate(c.StartDate)
	if err != nil {
		return synth.Config{}, err
	}
	return synth.Config{
		Users:     c.Users,
		Products:  c.Products,
		Txns:      c.Txns,
		StartDate: start,
		Days:      c.Days,
		RawDir:    c.RawDir,
		RefDir:    c.RefDir,
		Seed:      c.Seed,
	}, nil
}
