package cmd

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"fintechbi/internal/config"
	"fintechbi/internal/ui"
)

func newSetupCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration setup",
		Long: "Setup asks for the warehouse, pipeline and logging settings, writes them as YAML " +
			"and stores any warehouse password in the OS keyring or an encrypted file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.GetConfigFile()
			}

			base, err := a.loadConfig()
			if err != nil {
				base = config.Default()
			}

			if _, statErr := os.Stat(path); statErr == nil && !force {
				var answers struct {
					Overwrite bool `survey:"overwrite"`
				}
				err := a.asker()([]*survey.Question{{
					Name: "overwrite",
					Prompt: &survey.Confirm{
						Message: "Configuration already exists. Do you want to overwrite it?",
						Default: false,
					},
				}}, &answers)
				if err != nil {
					return err
				}
				if !answers.Overwrite {
					ui.ShowInfo("Setup cancelled")
					return nil
				}
			}

			result, err := ui.NewConfigWizard().WithAsk(a.asker()).WithOutput(cmd.OutOrStdout()).Run(base)
			if err != nil {
				return err
			}

			if result.Password != "" {
				store, err := a.credentials()
				if err != nil {
					return err
				}
				if err := store.Set(result.Config.Warehouse.Credential, result.Password); err != nil {
					return err
				}
				ui.ShowSuccess("Stored warehouse password as " + result.Config.Warehouse.Credential)
			}

			if err := config.Save(result.Config, path); err != nil {
				return err
			}
			ui.ShowSuccess("Configuration saved to " + path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration without asking")
	return cmd
}

func (a *app) asker() ui.AskFunc {
	if a.ask != nil {
		return a.ask
	}
	return survey.Ask
}
