package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"fintechbi/internal/config"
	"fintechbi/internal/warehouse"
	"fintechbi/pkg/errors"
)

// AskFunc asks a group of questions and writes the answers into response.
type AskFunc func(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error

// WizardResult is the outcome of a completed wizard.
type WizardResult struct {
	Config *config.Config
	// Password is the warehouse password to store under
	// Config.Warehouse.Credential. Empty when none is needed.
	Password string
}

// ConfigWizard walks the user through warehouse, pipeline and logging settings
type ConfigWizard struct {
	ask         AskFunc
	out         io.Writer
	currentStep int
	totalSteps  int
}

// NewConfigWizard creates a wizard that prompts on the terminal
func NewConfigWizard() *ConfigWizard {
	return &ConfigWizard{
		ask:         survey.Ask,
		out:         Out,
		currentStep: 1,
		totalSteps:  4,
	}
}

// WithAsk replaces the prompt backend
func (w *ConfigWizard) WithAsk(ask AskFunc) *ConfigWizard {
	w.ask = ask
	return w
}

// WithOutput redirects progress output
func (w *ConfigWizard) WithOutput(out io.Writer) *ConfigWizard {
	w.out = out
	return w
}

type warehouseAnswers struct {
	Dialect string `survey:"dialect"`
}

type sqliteAnswers struct {
	Path string `survey:"path"`
}

type serverAnswers struct {
	URL        string `survey:"url"`
	Password   string `survey:"password"`
	Credential string `survey:"credential"`
}

type pipelineAnswers struct {
	Upsert     string `survey:"upsert"`
	Validation string `survey:"validation"`
	FeeRate    string `survey:"fee_rate"`
}

type loggingAnswers struct {
	Level  string `survey:"level"`
	Pretty bool   `survey:"pretty"`
}

type reviewAnswers struct {
	Save bool `survey:"save"`
}

// Run asks every question, starting from base, and returns the new
// configuration. base itself is not modified.
func (w *ConfigWizard) Run(base *config.Config) (*WizardResult, error) {
	ShowHeader("fintechbi - Configuration Setup")

	cfg := *base
	result := &WizardResult{Config: &cfg}

	steps := []func(*WizardResult) error{
		w.warehouseStep,
		w.pipelineStep,
		w.loggingStep,
		w.reviewStep,
	}
	for _, step := range steps {
		if err := step(result); err != nil {
			if err == terminal.InterruptErr {
				return nil, errors.New(errors.ErrCodeInvalidInput, "Configuration cancelled")
			}
			return nil, err
		}
	}
	return result, nil
}

func (w *ConfigWizard) warehouseStep(result *WizardResult) error {
	w.showProgress("Warehouse")
	cfg := result.Config

	current := warehouse.DialectSQLite
	if target, err := warehouse.ParseURL(cfg.Warehouse.URL); err == nil {
		current = target.Dialect.Name
	}

	var kind warehouseAnswers
	err := w.ask([]*survey.Question{{
		Name: "dialect",
		Prompt: &survey.Select{
			Message: "Warehouse engine:",
			Options: []string{
				warehouse.DialectSQLite,
				warehouse.DialectPostgres,
				warehouse.DialectMySQL,
				warehouse.DialectSnowflake,
			},
			Default: current,
			Help:    "sqlite keeps the warehouse in a local file",
		},
	}}, &kind)
	if err != nil {
		return err
	}

	if kind.Dialect == warehouse.DialectSQLite {
		defaultPath := "warehouse/fintech.db"
		if target, err := warehouse.ParseURL(cfg.Warehouse.URL); err == nil && target.Path != "" {
			defaultPath = target.Path
		}
		var answers sqliteAnswers
		err := w.ask([]*survey.Question{{
			Name:     "path",
			Prompt:   &survey.Input{Message: "Database file:", Default: defaultPath},
			Validate: survey.Required,
		}}, &answers)
		if err != nil {
			return err
		}
		cfg.Warehouse.URL = "sqlite://" + strings.TrimSpace(answers.Path)
		cfg.Warehouse.Credential = ""
		return nil
	}

	credential := cfg.Warehouse.Credential
	if credential == "" {
		credential = "warehouse"
	}
	var answers serverAnswers
	err = w.ask([]*survey.Question{
		{
			Name: "url",
			Prompt: &survey.Input{
				Message: "Warehouse URL:",
				Help:    serverURLHelp(kind.Dialect),
			},
			Validate: survey.ComposeValidators(survey.Required, dialectValidator(kind.Dialect)),
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
				Help:    "Stored in the credential store, never in the config file",
			},
		},
		{
			Name:     "credential",
			Prompt:   &survey.Input{Message: "Credential name:", Default: credential},
			Validate: survey.Required,
		},
	}, &answers)
	if err != nil {
		return err
	}

	cfg.Warehouse.URL = strings.TrimSpace(answers.URL)
	if answers.Password != "" {
		cfg.Warehouse.Credential = answers.Credential
		result.Password = answers.Password
	}
	return nil
}

func serverURLHelp(dialect string) string {
	switch dialect {
	case warehouse.DialectPostgres:
		return "e.g. postgres://etl@localhost:5432/fintech"
	case warehouse.DialectMySQL:
		return "e.g. mysql://etl@localhost:3306/fintech"
	default:
		return "e.g. snowflake://etl@xy12345.us-east-1/FINTECH/PUBLIC?warehouse=COMPUTE_WH"
	}
}

func dialectValidator(dialect string) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected text")
		}
		target, err := warehouse.ParseURL(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		if target.Dialect.Name != dialect {
			return fmt.Errorf("URL is for %s, not %s", target.Dialect.Name, dialect)
		}
		return nil
	}
}

func (w *ConfigWizard) pipelineStep(result *WizardResult) error {
	w.showProgress("Pipeline")
	cfg := result.Config

	var answers pipelineAnswers
	err := w.ask([]*survey.Question{
		{
			Name: "upsert",
			Prompt: &survey.Select{
				Message: "Upsert strategy:",
				Options: []string{config.UpsertAuto, config.UpsertNative, config.UpsertDeleteInsert},
				Default: cfg.Warehouse.UpsertStrategy,
				Help:    "auto uses the engine's native upsert when it has one",
			},
		},
		{
			Name: "validation",
			Prompt: &survey.Select{
				Message: "Transaction validation:",
				Options: []string{config.ValidationSample, config.ValidationFull},
				Default: cfg.Validation.Mode,
				Help:    "sample checks the first rows only; full checks every row",
			},
		},
		{
			Name: "fee_rate",
			Prompt: &survey.Input{
				Message: "Fee rate on settled GMV:",
				Default: strconv.FormatFloat(cfg.KPI.FeeRate, 'f', -1, 64),
			},
			Validate: validateFeeRate,
		},
	}, &answers)
	if err != nil {
		return err
	}

	cfg.Warehouse.UpsertStrategy = answers.Upsert
	cfg.Validation.Mode = answers.Validation
	rate, err := parseFeeRate(answers.FeeRate)
	if err != nil {
		return err
	}
	cfg.KPI.FeeRate = rate
	return nil
}

func parseFeeRate(s string) (float64, error) {
	rate, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.ValidationError("kpi.fee_rate", s, "not a number")
	}
	if rate < 0 {
		return 0, errors.ValidationError("kpi.fee_rate", s, "must not be negative")
	}
	return rate, nil
}

func validateFeeRate(ans interface{}) error {
	s, _ := ans.(string)
	_, err := parseFeeRate(s)
	return err
}

func (w *ConfigWizard) loggingStep(result *WizardResult) error {
	w.showProgress("Logging")
	cfg := result.Config

	var answers loggingAnswers
	err := w.ask([]*survey.Question{
		{
			Name: "level",
			Prompt: &survey.Select{
				Message: "Log level:",
				Options: []string{"debug", "info", "warn", "error"},
				Default: cfg.Log.Level,
			},
		},
		{
			Name:   "pretty",
			Prompt: &survey.Confirm{Message: "Pretty-print JSON log lines?", Default: cfg.Log.Pretty},
		},
	}, &answers)
	if err != nil {
		return err
	}

	cfg.Log.Level = answers.Level
	cfg.Log.Pretty = answers.Pretty
	return nil
}

func (w *ConfigWizard) reviewStep(result *WizardResult) error {
	w.showProgress("Review")
	cfg := result.Config

	fmt.Fprintf(w.out, "  %s %s\n", ColorDim("Warehouse:  "), redactedURL(cfg.Warehouse.URL))
	fmt.Fprintf(w.out, "  %s %s\n", ColorDim("Upsert:     "), cfg.Warehouse.UpsertStrategy)
	fmt.Fprintf(w.out, "  %s %s\n", ColorDim("Validation: "), cfg.Validation.Mode)
	fmt.Fprintf(w.out, "  %s %g\n", ColorDim("Fee rate:   "), cfg.KPI.FeeRate)
	fmt.Fprintf(w.out, "  %s %s\n", ColorDim("Log level:  "), cfg.Log.Level)
	if cfg.Warehouse.Credential != "" {
		fmt.Fprintf(w.out, "  %s %s\n", ColorDim("Credential: "), cfg.Warehouse.Credential)
	}
	fmt.Fprintln(w.out)

	if err := cfg.Validate(); err != nil {
		return err
	}

	var answers reviewAnswers
	err := w.ask([]*survey.Question{{
		Name:   "save",
		Prompt: &survey.Confirm{Message: "Save this configuration?", Default: true},
	}}, &answers)
	if err != nil {
		return err
	}
	if !answers.Save {
		return errors.New(errors.ErrCodeInvalidInput, "Configuration cancelled")
	}
	return nil
}

func redactedURL(raw string) string {
	target, err := warehouse.ParseURL(raw)
	if err != nil {
		return raw
	}
	return target.Redacted()
}

func (w *ConfigWizard) showProgress(step string) {
	fmt.Fprintf(w.out, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress(">"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
	w.currentStep++
}
