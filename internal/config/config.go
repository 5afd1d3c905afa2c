package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "fintechbi/pkg/errors"
)

const (
	// EnvPrefix prefixes every environment override, e.g. FINTECHBI_WAREHOUSE_URL
	EnvPrefix = "FINTECHBI"
	// EnvConfigFile points at an explicit config file
	EnvConfigFile = "FINTECHBI_CONFIG"

	dirPermission  = 0700
	filePermission = 0600
)

// Upsert strategies
const (
	UpsertAuto         = "auto"
	UpsertNative       = "native"
	UpsertDeleteInsert = "delete_insert"
)

// Validation modes
const (
	ValidationSample = "sample"
	ValidationFull   = "full"
)

// Config is the full runtime configuration of the pipeline.
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse" mapstructure:"warehouse"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Synth      SynthConfig      `yaml:"synth" mapstructure:"synth"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	KPI        KPIConfig        `yaml:"kpi" mapstructure:"kpi"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
}

// WarehouseConfig locates the warehouse and selects the load strategy.
type WarehouseConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	UpsertStrategy string `yaml:"upsert_strategy" mapstructure:"upsert_strategy"`
	// Credential names a credential store entry holding the password when
	// the URL does not carry one.
	Credential string `yaml:"credential,omitempty" mapstructure:"credential"`
}

// SourcesConfig holds the raw input locations.
type SourcesConfig struct {
	TransactionsCSV string `yaml:"transactions_csv" mapstructure:"transactions_csv"`
	UsersJSON       string `yaml:"users_json" mapstructure:"users_json"`
	ProductsCSV     string `yaml:"products_csv" mapstructure:"products_csv"`
}

// SynthConfig configures the synthetic data generator.
type SynthConfig struct {
	Users     int    `yaml:"users" mapstructure:"users"`
	Products  int    `yaml:"products" mapstructure:"products"`
	Txns      int    `yaml:"txns" mapstructure:"txns"`
	StartDate string `yaml:"start_date" mapstructure:"start_date"`
	Days      int    `yaml:"days" mapstructure:"days"`
	RawDir    string `yaml:"raw_dir" mapstructure:"raw_dir"`
	RefDir    string `yaml:"ref_dir" mapstructure:"ref_dir"`
	Seed      uint64 `yaml:"seed" mapstructure:"seed"`
}

// ValidationConfig controls the transaction schema check.
type ValidationConfig struct {
	Mode       string `yaml:"mode" mapstructure:"mode"`
	SampleSize int    `yaml:"sample_size" mapstructure:"sample_size"`
}

// KPIConfig holds business constants used by the KPI views.
type KPIConfig struct {
	FeeRate float64 `yaml:"fee_rate" mapstructure:"fee_rate"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// MetricsConfig configures the metrics textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"`
}

// Default returns the configuration used when nothing overrides it. Paths
// are relative to the working directory.
func Default() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			URL:            "sqlite://" + filepath.Join("warehouse", "fintech.db"),
			UpsertStrategy: UpsertAuto,
		},
		Sources: SourcesConfig{
			TransactionsCSV: filepath.Join("data", "raw", "transactions.csv"),
			UsersJSON:       filepath.Join("data", "raw", "users.json"),
			ProductsCSV:     filepath.Join("data", "reference", "products.csv"),
		},
		Synth: SynthConfig{
			Users:     50000,
			Products:  25,
			Txns:      200000,
			StartDate: "2025-07-01",
			Days:      45,
			RawDir:    filepath.Join("data", "raw"),
			RefDir:    filepath.Join("data", "reference"),
			Seed:      42,
		},
		Validation: ValidationConfig{
			Mode:       ValidationSample,
			SampleSize: 5,
		},
		KPI: KPIConfig{
			FeeRate: 0.0125,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers every default with v so env and flags can override
// keys that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("warehouse.url", d.Warehouse.URL)
	v.SetDefault("warehouse.upsert_strategy", d.Warehouse.UpsertStrategy)
	v.SetDefault("warehouse.credential", d.Warehouse.Credential)
	v.SetDefault("sources.transactions_csv", d.Sources.TransactionsCSV)
	v.SetDefault("sources.users_json", d.Sources.UsersJSON)
	v.SetDefault("sources.products_csv", d.Sources.ProductsCSV)
	v.SetDefault("synth.users", d.Synth.Users)
	v.SetDefault("synth.products", d.Synth.Products)
	v.SetDefault("synth.txns", d.Synth.Txns)
	v.SetDefault("synth.start_date", d.Synth.StartDate)
	v.SetDefault("synth.days", d.Synth.Days)
	v.SetDefault("synth.raw_dir", d.Synth.RawDir)
	v.SetDefault("synth.ref_dir", d.Synth.RefDir)
	v.SetDefault("synth.seed", d.Synth.Seed)
	v.SetDefault("validation.mode", d.Validation.Mode)
	v.SetDefault("validation.sample_size", d.Validation.SampleSize)
	v.SetDefault("kpi.fee_rate", d.KPI.FeeRate)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Configure prepares v for lookup: defaults, env overrides and config file
// search paths. An explicit file wins over the search paths.
func Configure(v *viper.Viper, explicitFile string) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitFile == "" {
		explicitFile = os.Getenv(EnvConfigFile)
	}
	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
		return
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(GetConfigPath())
}

// Load reads the config file if one is found and decodes the merged view.
// A missing file is not an error; an explicit file that cannot be read is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigNotFound, "Failed to read config file").
				WithContext("file", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Warehouse.URL) == "" {
		return apperrors.ConfigError("Warehouse URL is required", "warehouse.url")
	}

	switch c.Warehouse.UpsertStrategy {
	case UpsertAuto, UpsertNative, UpsertDeleteInsert:
	default:
		return apperrors.ConfigError(
			fmt.Sprintf("Unknown upsert strategy %q", c.Warehouse.UpsertStrategy),
			"warehouse.upsert_strategy",
		)
	}

	switch c.Validation.Mode {
	case ValidationSample, ValidationFull:
	default:
		return apperrors.ConfigError(
			fmt.Sprintf("Unknown validation mode %q", c.Validation.Mode),
			"validation.mode",
		)
	}

	if c.Validation.Mode == ValidationSample && c.Validation.SampleSize <= 0 {
		return apperrors.ConfigError("Sample size must be positive", "validation.sample_size")
	}

	if c.KPI.FeeRate < 0 {
		return apperrors.ConfigError("Fee rate must not be negative", "kpi.fee_rate")
	}

	return nil
}

// GetConfigPath returns the per-user configuration directory
func GetConfigPath() string {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fintechbi")
}

// GetConfigFile returns the per-user configuration file
func GetConfigFile() string {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

var marshalYAML = yaml.Marshal

// Save writes cfg as YAML to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermission); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFileOperation, "Failed to create config directory")
	}

	data, err := marshalYAML(cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encode configuration")
	}

	if err := os.WriteFile(path, data, filePermission); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFileOperation, "Failed to write config file").
			WithContext("file", path)
	}

	return nil
}

// Exists reports whether the per-user configuration file exists
func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}
