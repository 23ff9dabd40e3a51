// Package config loads and validates the pipeline configuration.
//
// Configuration is resolved in three layers: built-in defaults, then an
// optional YAML file, then SALES_* environment variables. The merged result
// is validated before use so a bad deployment fails at startup rather than
// mid-run.
package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "salescli/internal/errors"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SALES"

// ConfigPathEnv names the environment variable pointing at the config file.
const ConfigPathEnv = "SALES_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Files   FilesConfig   `yaml:"files" envconfig:"FILES"`
	Filters FiltersConfig `yaml:"filters" envconfig:"FILTERS"`
	Columns ColumnsConfig `yaml:"columns" envconfig:"COLUMNS"`
	Auth    AuthConfig    `yaml:"auth" envconfig:"AUTH"`
	Notify  NotifyConfig  `yaml:"notify" envconfig:"NOTIFY"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// PathsConfig contains file system locations used by the pipeline
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// FilesConfig names the input extension and output artifacts
type FilesConfig struct {
	InputExtension string `yaml:"input_extension" envconfig:"INPUT_EXTENSION" validate:"required,startswith=."`
	CleanedOutput  string `yaml:"cleaned_output" envconfig:"CLEANED_OUTPUT" validate:"required"`
	ReportOutput   string `yaml:"report_output" envconfig:"REPORT_OUTPUT" validate:"required"`
}

// FiltersConfig contains the row acceptance rules
type FiltersConfig struct {
	ExcludeStatus []string `yaml:"exclude_status" envconfig:"EXCLUDE_STATUS"`
	IncludeStatus []string `yaml:"include_status" envconfig:"INCLUDE_STATUS" validate:"required,min=1"`
	MinQuantity   float64  `yaml:"min_quantity" envconfig:"MIN_QUANTITY" validate:"min=0"`
	MinUnitPrice  float64  `yaml:"min_unit_price" envconfig:"MIN_UNIT_PRICE" validate:"min=0"`
}

// ColumnsConfig maps logical column roles to spreadsheet header names
type ColumnsConfig struct {
	Quantity  string `yaml:"quantity" envconfig:"QUANTITY" validate:"required"`
	UnitPrice string `yaml:"unit_price" envconfig:"UNIT_PRICE" validate:"required"`
	Status    string `yaml:"status" envconfig:"STATUS" validate:"required"`
	Category  string `yaml:"category" envconfig:"CATEGORY" validate:"required"`
	Region    string `yaml:"region" envconfig:"REGION" validate:"required"`
	// OrderID is optional; when empty, deduplication falls back to
	// whole-row comparison and order counts fall back to row counts.
	OrderID string `yaml:"order_id" envconfig:"ORDER_ID"`
	Expense string `yaml:"expense" envconfig:"EXPENSE" validate:"required"`
}

// AuthConfig locates the user directory and names the acting user
type AuthConfig struct {
	UsersFile string `yaml:"users_file" envconfig:"USERS_FILE" validate:"required"`
	Actor     string `yaml:"actor" envconfig:"ACTOR" validate:"required,email"`
}

// NotifyConfig contains email notification settings
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	DryRun   bool   `yaml:"dry_run" envconfig:"DRY_RUN"`
	SMTPHost string `yaml:"smtp_host" envconfig:"SMTP_HOST"`
	SMTPPort int    `yaml:"smtp_port" envconfig:"SMTP_PORT" validate:"min=0,max=65535"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	// Sender defaults to Username when empty.
	Sender string `yaml:"sender" envconfig:"SENDER" validate:"omitempty,email"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format     string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json"`
	Output     string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required"`
	EventsPath string `yaml:"events_path" envconfig:"EVENTS_PATH" validate:"required"`
}

// Default returns the built-in configuration, mirroring the packaged sample.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			InputDir:  "input_data",
			OutputDir: "output_data",
			LogsDir:   "logs",
		},
		Files: FilesConfig{
			InputExtension: ".xlsx",
			CleanedOutput:  "cleaned_master.xlsx",
			ReportOutput:   "summary_report.xlsx",
		},
		Filters: FiltersConfig{
			ExcludeStatus: []string{"Cancelled"},
			IncludeStatus: []string{"Completed"},
			MinQuantity:   1,
			MinUnitPrice:  0.01,
		},
		Columns: ColumnsConfig{
			Quantity:  "Quantity",
			UnitPrice: "UnitPrice",
			Status:    "Status",
			Category:  "Category",
			Region:    "Region",
			OrderID:   "OrderID",
			Expense:   "Expense",
		},
		Auth: AuthConfig{
			UsersFile: "users.json",
			Actor:     "analyst1@example.com",
		},
		Notify: NotifyConfig{
			Enabled:  true,
			DryRun:   true,
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			FilePath:   "logs/app.log",
			EventsPath: "logs/events.jsonl",
		},
	}
}

// Load resolves configuration from defaults, an optional YAML file, and
// SALES_* environment variables, then validates the result.
//
// The file is located from the explicit path argument, then $SALES_CONFIG,
// then ./config.yaml. A missing file is not an error; defaults plus
// environment apply. An explicitly named file that cannot be read is fatal.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, explicit := resolveConfigPath(path)
	if resolved != "" {
		if err := loadFromFile(resolved, cfg); err != nil {
			if explicit || !os.IsNotExist(underlyingCause(err)) {
				return nil, err
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to apply environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath picks the config file location. The second return value
// reports whether the location was requested explicitly (argument or env),
// in which case read failures are fatal.
func resolveConfigPath(path string) (string, bool) {
	if path != "" {
		return path, true
	}
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath, true
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml", false
	}
	return "", false
}

// loadFromFile overlays YAML settings onto cfg. Files saved by Windows
// editors may carry a UTF-8 byte order mark; it is stripped before parsing.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", filePath), err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewParsingError(fmt.Sprintf("failed to parse config file %s", filePath), err)
	}

	return nil
}

// Validate checks the merged configuration. Missing required keys are
// reported together as section.key names so a broken file can be fixed in
// one pass.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their yaml names so diagnostics match the file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigError("config validation failed", err)
	}

	var missing []string
	var invalid []string
	for _, fe := range validationErrs {
		key := yamlPath(fe)
		if fe.Tag() == "required" || fe.Tag() == "min" && fe.Kind() == reflect.Slice {
			missing = append(missing, key)
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", key, fe.Tag()))
		}
	}

	if len(missing) > 0 {
		return apperrors.NewConfigError(
			fmt.Sprintf("missing config: %s", strings.Join(missing, ", ")), nil).
			WithContext("missing", missing)
	}
	return apperrors.NewConfigError(
		fmt.Sprintf("invalid config: %s", strings.Join(invalid, ", ")), nil)
}

// yamlPath strips the root struct segment from a field namespace, leaving
// the familiar section.key form.
func yamlPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

// underlyingCause unwraps an AppError to its root cause for os error checks.
func underlyingCause(err error) error {
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Cause != nil {
		return appErr.Cause
	}
	return err
}
