// Package config loads goodthings settings from a YAML file and GOODTHINGS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/japaniel/goodthings/pkg/notion"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. GOODTHINGS_NOTION_TOKEN.
const EnvPrefix = "GOODTHINGS"

// Config is read once at startup and passed down; nothing below the CLI
// reads the environment.
type Config struct {
	UserID     string           `mapstructure:"user_id"`
	Notion     NotionConfig     `mapstructure:"notion"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Output     OutputConfig     `mapstructure:"output"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type NotionConfig struct {
	Token          string        `mapstructure:"token"`
	DatabaseID     string        `mapstructure:"database_id"`
	BaseURL        string        `mapstructure:"base_url"`
	DateProperty   string        `mapstructure:"date_property"`
	TextProperties []string      `mapstructure:"text_properties"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// AuthConfig identifies the user through a Supabase access token.
type AuthConfig struct {
	AccessToken string `mapstructure:"access_token"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	Audience    string `mapstructure:"audience"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 or pgx
	DSN    string `mapstructure:"dsn"`
}

type DictionaryConfig struct {
	System        string   `mapstructure:"system"`     // "ipa" or a kagome dictionary zip
	SystemURL     string   `mapstructure:"system_url"` // download source when System is missing
	Compiler      string   `mapstructure:"compiler"`   // empty: in-process kagome compiler
	CompilerArgs  []string `mapstructure:"compiler_args"`
	ScratchDir    string   `mapstructure:"scratch_dir"`
	CacheSize     int      `mapstructure:"cache_size"`
	StopWordsFile string   `mapstructure:"stop_words_file"`
	EntriesFile   string   `mapstructure:"entries_file"`
	EntriesHeader bool     `mapstructure:"entries_header"`
	// Source is "database" or "files".
	Source string `mapstructure:"source"`
}

type PipelineConfig struct {
	TopN        int           `mapstructure:"top_n"`
	RecentLimit int           `mapstructure:"recent_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type OutputConfig struct {
	JSON bool   `mapstructure:"json"`
	Dir  string `mapstructure:"dir"`
}

type SheetsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ServiceAccountPath string `mapstructure:"service_account_path"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SheetName          string `mapstructure:"sheet_name"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Lexicon sources.
const (
	SourceDatabase = "database"
	SourceFiles    = "files"
)

// SetDefaults registers every key, which also lets AutomaticEnv see keys that
// have no file value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("user_id", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", notion.DefaultBaseURL)
	v.SetDefault("notion.date_property", notion.DefaultDateProperty)
	v.SetDefault("notion.text_properties", notion.DefaultTextProperties)
	v.SetDefault("notion.timeout", 30*time.Second)
	v.SetDefault("auth.access_token", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "goodthings.db")
	v.SetDefault("dictionary.system", dictionary.BuiltinSystemDictionary)
	v.SetDefault("dictionary.system_url", "")
	v.SetDefault("dictionary.compiler", "")
	v.SetDefault("dictionary.compiler_args", []string{})
	v.SetDefault("dictionary.scratch_dir", "")
	v.SetDefault("dictionary.cache_size", 4)
	v.SetDefault("dictionary.stop_words_file", "custom_dict/stop_words.txt")
	v.SetDefault("dictionary.entries_file", "custom_dict/user_entry.csv")
	v.SetDefault("dictionary.entries_header", true)
	v.SetDefault("dictionary.source", SourceDatabase)
	v.SetDefault("pipeline.top_n", 5)
	v.SetDefault("pipeline.recent_limit", 30)
	v.SetDefault("pipeline.timeout", 2*time.Minute)
	v.SetDefault("output.json", false)
	v.SetDefault("output.dir", "output")
	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.service_account_path", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "")
	v.SetDefault("schedule.cron", "0 6 1 * *")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration into a Config. path names an explicit file, which
// must exist; otherwise ./goodthings.yaml is used when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Variable names used by earlier deployments.
	_ = v.BindEnv("notion.token", EnvPrefix+"_NOTION_TOKEN", "NOTION_TOKEN")
	_ = v.BindEnv("notion.database_id", EnvPrefix+"_NOTION_DATABASE_ID", "DATABASE_ID")
	_ = v.BindEnv("user_id", EnvPrefix+"_USER_ID", "USER_ID")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("goodthings")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that do not depend on which command runs. Missing
// credentials are reported by the components that need them.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return apperr.Configurationf("database.driver", "unsupported driver %q (want sqlite3 or pgx)", c.Database.Driver)
	}
	switch c.Dictionary.Source {
	case SourceDatabase, SourceFiles:
	default:
		return apperr.Configurationf("dictionary.source", "unsupported source %q (want %s or %s)", c.Dictionary.Source, SourceDatabase, SourceFiles)
	}
	if c.Pipeline.TopN < 0 {
		return apperr.Configurationf("pipeline.top_n", "must not be negative, got %d", c.Pipeline.TopN)
	}
	if c.Pipeline.RecentLimit <= 0 || c.Pipeline.RecentLimit > 100 {
		return apperr.Configurationf("pipeline.recent_limit", "must be between 1 and 100, got %d", c.Pipeline.RecentLimit)
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetID == "" {
		return apperr.Configurationf("sheets.spreadsheet_id", "sheets output is enabled but no spreadsheet id is set")
	}
	return nil
}
