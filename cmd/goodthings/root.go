package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/charmbracelet/lipgloss"
	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/config"
	"github.com/japaniel/goodthings/pkg/db"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/japaniel/goodthings/pkg/identity"
	"github.com/japaniel/goodthings/pkg/logging"
	"github.com/japaniel/goodthings/pkg/notion"
	"github.com/japaniel/goodthings/pkg/pipeline"
	"github.com/japaniel/goodthings/pkg/report"
	"github.com/japaniel/goodthings/pkg/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// app carries what every command needs once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	errOut  io.Writer

	// analyzers lives for the whole process so scheduled runs reuse
	// analyzers for an unchanged dictionary.
	analyzers *analyser.Cache
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "goodthings [YYYY-MM]",
		Short: "Rank the words you wrote most in your good-things journal",
		Long: `goodthings reads the "good things" journal kept in a Notion database,
counts the nouns written in a month and keeps the most frequent ones.

Without an argument the newest 30 entries are analysed.`,
		Version:           version,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalysis(cmd.Context(), args, runOptions{})
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./goodthings.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		a.runCmd(),
		a.scheduleCmd(),
		a.historyCmd(),
		a.stopWordsCmd(),
		a.dictCmd(),
		a.migrateCmd(),
	)
	return root
}

func (a *app) loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(a.errOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) userID() (string, error) {
	return identity.Resolve(identity.Source{
		UserID:      a.cfg.UserID,
		AccessToken: a.cfg.Auth.AccessToken,
		JWTSecret:   a.cfg.Auth.JWTSecret,
		Audience:    a.cfg.Auth.Audience,
	})
}

// openStore connects and brings the schema up to date.
func (a *app) openStore(ctx context.Context) (*db.Store, error) {
	store, err := db.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if n, err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	} else if n > 0 {
		a.logger.Info("applied database migrations", "count", n)
	}
	return store, nil
}

func (a *app) analyzerCache() (*analyser.Cache, error) {
	if a.analyzers == nil {
		c, err := analyser.NewCache(a.cfg.Dictionary.CacheSize)
		if err != nil {
			return nil, err
		}
		a.analyzers = c
	}
	return a.analyzers, nil
}

// newPipeline wires the configured stages. The caller owns store.
func (a *app) newPipeline(ctx context.Context, store *db.Store, topN int) (*pipeline.Pipeline, error) {
	cfg := a.cfg

	if err := dictionary.EnsureSystemDictionary(ctx, cfg.Dictionary.System, cfg.Dictionary.SystemURL, a.logger); err != nil {
		return nil, err
	}

	collector := notion.NewCollector()
	collector.BaseURL = cfg.Notion.BaseURL
	collector.DateProperty = cfg.Notion.DateProperty
	collector.TextProperties = cfg.Notion.TextProperties
	collector.Logger = a.logger
	if cfg.Notion.Timeout > 0 {
		collector.HTTPClient = &http.Client{Timeout: cfg.Notion.Timeout}
	}

	var compiler dictionary.Compiler
	if cfg.Dictionary.Compiler != "" {
		compiler = dictionary.ExecCompiler{Command: cfg.Dictionary.Compiler, Args: cfg.Dictionary.CompilerArgs}
	}
	builder := dictionary.NewBuilder(cfg.Dictionary.ScratchDir, compiler)
	builder.Logger = a.logger

	cache, err := a.analyzerCache()
	if err != nil {
		return nil, err
	}

	var lexicon pipeline.Lexicon = store
	if cfg.Dictionary.Source == config.SourceFiles {
		lexicon = dictionary.FileLexicon{
			StopWordsPath: cfg.Dictionary.StopWordsFile,
			EntriesPath:   cfg.Dictionary.EntriesFile,
			EntriesHeader: cfg.Dictionary.EntriesHeader,
		}
	}

	persisters := []pipeline.Persister{store}
	if cfg.Output.JSON {
		persisters = append(persisters, report.JSONWriter{Dir: cfg.Output.Dir})
	}
	if cfg.Sheets.Enabled {
		w, err := sheets.NewWriter(ctx, sheets.Config{
			ServiceAccountPath: cfg.Sheets.ServiceAccountPath,
			SpreadsheetID:      cfg.Sheets.SpreadsheetID,
			SheetName:          cfg.Sheets.SheetName,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		persisters = append(persisters, w)
	}

	if topN <= 0 {
		topN = cfg.Pipeline.TopN
	}
	return &pipeline.Pipeline{
		Collector:  collector,
		Lexicon:    lexicon,
		Builder:    builder,
		Analyzers:  cache,
		Persisters: persisters,
		Settings: pipeline.Settings{
			Credentials:      notion.Credentials{Token: cfg.Notion.Token},
			SourceID:         cfg.Notion.DatabaseID,
			SystemDictionary: cfg.Dictionary.System,
			TopN:             topN,
			Timeout:          cfg.Pipeline.Timeout,
		},
		Logger: a.logger,
	}, nil
}
