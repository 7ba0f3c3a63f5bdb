package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/nkessler2000/sentiment-analysis/lib/configutil"
	"github.com/nkessler2000/sentiment-analysis/lib/fetch"
	"github.com/nkessler2000/sentiment-analysis/lib/osutil"
	"github.com/nkessler2000/sentiment-analysis/lib/telemetry"
	"github.com/nkessler2000/sentiment-analysis/services/bookdata/db"
	"github.com/nkessler2000/sentiment-analysis/services/catalog"
	"github.com/nkessler2000/sentiment-analysis/services/features"
	"github.com/nkessler2000/sentiment-analysis/services/pipeline"
	"github.com/nkessler2000/sentiment-analysis/services/reviews"

	"github.com/spf13/cobra"
)

type CrawlerConfig struct {
	BaseUrl           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	Retries           int     `json:"retries"`
	BackoffSeconds    int     `json:"backoff_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	ShelfThreshold    int64   `json:"shelf_threshold"`
	MaxReviewsPerBook int64   `json:"max_reviews_per_book"`
	FailureLog        string  `json:"failure_log"`
	DebugDumpDir      string  `json:"debug_dump_dir"`
}

type LexiconConfig struct {
	Afinn        string `json:"afinn"`
	BingPositive string `json:"bing_positive"`
	BingNegative string `json:"bing_negative"`
	Mpqa         string `json:"mpqa"`
	Inquirer     string `json:"inquirer"`
}

type Config struct {
	Database        string        `json:"database"`
	Crawler         CrawlerConfig `json:"crawler"`
	Lexicons        LexiconConfig `json:"lexicons"`
	MinTokens       int           `json:"min_tokens"`
	CleanMinReviews int64         `json:"clean_min_reviews"`
}

var configPath string

var state struct {
	telemetry telemetry.Telemetry
	database  *sql.DB
	catalog   catalog.Service
	reviews   reviews.Service
	pipeline  pipeline.Pipeline
	lexicons  pipeline.LexiconFiles
}

var rootCmd = &cobra.Command{
	Use:          "grsentiment",
	Short:        "grsentiment crawls book metadata and reviews and derives per-review sentiment features.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configutil.ReadConfig[Config](configPath)
		if err != nil {
			return fmt.Errorf("read config %q: %w", configPath, err)
		}

		state.telemetry, err = telemetry.Setup(cmd.Context(), "grsentiment")
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}

		if cfg.Database == "" {
			cfg.Database = "books.db"
		}
		state.database, err = db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database %q: %w", cfg.Database, err)
		}

		fetcher := fetch.NewClient(fetch.Options{
			UserAgent:         cfg.Crawler.UserAgent,
			Timeout:           time.Duration(cfg.Crawler.TimeoutSeconds) * time.Second,
			Retries:           cfg.Crawler.Retries,
			Backoff:           time.Duration(cfg.Crawler.BackoffSeconds) * time.Second,
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			DebugDir:          cfg.Crawler.DebugDumpDir,
		})

		state.catalog = catalog.NewService(state.database, fetcher, catalog.Options{
			BaseURL:        cfg.Crawler.BaseUrl,
			ShelfThreshold: cfg.Crawler.ShelfThreshold,
		})
		state.reviews = reviews.NewService(state.database, fetcher, reviews.Options{
			BaseURL:    cfg.Crawler.BaseUrl,
			MaxPerBook: cfg.Crawler.MaxReviewsPerBook,
			FailureLog: cfg.Crawler.FailureLog,
		})
		feat := features.NewService(state.database, features.Options{
			MinTokens: cfg.MinTokens,
		})
		state.pipeline = pipeline.New(state.database, state.catalog, state.reviews, feat, pipeline.Options{
			CleanMinReviews: cfg.CleanMinReviews,
		})
		state.lexicons = pipeline.LexiconFiles{
			Afinn:        cfg.Lexicons.Afinn,
			BingPositive: cfg.Lexicons.BingPositive,
			BingNegative: cfg.Lexicons.BingNegative,
			Mpqa:         cfg.Lexicons.Mpqa,
			Inquirer:     cfg.Lexicons.Inquirer,
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if state.database != nil {
			state.database.Close()
		}
		return state.telemetry.Shutdown(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the json5 config file")
}

func Execute() {
	if err := rootCmd.ExecuteContext(osutil.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
