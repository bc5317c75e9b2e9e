package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mcaveniathor/fema-web-declaration/pkg/client"
	"github.com/mcaveniathor/fema-web-declaration/pkg/config"
	"github.com/mcaveniathor/fema-web-declaration/pkg/export"
	"github.com/mcaveniathor/fema-web-declaration/pkg/logging"
	"github.com/mcaveniathor/fema-web-declaration/pkg/openfema"
	"github.com/mcaveniathor/fema-web-declaration/pkg/pagination"
)

var (
	flagConfig  string
	flagDebug   bool
	flagYears   int
	flagOutput  string
	flagWorkers int
	flagRedis   string
	flagLogFile string
	flagBaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "fema-web-declaration",
	Short: "Export recent FEMA disaster declaration areas to CSV",
	Long: `fema-web-declaration retrieves declaration-area records from the
OpenFEMA Web Declaration Areas API, filtered to declarations designated
within the last N years that have not been closed out, and exports the
collected records to a CSV file.

Settings are read from a YAML file in the platform user config directory
(created with defaults on first run); command-line flags override it.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to config file (default: platform config dir)")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.Flags().IntVar(&flagYears, "years", 0, "Number of previous years to include (overrides config)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "CSV output path (overrides config; empty skips export)")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 1, "Concurrent page fetches after the first page")
	rootCmd.Flags().StringVar(&flagRedis, "redis", "", "Redis address enabling the page cache (e.g. localhost:6379)")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Duplicate log output to this file")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", openfema.BaseURL, "Override the API base URL")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = flagDebug
	}
	if cmd.Flags().Changed("years") {
		cfg.NumYearsPrevious = flagYears
	}
	if cmd.Flags().Changed("output") {
		cfg.CSV = flagOutput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}
	logCfg.File = flagLogFile
	logger, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	logger.Info().Msg("Started logger")

	cutoff := cfg.Cutoff(time.Now().UTC())
	logger.Info().Time("cutoff", cutoff).Msg("Filtering for dates after cutoff")
	logger.Debug().Str("base_url", flagBaseURL).Msg("Base URL")

	ctx := context.Background()

	clientCfg := client.DefaultConfig()
	if flagRedis != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: flagRedis})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis %s: %w", flagRedis, err)
		}
		defer redisClient.Close()
		clientCfg.Redis = redisClient
		logger.Info().Str("addr", flagRedis).Msg("Page cache enabled")
	}

	apiClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	collector, err := pagination.NewCollector(apiClient, pagination.Config{
		BaseURL: flagBaseURL,
		Query:   openfema.Query(cutoff),
		Workers: flagWorkers,
	})
	if err != nil {
		return fmt.Errorf("create collector: %w", err)
	}

	areas, err := collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect declaration areas: %w", err)
	}
	logger.Info().Int("count", len(areas)).Msg("Number of results collected")

	if cfg.CSV == "" {
		logger.Info().Msg("No CSV path configured, skipping export")
		return nil
	}

	if err := export.NewCSV(cfg.CSV).Export(areas); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
