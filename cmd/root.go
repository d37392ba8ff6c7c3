package cmd

import (
	"errors"
	"fmt"
	"os"

	cfgpkg "github.com/alwiharda/BusinessIntelligence/internal/config"
	"github.com/alwiharda/BusinessIntelligence/internal/dataset"
	"github.com/alwiharda/BusinessIntelligence/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = zap.NewNop()
	// cache is shared by every pipeline built in this process.
	cache = dataset.NewCache()
)

var rootCmd = &cobra.Command{
	Use:   "bizintel",
	Short: "BizIntel: KPIs, rollups and customer segments from CSV/XLSX exports",
	Long: `BizIntel loads a churn or financial export, applies column filters, and reports
headline KPIs, grouped rollups and k-means customer segments as Markdown or JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(currentConfig().LogLevel, debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.bizintel/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so `config set` can repair a bad file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = defaultConfig()
		return
	}
	cfg = c
}

func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		Dataset:         "churn",
		Clusters:        3,
		Seed:            42,
		MaxIter:         300,
		SampleRows:      100,
		LogLevel:        "warn",
		Cache:           true,
		WatchDebounceMs: 300,
	}
}

// currentConfig returns the loaded config, loading it on first use for
// callers that run outside cobra initialization.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

// fileMissingError is the user-facing form of dataset.ErrSourceNotFound.
type fileMissingError struct {
	path string
	err  error
}

func (e *fileMissingError) Error() string { return "file missing: " + e.path }
func (e *fileMissingError) Unwrap() error { return e.err }

func friendlyError(path string, err error) error {
	if errors.Is(err, dataset.ErrSourceNotFound) {
		return &fileMissingError{path: path, err: err}
	}
	return err
}
