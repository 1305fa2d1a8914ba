package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	tellus "github.com/tellusgeo/tellus-go"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	// Global flags
	cfgPath  string
	endpoint string
	token    string
	project  string
	verbose  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tellus",
	Short: "Command-line client for the Tellus geospatial platform",
	Long: `tellus computes spectral indices, renders quicklooks and runs
radiometric normalization against a Tellus deployment.

Connection settings come from ~/.tellus.yaml, TELLUS_* environment
variables, or flags, in that order of increasing precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tellus %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	},
}

// newClient builds a client from config file, environment and flags.
func newClient() (*tellus.Client, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if token != "" {
		cfg.Token = token
	}
	if project != "" {
		cfg.Project = project
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured; set --endpoint, TELLUS_ENDPOINT or ~/.tellus.yaml")
	}
	opts := []tellus.Option{tellus.WithLogger(logger)}
	if cfg.Token != "" {
		opts = append(opts, tellus.WithToken(cfg.Token))
	}
	if cfg.Project != "" {
		opts = append(opts, tellus.WithProject(cfg.Project))
	}
	return tellus.NewClient(cfg.Endpoint, opts...)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.tellus.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "platform endpoint URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token")
	rootCmd.PersistentFlags().StringVar(&project, "project", "", "project for quota accounting")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(thumbCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(algorithmsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
