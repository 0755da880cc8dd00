package cmd

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reviewsim/reviewsim/sim/devproc"
	"github.com/reviewsim/reviewsim/sim/trace"
)

// oneYear is the default horizon: 365 days of one-minute ticks.
const oneYear = 365 * 24 * 60

var (
	configPath string // YAML or TOML config file
	seed       int64  // overrides the config seed when set
	horizon    int64  // simulation horizon in ticks
	policy     string // overrides the config policy when set
	logLevel   string // log verbosity
	traceLevel string // decision trace level
)

// envOverrides are read from the environment before flags are applied.
// An explicitly set flag always wins.
type envOverrides struct {
	LogLevel   string `env:"REVIEWSIM_LOG"`
	TraceLevel string `env:"REVIEWSIM_TRACE"`
	ConfigPath string `env:"REVIEWSIM_CONFIG"`
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "reviewsim",
	Short: "Discrete-event simulator comparing pre-commit and post-commit code review",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyEnv(cmd); err != nil {
			return err
		}
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)
		if !trace.IsValidTraceLevel(traceLevel) {
			return fmt.Errorf("invalid trace level %q", traceLevel)
		}
		return nil
	},
	SilenceUsage: true,
}

// applyEnv copies environment overrides into flags the user did not set.
func applyEnv(cmd *cobra.Command) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	flags := cmd.Flags()
	if e.LogLevel != "" && !flags.Changed("log") {
		logLevel = e.LogLevel
	}
	if e.TraceLevel != "" && !flags.Changed("trace") {
		traceLevel = e.TraceLevel
	}
	if e.ConfigPath != "" && !flags.Changed("config") {
		configPath = e.ConfigPath
	}
	return nil
}

// loadConfig reads the config file (or the defaults) and applies flag overrides.
func loadConfig(cmd *cobra.Command) (devproc.Config, error) {
	cfg := devproc.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = devproc.LoadConfig(configPath); err != nil {
			return cfg, err
		}
		logrus.Infof("loaded config from %s", configPath)
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("policy") {
		cfg.Policy = devproc.Policy(policy)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	pf.StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")

	for _, c := range []*cobra.Command{runCmd, compareCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file (defaults are used when empty)")
		c.Flags().Int64Var(&seed, "seed", 42, "Master seed; overrides the config file")
		c.Flags().Int64Var(&horizon, "horizon", oneYear, "Simulation horizon in ticks (one tick is one minute)")
	}
	runCmd.Flags().StringVar(&policy, "policy", string(devproc.PreCommit), "Review policy (pre-commit, post-commit); overrides the config file")

	rootCmd.AddCommand(runCmd, compareCmd, configCmd)
}
