package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewsim/reviewsim/sim/devproc"
	"github.com/reviewsim/reviewsim/sim/trace"
)

// newTestCommand binds fresh flags to the package-level option variables,
// resetting them to their defaults.
func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().StringVar(&logLevel, "log", "warn", "")
	c.Flags().StringVar(&traceLevel, "trace", "none", "")
	c.Flags().StringVar(&configPath, "config", "", "")
	c.Flags().Int64Var(&seed, "seed", 42, "")
	c.Flags().StringVar(&policy, "policy", string(devproc.PreCommit), "")
	return c
}

func TestApplyEnv_FillsUnsetFlags(t *testing.T) {
	// GIVEN environment overrides and no explicit flags
	t.Setenv("REVIEWSIM_LOG", "debug")
	t.Setenv("REVIEWSIM_TRACE", "decisions")
	t.Setenv("REVIEWSIM_CONFIG", "team.yaml")
	c := newTestCommand(t)

	// WHEN the environment is applied
	require.NoError(t, applyEnv(c))

	// THEN every option takes its environment value
	assert.Equal(t, "debug", logLevel)
	assert.Equal(t, "decisions", traceLevel)
	assert.Equal(t, "team.yaml", configPath)
}

func TestApplyEnv_ExplicitFlagWins(t *testing.T) {
	// GIVEN an environment log level and an explicit --log flag
	t.Setenv("REVIEWSIM_LOG", "debug")
	c := newTestCommand(t)
	require.NoError(t, c.Flags().Set("log", "error"))

	// WHEN the environment is applied
	require.NoError(t, applyEnv(c))

	// THEN the flag is kept
	assert.Equal(t, "error", logLevel)
}

func TestLoadConfig_SeedFlagOverridesFile(t *testing.T) {
	// GIVEN a config file with its own seed and policy
	path := filepath.Join(t.TempDir(), "team.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 1\npolicy: post-commit\n"), 0o644))
	c := newTestCommand(t)
	require.NoError(t, c.Flags().Set("config", path))
	require.NoError(t, c.Flags().Set("seed", "99"))

	// WHEN the configuration is assembled
	cfg, err := loadConfig(c)

	// THEN the explicit seed wins and the unset policy flag leaves the file value
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, devproc.PostCommit, cfg.Policy)
}

func TestLoadConfig_InvalidPolicyFlag_ReturnsError(t *testing.T) {
	c := newTestCommand(t)
	require.NoError(t, c.Flags().Set("policy", "pair-programming"))

	_, err := loadConfig(c)

	assert.ErrorContains(t, err, "unknown policy")
}

func TestLoadConfig_NoFile_UsesDefaults(t *testing.T) {
	c := newTestCommand(t)

	cfg, err := loadConfig(c)

	require.NoError(t, err)
	assert.Equal(t, devproc.DefaultConfig(), cfg)
}

func TestConfigCmd_PrintsDecodableDefaults(t *testing.T) {
	for _, asTOML := range []bool{false, true} {
		// GIVEN the config subcommand
		args := []string{"config"}
		if asTOML {
			args = append(args, "--toml")
		}
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)

		// WHEN it runs
		require.NoError(t, rootCmd.Execute())

		// THEN the output decodes back to the default configuration
		var cfg devproc.Config
		require.NoError(t, devproc.DecodeConfig(buf.Bytes(), asTOML, &cfg))
		assert.Equal(t, devproc.DefaultConfig(), cfg)
	}
	rootCmd.SetOut(nil)
	rootCmd.SetArgs(nil)
}

func TestSimulate_WithTrace_PrintsSummary(t *testing.T) {
	// GIVEN the default configuration and decision tracing
	cfg := devproc.DefaultConfig()

	// WHEN a short run completes
	res, st, err := simulate(cfg, 5000, trace.TraceLevelDecisions)
	require.NoError(t, err)

	// THEN the trace recorded every dispatch and the summary is printed
	require.NotNil(t, st)
	assert.NotEmpty(t, st.Dispatches)
	assert.Equal(t, int64(5000), res.SimEndedTime)
	var buf bytes.Buffer
	printTraceSummary(&buf, st)
	assert.Contains(t, buf.String(), "Decision Trace")
	assert.Contains(t, buf.String(), "new_story")
}

func TestSimulate_WithoutTrace_PrintsNothingExtra(t *testing.T) {
	_, st, err := simulate(devproc.DefaultConfig(), 1000, trace.TraceLevelNone)
	require.NoError(t, err)

	var buf bytes.Buffer
	printTraceSummary(&buf, st)
	assert.Nil(t, st)
	assert.Empty(t, buf.String())
}

func TestPrintComparison_ShowsDeltaPerMetric(t *testing.T) {
	pre := devproc.NewResults(devproc.PreCommit, 1)
	pre.FinishedStoryPoints = 10
	post := devproc.NewResults(devproc.PostCommit, 1)
	post.FinishedStoryPoints = 14

	var buf bytes.Buffer
	printComparison(&buf, pre, post)

	out := buf.String()
	assert.Contains(t, out, "Comparison")
	assert.Contains(t, out, "+4.00")
	assert.Contains(t, out, "Mean review rounds")
}
