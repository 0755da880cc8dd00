package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/reviewsim/reviewsim/sim/devproc"
)

var configAsTOML bool

// configCmd prints the default configuration as a starting point for a config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := devproc.EncodeConfig(devproc.DefaultConfig(), configAsTOML)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	configCmd.Flags().BoolVar(&configAsTOML, "toml", false, "Print TOML instead of YAML")
}
