package cli

import (
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline statistics",
	Long:  `Show the models, chunking parameters and vector index size in use.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	stats := rt.Analysis.Stats()
	if statsJSON {
		return printJSON(cmd, stats)
	}
	cmd.Print(renderStats(stats))
	return nil
}
