package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show recent analyses",
	Long: `List recent analyses, newest first, or show one analysis in full.

History is kept in ~/.finsight/data/history.db unless disabled in settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of analyses to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	if len(args) == 1 {
		rec, err := rt.Analysis.Get(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("analysis %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get analysis: %w", err)
		}
		if historyJSON {
			return printJSON(cmd, rec)
		}
		cmd.Printf("%s  %s\n\n", rec.Request.Kind, inputPreview(rec.Request, 80))
		cmd.Print(renderAnalysis(rec))
		return nil
	}

	records, err := rt.Analysis.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No analyses yet. Run 'finsight analyze' to create one.")
		return nil
	}
	for i := range records {
		cmd.Println(renderHistoryRow(&records[i]))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
