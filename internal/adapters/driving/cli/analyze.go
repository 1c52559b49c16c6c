package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

var (
	analyzeType  string
	analyzeQuery string
	analyzeStyle string
	analyzeFocus string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input]",
	Short: "Analyse a financial document",
	Long: `Analyse a PDF, a web page or plain text and print a structured analysis.

The input type is detected from the argument unless --type is given:
  https://.../report.pdf  - downloaded PDF
  https://...             - web page
  ./report.pdf            - local PDF
  ./notes.txt             - local text file
  -                       - text read from stdin
  anything else           - the argument itself as text

Examples:
  finsight analyze https://example.com/q3-results.pdf -q "How did margins move?"
  finsight analyze ./10-k.pdf --analysis-type risk-assessment --focus debt-&-liquidity
  pbpaste | finsight analyze - --json`,
	Aliases: []string{"analyse"},
	Args:    cobra.ExactArgs(1),
	RunE:    runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "", "input type: pdf, url or text (default: detected)")
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "question to focus the analysis on")
	analyzeCmd.Flags().StringVar(&analyzeStyle, "analysis-type", string(domain.StyleComprehensiveReview),
		"comprehensive-review, executive-summary, risk-assessment or financial-metrics")
	analyzeCmd.Flags().StringVar(&analyzeFocus, "focus", string(domain.FocusGeneralOverview),
		"general-overview, risk-&-revenue, profitability-&-margins or debt-&-liquidity")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req, err := buildAnalysisRequest(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	rec, err := rt.Analysis.Analyse(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return printJSON(cmd, rec.Result)
	}

	cmd.Print(renderAnalysis(rec))
	return nil
}

// buildAnalysisRequest resolves the input argument into a request.
func buildAnalysisRequest(stdin io.Reader, arg string) (domain.AnalysisRequest, error) {
	req := domain.AnalysisRequest{
		Kind:  domain.InputKind(analyzeType),
		Input: arg,
		Query: analyzeQuery,
		Style: domain.AnalysisStyle(analyzeStyle),
		Focus: domain.FocusArea(analyzeFocus),
	}

	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("reading stdin: %w", err)
		}
		req.Input = string(data)
		if req.Kind == "" {
			req.Kind = domain.InputKindText
		}
		return req, nil
	}

	if req.Kind == "" {
		req.Kind = detectInputKind(arg)
	}

	// Local text files are read here; the text source only reads PDFs from disk.
	if req.Kind == domain.InputKindText && isRegularFile(arg) {
		data, err := os.ReadFile(arg)
		if err != nil {
			return req, fmt.Errorf("reading %s: %w", arg, err)
		}
		req.Input = string(data)
	}
	return req, nil
}

// detectInputKind guesses the input type from its form.
func detectInputKind(arg string) domain.InputKind {
	lower := strings.ToLower(strings.TrimSpace(arg))
	isPDF := strings.HasSuffix(strings.SplitN(lower, "?", 2)[0], ".pdf")

	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if isPDF {
			return domain.InputKindPDF
		}
		return domain.InputKindURL
	case isPDF && isRegularFile(arg):
		return domain.InputKindPDF
	default:
		return domain.InputKindText
	}
}

func isRegularFile(path string) bool {
	if strings.Contains(path, "\n") {
		return false
	}
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && info.Mode().IsRegular()
}
