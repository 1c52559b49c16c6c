package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

func resetAnalyzeFlags(t *testing.T) {
	t.Cleanup(func() {
		analyzeType, analyzeQuery, analyzeJSON = "", "", false
		analyzeStyle = string(domain.StyleComprehensiveReview)
		analyzeFocus = string(domain.FocusGeneralOverview)
	})
}

func TestAnalyzeCmd_Use(t *testing.T) {
	assert.Equal(t, "analyze [input]", analyzeCmd.Use)
	assert.Contains(t, analyzeCmd.Aliases, "analyse")
}

func TestAnalyzeCmd_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"type", "t", ""},
		{"query", "q", ""},
		{"analysis-type", "", "comprehensive-review"},
		{"focus", "", "general-overview"},
		{"json", "", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := analyzeCmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestAnalyzeCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "analyze")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAnalyzeCmd_RendersAnalysis(t *testing.T) {
	analysis, _, cleanup := setupTestServices()
	defer cleanup()
	resetAnalyzeFlags(t)

	out, err := execute(t, "analyze", "https://example.com/q3", "-q", "How did revenue move?",
		"--analysis-type", "risk-assessment", "--focus", "risk-&-revenue")

	require.NoError(t, err)
	assert.Equal(t, domain.InputKindURL, analysis.lastRequest.Kind)
	assert.Equal(t, "How did revenue move?", analysis.lastRequest.Query)
	assert.Equal(t, domain.StyleRiskAssessment, analysis.lastRequest.Style)
	assert.Equal(t, domain.FocusRiskAndRevenue, analysis.lastRequest.Focus)

	assert.Contains(t, out, "POSITIVE")
	assert.Contains(t, out, "Revenue grew 12% year over year")
	assert.Contains(t, out, "$4.2B")
	assert.Contains(t, out, "Currency headwinds")
	assert.Contains(t, out, "id a1b2c3")
}

func TestAnalyzeCmd_JSONOutput(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	resetAnalyzeFlags(t)

	out, err := execute(t, "analyze", "--json", "Revenue grew strongly this quarter.")

	require.NoError(t, err)
	assert.Contains(t, out, `"sentiment": "positive"`)
	assert.Contains(t, out, `"confidence_score": 84`)
	assert.Contains(t, out, `"key_metrics"`)
}

func TestAnalyzeCmd_ReadsStdin(t *testing.T) {
	analysis, _, cleanup := setupTestServices()
	defer cleanup()
	resetAnalyzeFlags(t)

	rootCmd.SetIn(strings.NewReader("Quarterly revenue was $4.2B."))
	_, err := execute(t, "analyze", "-")

	require.NoError(t, err)
	assert.Equal(t, domain.InputKindText, analysis.lastRequest.Kind)
	assert.Equal(t, "Quarterly revenue was $4.2B.", analysis.lastRequest.Input)
}

func TestAnalyzeCmd_ServiceError(t *testing.T) {
	analysis, _, cleanup := setupTestServices()
	defer cleanup()
	resetAnalyzeFlags(t)
	analysis.err = errors.New("provider down")

	_, err := execute(t, "analyze", "some text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed: provider down")
}

func TestAnalyzeCmd_NotConfigured(t *testing.T) {
	prev := runtimeBuilder
	runtimeBuilder = nil
	defer func() { runtimeBuilder = prev }()
	resetAnalyzeFlags(t)

	_, err := execute(t, "analyze", "some text")

	assert.EqualError(t, err, "analysis service not configured")
}

func TestDetectInputKind(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "report.PDF")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.7"), 0o600))

	tests := []struct {
		name string
		arg  string
		want domain.InputKind
	}{
		{"remote pdf", "https://ir.example.com/10-K.pdf", domain.InputKindPDF},
		{"remote pdf with query", "https://ir.example.com/10-K.pdf?download=1", domain.InputKindPDF},
		{"web page", "https://example.com/news/q3", domain.InputKindURL},
		{"plain http", "HTTP://example.com", domain.InputKindURL},
		{"local pdf", pdfPath, domain.InputKindPDF},
		{"missing local pdf is text", filepath.Join(dir, "absent.pdf"), domain.InputKindText},
		{"free text", "Revenue rose 12% to $4.2B.", domain.InputKindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectInputKind(tt.arg))
		})
	}
}

func TestBuildAnalysisRequest(t *testing.T) {
	resetAnalyzeFlags(t)

	t.Run("local text file is read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("Net income doubled."), 0o600))

		req, err := buildAnalysisRequest(strings.NewReader(""), path)

		require.NoError(t, err)
		assert.Equal(t, domain.InputKindText, req.Kind)
		assert.Equal(t, "Net income doubled.", req.Input)
	})

	t.Run("explicit type wins", func(t *testing.T) {
		analyzeType = "pdf"
		defer func() { analyzeType = "" }()

		req, err := buildAnalysisRequest(strings.NewReader(""), "https://example.com/report")

		require.NoError(t, err)
		assert.Equal(t, domain.InputKindPDF, req.Kind)
		assert.Equal(t, "https://example.com/report", req.Input)
	})

	t.Run("stdin", func(t *testing.T) {
		req, err := buildAnalysisRequest(strings.NewReader("piped text"), "-")

		require.NoError(t, err)
		assert.Equal(t, domain.InputKindText, req.Kind)
		assert.Equal(t, "piped text", req.Input)
	})
}
