package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/finsight/internal/core/domain"
)

// Palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
	colourBorder  = lipgloss.Color("#45475A")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
)

var boxStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(colourBorder).
	Padding(0, 1)

// sentimentStyle colours a sentiment the way the dashboard badges did.
func sentimentStyle(s domain.Sentiment) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch s {
	case domain.SentimentPositive:
		return style.Foreground(colourSuccess)
	case domain.SentimentNegative:
		return style.Foreground(colourError)
	case domain.SentimentMixed:
		return style.Foreground(colourWarning)
	default:
		return style.Foreground(colourMuted)
	}
}

// confidenceLabel buckets a 0-100 score.
func confidenceLabel(score float64) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 50:
		return "medium"
	default:
		return "low"
	}
}

func directionArrow(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return "↑"
	case domain.DirectionDown:
		return "↓"
	case domain.DirectionFlat:
		return "→"
	default:
		return "?"
	}
}

// metricLabels are the display names for domain.MetricNames.
var metricLabels = map[string]string{
	"revenue":        "Revenue",
	"eps":            "EPS",
	"op_margin":      "Operating margin",
	"free_cash_flow": "Free cash flow",
	"profit":         "Profit",
	"guidance":       "Guidance",
	"debt":           "Debt",
	"cash_flow":      "Cash flow",
}

// renderAnalysis formats a completed analysis for the terminal.
func renderAnalysis(rec *domain.AnalysisRecord) string {
	res := rec.Result
	var b strings.Builder

	header := fmt.Sprintf("%s  %s  confidence %.0f%% (%s)",
		titleStyle.Render("Analysis"),
		sentimentStyle(res.Sentiment).Render(strings.ToUpper(string(res.Sentiment))),
		res.ConfidenceScore, confidenceLabel(res.ConfidenceScore))
	b.WriteString(boxStyle.Render(header))
	b.WriteString("\n\n")

	writeList(&b, "Summary", res.Summary)
	writeMetrics(&b, res.KeyMetrics)
	writeList(&b, "Risk factors", res.RiskFactors)
	writeList(&b, "Opportunities", res.Opportunities)

	footer := fmt.Sprintf("sources %d · citations %d · chunks %d · %s",
		res.SourcesUsed, res.CitationsUsed, rec.ChunkCount, rec.Duration.Round(time.Millisecond))
	if rec.ID != "" {
		footer += " · id " + rec.ID
	}
	b.WriteString(mutedStyle.Render(footer))
	b.WriteString("\n")

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	b.WriteString(headingStyle.Render(heading))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("  none reported"))
		b.WriteString("\n\n")
		return
	}
	for _, item := range items {
		b.WriteString("  • ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeMetrics(b *strings.Builder, m domain.KeyMetrics) {
	b.WriteString(headingStyle.Render("Key metrics"))
	b.WriteString("\n")

	reported := 0
	for _, name := range domain.MetricNames() {
		d := m.Get(name)
		if d.Value == nil {
			continue
		}
		reported++

		line := fmt.Sprintf("  %-18s %s %s", metricLabels[name], directionArrow(d.Direction), *d.Value)
		if d.Change != nil {
			line += " " + mutedStyle.Render("("+*d.Change+")")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if reported == 0 {
		b.WriteString(mutedStyle.Render("  none reported"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// renderStats formats the pipeline state.
func renderStats(s domain.PipelineStats) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pipeline"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Embedding model: %s\n", s.EmbeddingModel)
	fmt.Fprintf(&b, "  LLM model:       %s\n", s.LLMModel)
	fmt.Fprintf(&b, "  Chunk size:      %d\n", s.ChunkConfig.ChunkSize)
	fmt.Fprintf(&b, "  Chunk overlap:   %d\n", s.ChunkConfig.ChunkOverlap)
	fmt.Fprintf(&b, "  Top K:           %d\n", s.TopK)
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Vector index"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Vectors:   %d\n", s.VectorStore.TotalVectors)
	fmt.Fprintf(&b, "  Texts:     %d\n", s.VectorStore.TotalTexts)
	fmt.Fprintf(&b, "  Dimension: %d\n", s.VectorStore.Dimension)
	return b.String()
}

// renderHistoryRow formats one line of the history listing.
func renderHistoryRow(rec *domain.AnalysisRecord) string {
	return fmt.Sprintf("%s  %s  %-4s  %s  %3.0f%%  %s",
		rec.ID,
		rec.CreatedAt.Local().Format("2006-01-02 15:04"),
		rec.Request.Kind,
		sentimentStyle(rec.Result.Sentiment).Render(fmt.Sprintf("%-8s", rec.Result.Sentiment)),
		rec.Result.ConfidenceScore,
		mutedStyle.Render(inputPreview(rec.Request, 60)))
}

// inputPreview shortens the request input to one line.
func inputPreview(req domain.AnalysisRequest, n int) string {
	s := strings.Join(strings.Fields(req.Input), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
