package mcp

import (
	"github.com/custodia-labs/finsight/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
type Ports struct {
	// Analysis runs analyses and exposes their history.
	Analysis driving.AnalysisService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	return nil
}
