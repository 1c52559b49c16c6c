// Package mcp provides an MCP (Model Context Protocol) server adapter for finsight.
// It lets AI assistants run document analyses and read the pipeline state.
package mcp

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")
