package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finsight/internal/adapters/driving/api"
	"github.com/custodia-labs/finsight/internal/adapters/driving/mcp"
	"github.com/custodia-labs/finsight/internal/core/domain"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API used by the web dashboard.

Endpoints:
  POST /api/analyze       run an analysis
  GET  /api/health        health and model state
  GET  /api/stats         pipeline statistics
  GET  /api/history       recent analyses
  GET  /api/history/{id}  one analysis
  GET  /metrics           Prometheus metrics
  *    /mcp               MCP over streamable HTTP

Prompt templates in ~/.finsight/prompts are reloaded when edited.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from settings, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.Server.Addr
	}
	if addr == "" {
		addr = domain.DefaultServerAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	startWatchers(ctx, rt)

	mcpServer, err := mcp.NewServer(&mcp.Ports{Analysis: rt.Analysis})
	if err != nil {
		return err
	}

	server := api.NewServer(rt.Analysis, api.Config{
		Addr:           addr,
		AllowedOrigins: settings.Server.AllowedOrigins,
		Metrics:        rt.Metrics,
		MCP:            mcpServer.Handler(),
		Version:        version,
	})

	cmd.Printf("finsight API listening on %s\n", addr)
	return server.Run(ctx)
}
