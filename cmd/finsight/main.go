// Command finsight analyses financial documents with retrieval-augmented
// generation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/finsight/internal/adapters/driven/ai"
	"github.com/custodia-labs/finsight/internal/adapters/driven/config/file"
	"github.com/custodia-labs/finsight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finsight/internal/adapters/driving/cli"
	"github.com/custodia-labs/finsight/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	home, err := finsightHome()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: loading config:", err)
		os.Exit(1)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	ephemeralService := services.NewSettingsService(
		memory.NewConfigStoreFrom(ephemeralConfig(os.Getenv)), ai.NewConfigValidator())

	cli.SetVersion(version)
	cli.SetSettingsService(settingsService)
	cli.SetEphemeralSettingsService(ephemeralService)
	cli.SetRuntimeBuilder(func(_ context.Context) (*cli.Runtime, error) {
		svc, ephemeral := settingsService, cli.Ephemeral()
		if ephemeral {
			svc = ephemeralService
		}
		settings, err := svc.Get()
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		return buildRuntime(settings, runtimeOptions{Home: home, Ephemeral: ephemeral})
	})

	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
