package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sift/internal"
	pkgconfig "github.com/starford/sift/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type runFunc func(context.Context, ...internal.Option) error

func action(run runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if v := cmd.String("vault"); v != "" {
			cfg.Vault.Path = v
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file; defaults are used when it does not exist",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Vault directory, overrides vault.path",
			Sources: cli.EnvVars("SIFT_VAULT"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "sift",
		Usage:   "Cached search, similarity and suggestions over a Markdown vault",
		Version: version,
		Action:  action(internal.Run),
		Flags:   flags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the REST API, SSE events and metrics over HTTP",
				Action: action(internal.Run),
				Flags:  flags(),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: action(internal.RunMCP),
				Flags:  flags(),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
