package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/indexsync/internal"
	"github.com/starford/indexsync/internal/models"
	pkgconfig "github.com/starford/indexsync/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.Root().String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func override(cmd *cli.Command) *models.Override {
	o := &models.Override{
		Username: cmd.String("username"),
		Password: cmd.String("password"),
		Key:      cmd.String("key"),
	}
	if *o == (models.Override{}) {
		return nil
	}
	return o
}

func targetArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one target such as algolia://<index>", cmd.Name)
	}
	return cmd.Args().First(), nil
}

var credentialFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "username",
		Usage:   "Algolia application id, overrides algolia.app_id",
		Sources: cli.EnvVars("INDEXSYNC_USERNAME"),
	},
	&cli.StringFlag{
		Name:    "password",
		Usage:   "Algolia API key, overrides algolia.api_key",
		Sources: cli.EnvVars("INDEXSYNC_PASSWORD"),
	},
	&cli.StringFlag{
		Name:    "key",
		Usage:   "Algolia API key, takes precedence over --password",
		Sources: cli.EnvVars("INDEXSYNC_KEY"),
	},
}

func publishAction(ctx context.Context, cmd *cli.Command) error {
	raw, err := targetArg(cmd)
	if err != nil {
		return err
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Publish(ctx, raw, override(cmd), cmd.Bool("dry-run"), opts...)
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	raw, err := targetArg(cmd)
	if err != nil {
		return err
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, raw, override(cmd), opts...)
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.History(ctx, int(cmd.Int("limit")), opts...)
}

func recordsAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Records(ctx, opts...)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "indexsync",
		Usage:   "Keep an Algolia index in step with a Lektor-style content tree",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "Reconcile the index named by the target with the local records",
				ArgsUsage: "algolia://<index>",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Compute the changeset without applying it"},
				}, credentialFlags...),
				Action: publishAction,
			},
			{
				Name:      "watch",
				Usage:     "Publish the target and republish on every content change",
				ArgsUsage: "algolia://<index>",
				Flags:     credentialFlags,
				Action:    watchAction,
			},
			{
				Name:   "serve",
				Usage:  "Start the HTTP API with live progress events",
				Action: serveAction,
			},
			{
				Name:  "history",
				Usage: "Show recent publish runs from the journal",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Number of runs to show"},
				},
				Action: historyAction,
			},
			{
				Name:   "records",
				Usage:  "Print the records a publish would upsert, one JSON object per line",
				Action: recordsAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: mcpAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
