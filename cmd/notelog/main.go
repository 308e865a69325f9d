package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notelog/internal"
	pkgconfig "github.com/starford/notelog/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr so stdout stays clean for command output.
func cliLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// withComponents loads the config, opens the notes and index, and runs fn.
func withComponents(ctx context.Context, cmd *cli.Command, fn func(*internal.Components) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := internal.Open(ctx, cfg, cliLogger(cmd))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(cliLogger(cmd)))
}

func main() {
	cmd := &cli.Command{
		Name:  "notelog",
		Usage: "Query and edit structured changelog notes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("NOTELOG_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log indexing activity to stderr",
			},
		},
		Commands: []*cli.Command{
			listCommand(),
			showCommand(),
			editCommand(),
			newCommand(),
			rmCommand(),
			validateCommand(),
			fieldsCommand(),
			searchCommand(),
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live re-indexing",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}
