package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/botpilote/ghlbridge/internal"
	"github.com/botpilote/ghlbridge/internal/ghl"
	"github.com/botpilote/ghlbridge/internal/mapping"
	"github.com/botpilote/ghlbridge/internal/match"
	"github.com/botpilote/ghlbridge/internal/mcpserver"
	"github.com/botpilote/ghlbridge/internal/resolver"
	pkgconfig "github.com/botpilote/ghlbridge/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the MCP tools over stdio. Logs go to stderr so they
// never interleave with the protocol stream on stdout.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := mapping.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init mapping store: %w", err)
	}
	defer store.Close()

	client := ghl.NewClient(ghl.Options{
		BaseURL:        cfg.GHL.BaseURL,
		LegacyBaseURL:  cfg.GHL.LegacyBaseURL,
		Version:        cfg.GHL.Version,
		AttemptTimeout: cfg.GHL.AttemptTimeoutDuration(),
		MaxRetries:     cfg.GHL.MaxRetries,
	}, logger)
	res := resolver.NewService(client, cfg.GHL.CacheTTLDuration(), logger)

	if cfg.Vocab.Path != "" {
		vocab, err := match.LoadVocabulary(cfg.Vocab.Path)
		if err != nil {
			return fmt.Errorf("load vocabulary: %w", err)
		}
		res.SetVocabulary(vocab)
	}

	return mcpserver.New(res, store).ServeStdio()
}

func main() {
	configFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		}
	}

	cmd := &cli.Command{
		Name:   "ghlbridge",
		Usage:  "GoHighLevel custom value resolution service with fuzzy field matching and chatbot parameter mappings",
		Action: runServe,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the resolution tools over the Model Context Protocol on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
