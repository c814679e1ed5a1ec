package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dshills/binlocate/internal/config"
	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "binlocate",
		Usage:   "Find and run the package that provides a binary",
		Version: fmt.Sprintf("%s (built %s, %s build, driver %s)", version, buildTime, storage.BuildMode, storage.DriverName),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Path to the package-file index (overrides index_path)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the MCP tools on stdio",
				Action: serveCommand,
			},
			{
				Name:   "index",
				Usage:  "Build the package-file index from a store directory",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "store",
						Usage: "Store directory to index (overrides store_dir)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Packages walked concurrently (0 = number of CPUs)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search for packages providing a binary",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "substring",
						Usage: "Match binaries starting with QUERY instead of the exact name",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of matches (overrides max_entries)",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show index statistics",
				Action: statusCommand,
			},
		},
	}
}

// loadSession reads the configuration named by the global flags and builds
// the logger for the command
func loadSession(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if path := c.String("index"); path != "" {
		cfg.IndexPath = path
	}
	if level := c.String("log-level"); level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return nil, nil, err
		}
		cfg.LogLevel = level
	}

	return cfg, logging.New(c.App.ErrWriter, cfg.LogLevel), nil
}
