package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dshills/binlocate/internal/indexer"
	"github.com/dshills/binlocate/internal/mcp"
	"github.com/dshills/binlocate/internal/searcher"
	"github.com/dshills/binlocate/internal/storage"
)

func serveCommand(c *cli.Context) error {
	cfg, logger, err := loadSession(c)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio", "version", version, "driver", storage.DriverName)
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

func indexCommand(c *cli.Context) error {
	cfg, logger, err := loadSession(c)
	if err != nil {
		return err
	}

	storeDir := cfg.StoreDir
	if dir := c.String("store"); dir != "" {
		storeDir = dir
	}

	store, err := storage.NewSQLiteStorage(cfg.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := indexer.New(store, nil, logger).IndexStore(c.Context, storeDir, &indexer.Config{
		Workers: c.Int("workers"),
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Indexed %d packages (%d files) from %s in %v\n",
		stats.PackagesIndexed, stats.FilesIndexed, storeDir, stats.Duration)
	fmt.Fprintf(w, "Skipped: %d  Failed: %d  Removed: %d\n",
		stats.PackagesSkipped, stats.PackagesFailed, stats.PackagesRemoved)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("search expects exactly one QUERY argument")
	}

	cfg, logger, err := loadSession(c)
	if err != nil {
		return err
	}
	if c.Bool("substring") {
		cfg.ExactMatch = false
	}
	if c.IsSet("limit") {
		cfg.MaxEntries = c.Int("limit")
	}

	query := cfg.StripPrefix(c.Args().First())
	if query == "" {
		return nil
	}

	engine := searcher.NewEngine(cfg, searcher.WithLogger(logger))
	for _, m := range engine.Search(c.Context, query) {
		desc := m.Description
		if m.UsePango {
			desc = html.UnescapeString(desc)
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", m.Title, desc)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	cfg, _, err := loadSession(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Index:   %s\n", cfg.IndexPath)
	fmt.Fprintf(w, "Engine:  %s\n", cfg.Engine)
	fmt.Fprintf(w, "Driver:  %s (%s build)\n", storage.DriverName, storage.BuildMode)

	ix, err := storage.OpenIndex(c.Context, cfg.IndexPath)
	if err != nil {
		fmt.Fprintf(w, "Status:  not available (%v)\n", err)
		return nil
	}
	defer func() { _ = ix.Close() }()

	status, err := ix.Status(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	fmt.Fprintf(w, "Schema:  %s\n", status.SchemaVersion)
	fmt.Fprintf(w, "Packages: %d\n", status.PackagesCount)
	fmt.Fprintf(w, "Files:   %d\n", status.FilesCount)
	fmt.Fprintf(w, "Size:    %.2f MB\n", status.IndexSizeMB)
	if !status.LastIndexedAt.IsZero() {
		fmt.Fprintf(w, "Indexed: %s\n", status.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
