package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/newsapi"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "seed":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: newsapi seed <fixture.yaml>")
			os.Exit(1)
		}
		if err := runSeed(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("newsapi %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := newsapi.LoadConfig("")
	if err != nil {
		return err
	}
	app := newsapi.New(cfg)
	defer app.Close()
	log := app.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func runSeed(path string) error {
	cfg, err := newsapi.LoadConfig("")
	if err != nil {
		return err
	}
	stats, err := newsapi.Seed(context.Background(), cfg, path)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d news items, %d terms, %d images, %d view counts into the %s database\n",
		stats.Nodes, stats.Terms, stats.Images, stats.Views, cfg.Database.Driver)
	return nil
}

func printUsage() {
	fmt.Println(`newsapi - An authenticated JSON feed of news content

Usage:
  newsapi <command> [arguments]

Commands:
  serve             Start the HTTP server
  seed <file>       Load a YAML fixture of news items into the database
  version           Print the newsapi version
  help              Show this help message

Configuration is read from config.yaml (or $NEWSAPI_CONFIG) and
NEWSAPI_* environment variables, e.g. NEWSAPI_ADMIN__PASSWORD.

Examples:
  newsapi serve
  NEWSAPI_ADMIN__ENABLED=false newsapi seed testdata/news.yaml`)
}
