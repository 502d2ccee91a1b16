package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"exit-policy-lab/internal/reporting"
	pgstore "exit-policy-lab/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outPath := flag.String("out", "", "Output file (default stdout)")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if *format != "markdown" && *format != "csv" {
		logger.Fatalf("Invalid format: %s. Must be markdown or csv", *format)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	generator := reporting.NewGenerator(pgstore.NewTradeResultStore(pool), nil)
	report, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	var rendered string
	switch *format {
	case "csv":
		rendered = reporting.RenderCSV(report.Aggregates)
	default:
		rendered = reporting.RenderMarkdown(report)
	}

	if *outPath == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*outPath, []byte(rendered), 0o644); err != nil {
		logger.Fatalf("write report: %v", err)
	}
	logger.Printf("report written to %s", *outPath)
}
