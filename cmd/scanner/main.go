package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"breakout-scanner/internal/logger"
	"breakout-scanner/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() { _ = trace.Shutdown(context.Background()) }()

	cfg, err := loadConfig(ctx)
	must(err)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Warn(ctx, "Shutdown requested, cancelling scan")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		logger.ErrorWithErr(ctx, "Scan run failed", err)
		os.Exit(1)
	}
}
