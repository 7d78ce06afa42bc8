package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/eca/internal/config"
	"github.com/zeusync/eca/internal/core/observability/log"
	"github.com/zeusync/eca/internal/injector"
)

func main() {
	configFile := flag.String("config", "", "optional KEY=VALUE config file, overridden by the environment")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing runtime:", err)
		os.Exit(1)
	}
	defer cleanup()
	defer func() { _ = rt.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = rt.Run(ctx); err != nil {
		rt.Log.Error("Runtime stopped with error", log.Error(err))
		cleanup()
		os.Exit(1)
	}
}
