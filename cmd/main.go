package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"padim-inspector/config"
	"padim-inspector/internal/logging"
)

const usage = "usage: padim-inspector [train|eval|list|delete|bot]"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "bot"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "train":
		err = runTrain(ctx, cfg, logger)
	case "eval":
		err = runEval(ctx, cfg, logger)
	case "list":
		err = runList(ctx, cfg, os.Args[2:])
	case "delete":
		err = runDelete(ctx, cfg, logger)
	case "bot":
		err = runBot(ctx, cfg, logger)
	default:
		log.Fatalf("Unknown command %q, %s", command, usage)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}
