package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skufu/StrokeRisk/internal/forest"
	"github.com/Skufu/StrokeRisk/internal/logging"
	"github.com/Skufu/StrokeRisk/internal/trainer"
)

func main() {
	defaults := forest.DefaultConfig()

	dataPath := flag.String("data", "healthcare-dataset-stroke-data.csv", "path to the stroke dataset CSV")
	modelPath := flag.String("model", "stroke_model.gob", "output path for the trained model")
	encodersPath := flag.String("encoders", "label_encoders.gob", "output path for the label encoders")
	trees := flag.Int("trees", defaults.Trees, "number of trees in the forest")
	seed := flag.Int64("seed", defaults.Seed, "random seed")
	workers := flag.Int("workers", 0, "trees grown in parallel (0 = GOMAXPROCS)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.New(*logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := defaults
	cfg.Trees = *trees
	cfg.Seed = *seed
	cfg.Workers = *workers

	start := time.Now()
	bundle, err := trainer.Run(ctx, trainer.Options{
		DataPath:     *dataPath,
		ModelPath:    *modelPath,
		EncodersPath: *encodersPath,
		Forest:       cfg,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("training failed", "error", err)
		stop()
		os.Exit(1)
	}

	logger.Info("training complete",
		"trees", len(bundle.Forest.Trees),
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
