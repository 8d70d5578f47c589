package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/Temutjin2k/ride-lifecycle/config"
	"github.com/Temutjin2k/ride-lifecycle/internal/app"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	var sinks []io.Writer
	if cfg.Log.File != "" {
		file := logger.NewFileSink(cfg.Log.FileSink())
		defer file.Close()
		sinks = append(sinks, file)
	}
	log = logger.InitLogger(string(cfg.Mode), cfg.Log.Level, sinks...)

	log.Info(ctx, "configuration loaded",
		"mode", cfg.Mode,
		"port", cfg.Port(),
		"storage", cfg.Storage.Driver,
		"broker", cfg.Events.Broker,
		"auth", cfg.Auth.Provider,
	)

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
