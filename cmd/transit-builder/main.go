package main

import (
	"flag"

	"go.uber.org/zap"

	lib "mta/transit-builder"
	"mta/transit-builder/config"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the build configuration")
	flag.Parse()

	lib.InitLogging()
	defer zap.S().Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.S().Fatalf("Loading %s: %v", *configPath, err)
	}

	lib.Build(cfg)
}
