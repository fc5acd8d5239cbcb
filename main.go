package main

import (
	"log"
	"os"

	"longevitygenie/opengenes/cmd/cli"
	"longevitygenie/opengenes/internal/config"
	"longevitygenie/opengenes/internal/logger"
)

func main() {
	configPath := config.DefaultPath
	if p, ok := os.LookupEnv("OPENGENES_CONFIG"); ok {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	cli.Opengenes(cfg, configPath)
}
