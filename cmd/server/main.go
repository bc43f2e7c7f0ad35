package main

import (
	"os"

	"pizzeria-service/internal/app"
	"pizzeria-service/internal/config"
	"pizzeria-service/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.Logger.Level, "pizzeria-service")

	application := app.MustNewApp(cfg, log)

	application.Run()

	log.Info("Application finished")
	os.Exit(0)
}
