// v1
// cmd/telemetryd/main.go
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/smart-hive/telemetry/internal"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}
	if err := internal.StartCmd(); err != nil {
		slog.Error("telemetryd failed", "error", err)
		os.Exit(1)
	}
}
