package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/marcosal/setdecoder/pkg/setdecoder"
)

var (
	port           int
	apiToken       string
	tempDir        string
	intervalSec    int
	workers        int
	missThreshold  int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&apiToken, "token", os.Getenv("AUDD_API_TOKEN"), "AudD API token")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SETDECODER_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.IntVar(&intervalSec, "interval", 30, "Default sampling interval in seconds")
	flag.IntVar(&workers, "workers", 1, "Parallel recognition workers per job")
	flag.IntVar(&missThreshold, "miss-threshold", 2, "Consecutive misses that close a tracklist entry")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	if apiToken == "" {
		log.Fatal("AudD API token is required (set -token or AUDD_API_TOKEN)")
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	// Download a yt-dlp binary if none is installed.
	ytdlp.MustInstall(context.TODO(), nil)

	interval := time.Duration(intervalSec) * time.Second

	service, err := setdecoder.New(
		setdecoder.WithAPIToken(apiToken),
		setdecoder.WithTempDir(tempDir),
		setdecoder.WithInterval(interval),
		setdecoder.WithWorkers(workers),
		setdecoder.WithMissThreshold(missThreshold),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	config := &ServerConfig{
		Port:           port,
		TempDir:        tempDir,
		Interval:       interval,
		Workers:        workers,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
