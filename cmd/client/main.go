package main

import (
	"flag"
	"fmt"
	"os"

	"chatrelay/internal/app"
)

func main() {
	defaultServer := envOrDefault("CHATRELAY_SERVER", "localhost:9999")
	defaultUser := envOrDefault("CHATRELAY_USER", "")

	serverAddr := flag.String("server", defaultServer, "relay address (host:port)")
	username := flag.String("user", defaultUser, "default username for the login prompt")
	downloadDir := flag.String("downloads", "", "directory for accepted file transfers")
	flag.Parse()

	cfg := app.ClientConfig{
		ServerAddr:  *serverAddr,
		Username:    *username,
		DownloadDir: *downloadDir,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
