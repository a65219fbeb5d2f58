package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatrelay/internal/app"
)

func main() {
	addr := flag.String("addr", getEnv("CHATRELAY_ADDR", ":9999"), "TCP listen address for the chat protocol")
	httpAddr := flag.String("http", getEnv("CHATRELAY_HTTP_ADDR", ":8080"), "HTTP listen address for the websocket gateway and metrics (empty disables)")
	db := flag.String("db", getEnv("CHATRELAY_DB_PATH", ""), "sqlite event log path (empty disables the event log)")
	history := flag.Int("history", 0, "history buffer capacity (0 = default)")
	flag.Parse()

	cfg := app.ServerConfig{
		Addr:        *addr,
		HTTPAddr:    *httpAddr,
		DBPath:      *db,
		HistorySize: *history,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("chatrelay server listening on %s", handle.Addr())
	if handle.HTTPAddr() != "" {
		log.Printf("gateway listening on %s", handle.HTTPAddr())
	}
	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "chatrelay: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
