package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chatrelay/internal/app"
)

const (
	modeServer = "server"
	modeClient = "client"
	modeLocal  = "local"
)

func main() {
	mode, args := parseMode(os.Args[1:])
	flagSet := flag.NewFlagSet("chatrelay", flag.ExitOnError)
	addr := flagSet.String("addr", envOrDefault("CHATRELAY_ADDR", defaultAddrForMode(mode)), "TCP listen address (server/local modes)")
	httpAddr := flagSet.String("http", envOrDefault("CHATRELAY_HTTP_ADDR", ""), "HTTP gateway listen address (empty disables)")
	db := flagSet.String("db", envOrDefault("CHATRELAY_DB_PATH", ""), "sqlite event log path (local mode defaults to a per-user path)")
	serverAddr := flagSet.String("server", envOrDefault("CHATRELAY_SERVER", "localhost:9999"), "relay address (client mode)")
	username := flagSet.String("user", envOrDefault("CHATRELAY_USER", ""), "default username for the login prompt")
	quiet := flagSet.Bool("quiet", false, "suppress informational logs")
	flagSet.Parse(args)

	serverCfg := app.ServerConfig{
		Addr:     *addr,
		HTTPAddr: *httpAddr,
		DBPath:   *db,
	}

	clientCfg := app.ClientConfig{
		ServerAddr: *serverAddr,
		Username:   *username,
	}

	infof := func(format string, args ...interface{}) {
		if *quiet {
			return
		}
		log.Printf(format, args...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, infof)
	case modeLocal:
		err = runLocalMode(ctx, serverCfg, clientCfg, infof)
	default:
		err = runClientMode(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "chatrelay: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, infof func(string, ...interface{})) error {
	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		return err
	}
	infof("chatrelay server listening on %s (gateway %s, db %s)", handle.Addr(), orNone(handle.HTTPAddr()), orNone(cfg.DBPath))
	return handle.Wait()
}

func runClientMode(cfg app.ClientConfig) error {
	if cfg.ServerAddr == "" {
		return errors.New("client mode requires --server or CHATRELAY_SERVER")
	}
	return app.RunClient(cfg)
}

// runLocalMode spins up an in-process server and points a client at it,
// handy for trying the whole thing on one machine.
func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, infof func(string, ...interface{})) error {
	if serverCfg.DBPath == "" {
		serverCfg.DBPath = app.DefaultDBPath()
	}
	if err := os.MkdirAll(filepath.Dir(serverCfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	handle, err := app.RunServer(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	infof("starting local chatrelay server on %s (db %s)", handle.Addr(), serverCfg.DBPath)
	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}

	clientCfg.ServerAddr = handle.Addr()
	infof("launching client against %s", clientCfg.ServerAddr)

	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeClient, args
	}
	switch strings.ToLower(args[0]) {
	case modeServer, modeClient, modeLocal:
		return strings.ToLower(args[0]), args[1:]
	}
	return modeClient, args
}

func defaultAddrForMode(mode string) string {
	if mode == modeLocal {
		return "127.0.0.1:0"
	}
	return ":9999"
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
