package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	intrnl "chatrelay/internal"
	"chatrelay/internal/storage"
)

// ServerHandle represents a running relay instance.
type ServerHandle struct {
	addr     string
	httpAddr string
	cancel   context.CancelFunc
	httpSrv  *http.Server
	store    *storage.Store
	done     chan struct{}
	err      error
}

// Addr returns the actual TCP listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// HTTPAddr returns the gateway listen address, empty when disabled.
func (h *ServerHandle) HTTPAddr() string {
	return h.httpAddr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	h.cancel()
	if h.httpSrv != nil {
		if err := h.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer opens the event log, binds the TCP relay and the optional HTTP
// gateway, and starts serving in the background. Call Stop/Wait to manage
// its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf(":%d", intrnl.DefaultPort)
	}

	var store *storage.Store
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		var err error
		store, err = storage.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if err := store.Migrate(context.Background()); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	relay := intrnl.NewRelayServerWithConfig(store, cfg.HistorySize, cfg.MaxFrameSize, nil)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		cancel: cancel,
		store:  store,
		done:   make(chan struct{}),
	}

	if cfg.HTTPAddr != "" {
		httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			cancel()
			_ = listener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("listen http: %w", err)
		}
		handle.httpAddr = httpListener.Addr().String()
		handle.httpSrv = &http.Server{Handler: relay.Router()}
		go func() {
			if err := handle.httpSrv.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("gateway error: %v", err)
			}
		}()
	}

	go handle.serve(runCtx, relay, listener)

	return handle, nil
}

func (h *ServerHandle) serve(ctx context.Context, relay *intrnl.RelayServer, listener net.Listener) {
	defer close(h.done)
	err := relay.Serve(ctx, listener)
	if h.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = h.httpSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if closeErr := h.store.Close(); closeErr != nil {
		log.Printf("store close error: %v", closeErr)
	}
	h.err = err
}
