package app

import (
	"os"
	"path/filepath"
	"runtime"
)

// ServerConfig defines how the relay should run.
type ServerConfig struct {
	// Addr is the TCP listen address for the native protocol.
	Addr string
	// HTTPAddr is the listen address for the websocket gateway and the
	// operational endpoints. Empty disables the HTTP surface entirely.
	HTTPAddr string
	// DBPath locates the SQLite event log. Empty runs without one.
	DBPath string
	// HistorySize bounds the replay buffer; 0 means the default.
	HistorySize int
	// MaxFrameSize bounds a single inbound frame; 0 means the default.
	MaxFrameSize uint32
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerAddr  string
	Username    string
	DownloadDir string
}

// DefaultDBPath returns a per-user data path for the bundled SQLite file.
func DefaultDBPath() string {
	if env := os.Getenv("CHATRELAY_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("CHATRELAY_DATA_DIR"); env != "" {
		return filepath.Join(env, "chatrelay.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatrelay", "chatrelay.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Chatrelay", "chatrelay.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Chatrelay", "chatrelay.db")
		}
		return filepath.Join(home, ".local", "share", "chatrelay", "chatrelay.db")
	}
	return filepath.Join(".", ".chatrelay", "chatrelay.db")
}
