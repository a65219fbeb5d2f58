package app

import (
	"errors"

	intrnl "chatrelay/internal"
)

// RunClient launches the Bubble Tea TUI with the provided configuration.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerAddr == "" {
		return errors.New("server address is required")
	}
	return intrnl.RunClient(cfg.ServerAddr, cfg.Username, cfg.DownloadDir)
}
