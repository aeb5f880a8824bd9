package terminal

import (
	"fmt"
	"io"

	"binxfer/config"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// PrintStartupInfo logs the server configuration
func PrintStartupInfo(logger *zap.Logger, cfg *config.ServerConfig) {
	logger.Info("starting file server",
		zap.Int("port", cfg.Port),
		zap.String("path", cfg.Path),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Bool("advertise", cfg.Advertise),
		zap.Bool("watch", cfg.Watch),
	)
}

// PrintClientBanner shows where the client connects and stores downloads.
func PrintClientBanner(w io.Writer, tm *ThemeManager, addr string, cfg *config.ClientConfig) {
	tm.GetPromptColor().Fprintf(w, "Connected to %s\n", addr)
	tm.GetTextColor().Fprintf(w, "Incoming files will be saved to %s\n", cfg.Path)
	fmt.Fprintln(w)
}

// HandleStartupError reports a failure that stopped a binary from running.
func HandleStartupError(w io.Writer, err error, context string) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Failed to %s: %v\n", context, err)
}
