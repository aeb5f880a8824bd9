package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"binxfer/config"
	"binxfer/fileserver"
	"binxfer/index"
	"binxfer/logging"
	"binxfer/terminal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "binxfer-server",
	Short: "Share a directory over a simple line-based file transfer protocol",
	Long: `binxfer-server shares the regular files of one directory.

Clients can list the files, download them by name and upload new ones.
Every transfer is checked against an MD5 digest announced by the sender;
uploads that do not match are deleted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.IntP("port", "p", config.DefaultPort, "port to listen on")
	flags.String("path", ".", "directory with the files to share")
	flags.Int("chunk-size", config.DefaultServerConfig().ChunkSize, "payload read size in bytes")
	flags.String("log-level", config.DefaultLogLvl, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFmt, "log format (console, json)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	flags.Bool("advertise", false, "advertise the server over mDNS")
	flags.Bool("watch", false, "refresh the file index when the directory changes")
}

func run(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.LoadServer(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer logger.Sync()

	terminal.PrintStartupInfo(logger, cfg)

	ix := index.New(cfg.Path, index.WithLogger(logger), index.WithChunkSize(cfg.ChunkSize))
	snap, err := ix.Rebuild()
	if err != nil {
		return err
	}
	logger.Info("directory indexed", zap.Int("files", snap.Len()))
	if err := terminal.NewTableFormatter(os.Stdout).RenderFiles(snap.Files()); err != nil {
		logger.Warn("failed to render file table", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := fileserver.New(ix, cfg.ChunkSize, logger)
	if err := fileserver.Run(ctx, cfg, server); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		terminal.HandleStartupError(os.Stderr, err, "run server")
		os.Exit(1)
	}
}
