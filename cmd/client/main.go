package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binxfer/config"
	"binxfer/discovery"
	"binxfer/fileclient"
	"binxfer/logging"
	"binxfer/perfmetrics"
	"binxfer/terminal"
	"binxfer/transfer"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "binxfer",
	Short: "Interactive client for a binxfer file server",
	Long: `binxfer connects to a binxfer-server and opens a prompt.

Commands:
  list                                     list the files on the server
  get <remote filename>                    download a file into --path
  put <local file path> <remote file name> upload a file
  help                                     show the server's command list
  quit                                     disconnect

Downloads are checked against the digest the server announces and are
deleted if they do not match.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("ip", config.DefaultIP, "server IP address")
	flags.IntP("port", "p", config.DefaultPort, "server port")
	flags.String("path", ".", "directory where the incoming files are saved")
	flags.Int("chunk-size", config.DefaultClientConfig().ChunkSize, "payload read size in bytes")
	flags.Int("retries", config.DefaultRetries, "connection attempts before giving up")
	flags.String("theme", config.DefaultTheme, "color theme (dark, light, mono)")
	flags.Bool("discover", false, "find the server over mDNS instead of using --ip/--port")
	flags.String("perf-log", "", "append per-transfer timings to this CSV file")
	flags.String("log-level", "warn", "diagnostic log level")
}

func run(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.LoadClient(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	themeManager, err := terminal.NewThemeManager(cfg.Theme)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	if cfg.Discover {
		themeManager.GetInfoColor().Println("Looking for a server on the local network...")
		svc, err := discovery.Browse(ctx, config.ServiceType, 5*time.Second)
		if err != nil {
			return err
		}
		addr = svc.Addr()
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	opts := fileclient.Options{
		DownloadDir:  cfg.Path,
		ChunkSize:    cfg.ChunkSize,
		DialAttempts: cfg.Retries,
		Logger:       logger,
	}
	if interactive {
		opts.Progress = func(operation, filename string, size int64) io.Writer {
			return transfer.NewProgressBar(os.Stderr, operation, filename, size)
		}
	}
	if cfg.PerfLog != "" {
		hostname, _ := os.Hostname()
		opts.PerfLog = perfmetrics.NewLogger(cfg.PerfLog, hostname)
	}

	client, greeting, err := fileclient.Dial(ctx, addr, opts)
	if err != nil {
		return err
	}
	defer client.Close()

	terminal.PrintClientBanner(os.Stdout, themeManager, client.RemoteAddr(), cfg)

	r := newREPL(client, themeManager, os.Stdout)
	r.show(greeting)

	// Unblock a pending read when interrupted.
	go func() {
		<-ctx.Done()
		client.Close()
	}()

	if interactive {
		r.runPrompt()
	} else {
		r.runScanner(os.Stdin)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		terminal.HandleStartupError(os.Stderr, err, "run client")
		os.Exit(1)
	}
}
