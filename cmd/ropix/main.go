package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ropix/pkg/config"
	"ropix/pkg/discovery"
	"ropix/pkg/server"
)

const version = "1.0.0"

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ropix",
		Short: "Real-time LAN file sharing rooms",
		Long: `Share files between devices on the same network in real time.
A sender uploads a file, it is split into integrity-checked chunks, and every
device in the same room receives a streamed, verifiable copy without the file
ever touching disk.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		address     string
		frontendDir string
		noMDNS      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sharing server",
		Long:  `Start the HTTP and WebSocket server that hosts sharing rooms.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			var cfg *config.Config
			if configFile != "" {
				var err error
				cfg, err = config.LoadConfig(configFile)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				cfg = config.LoadFromEnv()
			}
			if address != "" {
				cfg.ListenAddress = address
			}
			if frontendDir != "" {
				cfg.FrontendDir = frontendDir
			}
			if noMDNS {
				cfg.Discovery.Enabled = false
			}

			printBanner(cfg)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cfg.Discovery.Enabled {
				adv, err := discovery.Advertise(cfg.Discovery.Instance, cfg.Discovery.Service, cfg.ListenAddress, logger)
				if err != nil {
					logger.Warn("mDNS advertisement failed, continuing without discovery", zap.Error(err))
				} else {
					defer adv.Shutdown()
				}
			}

			srv := server.New(cfg, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(ctx)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("shutting down", zap.String("signal", sig.String()))
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&frontendDir, "frontend", "", "frontend dist directory (overrides config)")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "disable mDNS discovery")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ropix version %s\n", version)
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}
