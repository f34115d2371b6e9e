package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/tcpchat/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := server.NewConfigFromEnv()
	logLevel := "info"

	cmd := &cobra.Command{
		Use:   "chatserver",
		Short: "Line-oriented TCP chat server",
		Long: `chatserver accepts TCP connections, gives each one a unique nickname
and routes chat lines between them.

Clients type plain lines to talk to everyone, "/w <nickname> <message>" to
whisper and "/quit" to leave. Type "/quit" on the server's own input (or
press Ctrl-C) to shut it down; "/who" lists connected users.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "Listen address")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	flags.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "Admin HTTP address (health, metrics, websocket gateway); empty disables it")
	flags.StringVar(&logLevel, "log-level", logLevel, "Log level: debug, info, warn or error")

	cmd.AddCommand(versionCmd())
	return cmd
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func run(ctx context.Context, cfg *server.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(cfg,
		server.WithLogger(logger),
		server.WithMetrics(server.NewMetrics(registry)),
	)

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = server.CreateServer(cfg.HTTPAddr, server.SetupRoutes(srv, cfg, registry))
		go func() {
			if err := server.StartServer(httpServer, logger); err != nil {
				logger.Error("admin HTTP server failed", "err", err)
			}
		}()
	}

	go server.NewConsole(os.Stdin, os.Stdout, srv, cfg.ShutdownTimeout).Run()

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("got stop signal")
			if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
				logger.Warn("shutdown incomplete", "err", err)
			}
		case <-srv.Done():
		}
	}()

	serveErr := srv.ListenAndServe()
	if serveErr != nil && !errors.Is(serveErr, server.ErrServerClosed) {
		if httpServer != nil {
			_ = httpServer.Close()
		}
		return serveErr
	}

	shutdownErr := srv.Shutdown(cfg.ShutdownTimeout)
	if httpServer != nil {
		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	logger.Info("chat server stopped")
	return shutdownErr
}
