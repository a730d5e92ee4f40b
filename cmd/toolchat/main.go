// Command toolchat is a tool-augmented chat client. It connects to the MCP
// providers named in its config and answers prompts on the terminal, or over
// HTTP when -http (or http.addr) is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petasbytes/toolchat/internal/chat"
	"github.com/petasbytes/toolchat/internal/config"
	"github.com/petasbytes/toolchat/internal/connector"
	"github.com/petasbytes/toolchat/internal/console"
	"github.com/petasbytes/toolchat/internal/httpapi"
	"github.com/petasbytes/toolchat/internal/logging"
	"github.com/petasbytes/toolchat/internal/provider"
	"github.com/petasbytes/toolchat/internal/session"
	"github.com/petasbytes/toolchat/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toolchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		httpAddr   = flag.String("http", "", "serve the HTTP API on this address instead of the console")
		noColor    = flag.Bool("no-color", false, "disable ANSI colors")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// The console owns stdout, so logs always go to stderr.
	base := logging.InitLogger(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(base)

	telemetry.Configure(cfg.Telemetry.Enabled, cfg.Telemetry.Dir)

	model, err := provider.New(provider.Settings{
		Kind:    cfg.Model.Provider,
		Model:   cfg.Model.Name,
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}

	orch := &chat.Orchestrator{
		Model: model,
		Executor: &chat.Executor{
			Parallelism: cfg.Tools.Parallelism,
			Timeout:     cfg.Tools.Timeout,
			Log:         logging.NewComponentLogger(base, "executor"),
		},
		HistoryMode:  chat.HistoryMode(cfg.History.Mode),
		TokenBudget:  cfg.History.TokenBudget,
		ModelTimeout: cfg.Model.Timeout,
		System:       cfg.Model.SystemPrompt,
		MaxTokens:    cfg.Model.MaxTokens,
		Log:          logging.NewComponentLogger(base, "chat"),
	}

	connectLog := logging.NewComponentLogger(base, "connector")
	connect := func(ctx context.Context) (*connector.Registry, error) {
		return connector.Connect(ctx, cfg.Providers,
			connector.WithFailurePolicy(cfg.FailurePolicy()),
			connector.WithLogger(connectLog),
			connector.WithClientInfo("toolchat", version),
		)
	}

	sess := session.New(orch, connect, logging.NewComponentLogger(base, "session"))
	defer func() {
		if err := sess.Close(); err != nil {
			base.Warn("closing providers", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base.Info("starting", "version", version, "model", model.Name(), "providers", len(cfg.Providers),
		"history", cfg.History.Mode, "telemetry", telemetry.Enabled())

	if cfg.HTTP.Addr != "" {
		return serveHTTP(ctx, cfg.HTTP.Addr, sess, logging.NewComponentLogger(base, "http"))
	}

	console.Version = version
	c := console.New(sess, os.Stdin, os.Stdout, console.Options{
		Color:          !*noColor,
		Banner:         true,
		TranscriptPath: cfg.Transcript.Path,
	})
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveHTTP(ctx context.Context, addr string, sess *session.Session, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(sess, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
