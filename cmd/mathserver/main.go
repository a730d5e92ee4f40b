// Command mathserver serves the integer arithmetic tools over MCP, on stdio by
// default or over streamable HTTP with -http.
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

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petasbytes/toolchat/internal/logging"
	"github.com/petasbytes/toolchat/tools"
)

var version = "dev"

func main() {
	var (
		name     = flag.String("name", "math", "server name reported to clients")
		httpAddr = flag.String("http", "", "serve streamable HTTP on this address instead of stdio (e.g. :8000)")
		logLevel = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.NewComponentLogger(logging.InitLogger(os.Stderr, level, "text"), "mathserver")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := tools.NewServer(*name, version, tools.Registry())
	if *httpAddr == "" {
		log.Info("serving on stdio", "tools", len(tools.Registry()))
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("stdio server stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := serveHTTP(ctx, *httpAddr, server, log); err != nil {
		log.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}

func newRouter(server *mcp.Server) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	router.PathPrefix("/mcp").Handler(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil))
	return router
}

func serveHTTP(ctx context.Context, addr string, server *mcp.Server, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: newRouter(server), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("serving streamable HTTP", "addr", addr, "endpoint", "/mcp")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
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
