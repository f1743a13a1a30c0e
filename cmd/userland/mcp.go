package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/deixis/userland/internal/executor"
	ulamcp "github.com/deixis/userland/internal/mcp"
	"github.com/deixis/userland/internal/metrics"
	"github.com/deixis/userland/internal/report"
)

func mcpMain(args []string) error {
	var g globalFlags
	fs := newFlagSet("mcp", "[flags]", &g)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "serve MCP over HTTP on address (e.g. :9090) instead of stdio")
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on address (e.g. :9091)")
	runsDir := fs.String("runs", "", "directory for stored run records (default: a temp directory)")
	cacheSize := fs.Int("cache", 64, "number of run records kept in memory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *instructions {
		fmt.Print(ulamcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(&g, executor.WithObserver(metrics.New(reg)))
	if err != nil {
		return err
	}

	if *metricsAddr != "" {
		srv := metrics.NewServer(*metricsAddr, reg, a.logger)
		if _, err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store := report.NewLRUStore(*cacheSize, report.NewDiskStore(*runsDir))
	server := ulamcp.NewServer(a.cfg, a.exec, a.wrapper, store, ulamcp.WithLogger(a.logger))

	if *httpAddr != "" {
		return serveHTTP(ctx, a, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, a *app, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	a.logger.Info("mcp server listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
