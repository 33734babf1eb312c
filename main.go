package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/toolgate/toolgate/pkg/accesslog"
	"github.com/toolgate/toolgate/pkg/catalog"
	"github.com/toolgate/toolgate/pkg/compiler"
	"github.com/toolgate/toolgate/pkg/config"
	"github.com/toolgate/toolgate/pkg/dashboard"
	"github.com/toolgate/toolgate/pkg/gateway"
	"github.com/toolgate/toolgate/pkg/identity"
	"github.com/toolgate/toolgate/pkg/loader"
	"github.com/toolgate/toolgate/pkg/metrics"
	"github.com/toolgate/toolgate/pkg/specstore"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "toolgate.yaml", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *configPath); err != nil {
		logger.Fatal("gateway failed", zap.Error(err))
	}
}

func run(logger *zap.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var store *specstore.Store
	if cfg.DatabaseMode() {
		logger.Info("database mode enabled", zap.String("url", cfg.MaskedDatabaseURL()))
		store, err = specstore.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	docs, err := loader.New(store, logger).LoadAll(ctx, cfg.Services)
	if err != nil {
		return err
	}

	// Compile each service document into its tool list, then merge.
	opts := compiler.Options{DefaultInclude: cfg.IncludeByDefault}
	services := make([]catalog.Service, 0, len(docs))
	for _, doc := range docs {
		tools := compiler.Compile(doc.Doc, opts)
		logger.Info("service compiled",
			zap.String("service", doc.Service),
			zap.Int("tools", len(tools)))
		services = append(services, catalog.Service{
			Name:    doc.Service,
			BaseURL: doc.BaseURL,
			Tools:   tools,
		})
	}
	cat := catalog.Aggregate(services, catalog.AccessPolicy{
		AllowWriteOperations: cfg.AllowWriteOperations,
	})
	cat.Lint()
	logCatalogDiagnostics(logger, cat)

	m := metrics.New()
	m.ObserveCatalog(cat)

	var access accesslog.Writer = accesslog.Nop{}
	if cfg.AccessLog.Enabled {
		fw, err := accesslog.NewFileWriter(cfg.AccessLog.Path, logger)
		if err != nil {
			return err
		}
		defer fw.Close()
		access = fw
	}

	var checker identity.Checker = identity.Static{}
	if cfg.IdentityURL != "" {
		checker = identity.NewHTTPChecker(cfg.IdentityURL, nil, logger)
	}

	categories := catalog.CategoryMap(cfg.Categories)
	manager := gateway.NewSessionManager(checker, categories, logger)
	dispatcher := gateway.NewDispatcher(cat, categories, nil, access, m, logger)
	transport := gateway.NewTransport(manager, dispatcher, logger,
		gateway.WithEndpointPath(cfg.EndpointPath),
		gateway.WithServerInfo("toolgate", version),
	)

	mux := http.NewServeMux()
	mux.Handle(transport.EndpointPath(), transport)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", dashboard.Health)
	mux.HandleFunc("/catalog", dashboard.Handler(cat, logger))

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  240 * time.Second,
		WriteTimeout: 240 * time.Second,
	}

	logger.Info("gateway listening",
		zap.String("addr", cfg.Listen),
		zap.String("endpoint", transport.EndpointPath()),
		zap.Int("tools", cat.Len()))

	return serveWithShutdown(srv, manager, logger)
}

// serveWithShutdown runs the server until SIGINT or SIGTERM, then drains
// in-flight requests and closes every active session.
func serveWithShutdown(srv *http.Server, manager *gateway.SessionManager, logger *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		manager.CloseAll()
		logger.Info("shutdown complete")
		return nil
	}
}

func logCatalogDiagnostics(logger *zap.Logger, cat *catalog.Catalog) {
	for i := range cat.Tools {
		tool := &cat.Tools[i]
		for _, entry := range tool.Logs {
			fields := []zap.Field{
				zap.String("tool", tool.Name),
				zap.String("service", tool.Service),
			}
			switch entry.Severity {
			case compiler.SeverityErr:
				logger.Error(strings.TrimSpace(entry.Message), fields...)
			case compiler.SeverityWarn:
				logger.Warn(strings.TrimSpace(entry.Message), fields...)
			default:
				logger.Info(strings.TrimSpace(entry.Message), fields...)
			}
		}
	}
}
