package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/loc-v2/internal/assetcache"
	"github.com/unklstewy/loc-v2/internal/console"
	"github.com/unklstewy/loc-v2/internal/logging"
	"github.com/unklstewy/loc-v2/pkg/config"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	useConsole := flag.Bool("console", false, "Run the operator console")
	install := flag.Bool("install", false, "Precache assets and activate the current generation on startup")
	flag.Parse()

	if *showVersion {
		fmt.Printf("asset-cache version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logs *console.LogManager
	if *useConsole {
		logs = console.NewLogManager(500)
		logger, err := logging.NewWithWriter(logs, cfg.Logging.Level)
		if err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		logging.SetLogger(logger)
	} else if err := logging.Init(logging.Options{Env: cfg.Logging.Env, Level: cfg.Logging.Level}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()
	logger := logging.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := assetcache.OpenStore(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open asset store", "store", cfg.AssetCache.Store, "error", err)
	}
	defer store.Close()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = time.Duration(cfg.AssetCache.UpstreamTimeoutSeconds) * time.Second

	cache, err := assetcache.New(store, assetcache.Options{
		Version:     cfg.AssetCache.Version,
		Policy:      assetcache.Policy{DynamicHosts: cfg.AssetCache.DynamicHosts},
		Origin:      cfg.AssetCache.Origin,
		StoreOnMiss: cfg.AssetCache.StoreOnMiss,
		Next:        transport,
		Logger:      logger.Named("assetcache"),
	})
	if err != nil {
		logging.Fatal("failed to create asset cache", "error", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: assetcache.NewServer(cache, assetcache.ServerOptions{
			Precache:       cfg.AssetCache.Precache,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger.Named("http"),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("asset cache listening", "addr", addr, "store", cfg.AssetCache.Store, "version", cache.Version())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("server failed", "error", err)
			cancel()
		}
	}()

	if *install {
		go installAndActivate(ctx, cache, cfg.AssetCache.Precache, logger)
	}

	if *useConsole {
		c := console.New(cache, logs, console.Options{
			Precache: cfg.AssetCache.Precache,
			Addr:     addr,
			Store:    cfg.AssetCache.Store,
		})
		if err := c.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
		}
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
		}
	}

	logger.Info("shutting down asset cache...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	logger.Info("asset cache stopped")
}

func installAndActivate(ctx context.Context, cache *assetcache.Cache, urls []string, logger *zap.SugaredLogger) {
	report := cache.Install(ctx, urls)
	if len(report.Failed) > 0 {
		logger.Warnw("some assets were not precached", "failed", report.Failed)
	}
	removed, err := cache.Activate(ctx)
	if err != nil {
		logger.Errorw("activation failed", "error", err)
		return
	}
	logger.Infow("cache activated", "version", cache.Version(), "removed", removed)
}

func printHelp() {
	fmt.Println("asset-cache - offline asset cache for the LOC V2 map")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  asset-cache [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/config.json)")
	fmt.Println("  -console")
	fmt.Println("        Run the operator console")
	fmt.Println("  -install")
	fmt.Println("        Precache assets and activate the current generation on startup")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("ENDPOINTS:")
	fmt.Println("  GET  /healthz")
	fmt.Println("  GET  /metrics")
	fmt.Println("  GET  /cache/status")
	fmt.Println("  POST /cache/install")
	fmt.Println("  POST /cache/activate")
	fmt.Println("  ANY  /fetch?url=<absolute url>")
}
