package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/industrieschule/vertretungsplan/internal/auth"
	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/database"
	"github.com/industrieschule/vertretungsplan/internal/logging"
	"github.com/industrieschule/vertretungsplan/internal/metrics"
	"github.com/industrieschule/vertretungsplan/internal/routes"
	"github.com/industrieschule/vertretungsplan/internal/ws"
)

const shutdownGracePeriod = 15 * time.Second

var signalNotify = signal.Notify

type flags struct {
	port       string
	debug      bool
	envFile    string
	siteConfig string
}

// Replaced in tests.
var newLogger = logging.New

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := kingpin.New("vertretungsplan", "Vertretungsplan API server")
	app.UsageWriter(stderr).ErrorWriter(stderr)
	var f flags
	app.Flag("port", "HTTP port (overrides API_PORT)").StringVar(&f.port)
	app.Flag("debug", "Enable debug mode and demo endpoints (overrides DEBUG)").BoolVar(&f.debug)
	app.Flag("env-file", "Path to a .env file").Default(".env").StringVar(&f.envFile)
	app.Flag("site-config", "Path to the site YAML file (overrides SITE_CONFIG_FILE)").StringVar(&f.siteConfig)

	serveCmd := app.Command("serve", "Run the API server").Default()
	siteCmd := app.Command("site", "Print the resolved site configuration and validate it")

	cmd, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", app.Name, err)
		return 2
	}

	// .env is optional in production
	_ = godotenv.Load(f.envFile)

	cfg := config.Load()
	if f.port != "" {
		cfg.Port = f.port
	}
	if f.debug {
		cfg.Debug = true
	}
	if f.siteConfig != "" {
		cfg.SiteConfigFile = f.siteConfig
	}

	switch cmd {
	case siteCmd.FullCommand():
		if err := printSite(cfg, stdout); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case serveCmd.FullCommand():
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
			return 1
		}
		logger, err := newLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
			return 1
		}
		err = serve(cfg, logger)
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
		_ = logger.Sync()
		if err != nil {
			return 1
		}
	}
	return 0
}

func printSite(cfg *config.Config, w io.Writer) error {
	site, err := config.LoadSite(cfg.SiteConfigFile)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(site)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting Vertretungsplan API",
		zap.String("port", cfg.Port),
		zap.String("prefix", cfg.APIPrefix),
		zap.String("db_driver", cfg.DBDriver),
		zap.Bool("debug", cfg.Debug))
	if cfg.Debug {
		logger.Warn("debug mode is on: demo endpoints are mounted and errors include stack traces")
	}

	key, err := auth.LoadOrCreateKeys(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	issuer := auth.NewIssuer(key, cfg.JWTIssuer, cfg.SessionTTL())

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("closing database failed", zap.Error(err))
		}
	}()
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.SeedAdmin(db, cfg, logger); err != nil {
		return err
	}

	site, err := config.NewSiteSource(cfg.SiteConfigFile, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := site.Watch(ctx); err != nil {
			logger.Warn("site config watcher stopped", zap.Error(err))
		}
	}()

	m := metrics.New()
	hub := ws.NewPlanHub(logger, m)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	mounted, err := routes.Register(ctx, r, routes.Deps{
		DB:      db,
		Cfg:     cfg,
		Issuer:  issuer,
		Hub:     hub,
		Site:    site,
		Metrics: m,
		Log:     logger,
	})
	if err != nil {
		return err
	}
	logger.Info("endpoints mounted", zap.Int("count", len(mounted)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API is ready", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
	cancel()
	<-hubDone
	logger.Info("server stopped")
	return nil
}
