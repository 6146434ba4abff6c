package main

import (
	"cmp"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tablerest/tablerest/pkg/httputil"
	mw "github.com/tablerest/tablerest/pkg/httputil/middleware"
	"github.com/tablerest/tablerest/pkg/metrics"
	"github.com/tablerest/tablerest/pkg/openapi"
	"github.com/tablerest/tablerest/pkg/rest"
	"github.com/tablerest/tablerest/pkg/schema"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Starts an HTTP server exposing CRUD endpoints generated from the database schema`,
	Run:   runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("rest.pg.connString", "c", "", "PostgreSQL connection string")
	f.StringP("rest.listenAddr", "l", "", "REST server listen address")
	f.String("rest.baseURL", "", "Base URL for API endpoints")
	f.StringSlice("rest.excludedTables", nil, "Tables hidden from the API")
	f.String("rest.jwt.secret", "", "HMAC secret for bearer-token subject extraction")
	f.String("metrics.listenAddr", "", "Prometheus metrics listen address")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	if cfg == nil {
		log.Fatal("Configuration not loaded")
	}

	connString := cmp.Or(cfg.REST.PG.ConnString, os.Getenv("TABLEREST_PG_CONN_STRING"))
	if connString == "" {
		log.Fatal("PostgreSQL connection string required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		logger.Fatal("failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	// The schema registry is built exactly once; retry only the startup
	// load, never per-request operations.
	var registry *schema.Registry
	loadSchema := func() error {
		var err error
		registry, err = schema.LoadPostgres(ctx, pool, cmp.Or(cfg.REST.PG.Schema, "public"))
		return err
	}
	if err := backoff.Retry(loadSchema, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		logger.Fatal("failed to load schema registry", zap.Error(err))
	}
	logger.Info("schema registry loaded", zap.Int("tables", registry.Len()))

	// flag overrides
	if listenAddr := viper.GetString("rest.listenAddr"); listenAddr != "" {
		cfg.REST.ListenAddr = listenAddr
	}
	if cfg.REST.ListenAddr == "" {
		cfg.REST.ListenAddr = ":8080"
	}

	opts := []rest.Option{
		rest.WithBaseURL(cfg.REST.BaseURL),
		rest.WithExcludedTables(cfg.REST.ExcludedTables...),
		rest.WithLogger(logger),
	}
	for table, ownerColumn := range cfg.REST.OwnedTables {
		opts = append(opts, rest.WithInsertHook(table, ownerHook(ownerColumn)))
	}

	server := rest.NewServer(registry, rest.NewPgExecutor(pool), opts...)

	server.AddMiddleware(
		mw.RequestID,
		mw.CORSWithOptions(nil),
	)
	if cfg.REST.JWT.Secret != "" {
		server.AddMiddleware(mw.VerifyBearerToken(mw.BearerConfig{Secret: []byte(cfg.REST.JWT.Secret)}))
	}
	if logLevel != "none" {
		server.AddMiddleware(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	// documentation and introspection endpoints
	gen := openapi.NewGenerator(registry, openapi.Info{
		Title:       cfg.OpenAPI.Title,
		Description: cfg.OpenAPI.Description,
		Version:     cfg.OpenAPI.Version,
	}).WithExcludedTables(cfg.REST.ExcludedTables...)
	for _, url := range cfg.OpenAPI.Servers {
		gen.WithServers(openapi.ServerEntry{URL: url})
	}
	server.Handle(cfg.REST.BaseURL+"/openapi.json", gen)
	server.Handle("/debug/schema", registry.Handler())

	// metrics server
	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.Metrics.ListenAddr != "" {
		metrics.StartPrometheusServer(metricsCtx, &wg, &metrics.PromServerOpts{
			Addr:   cfg.Metrics.ListenAddr,
			Path:   cfg.Metrics.Path,
			Logger: logger,
		})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.REST.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	cancelMetrics()
	wg.Wait()
}

// ownerHook stamps the authenticated subject into the configured owner
// column when the row does not already carry a value.
func ownerHook(ownerColumn string) rest.InsertHook {
	return func(r *http.Request, row map[string]any) {
		if _, set := row[ownerColumn]; set {
			return
		}
		if sub, ok := httputil.Subject(r); ok {
			row[ownerColumn] = sub
		}
	}
}
