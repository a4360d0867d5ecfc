package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"intlschools/libs/datasets"
	"intlschools/libs/kommune"
	"intlschools/libs/mailer"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultDataCacheTTL      = time.Minute
	countsSourceCSV          = "csv"
	countsSourcePostgres     = "postgres"
	layerGrundskoler         = "grundskoler"
	layerGymnasier           = "gymnasier"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

type Config struct {
	Addr                string
	Env                 string
	DataRoot            string
	PublicBaseURL       string
	BoundaryFile        string
	BoundaryNameKey     string
	ChildrenFile        string
	ChildrenEncoding    datasets.Encoding
	LayerFiles          map[string]string
	CatalogFile         string
	DataCacheTTL        time.Duration
	CountsSource        string
	DatabaseURL         string
	ResendAPIKey        string
	MailerFromAddresses map[string]string
	SummaryEmailTo      []string
}

type App struct {
	cfg     *Config
	db      *sql.DB
	log     *slog.Logger
	catalog *kommune.Catalog

	normalizer *kommune.Normalizer
	enricher   *kommune.Enricher
	markers    *kommune.MarkerBuilder
	mailer     *mailer.Mailer
	templates  *dashboardTemplateRenderer

	snapshotMu      sync.Mutex
	snapshotCache   *dataSnapshot
	snapshotExpires time.Time

	// test hooks for dataset access
	loadSnapshot  func(ctx context.Context) (*dataSnapshot, error)
	loadCountRows func(ctx context.Context, columns []string) ([]datasets.ChildrenRow, error)
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := loadDotEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		panic(err)
	}

	var db *sql.DB
	if cfg.CountsSource == countsSourcePostgres {
		db, err = openCountsDB(context.Background(), cfg.DatabaseURL)
		if err != nil {
			panic(err)
		}
		defer db.Close()
	}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
		logger.Info("mailer initialized", "provider", "resend")
	} else {
		mailProvider = mailer.NewLogProvider(logger)
		logger.Info("mailer initialized", "provider", "log")
	}
	mailClient := mailer.New(mailProvider, cfg.MailerFromAddresses[mailProvider.Name()])

	app := newApp(cfg, catalog, logger)
	app.db = db
	app.mailer = mailClient
	if db != nil {
		app.loadCountRows = app.queryCountRows
	}

	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"data_root", cfg.DataRoot,
		"counts_source", cfg.CountsSource,
		"cache_ttl", cfg.DataCacheTTL.String(),
		"views", len(catalog.Views),
	)

	ctx := context.Background()

	if len(os.Args) > 1 && os.Args[1] == "export" {
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: dashboard export <view> <dir>")
			os.Exit(2)
		}
		files, err := app.writeExportFiles(ctx, os.Args[2], os.Args[3])
		if err != nil {
			panic(err)
		}
		logger.Info("exports written", "view", os.Args[2], "files", files)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "send-summary" {
		viewID := catalog.DefaultView().ID
		if len(os.Args) > 2 {
			viewID = os.Args[2]
		}
		if err := app.sendSummaryEmail(ctx, viewID); err != nil {
			panic(err)
		}
		return
	}

	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	if err := app.registerRoutes(r); err != nil {
		panic(err)
	}

	app.log.Info("starting dashboard", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

func newApp(cfg *Config, catalog *kommune.Catalog, logger *slog.Logger) *App {
	normalizer := catalog.Normalizer()
	app := &App{
		cfg:        cfg,
		log:        logger,
		catalog:    catalog,
		normalizer: normalizer,
		enricher:   kommune.NewEnricher(normalizer, cfg.BoundaryNameKey),
		markers:    kommune.NewMarkerBuilder(catalog.Locator(normalizer), bluemonday.StrictPolicy()),
		mailer:     mailer.New(mailer.NewLogProvider(logger), cfg.MailerFromAddresses["log"]),
		templates:  newDashboardTemplateRenderer(cfg.Env),
	}
	app.loadSnapshot = app.readSnapshot
	app.loadCountRows = app.readCountRowsCSV
	return app
}

func (a *App) registerRoutes(r *gin.Engine) error {
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	staticFS, err := dashboardStaticFileSystem(a.cfg.Env)
	if err != nil {
		return err
	}
	r.StaticFS("/static", staticFS)

	r.GET("/", a.dashboardPageHandler)
	r.GET("/notes", a.notesPageHandler)

	api := r.Group("/api/v1")
	{
		api.GET("/views", a.viewsHandler)
		api.GET("/dashboard", a.dashboardHandler)
		api.GET("/municipalities", a.municipalitiesHandler)
		api.GET("/exports/:format", a.exportDownloadHandler)
		api.GET("/diagnostics/join", a.joinDiagnosticsHandler)
	}
	return nil
}

func loadCatalog(path string) (*kommune.Catalog, error) {
	if path == "" {
		return kommune.DefaultCatalog()
	}
	return kommune.LoadCatalog(path)
}

func loadConfig() (*Config, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	publicBase := strings.TrimRight(valueOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	dataRoot := valueOrDefault("DATA_ROOT", ".")

	encoding, err := datasets.ParseEncoding(valueOrDefault("CHILDREN_ENCODING", string(datasets.CP1252)))
	if err != nil {
		return nil, fmt.Errorf("CHILDREN_ENCODING: %w", err)
	}

	cfg := &Config{
		Addr:             valueOrDefault("GIN_ADDR", ":8080"),
		Env:              env,
		DataRoot:         dataRoot,
		PublicBaseURL:    publicBase,
		BoundaryFile:     dataPath(dataRoot, valueOrDefault("BOUNDARY_FILE", "kommuner.geojson")),
		BoundaryNameKey:  valueOrDefault("BOUNDARY_NAME_KEY", "KOMNAVN"),
		ChildrenFile:     dataPath(dataRoot, valueOrDefault("CHILDREN_FILE", "children.csv")),
		ChildrenEncoding: encoding,
		LayerFiles: map[string]string{
			layerGrundskoler: dataPath(dataRoot, valueOrDefault("SCHOOLS_FILE", "schools.csv")),
			layerGymnasier:   dataPath(dataRoot, valueOrDefault("HIGH_SCHOOLS_FILE", "international_high_schools.csv")),
		},
		CatalogFile:  strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		DataCacheTTL: defaultDataCacheTTL,
		CountsSource: valueOrDefault("COUNTS_SOURCE", countsSourceCSV),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ResendAPIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddresses: map[string]string{
			"resend": valueOrDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@intlschools.dk"),
			"log":    valueOrDefault("MAILER_FROM_ADDRESS_LOG", "noreply@intlschools.local"),
		},
		SummaryEmailTo: splitList(os.Getenv("SUMMARY_EMAIL_TO")),
	}

	if rawTTL := strings.TrimSpace(os.Getenv("DATA_CACHE_TTL")); rawTTL != "" {
		parsed, err := time.ParseDuration(rawTTL)
		if err != nil {
			return nil, fmt.Errorf("DATA_CACHE_TTL must be a duration such as 30s or 5m")
		}
		if parsed < 0 {
			return nil, fmt.Errorf("DATA_CACHE_TTL must be >= 0")
		}
		cfg.DataCacheTTL = parsed
	}

	switch cfg.CountsSource {
	case countsSourceCSV:
	case countsSourcePostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = databaseURLFromParts()
		}
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("COUNTS_SOURCE=postgres requires DATABASE_URL or PG*/POSTGRES_* variables")
		}
	default:
		return nil, fmt.Errorf("COUNTS_SOURCE must be %q or %q", countsSourceCSV, countsSourcePostgres)
	}

	return cfg, nil
}

func databaseURLFromParts() string {
	host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
	user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
	password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
	sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}
	if dbname == "" || user == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
}

func dataPath(root, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, name)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadDotEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), "\"")
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
