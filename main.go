package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	accountapp "backoffice-ledger/internal/accounts/application"
	accounts "backoffice-ledger/internal/accounts/domain"
	accountmemory "backoffice-ledger/internal/accounts/infrastructure/memory"
	accountrepo "backoffice-ledger/internal/accounts/infrastructure/postgres"
	accounthttp "backoffice-ledger/internal/accounts/interfaces"
	"backoffice-ledger/internal/audit"
	"backoffice-ledger/internal/auth"
	"backoffice-ledger/internal/balance"
	currency "backoffice-ledger/internal/currency/domain"
	"backoffice-ledger/internal/currency/feed"
	currencymemory "backoffice-ledger/internal/currency/infrastructure/memory"
	currencyrepo "backoffice-ledger/internal/currency/infrastructure/postgres"
	currencyhttp "backoffice-ledger/internal/currency/interfaces"
	"backoffice-ledger/internal/eventing"
	ledgerapp "backoffice-ledger/internal/ledger/application"
	ledger "backoffice-ledger/internal/ledger/domain"
	ledgermemory "backoffice-ledger/internal/ledger/infrastructure/memory"
	ledgerrepo "backoffice-ledger/internal/ledger/infrastructure/postgres"
	ledgerhttp "backoffice-ledger/internal/ledger/interfaces"
	"backoffice-ledger/internal/observability/metrics"
	periodapp "backoffice-ledger/internal/periods/application"
	periods "backoffice-ledger/internal/periods/domain"
	periodmemory "backoffice-ledger/internal/periods/infrastructure/memory"
	periodrepo "backoffice-ledger/internal/periods/infrastructure/postgres"
	periodhttp "backoffice-ledger/internal/periods/interfaces"
	"backoffice-ledger/internal/reports"
	reporthttp "backoffice-ledger/internal/reports/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		opened, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer opened.Close()
		if err := opened.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		if err := ledgerrepo.EnsureSchema(context.Background(), opened); err != nil {
			logger.Fatalf("db schema error: %v", err)
		}
		db = opened
	} else {
		logger.Printf("DATABASE_URL not set, using in-memory stores")
	}

	metrics.Init(db, logger)

	var (
		auditLogger  audit.Logger
		accountRepo  accounts.Repository
		currencyRepo currency.Repository
		periodRepo   periods.Repository
		store        ledger.Store
		executor     periodapp.CloseExecutor
	)
	if db != nil {
		auditLogger = audit.NewRepository(db)
		accountRepo = accountrepo.NewRepository(db)
		currencyRepo = currencyrepo.NewRepository(db)
		periodRepo = periodrepo.NewRepository(db)
		store = ledgerrepo.NewStore(db)
		executor = periodrepo.NewCloseExecutor(db)
	} else {
		auditLogger = audit.NewRecorder()
		accountRepo = accountmemory.NewRepository()
		currencyRepo = currencymemory.NewRepository()
		memPeriods := periodmemory.NewRepository()
		memStore := ledgermemory.NewStore()
		periodRepo = memPeriods
		store = memStore
		executor = periodmemory.NewCloseExecutor(memPeriods, memStore)
	}

	ensureBaseCurrency(currencyRepo, cfg.BaseCurrency, logger)

	bus := eventing.NewBus()
	cache := balance.NewCache(metrics.BalanceCacheHit, metrics.BalanceCacheMiss)
	cache.SubscribeInvalidation(bus, periodRepo)

	engine, err := balance.NewEngine(accountRepo, store, periodRepo, cache)
	if err != nil {
		logger.Fatalf("balance engine error: %v", err)
	}

	manager, err := periodapp.NewManager(periodRepo, accountRepo, engine, executor, bus, logger)
	if err != nil {
		logger.Fatalf("period manager error: %v", err)
	}

	validator, err := ledger.NewValidator(accountRepo, manager, currencyRepo, currencyRepo)
	if err != nil {
		logger.Fatalf("validator error: %v", err)
	}
	postingService, err := ledgerapp.NewPostingService(validator, store, manager, bus, logger)
	if err != nil {
		logger.Fatalf("posting service error: %v", err)
	}

	usage := ledgerapp.NewOpenPeriodUsage(store, periodRepo)
	registry, err := accountapp.NewRegistryService(accountRepo, usage, auditLogger)
	if err != nil {
		logger.Fatalf("registry service error: %v", err)
	}

	generator, err := reports.NewGenerator(engine, accountRepo, store)
	if err != nil {
		logger.Fatalf("report generator error: %v", err)
	}

	accountHandler, err := accounthttp.NewAccountHandler(registry, postingService, auditLogger)
	if err != nil {
		logger.Fatalf("account handler error: %v", err)
	}
	voucherHandler, err := ledgerhttp.NewVoucherHandler(postingService, auditLogger)
	if err != nil {
		logger.Fatalf("voucher handler error: %v", err)
	}
	yearHandler, err := periodhttp.NewYearHandler(manager, auditLogger)
	if err != nil {
		logger.Fatalf("year handler error: %v", err)
	}
	rateHandler, err := currencyhttp.NewRateHandler(currencyRepo, auditLogger)
	if err != nil {
		logger.Fatalf("rate handler error: %v", err)
	}
	categorizer := buildCategorizer(accountRepo, cfg.CashFlowCategories)
	reportHandler, err := reporthttp.NewReportHandler(generator, accountRepo, cfg.CashAccounts, categorizer)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	if cfg.RateFeedURL != "" {
		feedClient, err := feed.NewClient(cfg.RateFeedURL, cfg.RateFeedToken)
		if err != nil {
			logger.Fatalf("rate feed error: %v", err)
		}
		poller := feed.NewPoller(feedClient, currencyRepo, cfg.BaseCurrency, cfg.RateFeedInterval, logger)
		go poller.Run(context.Background())
		logger.Printf("rate feed polling %s", cfg.RateFeedURL)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/accounts", accountHandler)
	mux.Handle("/api/v1/accounts/", accountHandler)
	mux.Handle("/api/v1/vouchers", voucherHandler)
	mux.Handle("/api/v1/vouchers/", voucherHandler)
	mux.Handle("/api/v1/years", yearHandler)
	mux.Handle("/api/v1/years/", yearHandler)
	mux.Handle("/api/v1/currencies", rateHandler)
	mux.Handle("/api/v1/rates", rateHandler)
	mux.Handle("/api/v1/reports/", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// ensureBaseCurrency seeds the configured base currency when the store
// has none yet.
func ensureBaseCurrency(repo currency.Repository, code string, logger *log.Logger) {
	if code == "" {
		return
	}
	ctx := context.Background()
	if _, err := repo.Base(ctx); err == nil {
		return
	}
	if err := repo.Save(ctx, &currency.Currency{Code: code, IsBase: true}); err != nil {
		logger.Fatalf("base currency setup error: %v", err)
	}
	logger.Printf("base currency set to %s", code)
}

// buildCategorizer maps configured account codes to cash flow buckets.
// Unmapped accounts default to operating inside the generator.
func buildCategorizer(repo accounts.Repository, byCode map[string]string) reports.Categorizer {
	if len(byCode) == 0 {
		return nil
	}
	return reports.CategorizerFunc(func(accountID string) (reports.Category, bool) {
		account, err := repo.Get(context.Background(), accountID)
		if err != nil {
			return "", false
		}
		switch strings.ToLower(byCode[account.Code]) {
		case "investing":
			return reports.CategoryInvesting, true
		case "financing":
			return reports.CategoryFinancing, true
		case "operating":
			return reports.CategoryOperating, true
		}
		return "", false
	})
}

type config struct {
	DatabaseURL        string            `yaml:"database_url"`
	HTTPAddr           string            `yaml:"http_addr"`
	JWTSecret          string            `yaml:"jwt_secret"`
	BaseCurrency       string            `yaml:"base_currency"`
	CashAccounts       []string          `yaml:"cash_accounts"`
	CashFlowCategories map[string]string `yaml:"cash_flow_categories"`
	RateFeedURL        string            `yaml:"rate_feed_url"`
	RateFeedToken      string            `yaml:"rate_feed_token"`
	RateFeedInterval   time.Duration     `yaml:"rate_feed_interval"`
}

// loadConfig reads environment variables, then applies the optional
// YAML file named by LEDGER_CONFIG on top for the structured fields.
func loadConfig() config {
	cfg := config{
		DatabaseURL:  getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:     getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:    getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		BaseCurrency: getenvDefault("BASE_CURRENCY", "USD"),
	}
	if raw := os.Getenv("CASH_ACCOUNTS"); raw != "" {
		cfg.CashAccounts = strings.Split(raw, ",")
	}
	cfg.RateFeedURL = getenvDefault("RATE_FEED_URL", "")
	cfg.RateFeedToken = getenvDefault("RATE_FEED_TOKEN", "")
	if raw := os.Getenv("RATE_FEED_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("RATE_FEED_INTERVAL parse error: %v", err)
		}
		cfg.RateFeedInterval = interval
	}
	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config file error: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("config parse error: %v", err)
		}
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
