package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/krakenpnl/src/config"
	"github.com/username/krakenpnl/src/database"
	"github.com/username/krakenpnl/src/handlers"
	"github.com/username/krakenpnl/src/kraken"
	"github.com/username/krakenpnl/src/logger"
	"github.com/username/krakenpnl/src/processors"
	"github.com/username/krakenpnl/src/report"
	"github.com/username/krakenpnl/src/services"
	"github.com/username/krakenpnl/src/store"
	"golang.org/x/time/rate"
)

func main() {
	pair := flag.String("pair", "", "trading pair symbol (e.g. XXBTZEUR); required")
	tier := flag.String("tier", "starter", "API tier: starter, intermediate, or pro")
	userref := flag.String("userref", "", "user reference id to scope trades to")
	year := flag.Int("year", 0, "report window: calendar year (e.g. 2024)")
	start := flag.String("start", "", "report window start date (YYYY-MM-DD)")
	end := flag.String("end", "", "report window end date, inclusive (YYYY-MM-DD)")
	csvPath := flag.String("csv", "", "write the normalized trades to a CSV file")
	serve := flag.Bool("serve", false, "run the HTTP report API instead of a one-shot report")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	svc, err := buildService(*tier)
	if err != nil {
		logger.L.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	if *serve {
		runServer(svc)
		return
	}

	if *pair == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -pair SYMBOL [-tier TIER] [-userref REF] [-year YYYY | -start YYYY-MM-DD -end YYYY-MM-DD] [-csv FILE]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	req := services.ComputeRequest{Pair: *pair, Tier: *tier}
	if *userref != "" {
		ref, err := strconv.ParseInt(*userref, 10, 64)
		if err != nil {
			logger.L.Error("Invalid userref", "userref", *userref)
			os.Exit(2)
		}
		req.UserRef = &ref
	}
	window, err := buildWindow(*year, *start, *end)
	if err != nil {
		logger.L.Error("Invalid report window", "error", err)
		os.Exit(2)
	}
	req.Window = window

	ctx := context.Background()

	if *csvPath != "" {
		trades, err := svc.Trades(ctx, req)
		if err != nil {
			logger.L.Error("Fetching trades for CSV export failed", "error", err)
			os.Exit(1)
		}
		if err := report.WriteTradesCSV(*csvPath, trades); err != nil {
			logger.L.Error("CSV export failed", "error", err)
			os.Exit(1)
		}
		logger.L.Info("Wrote trade listing", "path", *csvPath, "trades", len(trades))
	}

	result, err := svc.Compute(ctx, req)
	if err != nil {
		logger.L.Error("PnL computation failed", "pair", *pair, "error", err)
		os.Exit(1)
	}
	report.PrintSummary(os.Stdout, result)
}

func buildService(tier string) (services.PnLService, error) {
	client := kraken.NewClient(kraken.Config{
		APIKey:    config.Cfg.APIKey,
		APISecret: config.Cfg.APISecret,
		BaseURL:   config.Cfg.APIBaseURL,
		Timeout:   config.Cfg.HTTPTimeout,
		Tier:      tier,
	})

	var tradeStore *store.TradeStore
	if config.Cfg.CacheEnabled {
		db, err := database.Open(config.Cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening trade cache: %w", err)
		}
		tradeStore = store.NewTradeStore(db)
	}

	memCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	return services.NewPnLService(client, tradeStore, config.Cfg.TradeCacheTTL, memCache), nil
}

func buildWindow(year int, start, end string) (processors.Window, error) {
	if year != 0 {
		if start != "" || end != "" {
			return processors.Window{}, fmt.Errorf("-year cannot be combined with -start/-end")
		}
		return processors.YearWindow(year), nil
	}

	var window processors.Window
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return processors.Window{}, fmt.Errorf("invalid -start date %q: %w", start, err)
		}
		window.Start = t.UTC()
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return processors.Window{}, fmt.Errorf("invalid -end date %q: %w", end, err)
		}
		window.End = t.UTC().AddDate(0, 0, 1)
	}
	return window, nil
}

func runServer(svc services.PnLService) {
	pnlHandler := handlers.NewPnLHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(handlers.RateLimitMiddleware(rate.NewLimiter(rate.Every(100*time.Millisecond), 30)))
	r.Get("/api/pnl", pnlHandler.HandleGetPnL)

	addr := ":" + config.Cfg.Port
	logger.L.Info("Report API listening", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // Kraken pagination on a cold cache is slow on low tiers
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.L.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
