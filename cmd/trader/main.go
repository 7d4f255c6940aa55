package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/cache"
	"main/internal/config"
	"main/internal/exec"
	"main/internal/feed"
	"main/internal/model"
	"main/internal/notify"
	"main/internal/risk"
	"main/internal/service"
	"main/internal/storage"
	"main/internal/strategy"
	"main/pkg/conn"
)

const busQueueCap = 256

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logs.Fatalf("load config, err: %+v", err)
	}

	if cfg.Profiling.ServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   cfg.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Fatalf("pyroscope start failed, err: %+v", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	repo, cleanup, err := buildRepository(cfg)
	if err != nil {
		logs.Fatalf("open repository, err: %+v", err)
	}
	defer cleanup()

	b := bus.New(busQueueCap)
	defer b.Close()

	notifier := buildNotifier(cfg)

	// market feed
	source, err := buildSource(ctx, cfg)
	if err != nil {
		logs.Fatalf("build market source, err: %+v", err)
	}
	feedSvc := feed.NewService(source, b)

	// signal aggregation
	configStore := strategy.NewConfigStore(repo, cache.NewMemory())
	if err := configStore.Load(ctx, defaultSourceConfigs(cfg.Trading.Symbols)); err != nil {
		logs.Fatalf("load source configs, err: %+v", err)
	}
	strategySvc := strategy.NewService(
		strategy.ServiceConfig{Interval: cfg.Trading.AggregationInterval},
		[]strategy.Source{strategy.NewMomentum(), strategy.NewMeanReversion(), strategy.NewFundingArb()},
		configStore,
		b,
	)

	// execution: paper book over the live or synthetic feed
	prices := exec.NewPriceBook()
	simulator := exec.NewSimulator(cfg.Trading.InitialBalance, prices.Lookup)
	execSvc := exec.NewService(
		exec.ServiceConfig{
			Simulated:       true,
			MonitorInterval: cfg.Execution.MonitorInterval,
			SizingTimeout:   cfg.Execution.SizingTimeout,
			OrderTimeout:    cfg.Execution.OrderTimeout,
			MaxRetries:      cfg.Execution.MaxRetries,
		},
		simulator, repo, b, notifier, prices,
	)

	// risk
	engine := risk.NewEngine(risk.Config{
		Limits: model.RiskLimits{
			MaxDailyLossPct:       cfg.Risk.MaxDailyLossPct,
			MaxLeverage:           cfg.Risk.MaxLeverage,
			MaxPositionSizePct:    cfg.Risk.MaxPositionSizePct,
			MaxDrawdownPct:        cfg.Risk.MaxDrawdownPct,
			MaxOpenPositions:      cfg.Risk.MaxOpenPositions,
			ConcentrationLimitPct: cfg.Risk.ConcentrationLimitPct,
			LiquidationBufferPct:  cfg.Risk.LiquidationBufferPct,
		},
		DefaultLeverage: cfg.Risk.DefaultLeverage,
	}, simulator, repo)
	riskSvc := risk.NewService(risk.ServiceConfig{SnapshotInterval: cfg.Risk.SnapshotInterval}, engine, b, notifier)

	services := []service.Service{feedSvc, riskSvc, strategySvc, execSvc}
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			logs.Fatalf("start %s, err: %+v", svc.Health().Name, err)
		}
		logs.Infof("%s started", svc.Health().Name)
	}

	if err := b.Publish(bus.Envelope{Topic: bus.TopicCommand, Payload: bus.CommandStartTrading}); err != nil {
		logs.Warnf("start command dropped, err: %+v", err)
	}

	<-ctx.Done()
	logs.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(shutdownCtx); err != nil {
			logs.Errorf("stop %s, err: %+v", services[i].Health().Name, err)
		}
	}
}

// buildRepository selects durable history: postgres in live mode, memory
// in simulation.
func buildRepository(cfg config.Config) (storage.Repository, func(), error) {
	if cfg.Trading.Mode != "live" {
		return storage.NewMemory(), func() {}, nil
	}

	db, err := conn.OpenPostgres(conn.PostgresOption{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, nil, err
	}

	repo, err := storage.NewGorm(db)
	if err != nil {
		_ = conn.ClosePostgres(db)
		return nil, nil, err
	}
	return repo, func() { _ = conn.ClosePostgres(db) }, nil
}

// buildSource selects the observation stream: the binance futures
// websocket in live mode, a seeded random walk in simulation.
func buildSource(ctx context.Context, cfg config.Config) (feed.Source, error) {
	if cfg.Trading.Mode != "live" {
		return feed.NewSynthetic(feed.SyntheticConfig{
			Symbols:  cfg.Trading.Symbols,
			Interval: cfg.Trading.FeedInterval,
			Seed:     time.Now().UnixNano(),
		})
	}

	return feed.NewBinancePub(ctx, cfg.Trading.Symbols...), nil
}

func buildNotifier(cfg config.Config) notify.Notifier {
	if cfg.Telegram.Token == "" {
		return notify.Log{}
	}
	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		logs.Warnf("bad telegram chat id %q, alerts go to the log", cfg.Telegram.ChatID)
		return notify.Log{}
	}
	return notify.NewTelegram(cfg.Telegram.Token, chatID)
}

func defaultSourceConfigs(symbols []string) []model.SourceConfig {
	return []model.SourceConfig{
		{ID: "momentum", Enabled: true, Weight: 0.4, Symbols: symbols, Timeframes: []string{"1m"}},
		{ID: "meanrev", Enabled: true, Weight: 0.3, Symbols: symbols, Timeframes: []string{"1m"}},
		{ID: "fundingarb", Enabled: true, Weight: 0.3, Symbols: symbols, Timeframes: []string{"8h"}},
	}
}
