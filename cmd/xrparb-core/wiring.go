package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/config"
	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/exec"
	"github.com/xrparb/core/internal/feed"
	"github.com/xrparb/core/internal/fx"
	"github.com/xrparb/core/internal/monitor"
	"github.com/xrparb/core/internal/order"
	"github.com/xrparb/core/internal/premium"
	"github.com/xrparb/core/internal/queue"
	"github.com/xrparb/core/internal/ratelimit"
	"github.com/xrparb/core/internal/storage"
	"github.com/xrparb/core/internal/transfer"
)

// feedQueueCapacity is the per-venue SPSC ring buffer size between a
// feed's read goroutine and the strategy loop. It must be a power of
// two (queue.NewSPSCQueue panics otherwise); 1024 absorbs several
// seconds of ticker/orderbook churn even during a reconnect storm.
const feedQueueCapacity = 1024

// app bundles every long-lived component the run/dryrun commands drive.
// It is assembled once at startup from a config.Source and torn down on
// shutdown.
type app struct {
	cfgSource *config.Source
	log       zerolog.Logger

	symbols       *order.SymbolMaster
	primarySymbol string
	limiter       *ratelimit.Limiter
	orderClients  map[domain.Venue]order.Client
	withdrawers   map[domain.Venue]transfer.Withdrawer

	feeds       map[domain.Venue]feed.Client
	feedQueues  map[domain.Venue]*queue.SPSCQueue[feed.Event]
	calculator  *premium.Calculator
	executor    *exec.Executor
	recovery    *exec.RecoveryManager
	transfers   *transfer.Manager
	addressBook *transfer.AddressBook
	fxLoader    *fx.Loader
	publisher   *monitor.Publisher
	healthSrv   *monitor.HealthServer
	store       *storage.Store // nil when no postgres_dsn is configured
	redis       *redis.Client  // nil when no redis_addr is configured

	minEntryPremiumPercent float64
	orderQuantity          float64
	orderTimeout           time.Duration
}

// buildApp wires every component named in the configuration document at
// cfgPath. dryRun propagates to the executor, recovery manager, and
// transfer manager so no real order or withdrawal ever reaches a venue.
func buildApp(cfgPath string, dryRun bool, log zerolog.Logger) (*app, error) {
	src, err := config.NewSource(cfgPath, log)
	if err != nil {
		return nil, err
	}
	cfg := src.Current()

	symbols := order.NewSymbolMaster()
	var primarySymbol string
	for _, s := range cfg.Symbols {
		symbols.Add(s.Unified, s.Native["upbit"], s.Native["bithumb"], s.Native["binance"], s.Native["mexc"])
		if primarySymbol == "" {
			primarySymbol = s.Unified
		}
	}

	limiter := ratelimit.NewLimiter()
	for name, ex := range cfg.Exchanges {
		v, ok := domain.ParseVenue(name)
		if !ok || !ex.Enabled {
			continue
		}
		limiter.Configure(v, ratelimit.Order, ratelimit.Limits{RefillPerSecond: ex.OrderRPS, Burst: ex.OrderBurst})
		limiter.Configure(v, ratelimit.Query, ratelimit.Limits{RefillPerSecond: ex.QueryRPS, Burst: ex.QueryBurst})
	}

	orderClients := map[domain.Venue]order.Client{}
	withdrawers := map[domain.Venue]transfer.Withdrawer{}
	feeds := map[domain.Venue]feed.Client{}
	feedQueues := map[domain.Venue]*queue.SPSCQueue[feed.Event]{}

	var pub *monitor.Publisher
	if cfg.Server.MonitorAddr != "" {
		pub = monitor.NewPublisher(cfg.Server.MonitorAddr, log)
	}
	calc := premium.NewCalculator(cfg.Strategy.MinEntryPremiumPercent, func(opp domain.Opportunity) {
		if pub != nil {
			pub.PublishPremiumUpdate(opp)
		}
	})

	// Postgres is connected before the recovery manager and transfer
	// manager so their result callbacks below can close over store
	// directly instead of a forward reference.
	var store *storage.Store
	if cfg.PostgresDSN != "" {
		s, err := storage.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = s
	}

	for name, ex := range cfg.Exchanges {
		v, ok := domain.ParseVenue(name)
		if !ok || !ex.Enabled {
			continue
		}
		creds := order.Credentials{APIKey: ex.APIKey, APISecret: ex.APISecret}

		var nativeCodes []string
		for _, s := range cfg.Symbols {
			if code, ok := symbols.Native(s.Unified, v); ok {
				nativeCodes = append(nativeCodes, code)
			}
		}

		// Every venue feed publishes onto its own SPSC queue; the
		// strategy loop in cmd_run.go is the single consumer across
		// all four. listener stays nil — it exists on feed.Client
		// only for single-threaded tests (see internal/feed).
		q := queue.NewSPSCQueue[feed.Event](feedQueueCapacity)
		feedQueues[v] = q

		switch v {
		case domain.Upbit:
			rc := order.NewUpbitREST(creds, limiter, symbols)
			orderClients[v] = rc
			withdrawers[v] = rc
			feeds[v] = feed.NewUpbitClient(nativeCodes, q, nil, log)
		case domain.Bithumb:
			rc := order.NewBithumbREST(creds, limiter, symbols)
			orderClients[v] = rc
			withdrawers[v] = rc
			feeds[v] = feed.NewBithumbClient(nativeCodes, q, nil, log)
		case domain.Binance:
			rc := order.NewBinanceREST(creds, limiter, symbols)
			orderClients[v] = rc
			withdrawers[v] = rc
			feeds[v] = feed.NewBinanceClient(nativeCodes, q, nil, log)
		case domain.MEXC:
			rc := order.NewMEXCREST(creds, limiter, symbols)
			orderClients[v] = rc
			withdrawers[v] = rc
			feeds[v] = feed.NewMEXCClient(nativeCodes, q, nil, log)
		}
	}

	recovery := exec.NewRecoveryManager(orderClients, 3, cfg.Strategy.OrderTimeout, dryRun, func(rr domain.RecoveryResult) {
		log.Warn().Str("action", rr.Plan.Action.String()).Bool("success", rr.Success).Int("retries", rr.RetryCount).Msg("recovery completed")
		if store != nil {
			if err := store.SaveRecoveryResult(context.Background(), rr); err != nil {
				log.Error().Err(err).Msg("persist recovery result failed")
			}
		}
	}, nil, log)
	executor := exec.NewExecutor(orderClients, recovery, dryRun, log)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	addresses := map[domain.Venue]transfer.Address{}
	for name, a := range cfg.Transfer {
		if v, ok := domain.ParseVenue(name); ok {
			addresses[v] = transfer.Address{Address: a.Address, DestinationTag: a.DestinationTag, Whitelisted: a.Whitelisted}
		}
	}
	book := transfer.NewAddressBook(addresses)

	transferMgr := transfer.NewManager(withdrawers, book, redisClient, cfg.Strategy.OrderTimeout, dryRun,
		func(r domain.TransferResult) {
			if pub != nil {
				pub.PublishTransferResult(r)
			}
			if store != nil {
				if err := store.SaveTransferResult(context.Background(), r); err != nil {
					log.Error().Err(err).Msg("persist transfer result failed")
				}
			}
		},
		func(r domain.TransferResult) {
			log.Info().Str("transfer", r.TransferID).Str("status", r.Status.String()).Msg("transfer completed")
		}, log)

	var fxLoader *fx.Loader
	if cfg.FXSourcePath != "" {
		fxLoader = fx.NewLoader(cfg.FXSourcePath, nil)
	}

	a := &app{
		cfgSource:              src,
		log:                    log,
		symbols:                symbols,
		primarySymbol:          primarySymbol,
		limiter:                limiter,
		orderClients:           orderClients,
		withdrawers:            withdrawers,
		feeds:                  feeds,
		feedQueues:             feedQueues,
		calculator:             calc,
		executor:               executor,
		recovery:               recovery,
		transfers:              transferMgr,
		addressBook:            book,
		fxLoader:               fxLoader,
		publisher:              pub,
		store:                  store,
		redis:                  redisClient,
		minEntryPremiumPercent: cfg.Strategy.MinEntryPremiumPercent,
		orderQuantity:          cfg.Strategy.MinOrderQuantity,
		orderTimeout:           cfg.Strategy.OrderTimeout,
	}

	a.healthSrv = monitor.NewHealthServer(cfg.Server.HealthAddr, a.statsSnapshot, log)
	return a, nil
}

// statsSnapshot gathers the health server's point-in-time view of feed
// session state and executor counters.
func (a *app) statsSnapshot() monitor.StatsSnapshot {
	states := make(map[string]string, len(a.feeds))
	for v, f := range a.feeds {
		states[v.String()] = f.State().String()
	}
	return monitor.StatsSnapshot{
		FeedStates: states,
		Executor: monitor.ExecutorSnapshot{
			TotalRequests:  a.executor.Stats.TotalRequests.Load(),
			BothSuccess:    a.executor.Stats.BothSuccess.Load(),
			PartialSuccess: a.executor.Stats.PartialSuccess.Load(),
			TotalFailures:  a.executor.Stats.TotalFailures.Load(),
		},
	}
}

// close releases every network-backed resource the app opened.
func (a *app) close() {
	for _, f := range a.feeds {
		f.Stop()
	}
	if a.healthSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.healthSrv.Shutdown(ctx)
		cancel()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
