// Command gateway is the execution-path process entrypoint: it
// bootstraps logging/config, constructs the venue adapter named by
// --exchange, wires it into the tracker and the ingress/egress bus
// plane, and runs until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/latentspeed/gateway/adapter"
	"github.com/latentspeed/gateway/adapter/bybit"
	"github.com/latentspeed/gateway/adapter/hyperliquid"
	"github.com/latentspeed/gateway/gateway"
	"github.com/latentspeed/gateway/internal/config"
	"github.com/latentspeed/gateway/internal/logging"
	"github.com/latentspeed/gateway/internal/router"
	"github.com/latentspeed/gateway/tracker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on a clean shutdown, 1 on a
// config/validation error or a fatal runtime error (logged before return).
func run() int {
	var (
		exchange  = flag.String("exchange", "", "venue adapter to run (bybit, hyperliquid)")
		apiKey    = flag.String("api-key", "", "override the venue API key / vault address from the environment")
		apiSecret = flag.String("api-secret", "", "override the venue API secret / private key from the environment")
		liveTrade = flag.Bool("live-trade", false, "trade against the venue's production environment")
		demo      = flag.Bool("demo", false, "trade against the venue's demo/testnet environment (default)")
	)
	flag.Parse()

	// logging.Bootstrap loads .env as a side effect, so it must run before
	// config.Load reads env vars that might only exist in that file. The
	// debug level gets set a second time below once cfg reflects .env.
	logging.Bootstrap(false)
	cfg := config.Load()
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *exchange == "" {
		log.Error().Msg("--exchange is required")
		return 1
	}
	if *liveTrade && *demo {
		log.Error().Msg("--live-trade and --demo are mutually exclusive")
		return 1
	}
	testnet := !*liveTrade

	a, err := buildAdapter(*exchange)
	if err != nil {
		log.Error().Err(err).Str("exchange", *exchange).Msg("unsupported exchange")
		return 1
	}

	key, secret := credentialsFor(*exchange, *apiKey, *apiSecret, cfg)
	if err := a.Initialize(key, secret, testnet); err != nil {
		log.Error().Err(err).Msg("adapter initialization failed")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := router.New()
	r.Register(a.ExchangeName(), a)

	gw := gateway.New(cfg.IngressAddr, cfg.EgressAddr, r, cfg.ProcessedIDSetCapacity)
	tr := tracker.New(true, gw.Handlers())
	gw.AttachTracker(tr)

	a.SetOrderUpdateCallback(func(u adapter.OrderUpdateEvent) { tr.ProcessOrderUpdate(u) })
	a.SetFillCallback(func(f adapter.FillEvent) { tr.ProcessTradeUpdate(f) })
	a.SetErrorCallback(func(err error, reason string) {
		log.Error().Err(err).Str("reason", reason).Msg("adapter error")
	})

	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	defer cancelConnect()
	if err := a.Connect(connectCtx); err != nil {
		log.Error().Err(err).Msg("adapter connect failed")
		return 1
	}
	defer a.Disconnect()

	if err := gw.Start(ctx); err != nil {
		log.Error().Err(err).Msg("gateway failed to bind bus sockets")
		return 1
	}
	defer gw.Stop()

	log.Info().
		Str("exchange", a.ExchangeName()).
		Bool("testnet", testnet).
		Str("ingress", cfg.IngressAddr).
		Str("egress", cfg.EgressAddr).
		Msg("gateway running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Warn().Msg("shutdown signal received, stopping")
	return 0
}

func buildAdapter(exchange string) (adapter.Adapter, error) {
	switch exchange {
	case "bybit":
		return bybit.New(), nil
	case "hyperliquid":
		return hyperliquid.New(), nil
	default:
		return nil, fmt.Errorf("no adapter registered for exchange %q", exchange)
	}
}

// credentialsFor resolves the venue credential pair, preferring the
// --api-key/--api-secret CLI flags over the environment-sourced config.
func credentialsFor(exchange, flagKey, flagSecret string, cfg *config.Config) (string, string) {
	key, secret := "", ""
	switch exchange {
	case "bybit":
		key, secret = cfg.BybitAPIKey, cfg.BybitAPISecret
	case "hyperliquid":
		key, secret = cfg.HLVaultAddress, cfg.HLPrivateKey
	}
	if flagKey != "" {
		key = flagKey
	}
	if flagSecret != "" {
		secret = flagSecret
	}
	return key, secret
}
