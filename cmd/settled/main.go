// Command settled runs the settlement engine behind an HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/api"
	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/config"
	"github.com/openvenue/settled/pkg/custody"
	"github.com/openvenue/settled/pkg/identity"
	"github.com/openvenue/settled/pkg/primitives"
	"github.com/openvenue/settled/pkg/settlement"
	"github.com/openvenue/settled/pkg/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	directory := identity.NewDirectory()
	bank := custody.NewBank()

	if cfg.GenesisProfile != "" {
		if err := seedGenesis(cfg.GenesisProfile, directory, bank); err != nil {
			slog.Error("genesis seeding failed", "error", err)
			return 1
		}
	}

	sinks := []audit.Logger{audit.NewLogger()}
	var journal *store.Journal
	if cfg.JournalPath != "" {
		var err error
		journal, err = store.Open(cfg.JournalPath)
		if err != nil {
			slog.Error("journal open failed", "path", cfg.JournalPath, "error", err)
			return 1
		}
		defer func() { _ = journal.Close() }()
		sinks = append(sinks, journal)
	}

	engine := settlement.NewEngine(directory, bank, settlement.WithEventLogger(audit.Tee(sinks...)))
	service := api.NewService(engine, journal)

	limiter := api.NewGlobalRateLimiter(cfg.RateRPS, cfg.RateBurst)
	handler := api.RequestLogger(limiter.Middleware(service.Routes()))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("settlement engine listening",
			"addr", cfg.Addr,
			"module_account", string(engine.ModuleAccountID()),
			"module_identity", string(engine.ModuleIdentity()),
		)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			return 1
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

// seedGenesis applies a genesis profile to the directory and bank.
func seedGenesis(path string, directory *identity.Directory, bank *custody.Bank) error {
	profile, err := config.LoadGenesisProfile(path)
	if err != nil {
		return err
	}
	for _, acct := range profile.Identities {
		directory.Register(primitives.AccountID(acct.Account), primitives.IdentityID(acct.Identity))
	}
	for _, asset := range profile.Assets {
		ticker, err := primitives.NewTicker(asset.Ticker)
		if err != nil {
			return err
		}
		bank.RegisterAsset(ticker, primitives.IdentityID(asset.Owner))
		for _, holding := range asset.Holdings {
			amount, err := decimal.NewFromString(holding.Amount)
			if err != nil {
				return err
			}
			bank.Credit(primitives.IdentityID(holding.Identity), ticker, amount)
		}
	}
	slog.Info("genesis profile applied",
		"profile", profile.Name,
		"identities", len(profile.Identities),
		"assets", len(profile.Assets),
	)
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
