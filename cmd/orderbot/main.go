// Command orderbot runs the merch order bot: Telegram long polling, the
// delivery reconciliation loop, the catalog reloader, and the auxiliary HTTP
// server (health, metrics, operator API). It stops gracefully on SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/bot"
	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/config"
	"github.com/tbourn/merch-order-bot/internal/domain"
	httpapi "github.com/tbourn/merch-order-bot/internal/http"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/observability"
	"github.com/tbourn/merch-order-bot/internal/reconcile"
	"github.com/tbourn/merch-order-bot/internal/repo"
	"github.com/tbourn/merch-order-bot/internal/services"
	"github.com/tbourn/merch-order-bot/internal/session"
	"github.com/tbourn/merch-order-bot/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// .env is optional; real deployments pass the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.SetupLogging(nil, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, ver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, ver); err != nil {
		log.Fatal().Err(err).Msg("orderbot stopped with error")
	}
	log.Info().Msg("orderbot stopped")
}

func run(ctx context.Context, cfg config.Config, ver string) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		// The catalog job may not have run yet; start empty and pick it up
		// on the next reload.
		log.Warn().Err(err).Str("path", cfg.CatalogPath).Msg("catalog not loaded")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	log.Info().Str("bot", api.Self.UserName).Int64("admin_chat", cfg.AdminChatID).Msg("telegram connected")
	send := messenger.NewTelegram(api)

	ledger := &services.Ledger{DB: db}
	orders := services.NewOrderService(db, ledger, cat, send, cfg.AdminChatID, cfg.CardDetails)
	ship := carrier.NewClient(cfg.Carrier)

	b := &bot.Bot{
		Orders:    orders,
		Discounts: &services.DiscountService{Ledger: ledger, Notify: send, AdminChatID: cfg.AdminChatID},
		Shipments: &services.ShipmentService{
			Orders:      orders,
			Carrier:     ship,
			SenderName:  cfg.Carrier.SenderName,
			SenderPhone: cfg.Carrier.SenderPhone,
		},
		Support:     &services.SupportService{DB: db, Notify: send, AdminChatID: cfg.AdminChatID},
		Ledger:      ledger,
		Catalog:     cat,
		Send:        send,
		AdminChatID: cfg.AdminChatID,
		Drafts:      session.New[domain.Draft](cfg.DraftTTL),
		Dialogs:     session.New[bot.AdminDialog](cfg.DraftTTL),
	}
	dispatcher := bot.NewDispatcher(b, db, cfg.UpdateLogTTL)

	rec := &reconcile.Reconciler{
		DB:       db,
		Orders:   orders,
		Carrier:  ship,
		Interval: cfg.ReconcileInterval,
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, orders, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	goRun := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			log.Debug().Str("task", name).Msg("stopped")
		}()
	}

	goRun("catalog", func() {
		cat.Watch(ctx, cfg.CatalogReload, func(err error) {
			log.Warn().Err(err).Msg("catalog reload")
		})
	})
	goRun("reconcile", func() { rec.Run(ctx) })
	goRun("poll", func() { bot.Poll(ctx, api, dispatcher, cfg.PollTimeout) })

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", gin.Mode()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
	}

	log.Info().Msg("shutting down")
	cancelRun()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	dispatcher.Wait()
	return runErr
}
