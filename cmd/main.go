package main

import (
	"bytes"
	"context"
	"crypto-alert-bot/config"
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/internal/database"
	"crypto-alert-bot/internal/metrics"
	"crypto-alert-bot/internal/price"
	"crypto-alert-bot/internal/telegram"
	"crypto-alert-bot/lib/translation"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("bot_lang"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	m := metrics.New(prometheus.DefaultRegisterer)
	m.LoadFromDB()

	store := alert.NewStore(config.GetString("alerts_file"))
	log.Infof("Loaded %d alerts from %s", store.Len(), config.GetString("alerts_file"))

	prices := price.NewPaprikaSource(price.Config{
		APIKey:      config.GetString("api_pro_key"),
		Timeout:     config.GetDuration("price_timeout"),
		Retries:     config.GetInt("price_retries"),
		Backoff:     config.GetDuration("price_backoff"),
		Concurrency: config.GetInt("price_concurrency"),
		CacheTTL:    config.GetDuration("price_cache_ttl"),
	})

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
		Operators:      config.GetInt64Slice("admin_user_ids"),
	}, store, prices, m)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	checker := alert.NewChecker(store, prices, bot.Notifier(), alert.CheckerConfig{
		Interval:        config.GetDuration("check_interval"),
		StopTimeout:     config.GetDuration("stop_timeout"),
		Concurrency:     config.GetInt("check_concurrency"),
		DeliveryTimeout: config.GetDuration("delivery_timeout"),
		Metrics:         m,
	})
	ready := make(chan struct{})
	checker.Start(ctx, ready)

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}
	close(ready)

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		handleUpdates(ctx, bot, m, updates)
	}()

	go flushMetrics(ctx, m, config.GetDuration("metrics_flush_interval"))

	server := launchMetricsAndHealthServer(config.GetInt("metrics_port"))

	<-ctx.Done()
	log.Info("Shutting down...")

	bot.StopReceivingUpdates()
	select {
	case <-handled:
	case <-time.After(shutdownTimeout):
		log.Warn("Update handler did not finish in time")
	}

	checker.Stop()
	m.SaveToDB()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shut down metrics server: %v", err)
	}
	log.Info("Bye.")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(config.GetString("log_level"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func flushMetrics(ctx context.Context, m *metrics.Metrics, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SaveToDB()
		}
	}
}

func handleUpdates(ctx context.Context, bot *telegram.Bot, m *metrics.Metrics, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message or non-command")
			continue
		}

		if !update.Message.IsCommand() {
			continue
		}

		m.MessagesHandled.Inc()

		chatID := update.Message.Chat.ID
		chatName := update.Message.Chat.Title
		if chatName == "" {
			chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
		}

		m.UpdateChannelsSet(chatID, chatName)

		m.MessagesPerChannel.WithLabelValues(
			fmt.Sprintf("%d", chatID), chatName,
		).Inc()

		handleCommand(ctx, bot, m, update)
	}
}

func handleCommand(ctx context.Context, bot *telegram.Bot, m *metrics.Metrics, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := bot.HandleUpdate(ctx, update)
	if text == "" {
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		m.CommandsProcessed.Inc()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Launching metrics and health endpoint on :%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()
	return server
}
