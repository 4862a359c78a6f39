// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"signup-notifier/internal/common/config"
	"signup-notifier/internal/common/database"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/common/observability"
	"signup-notifier/internal/mail"
	"signup-notifier/internal/models"
	"signup-notifier/internal/notify"
	"signup-notifier/internal/store"
	"signup-notifier/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting signup notifier...",
		zap.String("environment", cfg.App.Environment),
		zap.String("mailProvider", cfg.Mail.Provider),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Stores ---
	records := store.NewRecordStore(pg.GetDB(), log)
	options := store.NewOptionStore(rdb.GetClient(), log)
	templates := store.NewTemplateStore(records, options, log)

	// --- Seed system-default templates ---
	if cfg.Registry.SeedPath != "" {
		if err := seedTemplates(ctx, cfg.Registry.SeedPath, templates, log); err != nil {
			zapLog.Fatal("template seeding failed", zap.Error(err))
		}
	}

	// --- Outbound transport ---
	var transport mail.Transport
	switch cfg.Mail.Provider {
	case "ses":
		transport, err = mail.NewSESTransport(ctx, cfg.Mail.SES.Region, log)
		if err != nil {
			zapLog.Fatal("SES transport init failed", zap.Error(err))
		}
	default:
		transport = mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			UseTLS:   cfg.Mail.SMTP.UseTLS,
		}, log)
	}

	// --- Notification pipeline ---
	clock := notify.SystemClock()
	resolver := notify.NewTemplateResolver(templates, records, log)
	renderer := notify.NewContentRenderer()
	composer := notify.NewRecipientComposer(cfg.Notifications, log)
	hooks := notify.NewInterceptors()
	dispatcher := notify.NewDispatcher(cfg.Notifications, resolver, renderer, composer, transport, hooks, records, log)

	reminderLimiter := notify.NewRateLimiter(notify.PathwayReminder, cfg.RateLimits.ReminderHourly, options, clock, log)
	rescheduleLimiter := notify.NewRateLimiter(notify.PathwayReschedule, cfg.RateLimits.RescheduleHourly, options, clock, log)
	queue := notify.NewRetryQueue(options, clock, log)

	runner := notify.NewBatchRunner(*cfg, records, dispatcher,
		reminderLimiter, rescheduleLimiter, queue, options, clock, obs, log)

	// --- Schedules ---
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Schedules.ReminderCron, func() {
		if _, err := runner.RunReminderBatch(context.Background()); err != nil {
			log.Error("reminder batch failed", map[string]interface{}{"error": err.Error()})
		}
	})
	if err != nil {
		zapLog.Fatal("invalid reminder cron expression", zap.Error(err))
	}
	_, err = scheduler.AddFunc(cfg.Schedules.RescheduleCron, func() {
		if _, err := runner.RunReschedulePass(context.Background()); err != nil {
			log.Error("reschedule pass failed", map[string]interface{}{"error": err.Error()})
		}
	})
	if err != nil {
		zapLog.Fatal("invalid reschedule cron expression", zap.Error(err))
	}
	scheduler.Start()
	zapLog.Info("Schedules registered",
		zap.String("reminder", cfg.Schedules.ReminderCron),
		zap.String("reschedule", cfg.Schedules.RescheduleCron),
	)

	// --- Metrics/pprof endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server starting", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		zapLog.Warn("Timed out waiting for running batches")
	}
	zapLog.Info("Shutdown complete")
}

// seedTemplates loads the registry file and installs each default that is
// not already configured. Existing defaults are never overwritten.
func seedTemplates(ctx context.Context, path string, templates *store.TemplateStore, log logger.Logger) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	seeded := 0
	for _, t := range reg.Templates {
		created, err := templates.SeedDefault(ctx, models.Category(t.Category), t.Subject, t.Body)
		if err != nil {
			return err
		}
		if created {
			seeded++
		}
	}
	log.Info("template registry applied", map[string]interface{}{
		"path": path, "templates": len(reg.Templates), "seeded": seeded,
	})
	return nil
}
