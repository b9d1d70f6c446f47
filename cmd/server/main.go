package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"planloom/internal/auth"
	"planloom/internal/codec"
	"planloom/internal/config"
	"planloom/internal/email"
	"planloom/internal/httpapi"
	"planloom/internal/jobs"
	"planloom/internal/notifications"
	"planloom/internal/sched"
	"planloom/internal/service"
	"planloom/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if cfg.DBDSN == "" {
		logger.Error("APP_DB_DSN is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pgPool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := postgres.EnsureSchema(ctx, pgPool); err != nil {
		logger.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	idCodec, err := codec.New(cfg.IDSalt)
	if err != nil {
		logger.Error("id codec init failed", "err", err)
		os.Exit(1)
	}

	users := postgres.NewUsersStore(pgPool)
	sessions := postgres.NewSessionsStore(pgPool)
	settings := postgres.NewSettingsStore(pgPool)
	tags := postgres.NewTagsStore(pgPool)
	projectTemplates := postgres.NewProjectTemplatesStore(pgPool)
	eventTemplates := postgres.NewEventTemplatesStore(pgPool)
	projects := postgres.NewProjectsStore(pgPool)
	events := postgres.NewEventsStore(pgPool)
	reminders := postgres.NewRemindersStore(pgPool)
	tokens := postgres.NewTokensStore(pgPool)

	runner := jobs.NewRunner(256)

	scheduler := &service.ReminderScheduler{
		Runner:    runner,
		Reminders: reminders,
		Logger:    logger,
	}

	var mailSender *email.Sender
	if cfg.SMTP.Configured() {
		mailSender = email.NewSender(email.Settings{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			TLSMode:   cfg.SMTP.TLSMode,
			FromName:  cfg.SMTP.FromName,
			FromEmail: cfg.SMTP.FromEmail,
		})
		logger.Info("email sender enabled", "host", cfg.SMTP.Host)
	} else {
		logger.Info("email sender disabled")
	}

	var pushSender service.PushSender
	if cfg.FCMProjectID != "" {
		fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
		if err != nil {
			logger.Error("fcm init failed", "err", err)
			os.Exit(1)
		}
		pushSender = fcm
		logger.Info("push sender enabled", "project_id", cfg.FCMProjectID)
	} else {
		logger.Info("push sender disabled")
	}

	dispatcher := &service.Dispatcher{
		Store:  reminders,
		Tokens: tokens,
		Email:  mailSender,
		Push:   pushSender,
		Logger: logger,
	}

	authSvc := &service.AuthService{
		Users:      users,
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL,
	}
	templateSvc := &service.TemplateService{
		Templates:      projectTemplates,
		EventTemplates: eventTemplates,
	}
	projectSvc := &service.ProjectService{
		Projects:  projects,
		Scheduler: scheduler,
	}
	eventSvc := &service.EventService{
		Events:    events,
		Scheduler: scheduler,
	}
	tagSvc := &service.TagService{Tags: tags}
	settingsSvc := &service.SettingsService{Settings: settings}
	notificationSvc := &service.NotificationService{Tokens: tokens}

	// Stored handles reference the previous process's runner and are dead on
	// arrival; clear them and arm everything still pending.
	if err := scheduler.Reset(ctx); err != nil {
		logger.Error("scheduler reset failed", "err", err)
		os.Exit(1)
	}

	runner.Start()
	go dispatcher.Run(ctx, runner.C())

	maintenance := sched.NewMaintenance(logger)
	if err := maintenance.Every(time.Hour, "purge expired sessions", func() {
		if _, err := authSvc.PurgeExpiredSessions(context.Background()); err != nil {
			logger.Error("session purge failed", "err", err)
		}
	}); err != nil {
		logger.Error("maintenance setup failed", "err", err)
		os.Exit(1)
	}
	if err := maintenance.Every(10*time.Minute, "rearm sweep", func() {
		if err := scheduler.RearmSweep(context.Background()); err != nil {
			logger.Error("rearm sweep failed", "err", err)
		}
	}); err != nil {
		logger.Error("maintenance setup failed", "err", err)
		os.Exit(1)
	}
	maintenance.Start()

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:         logger,
		IsProd:         cfg.IsProd(),
		DBPing:         pgPool.Ping,
		Auth:           authSvc,
		Templates:      templateSvc,
		Projects:       projectSvc,
		Events:         eventSvc,
		Tags:           tagSvc,
		Settings:       settingsSvc,
		Notifications:  notificationSvc,
		Codec:          idCodec,
		CookieCodec:    auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure:   cfg.CookieSecure(),
		SessionTTL:     cfg.SessionTTL,
		GoogleClientID: cfg.GoogleWebClientID,
		AppleServiceID: cfg.AppleServiceID,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}

	maintenance.Stop()
	runner.Stop()
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
